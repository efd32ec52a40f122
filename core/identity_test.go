package core

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIdentity(t *testing.T) {
	claims := map[string]any{
		"iss":            "https://securetoken.google.com/kitchenhub",
		"aud":            "kitchenhub",
		"sub":            "uid-1",
		"user_id":        "uid-1",
		"email":          "cook@example.com",
		"email_verified": true,
		"auth_time":      json.Number("1700000000"),
		"firebase": map[string]any{
			"sign_in_provider": "google.com",
			"identities":       map[string]any{"email": []any{"cook@example.com"}},
		},
	}

	t.Run("It keeps every claim verbatim", func(t *testing.T) {
		id := BuildIdentity(claims)

		assert.Equal(t, SchemeBearer, id.Scheme)
		assert.Equal(t, "uid-1", id.Subject)
		assert.Equal(t, "https://securetoken.google.com/kitchenhub", id.Issuer)
		assert.Empty(t, cmp.Diff(claims, id.Claims()))
		for key, want := range claims {
			got, ok := id.Claim(key)
			require.True(t, ok, key)
			assert.Equal(t, want, got, key)
		}
	})

	t.Run("It isolates the claim set from the caller", func(t *testing.T) {
		input := map[string]any{"sub": "uid-1"}
		id := BuildIdentity(input)
		input["sub"] = "changed"

		out := id.Claims()
		out["sub"] = "changed again"

		got, _ := id.Claim("sub")
		assert.Equal(t, "uid-1", got)
	})

	t.Run("It isolates nested claims from the caller", func(t *testing.T) {
		emails := []any{"cook@example.com"}
		identities := map[string]any{"email": emails}
		input := map[string]any{
			"sub":      "uid-1",
			"firebase": map[string]any{"identities": identities},
		}
		id := BuildIdentity(input)

		emails[0] = "intruder@example.com"
		identities["phone"] = []any{"+15550000"}

		out := id.Claims()
		out["firebase"].(map[string]any)["sign_in_provider"] = "password"

		fb, ok := id.Claim("firebase")
		require.True(t, ok)
		fb.(map[string]any)["identities"].(map[string]any)["email"].([]any)[0] = "other@example.com"

		want := map[string]any{
			"sub": "uid-1",
			"firebase": map[string]any{
				"identities": map[string]any{"email": []any{"cook@example.com"}},
			},
		}
		assert.Empty(t, cmp.Diff(want, id.Claims()))
	})

	t.Run("It handles nil claims", func(t *testing.T) {
		id := BuildIdentity(nil)
		assert.NotNil(t, id.Claims())
		_, ok := id.Claim("sub")
		assert.False(t, ok)
	})

	t.Run("It decodes Firebase claims", func(t *testing.T) {
		var fc FirebaseClaims
		require.NoError(t, BuildIdentity(claims).Decode(&fc))

		assert.Equal(t, "uid-1", fc.UserID)
		assert.True(t, fc.EmailVerified)
		assert.Equal(t, json.Number("1700000000"), fc.AuthTime)
		assert.Equal(t, "google.com", fc.Firebase.SignInProvider)
		assert.Equal(t, []string{"cook@example.com"}, fc.Firebase.Identities["email"])
	})

	t.Run("It reports decode errors", func(t *testing.T) {
		var wrong struct {
			Email int `json:"email"`
		}
		assert.Error(t, BuildIdentity(claims).Decode(&wrong))
	})
}
