package core

import (
	"encoding/json"
	"fmt"
	"slices"
)

// SchemeBearer is the authentication scheme recorded on every Identity.
const SchemeBearer = "Bearer"

// Identity is the authenticated principal built from a verified token.
// Its claim set is exactly the token's payload.
type Identity struct {
	Provider ProviderKind
	Scheme   string
	Subject  string
	Issuer   string

	claims map[string]any
}

// BuildIdentity maps every claim onto a new Identity. No claim is dropped
// or renamed. The provider kind is left Unknown for the caller to set.
func BuildIdentity(claims map[string]any) *Identity {
	id := &Identity{
		Scheme: SchemeBearer,
		claims: cloneClaims(claims),
	}
	id.Subject, _ = id.claims["sub"].(string)
	id.Issuer, _ = id.claims["iss"].(string)
	return id
}

// Claims returns a deep copy of the claim set.
func (i *Identity) Claims() map[string]any {
	return cloneClaims(i.claims)
}

// Claim returns a deep copy of a single claim value.
func (i *Identity) Claim(key string) (any, bool) {
	v, ok := i.claims[key]
	return cloneValue(v), ok
}

// cloneClaims copies nested objects and arrays so that no caller shares
// memory with the identity. A nil map yields an empty one.
func cloneClaims(claims map[string]any) map[string]any {
	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneClaims(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(v)
	default:
		return v
	}
}

// Decode maps the claim set onto ref, which must be a pointer to a struct
// or map with json tags.
func (i *Identity) Decode(ref any) error {
	raw, err := json.Marshal(i.claims)
	if err != nil {
		return fmt.Errorf("could not encode claims: %w", err)
	}
	if err := json.Unmarshal(raw, ref); err != nil {
		return fmt.Errorf("could not decode claims: %w", err)
	}
	return nil
}

// FirebaseClaims is the shape of a Firebase Authentication ID token.
type FirebaseClaims struct {
	Subject       string         `json:"sub"`
	UserID        string         `json:"user_id"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"email_verified"`
	Name          string         `json:"name"`
	Picture       string         `json:"picture"`
	AuthTime      json.Number    `json:"auth_time"`
	Firebase      FirebaseDetail `json:"firebase"`
}

// FirebaseDetail is the "firebase" claim of a Firebase ID token.
type FirebaseDetail struct {
	SignInProvider string              `json:"sign_in_provider"`
	Identities     map[string][]string `json:"identities"`
}

// GoogleClaims is the shape of a Google Sign-In ID token.
type GoogleClaims struct {
	Subject         string `json:"sub"`
	Email           string `json:"email"`
	EmailVerified   bool   `json:"email_verified"`
	HostedDomain    string `json:"hd"`
	Name            string `json:"name"`
	Picture         string `json:"picture"`
	AuthorizedParty string `json:"azp"`
}
