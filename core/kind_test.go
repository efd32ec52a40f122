package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProviderKind(t *testing.T) {
	testCases := []struct {
		in   string
		want ProviderKind
	}{
		{"firebase", Firebase},
		{"Google", Google},
		{" GITHUB ", Github},
		{"facebook", Facebook},
	}
	for _, tc := range testCases {
		t.Run("It parses "+tc.in, func(t *testing.T) {
			got, err := ParseProviderKind(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("It rejects unknown names", func(t *testing.T) {
		for _, in := range []string{"", "unknown", "okta"} {
			got, err := ParseProviderKind(in)
			assert.Error(t, err, in)
			assert.Equal(t, Unknown, got)
		}
	})
}

func TestProviderKind_Text(t *testing.T) {
	t.Run("It round-trips through JSON", func(t *testing.T) {
		raw, err := json.Marshal([]ProviderKind{Firebase, Google})
		require.NoError(t, err)
		assert.JSONEq(t, `["firebase","google"]`, string(raw))

		var got []ProviderKind
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, []ProviderKind{Firebase, Google}, got)
	})

	t.Run("It names out of range kinds", func(t *testing.T) {
		assert.Equal(t, "provider(42)", ProviderKind(42).String())
	})
}
