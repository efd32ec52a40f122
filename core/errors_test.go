package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailure(t *testing.T) {
	t.Run("It formats reason, detail and cause", func(t *testing.T) {
		f := NewFailure(ReasonFetchFailed, "google", errors.New("status 503"))
		assert.Equal(t, "fetch_failed: google: status 503", f.Error())
		assert.Equal(t, "expired", NewFailure(ReasonExpired, "", nil).Error())
	})

	t.Run("It matches the sentinel for its reason", func(t *testing.T) {
		missing := NewFailure(ReasonMissingHeader, "", nil)
		assert.ErrorIs(t, missing, ErrJWTMissing)
		assert.NotErrorIs(t, missing, ErrJWTInvalid)

		for _, reason := range []FailureReason{
			ReasonMalformedHeader, ReasonMalformedToken, ReasonExpired,
			ReasonInvalidAudience, ReasonInvalidIssuer, ReasonProviderUnavailable,
			ReasonFetchFailed, ReasonUnknownKeySignature, ReasonInvalidSignature,
		} {
			f := NewFailure(reason, "", nil)
			assert.ErrorIs(t, f, ErrJWTInvalid, reason)
			assert.NotErrorIs(t, f, ErrJWTMissing, reason)
		}
	})

	t.Run("It unwraps to the cause", func(t *testing.T) {
		wrapped := fmt.Errorf("outer: %w", NewFailure(ReasonFetchFailed, "", ErrFetchFailed))
		assert.ErrorIs(t, wrapped, ErrFetchFailed)
		assert.ErrorIs(t, wrapped, ErrJWTInvalid)
	})
}

func TestOutcome(t *testing.T) {
	t.Run("It reports success", func(t *testing.T) {
		o := Succeeded(BuildIdentity(map[string]any{"sub": "u"}))
		assert.True(t, o.OK())
		assert.NoError(t, o.Err())
		assert.Empty(t, o.Reason())
	})

	t.Run("It reports failure", func(t *testing.T) {
		o := Failed(ReasonInvalidIssuer, "bad iss", nil)
		assert.False(t, o.OK())
		assert.ErrorIs(t, o.Err(), ErrJWTInvalid)
		assert.Equal(t, ReasonInvalidIssuer, o.Reason())
	})
}
