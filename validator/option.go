package validator

import (
	"errors"
	"fmt"
	"time"

	"github.com/kitchenhub/go-idp-middleware/core"
	"github.com/kitchenhub/go-idp-middleware/verifier"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithKeyStore sets the source of signing keys. This is a required option.
func WithKeyStore(ks KeyStore) Option {
	return func(v *Validator) error {
		if ks == nil {
			return errors.New("key store cannot be nil")
		}
		v.keys = ks
		return nil
	}
}

// WithIssuers adds trusted issuers (iss). At least one is required.
func WithIssuers(issuers ...string) Option {
	return func(v *Validator) error {
		for i, iss := range issuers {
			if iss == "" {
				return fmt.Errorf("issuer at index %d cannot be empty", i)
			}
		}
		v.issuers = append(v.issuers, issuers...)
		return nil
	}
}

// WithAudiences adds accepted audiences (aud). At least one is required.
//
// Every audience in a token must be accepted: a token addressed to an
// accepted and an unknown audience is rejected.
func WithAudiences(audiences ...string) Option {
	return func(v *Validator) error {
		for i, aud := range audiences {
			if aud == "" {
				return fmt.Errorf("audience at index %d cannot be empty", i)
			}
		}
		v.audiences = append(v.audiences, audiences...)
		return nil
	}
}

// WithAllowedClockSkew sets how long after exp a token is still accepted.
// Default: 0.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.skew = skew
		return nil
	}
}

// WithVerifiers replaces the verifier registry. Default: verifier.DefaultRegistry.
func WithVerifiers(r *verifier.Registry) Option {
	return func(v *Validator) error {
		if r == nil {
			return errors.New("verifier registry cannot be nil")
		}
		v.verifiers = r
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(v *Validator) error {
		if logger == nil {
			return core.ErrLoggerNil
		}
		v.logger = logger
		return nil
	}
}

// WithClock sets the clock used for the expiry check.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}
