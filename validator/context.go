package validator

import (
	"errors"
	"slices"
	"time"
)

// ValidationContext is the trust boundary tokens are checked against. It is
// immutable once built and safe for concurrent use.
type ValidationContext struct {
	issuers   map[string]struct{}
	audiences map[string]struct{}
	skew      time.Duration
}

// NewValidationContext builds a ValidationContext. Empty entries are ignored.
func NewValidationContext(issuers, audiences []string, skew time.Duration) (ValidationContext, error) {
	if skew < 0 {
		return ValidationContext{}, errors.New("clock skew cannot be negative")
	}
	return ValidationContext{
		issuers:   toSet(issuers),
		audiences: toSet(audiences),
		skew:      skew,
	}, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// HasIssuer reports whether iss is trusted.
func (c ValidationContext) HasIssuer(iss string) bool {
	_, ok := c.issuers[iss]
	return ok
}

// HasAudience reports whether aud is accepted.
func (c ValidationContext) HasAudience(aud string) bool {
	_, ok := c.audiences[aud]
	return ok
}

// ClockSkew returns the tolerance applied to the expiry check.
func (c ValidationContext) ClockSkew() time.Duration {
	return c.skew
}

// Issuers returns the trusted issuers, sorted.
func (c ValidationContext) Issuers() []string {
	return sortedKeys(c.issuers)
}

// Audiences returns the accepted audiences, sorted.
func (c ValidationContext) Audiences() []string {
	return sortedKeys(c.audiences)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
