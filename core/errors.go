package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for authentication.
var (
	// ErrJWTMissing is returned when the request carries no Authorization header.
	ErrJWTMissing = errors.New("jwt missing")

	// ErrJWTInvalid is returned when the JWT is present but could not be authenticated.
	// Every Failure other than a missing header matches it.
	ErrJWTInvalid = errors.New("jwt invalid")

	// ErrIdentityNotFound is returned when no identity is stored in the context.
	ErrIdentityNotFound = errors.New("identity not found in context")

	// ErrProviderUnavailable is returned by the key store for provider kinds
	// that are not enabled.
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// ErrFetchFailed is returned when signing keys could not be fetched
	// from a provider.
	ErrFetchFailed = errors.New("signing key fetch failed")

	// ErrMalformedToken is returned by DecodeToken.
	ErrMalformedToken = errors.New("malformed token")
)

// FailureReason is a machine-readable authentication failure code.
type FailureReason string

// Failure reasons, in pipeline order.
const (
	ReasonMissingHeader       FailureReason = "missing_header"
	ReasonMalformedHeader     FailureReason = "malformed_header"
	ReasonMalformedToken      FailureReason = "malformed_token"
	ReasonExpired             FailureReason = "expired"
	ReasonInvalidAudience     FailureReason = "invalid_audience"
	ReasonInvalidIssuer       FailureReason = "invalid_issuer"
	ReasonProviderUnavailable FailureReason = "provider_unavailable"
	ReasonFetchFailed         FailureReason = "fetch_failed"
	ReasonUnknownKeySignature FailureReason = "unknown_key_signature"
	ReasonInvalidSignature    FailureReason = "invalid_signature"
)

// Failure describes why a request could not be authenticated. It is an
// expected outcome of untrusted input, not an exceptional condition.
type Failure struct {
	// Reason is the failure code.
	Reason FailureReason

	// Detail is a human-readable description. It is meant for logs and
	// should not be echoed to clients verbatim.
	Detail string

	// Err is the underlying error, if any.
	Err error
}

// NewFailure creates a Failure.
func NewFailure(reason FailureReason, detail string, err error) *Failure {
	return &Failure{Reason: reason, Detail: detail, Err: err}
}

// Error implements the error interface.
func (f *Failure) Error() string {
	msg := string(f.Reason)
	if f.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, f.Detail)
	}
	if f.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, f.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Is reports ErrJWTMissing for a missing header and ErrJWTInvalid for
// every other reason.
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrJWTMissing:
		return f.Reason == ReasonMissingHeader
	case ErrJWTInvalid:
		return f.Reason != ReasonMissingHeader
	}
	return false
}
