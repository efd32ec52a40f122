package validator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kitchenhub/go-idp-middleware/core"
	"github.com/kitchenhub/go-idp-middleware/keystore"
	"github.com/kitchenhub/go-idp-middleware/verifier"
)

const bearerPrefix = "Bearer "

// KeyStore supplies the signing keys tokens are verified against.
// *keystore.Store implements it.
type KeyStore interface {
	RefreshAll(ctx context.Context) (keystore.Snapshot, error)
	Enabled() []core.ProviderKind
}

// Validator authenticates bearer tokens issued by the configured identity
// providers. It implements core.Authenticator.
type Validator struct {
	trust     ValidationContext
	keys      KeyStore
	verifiers *verifier.Registry
	now       func() time.Time
	logger    core.Logger

	issuers   []string
	audiences []string
	skew      time.Duration
}

// New creates a Validator.
//
// Required options:
//   - WithKeyStore
//   - WithIssuers
//   - WithAudiences
//
// Example:
//
//	v, err := validator.New(
//	    validator.WithKeyStore(store),
//	    validator.WithIssuers("https://accounts.google.com", "accounts.google.com"),
//	    validator.WithAudiences("client-1"),
//	    validator.WithAllowedClockSkew(30*time.Second),
//	)
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		verifiers: verifier.DefaultRegistry(),
		now:       time.Now,
		logger:    core.NopLogger{},
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if v.keys == nil {
		return nil, errors.New("key store is required (use WithKeyStore)")
	}
	if len(v.issuers) == 0 {
		return nil, errors.New("at least one issuer is required (use WithIssuers)")
	}
	if len(v.audiences) == 0 {
		return nil, errors.New("at least one audience is required (use WithAudiences)")
	}

	trust, err := NewValidationContext(v.issuers, v.audiences, v.skew)
	if err != nil {
		return nil, err
	}
	v.trust = trust

	return v, nil
}

// ValidationContext returns the trust boundary in use.
func (v *Validator) ValidationContext() ValidationContext {
	return v.trust
}

// AuthenticateRequest authenticates the request's Authorization header.
func (v *Validator) AuthenticateRequest(r *http.Request) core.Outcome {
	return v.Authenticate(r.Context(), r.Header.Get("Authorization"))
}

// Authenticate runs the validation stages in order and stops at the first
// failure: bearer extraction, decoding, expiry, audience, issuer, key
// refresh, key lookup by kid, and signature verification.
func (v *Validator) Authenticate(ctx context.Context, authorization string) core.Outcome {
	raw, failure := ExtractBearer(authorization)
	if failure != nil {
		return core.Outcome{Failure: failure}
	}

	token, err := core.DecodeToken(raw)
	if err != nil {
		return core.Failed(core.ReasonMalformedToken, "could not decode token", err)
	}

	if failure := v.checkClaims(token.Claims); failure != nil {
		return core.Outcome{Failure: failure}
	}

	snapshot, refreshErr := v.keys.RefreshAll(ctx)
	if refreshErr != nil {
		v.logger.Warn("Signing keys could not be refreshed for every provider", "error", refreshErr)
	}

	kind, keyMaterial, found := snapshot.Lookup(token.Header.KeyID)
	if !found {
		return v.keyNotFound(token.Header.KeyID, refreshErr)
	}

	if !v.verifiers.Lookup(kind).Verify(token, keyMaterial) {
		return core.Failed(core.ReasonInvalidSignature, fmt.Sprintf("signature does not match %s key %q", kind, token.Header.KeyID), nil)
	}

	identity := core.BuildIdentity(token.Claims.All)
	identity.Provider = kind
	return core.Succeeded(identity)
}

func (v *Validator) checkClaims(claims core.TokenClaims) *core.Failure {
	if !claims.ExpiresAt.After(v.now().Add(-v.trust.ClockSkew())) {
		return core.NewFailure(core.ReasonExpired, fmt.Sprintf("token expired at %s", claims.ExpiresAt.UTC().Format(time.RFC3339)), nil)
	}

	if len(claims.Audiences) == 0 {
		return core.NewFailure(core.ReasonInvalidAudience, "token has no audience", nil)
	}
	for _, aud := range claims.Audiences {
		if !v.trust.HasAudience(aud) {
			return core.NewFailure(core.ReasonInvalidAudience, fmt.Sprintf("audience %q is not accepted", aud), nil)
		}
	}

	if claims.Issuer == "" {
		return core.NewFailure(core.ReasonInvalidIssuer, "token has no issuer", nil)
	}
	if !v.trust.HasIssuer(claims.Issuer) {
		return core.NewFailure(core.ReasonInvalidIssuer, fmt.Sprintf("issuer %q is not trusted", claims.Issuer), nil)
	}

	return nil
}

func (v *Validator) keyNotFound(kid string, refreshErr error) core.Outcome {
	switch {
	case len(v.keys.Enabled()) == 0:
		return core.Failed(core.ReasonProviderUnavailable, "no identity provider is enabled", core.ErrProviderUnavailable)
	case refreshErr != nil:
		return core.Failed(core.ReasonFetchFailed, fmt.Sprintf("key %q not found and signing keys could not be refreshed", kid), refreshErr)
	default:
		return core.Failed(core.ReasonUnknownKeySignature, fmt.Sprintf("no provider publishes key %q", kid), nil)
	}
}

// ExtractBearer returns the token from an Authorization header value of the
// form "Bearer <token>". The scheme is matched case-sensitively.
func ExtractBearer(authorization string) (string, *core.Failure) {
	if authorization == "" {
		return "", core.NewFailure(core.ReasonMissingHeader, "authorization header is missing", nil)
	}
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return "", core.NewFailure(core.ReasonMalformedHeader, "authorization header must use the Bearer scheme", nil)
	}
	token := strings.TrimSpace(authorization[len(bearerPrefix):])
	if token == "" {
		return "", core.NewFailure(core.ReasonMalformedHeader, "authorization header has no token", nil)
	}
	return token, nil
}
