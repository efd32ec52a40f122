package idpmiddleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// Middleware authenticates net/http requests with bearer tokens issued by
// the configured identity providers.
type Middleware struct {
	core                *core.Core
	errorHandler        ErrorHandler
	extractor           AuthorizationExtractor
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	logger              Logger

	// Used during construction only.
	authenticator       core.Authenticator
	credentialsOptional bool
	metrics             core.Metrics
	tracer              core.Tracer
}

// Logger defines an optional logging interface compatible with log/slog.
type Logger = core.Logger

// ExclusionURLHandler reports whether a request skips authentication.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a Middleware.
//
//	m, err := idpmiddleware.New(
//	    idpmiddleware.WithValidator(v),
//	    idpmiddleware.WithExclusionUrls([]string{"/healthz"}),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
//	http.Handle("/api/", m.CheckJWT(apiHandler))
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		validateOnOptions:   true,
		credentialsOptional: false,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.authenticator == nil {
		return nil, fmt.Errorf("invalid middleware configuration: %w", ErrValidatorNil)
	}

	m.applyDefaults()

	if err := m.createCore(); err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}

	return m, nil
}

func (m *Middleware) applyDefaults() {
	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.extractor == nil {
		m.extractor = AuthHeaderExtractor
	}
	if m.logger == nil {
		m.logger = core.NopLogger{}
	}
}

func (m *Middleware) createCore() error {
	coreOpts := []core.Option{
		core.WithAuthenticator(m.authenticator),
		core.WithCredentialsOptional(m.credentialsOptional),
		core.WithLogger(m.logger),
	}
	if m.metrics != nil {
		coreOpts = append(coreOpts, core.WithMetrics(m.metrics))
	}
	if m.tracer != nil {
		coreOpts = append(coreOpts, core.WithTracer(m.tracer))
	}

	c, err := core.New(coreOpts...)
	if err != nil {
		return err
	}
	m.core = c
	return nil
}

// GetIdentity returns the identity stored by CheckJWT.
//
//	id, err := idpmiddleware.GetIdentity(r.Context())
//	if err != nil {
//	    http.Error(w, "unauthenticated", http.StatusUnauthorized)
//	    return
//	}
//	fmt.Fprintf(w, "hello %s", id.Subject)
func GetIdentity(ctx context.Context) (*core.Identity, error) {
	return core.IdentityFromContext(ctx)
}

// MustGetIdentity returns the identity stored by CheckJWT or panics.
// Use only behind CheckJWT with credentials required.
func MustGetIdentity(ctx context.Context) *core.Identity {
	id, err := core.IdentityFromContext(ctx)
	if err != nil {
		panic(err)
	}
	return id
}

// HasIdentity reports whether the request was authenticated.
func HasIdentity(ctx context.Context) bool {
	return core.HasIdentity(ctx)
}

// CheckJWT authenticates the request and calls next with the identity in
// the request context. Failures go to the error handler and next is not
// called.
func (m *Middleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
			m.logger.Debug("skipping authentication for excluded URL",
				"method", r.Method,
				"path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			m.logger.Debug("skipping authentication for OPTIONS request")
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.core.CheckAuthorization(r.Context(), m.extractor(r))
		if err != nil {
			m.logger.Debug("request rejected",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
			m.errorHandler(w, r, err)
			return
		}

		if identity == nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(core.SetIdentity(r.Context(), identity)))
	})
}
