package idpmiddleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// Option configures the Middleware.
// Returns error for validation failures.
type Option func(*Middleware) error

// Sentinel errors for configuration validation.
var (
	ErrValidatorNil       = errors.New("validator cannot be nil (use WithValidator)")
	ErrErrorHandlerNil    = errors.New("errorHandler cannot be nil")
	ErrExtractorNil       = errors.New("extractor cannot be nil")
	ErrExclusionUrlsEmpty = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil          = errors.New("logger cannot be nil")
	ErrMetricsNil         = errors.New("metrics cannot be nil")
	ErrTracerNil          = errors.New("tracer cannot be nil")
)

// WithValidator sets the authenticator (REQUIRED). *validator.Validator
// satisfies core.Authenticator.
func WithValidator(a core.Authenticator) Option {
	return func(m *Middleware) error {
		if a == nil {
			return ErrValidatorNil
		}
		m.authenticator = a
		return nil
	}
}

// WithCredentialsOptional sets whether requests without an Authorization
// header may proceed unauthenticated.
//
// Default: false (credentials required)
func WithCredentialsOptional(value bool) Option {
	return func(m *Middleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests are authenticated.
//
// Default: true
func WithValidateOnOptions(value bool) Option {
	return func(m *Middleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called when authentication fails.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithAuthorizationExtractor sets where the Authorization value is read from.
//
// Default: AuthHeaderExtractor
func WithAuthorizationExtractor(e AuthorizationExtractor) Option {
	return func(m *Middleware) error {
		if e == nil {
			return ErrExtractorNil
		}
		m.extractor = e
		return nil
	}
}

// WithExclusionUrls configures URLs that skip authentication. Entries are
// matched against the full request URL or its path. An entry ending in "/*"
// matches every path under that prefix.
func WithExclusionUrls(exclusions []string) Option {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		m.exclusionURLHandler = func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if prefix, ok := strings.CutSuffix(exclusion, "/*"); ok {
					if requestPath == prefix || strings.HasPrefix(requestPath, prefix+"/") {
						return true
					}
					continue
				}
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithLogger sets the logger used by the middleware and its core.
func WithLogger(logger Logger) Option {
	return func(m *Middleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink, e.g. NewPrometheusMetrics.
func WithMetrics(metrics core.Metrics) Option {
	return func(m *Middleware) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		m.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer, e.g. NewOpenTelemetryTracer.
func WithTracer(tracer core.Tracer) Option {
	return func(m *Middleware) error {
		if tracer == nil {
			return ErrTracerNil
		}
		m.tracer = tracer
		return nil
	}
}
