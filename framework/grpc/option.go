package idpgrpc

import (
	"errors"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// Option configures the Interceptor.
type Option func(*Interceptor) error

// WithValidator sets the authenticator (REQUIRED), typically a
// *validator.Validator.
//
//	interceptor, err := idpgrpc.New(
//	    idpgrpc.WithValidator(v),
//	    idpgrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
func WithValidator(a core.Authenticator) Option {
	return func(i *Interceptor) error {
		if a == nil {
			return errors.New("validator cannot be nil")
		}
		i.authenticator = a
		return nil
	}
}

// WithCredentialsOptional lets calls without authorization metadata through
// unauthenticated.
func WithCredentialsOptional(optional bool) Option {
	return func(i *Interceptor) error {
		i.credentialsOptional = optional
		return nil
	}
}

// WithAuthorizationExtractor sets where the authorization value is read from.
func WithAuthorizationExtractor(e AuthorizationExtractor) Option {
	return func(i *Interceptor) error {
		if e == nil {
			return errors.New("extractor cannot be nil")
		}
		i.extractor = e
		return nil
	}
}

// WithErrorHandler sets the function that maps errors to gRPC statuses.
func WithErrorHandler(h ErrorHandler) Option {
	return func(i *Interceptor) error {
		if h == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = h
		return nil
	}
}

// WithExcludedMethods skips authentication for the given full method names.
func WithExcludedMethods(methods ...string) Option {
	return func(i *Interceptor) error {
		for _, m := range methods {
			if m == "" {
				return errors.New("excluded method cannot be empty")
			}
			i.excludedMethods[m] = true
		}
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(i *Interceptor) error {
		if logger == nil {
			return core.ErrLoggerNil
		}
		i.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m core.Metrics) Option {
	return func(i *Interceptor) error {
		if m == nil {
			return core.ErrMetricsNil
		}
		i.metrics = m
		return nil
	}
}

// WithTracer sets the tracer.
func WithTracer(t core.Tracer) Option {
	return func(i *Interceptor) error {
		if t == nil {
			return core.ErrTracerNil
		}
		i.tracer = t
		return nil
	}
}
