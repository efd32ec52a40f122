package core

import (
	"errors"
)

// Sentinel configuration errors.
var (
	ErrAuthenticatorNil = errors.New("authenticator cannot be nil")
	ErrLoggerNil        = errors.New("logger cannot be nil")
	ErrMetricsNil       = errors.New("metrics cannot be nil")
	ErrTracerNil        = errors.New("tracer cannot be nil")
)

// Option is a function that configures the Core.
// Options return errors to enable validation during construction.
type Option func(*Core) error

// New creates a new Core instance with the provided options.
//
// The Core must be configured with an Authenticator using WithAuthenticator.
//
//	c, err := core.New(
//	    core.WithAuthenticator(v),
//	    core.WithLogger(slog.Default()),
//	)
func New(opts ...Option) (*Core, error) {
	c := &Core{
		credentialsOptional: false,
		logger:              NopLogger{},
		metrics:             NoopMetrics{},
		tracer:              NoopTracer{},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.authenticator == nil {
		return nil, errors.New("authenticator is required but not set (use WithAuthenticator option)")
	}

	return c, nil
}

// WithAuthenticator sets the authenticator. This option is required.
func WithAuthenticator(a Authenticator) Option {
	return func(c *Core) error {
		if a == nil {
			return ErrAuthenticatorNil
		}
		c.authenticator = a
		return nil
	}
}

// WithCredentialsOptional configures whether credentials are optional.
//
// When set to true, requests without an Authorization header proceed
// without an identity. When false (default), they fail with missing_header.
func WithCredentialsOptional(optional bool) Option {
	return func(c *Core) error {
		c.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Core) error {
		if logger == nil {
			return ErrLoggerNil
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink for outcome counters and latency.
func WithMetrics(m Metrics) Option {
	return func(c *Core) error {
		if m == nil {
			return ErrMetricsNil
		}
		c.metrics = m
		return nil
	}
}

// WithTracer sets the tracer.
func WithTracer(t Tracer) Option {
	return func(c *Core) error {
		if t == nil {
			return ErrTracerNil
		}
		c.tracer = t
		return nil
	}
}
