package core

import (
	"context"
	"errors"
	"time"
)

// Authenticator turns the raw value of an Authorization header into an
// Outcome. Implementations never panic; every failure is a *Failure.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) Outcome
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, authorization string) Outcome

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, authorization string) Outcome {
	return f(ctx, authorization)
}

// Logger defines an optional logging interface. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Core is the framework-agnostic authentication engine wrapped by the
// HTTP, Gin, Echo and gRPC adapters.
type Core struct {
	authenticator       Authenticator
	credentialsOptional bool
	logger              Logger
	metrics             Metrics
	tracer              Tracer
}

// CheckAuthorization authenticates the raw Authorization header value.
//
//   - If the header is empty and credentials are optional, returns (nil, nil)
//   - If the header is empty and credentials are required, returns a
//     missing_header *Failure
//   - Otherwise returns the identity or the *Failure from the authenticator
func (c *Core) CheckAuthorization(ctx context.Context, authorization string) (*Identity, error) {
	if authorization == "" && c.credentialsOptional {
		c.logger.Debug("No authorization provided, but credentials are optional")
		return nil, nil
	}

	ctx, span := c.tracer.Start(ctx, "idp.authenticate")
	defer span.End()

	start := time.Now()
	outcome := c.authenticator.Authenticate(ctx, authorization)
	duration := time.Since(start)

	reason := "ok"
	if !outcome.OK() {
		err := outcome.Err()
		var failure *Failure
		if errors.As(err, &failure) {
			reason = string(failure.Reason)
		}
		c.metrics.IncCounter(MetricAuthOutcomes, map[string]string{"reason": reason})
		c.metrics.ObserveHistogram(MetricAuthDuration, duration.Seconds(), map[string]string{"result": "failure"})
		span.SetAttribute("idp.reason", reason)
		span.RecordError(err)

		if reason == string(ReasonMissingHeader) {
			c.logger.Warn("No authorization provided and credentials are required")
		} else {
			c.logger.Warn("Authentication failed", "reason", reason, "error", err, "duration", duration)
		}
		return nil, err
	}

	c.metrics.IncCounter(MetricAuthOutcomes, map[string]string{"reason": reason})
	c.metrics.ObserveHistogram(MetricAuthDuration, duration.Seconds(), map[string]string{"result": "success"})
	span.SetAttribute("idp.provider", outcome.Identity.Provider.String())
	c.logger.Debug("Authenticated", "provider", outcome.Identity.Provider, "subject", outcome.Identity.Subject, "duration", duration)

	return outcome.Identity, nil
}
