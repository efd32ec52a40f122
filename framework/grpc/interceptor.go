// Package idpgrpc provides gRPC server interceptors that authenticate bearer
// tokens carried in the "authorization" metadata key.
package idpgrpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// Interceptor authenticates unary and streaming gRPC calls.
type Interceptor struct {
	core            *core.Core
	extractor       AuthorizationExtractor
	errorHandler    ErrorHandler
	excludedMethods map[string]bool
	logger          core.Logger

	// Used during construction only.
	authenticator       core.Authenticator
	credentialsOptional bool
	metrics             core.Metrics
	tracer              core.Tracer
}

// New creates an Interceptor. WithValidator is required.
func New(opts ...Option) (*Interceptor, error) {
	i := &Interceptor{
		extractor:       MetadataExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
		logger:          core.NopLogger{},
	}

	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}

	if i.authenticator == nil {
		return nil, errors.New("validator is required, use WithValidator option")
	}

	coreOpts := []core.Option{
		core.WithAuthenticator(i.authenticator),
		core.WithCredentialsOptional(i.credentialsOptional),
		core.WithLogger(i.logger),
	}
	if i.metrics != nil {
		coreOpts = append(coreOpts, core.WithMetrics(i.metrics))
	}
	if i.tracer != nil {
		coreOpts = append(coreOpts, core.WithTracer(i.tracer))
	}
	c, err := core.New(coreOpts...)
	if err != nil {
		return nil, err
	}
	i.core = c

	return i, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that
// authenticates the call and stores the identity in the handler's context.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if i.excludedMethods[info.FullMethod] {
			i.logger.Debug("skipping authentication for excluded method",
				"method", info.FullMethod)
			return handler(ctx, req)
		}

		authedCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(authedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// authenticates the stream and exposes the identity through its context.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			i.logger.Debug("skipping authentication for excluded method",
				"method", info.FullMethod)
			return handler(srv, ss)
		}

		authedCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: authedCtx})
	}
}

func (i *Interceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	authorization, err := i.extractor(ctx)
	if err != nil {
		i.logger.Warn("failed to extract authorization from gRPC metadata",
			"error", err,
			"method", method)
		return ctx, i.errorHandler(err)
	}

	identity, err := i.core.CheckAuthorization(ctx, authorization)
	if err != nil {
		return ctx, i.errorHandler(err)
	}
	if identity == nil {
		return ctx, nil
	}
	return core.SetIdentity(ctx, identity), nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context carrying the identity.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
