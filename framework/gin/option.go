package idpgin

import (
	"github.com/gin-gonic/gin"

	idpmiddleware "github.com/kitchenhub/go-idp-middleware"
)

// Option defines a functional option for configuring the middleware
type Option func(*config)

// WithErrorHandler sets a custom error handler for the middleware
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(cfg *config) {
		cfg.errorHandler = handler
	}
}

// WithContextKey sets the gin.Context key the identity is stored under
func WithContextKey(key string) Option {
	return func(cfg *config) {
		cfg.contextKey = key
	}
}

// WithMiddlewareOptions passes options through to idpmiddleware.New,
// e.g. WithCredentialsOptional or WithExclusionUrls.
func WithMiddlewareOptions(opts ...idpmiddleware.Option) Option {
	return func(cfg *config) {
		cfg.middleware = append(cfg.middleware, opts...)
	}
}
