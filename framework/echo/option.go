package idpecho

import (
	"github.com/labstack/echo/v4"

	idpmiddleware "github.com/kitchenhub/go-idp-middleware"
)

// Option is a function that configures the middleware
type Option func(*echoMiddlewareConfig)

// WithErrorHandler sets a custom error handler. Its return value is
// returned from the middleware.
func WithErrorHandler(handler func(echo.Context, error) error) Option {
	return func(config *echoMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets a custom context key to store the identity
func WithContextKey(key string) Option {
	return func(config *echoMiddlewareConfig) {
		config.contextKey = key
	}
}

// WithMiddlewareOptions passes options through to idpmiddleware.New.
func WithMiddlewareOptions(opts ...idpmiddleware.Option) Option {
	return func(config *echoMiddlewareConfig) {
		config.middleware = append(config.middleware, opts...)
	}
}
