// Package idpecho adapts idpmiddleware to the Echo framework.
package idpecho

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	idpmiddleware "github.com/kitchenhub/go-idp-middleware"
	"github.com/kitchenhub/go-idp-middleware/core"
)

// DefaultIdentityKey is the echo.Context key the identity is stored under.
var DefaultIdentityKey = "identity"

type echoContextKey struct{}

// echoMiddlewareConfig holds all configuration for the middleware
type echoMiddlewareConfig struct {
	errorHandler func(echo.Context, error) error
	contextKey   string
	middleware   []idpmiddleware.Option
}

// NewEchoMiddleware returns Echo middleware that authenticates requests with
// authenticator, typically a *validator.Validator.
func NewEchoMiddleware(authenticator core.Authenticator, opts ...Option) (echo.MiddlewareFunc, error) {
	cfg := &echoMiddlewareConfig{
		errorHandler: defaultEchoErrorHandler,
		contextKey:   DefaultIdentityKey,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	middlewareOpts := append([]idpmiddleware.Option{
		idpmiddleware.WithValidator(authenticator),
		idpmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			state, ok := r.Context().Value(echoContextKey{}).(*requestState)
			if !ok {
				idpmiddleware.DefaultErrorHandler(w, r, err)
				return
			}
			state.err = cfg.errorHandler(state.c, err)
		}),
	}, cfg.middleware...)

	m, err := idpmiddleware.New(middlewareOpts...)
	if err != nil {
		return nil, err
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			state := &requestState{c: c}
			handler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				if id, err := core.IdentityFromContext(r.Context()); err == nil {
					c.Set(cfg.contextKey, id)
				}
				state.err = next(c)
			})

			r := c.Request().WithContext(context.WithValue(c.Request().Context(), echoContextKey{}, state))
			m.CheckJWT(handler).ServeHTTP(c.Response(), r)
			return state.err
		}
	}, nil
}

// requestState carries the echo.Context into the error handler and the
// handler chain's error back out.
type requestState struct {
	c   echo.Context
	err error
}

func defaultEchoErrorHandler(c echo.Context, err error) error {
	var failure *core.Failure
	if !errors.As(err, &failure) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Something went wrong while checking the JWT.",
		})
	}
	c.Response().Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"message": "JWT is invalid.",
		"reason":  string(failure.Reason),
	})
}

// GetIdentity extracts the identity from the Echo context
func GetIdentity(c echo.Context, contextKey string) (*core.Identity, bool) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}
	id, ok := c.Get(contextKey).(*core.Identity)
	return id, ok && id != nil
}
