// Package idpgin adapts idpmiddleware to the Gin framework.
package idpgin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	idpmiddleware "github.com/kitchenhub/go-idp-middleware"
	"github.com/kitchenhub/go-idp-middleware/core"
)

// DefaultIdentityKey is the gin.Context key the identity is stored under.
const DefaultIdentityKey = "identity"

var (
	ErrMissingIdentity = errors.New("no identity found in context")
	ErrInvalidIdentity = errors.New("invalid identity type")
)

type ginContextKey struct{}

type config struct {
	errorHandler func(*gin.Context, error)
	contextKey   string
	middleware   []idpmiddleware.Option
}

// NewGinMiddleware returns a Gin handler that authenticates requests with
// authenticator, typically a *validator.Validator. On success the identity
// is available through GetIdentity and the request context.
func NewGinMiddleware(authenticator core.Authenticator, opts ...Option) (gin.HandlerFunc, error) {
	cfg := &config{
		errorHandler: defaultGinErrorHandler,
		contextKey:   DefaultIdentityKey,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	middlewareOpts := append([]idpmiddleware.Option{
		idpmiddleware.WithValidator(authenticator),
		idpmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			c, ok := r.Context().Value(ginContextKey{}).(*gin.Context)
			if !ok || c == nil {
				idpmiddleware.DefaultErrorHandler(w, r, err)
				return
			}
			cfg.errorHandler(c, err)
		}),
	}, cfg.middleware...)

	m, err := idpmiddleware.New(middlewareOpts...)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		passed := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			if id, err := core.IdentityFromContext(r.Context()); err == nil {
				c.Set(cfg.contextKey, id)
			}
			c.Next()
		})

		r := c.Request.WithContext(context.WithValue(c.Request.Context(), ginContextKey{}, c))
		m.CheckJWT(next).ServeHTTP(c.Writer, r)

		if !passed {
			c.Abort()
		}
	}, nil
}

func defaultGinErrorHandler(c *gin.Context, err error) {
	var failure *core.Failure
	if !errors.As(err, &failure) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": "Something went wrong while checking the JWT.",
		})
		return
	}
	c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"message": "JWT is invalid.",
		"reason":  string(failure.Reason),
	})
}

// GetIdentity returns the identity stored by the middleware. An empty
// contextKey means DefaultIdentityKey.
func GetIdentity(c *gin.Context, contextKey string) (*core.Identity, error) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingIdentity
	}

	id, ok := value.(*core.Identity)
	if !ok {
		return nil, ErrInvalidIdentity
	}
	return id, nil
}
