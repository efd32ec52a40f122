package idpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractors(t *testing.T) {
	t.Run("It reads the Authorization header verbatim", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer abc")
		assert.Equal(t, "bearer abc", AuthHeaderExtractor(req))
	})

	t.Run("It reads a named header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-Authorization", "Bearer abc")
		assert.Equal(t, "Bearer abc", HeaderExtractor("X-Forwarded-Authorization")(req))
	})

	t.Run("It presents a cookie as a bearer credential", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "abc"})
		assert.Equal(t, "Bearer abc", CookieExtractor("session")(req))
	})

	t.Run("It returns nothing for a missing cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Empty(t, CookieExtractor("session")(req))
	})

	t.Run("It returns the first non-empty value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "from-cookie"})
		ex := MultiExtractor(AuthHeaderExtractor, CookieExtractor("session"))
		assert.Equal(t, "Bearer from-cookie", ex(req))

		req.Header.Set("Authorization", "Bearer from-header")
		assert.Equal(t, "Bearer from-header", ex(req))
	})

	t.Run("It returns nothing when no extractor matches", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Empty(t, MultiExtractor()(req))
	})
}
