package idpmiddleware

import (
	"net/http"
)

// AuthorizationExtractor returns the raw Authorization value for a request,
// scheme included, or "" when there is none.
type AuthorizationExtractor func(r *http.Request) string

// AuthHeaderExtractor reads the Authorization header.
func AuthHeaderExtractor(r *http.Request) string {
	return r.Header.Get("Authorization")
}

// HeaderExtractor reads the named header, e.g. X-Forwarded-Authorization
// behind a gateway that rewrites Authorization.
func HeaderExtractor(name string) AuthorizationExtractor {
	return func(r *http.Request) string {
		return r.Header.Get(name)
	}
}

// CookieExtractor reads a bare token from the named cookie and presents it
// as a Bearer credential.
func CookieExtractor(cookieName string) AuthorizationExtractor {
	return func(r *http.Request) string {
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			return ""
		}
		return "Bearer " + cookie.Value
	}
}

// MultiExtractor returns the first non-empty value from extractors.
func MultiExtractor(extractors ...AuthorizationExtractor) AuthorizationExtractor {
	return func(r *http.Request) string {
		for _, ex := range extractors {
			if v := ex(r); v != "" {
				return v
			}
		}
		return ""
	}
}
