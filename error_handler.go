package idpmiddleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// ErrorHandler is called when a request cannot be authenticated. err is a
// *core.Failure for authentication failures; errors.Is(err,
// core.ErrJWTMissing) and errors.Is(err, core.ErrJWTInvalid) distinguish a
// missing header from a rejected token. Any other error is unexpected.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type errorBody struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// DefaultErrorHandler answers 401 with a Bearer challenge and a JSON body
// carrying the failure reason code, or 500 for unexpected errors. The
// failure detail is not sent to the client.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")

	var failure *core.Failure
	errors.As(err, &failure)

	switch {
	case errors.Is(err, core.ErrJWTMissing):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, errorBody{Message: "JWT is missing.", Reason: reasonOf(failure)})
	case errors.Is(err, core.ErrJWTInvalid):
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		writeJSON(w, http.StatusUnauthorized, errorBody{Message: "JWT is invalid.", Reason: reasonOf(failure)})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Something went wrong while checking the JWT."})
	}
}

func reasonOf(f *core.Failure) string {
	if f == nil {
		return ""
	}
	return string(f.Reason)
}

func writeJSON(w http.ResponseWriter, status int, body errorBody) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
