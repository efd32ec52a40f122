package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	idpmiddleware "github.com/kitchenhub/go-idp-middleware"
	"github.com/kitchenhub/go-idp-middleware/core"
	"github.com/kitchenhub/go-idp-middleware/keystore"
)

func newRouter(mw *idpmiddleware.Middleware, store *keystore.Store, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/keys", keysHandler(store))

		r.Group(func(r chi.Router) {
			r.Use(mw.CheckJWT)
			r.Get("/me", meHandler)
		})
	})
	return r
}

type meResponse struct {
	Provider core.ProviderKind `json:"provider"`
	Subject  string            `json:"subject"`
	Issuer   string            `json:"issuer"`
	Claims   map[string]any    `json:"claims"`
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	id := idpmiddleware.MustGetIdentity(r.Context())
	writeJSON(w, http.StatusOK, meResponse{
		Provider: id.Provider,
		Subject:  id.Subject,
		Issuer:   id.Issuer,
		Claims:   id.Claims(),
	})
}

type keySetResponse struct {
	Provider  core.ProviderKind `json:"provider"`
	KeyIDs    []string          `json:"key_ids"`
	FetchedAt time.Time         `json:"fetched_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Cacheable bool              `json:"cacheable"`
	Expired   bool              `json:"expired"`
}

// keysHandler reports the cached key sets, stale ones included. It never
// triggers a fetch.
func keysHandler(store *keystore.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snapshot := store.Snapshot()
		now := time.Now()

		out := make([]keySetResponse, 0, snapshot.Len())
		for _, kind := range snapshot.Kinds() {
			set, _ := snapshot.Get(kind)
			out = append(out, keySetResponse{
				Provider:  kind,
				KeyIDs:    set.KeyIDs(),
				FetchedAt: set.FetchedAt,
				ExpiresAt: set.ExpiresAt,
				Cacheable: set.Cacheable,
				Expired:   set.Expired(now),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
