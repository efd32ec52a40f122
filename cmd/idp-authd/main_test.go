package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenhub/go-idp-middleware/config"
	"github.com/kitchenhub/go-idp-middleware/core"
	"github.com/kitchenhub/go-idp-middleware/internal/idptest"
)

const projectID = "kitchen-app"

func newTestApp(t *testing.T) (*app, *idptest.Signer, *idptest.Signer) {
	t.Helper()

	firebaseSigner := idptest.NewSigner(t, "firebase-kid")
	googleSigner := idptest.NewSigner(t, "google-kid")
	firebaseCerts := idptest.NewCertServer(t, "public, max-age=3600", firebaseSigner)
	googleCerts := idptest.NewCertServer(t, "public, max-age=3600", googleSigner)

	cfg := &config.Config{
		Providers:         []string{"firebase", "google", "github"},
		FirebaseProjectID: projectID,
		ValidAudiences:    []string{"client.apps.googleusercontent.com"},
		RefreshSchedule:   "@every 5m",
		FetchTimeout:      5 * time.Second,
	}
	reg := prometheus.NewRegistry()

	a, err := newApp(cfg, appDeps{
		logger:   core.NopLogger{},
		registry: reg,
		gatherer: reg,
		tracer:   core.NoopTracer{},
		endpoints: map[core.ProviderKind]string{
			core.Firebase: firebaseCerts.URL,
			core.Google:   googleCerts.URL,
		},
	})
	require.NoError(t, err)
	return a, firebaseSigner, googleSigner
}

func get(t *testing.T, h http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	a, firebaseSigner, googleSigner := newTestApp(t)

	t.Run("It reports health without authentication", func(t *testing.T) {
		rec := get(t, a.router, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
	})

	t.Run("It rejects /v1/me without a token", func(t *testing.T) {
		rec := get(t, a.router, "/v1/me", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("It authenticates a Firebase token", func(t *testing.T) {
		claims := idptest.Claims("https://securetoken.google.com/"+projectID, projectID, "firebase-user")
		claims["email"] = "cook@example.com"
		rec := get(t, a.router, "/v1/me", firebaseSigner.Sign(t, claims))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body meResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, core.Firebase, body.Provider)
		assert.Equal(t, "firebase-user", body.Subject)
		assert.Equal(t, "cook@example.com", body.Claims["email"])
	})

	t.Run("It authenticates a Google token", func(t *testing.T) {
		claims := idptest.Claims("accounts.google.com", "client.apps.googleusercontent.com", "google-user")
		rec := get(t, a.router, "/v1/me", googleSigner.Sign(t, claims))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body meResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, core.Google, body.Provider)
	})

	t.Run("It lists cached key sets", func(t *testing.T) {
		rec := get(t, a.router, "/v1/keys", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body []keySetResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body, 2)
		assert.Equal(t, core.Firebase, body[0].Provider)
		assert.Equal(t, []string{"firebase-kid"}, body[0].KeyIDs)
		assert.Equal(t, core.Google, body[1].Provider)
		assert.True(t, body[1].Cacheable)
		assert.False(t, body[1].Expired)
	})

	t.Run("It exposes metrics", func(t *testing.T) {
		rec := get(t, a.router, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), core.MetricAuthOutcomes)
		assert.Contains(t, rec.Body.String(), core.MetricKeystoreFetches)
	})
}

func TestNewApp(t *testing.T) {
	t.Run("It fails without a trust boundary", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		_, err := newApp(&config.Config{Providers: []string{"google"}, RefreshSchedule: "@every 5m", FetchTimeout: time.Second}, appDeps{
			logger: core.NopLogger{}, registry: reg, gatherer: reg, tracer: core.NoopTracer{},
		})
		assert.ErrorContains(t, err, "at least one audience is required")
	})

	t.Run("It rejects an invalid refresh schedule", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		_, err := newApp(&config.Config{
			Providers:       []string{"firebase"},
			RefreshSchedule: "whenever",
			FetchTimeout:    time.Second,
		}, appDeps{logger: core.NopLogger{}, registry: reg, gatherer: reg, tracer: core.NoopTracer{}})
		assert.ErrorContains(t, err, "create refresher")
	})
}
