package keystore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitchenhub/go-idp-middleware/core"
)

func TestHTTPFetcher(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("It fetches the kid to certificate map", func(t *testing.T) {
		var requestCount int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requestCount, 1)
			assert.Equal(t, http.MethodGet, r.Method)
			w.Header().Set("Cache-Control", "public, max-age=3600")
			w.Header().Set("Age", "100")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"k1":"-----BEGIN CERTIFICATE-----\nAAA\n-----END CERTIFICATE-----\n","k2":"pem-2"}`))
		}))
		defer server.Close()

		f, err := NewGoogleFetcher(WithEndpoint(server.URL), WithFetcherClock(clock))
		require.NoError(t, err)
		assert.Equal(t, core.Google, f.Kind())

		set, err := f.Fetch(context.Background())
		require.NoError(t, err)

		assert.Equal(t, core.Google, set.Kind)
		assert.Equal(t, []string{"k1", "k2"}, set.KeyIDs())
		assert.True(t, set.Cacheable)
		assert.Equal(t, now, set.FetchedAt)
		assert.Equal(t, now.Add(3500*time.Second), set.ExpiresAt)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requestCount))
	})

	t.Run("It marks a response without max-age as uncacheable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"k1":"pem"}`))
		}))
		defer server.Close()

		f, err := NewFirebaseFetcher(WithEndpoint(server.URL), WithFetcherClock(clock))
		require.NoError(t, err)

		set, err := f.Fetch(context.Background())
		require.NoError(t, err)
		assert.False(t, set.Cacheable)
		assert.Equal(t, now, set.ExpiresAt)
		assert.True(t, set.Expired(now))
	})

	t.Run("It follows redirects", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusFound)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Cache-Control", "max-age=60")
			_, _ = w.Write([]byte(`{"k1":"pem"}`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		f, err := NewGoogleFetcher(WithEndpoint(server.URL + "/old"))
		require.NoError(t, err)

		set, err := f.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, set.Len())
	})

	t.Run("It fails on a non-success status and logs it", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		logger := &recordingLogger{}
		f, err := NewGoogleFetcher(WithEndpoint(server.URL), WithFetcherLogger(logger))
		require.NoError(t, err)

		_, err = f.Fetch(context.Background())
		assert.ErrorIs(t, err, core.ErrFetchFailed)
		assert.ErrorContains(t, err, "503")

		require.Equal(t, 1, logger.count("error"))
		args := logger.entries[0].args
		assert.Contains(t, args, "status")
		assert.Contains(t, args, http.StatusServiceUnavailable)
		assert.Contains(t, args, "Service Unavailable")
	})

	t.Run("It fails on a body that is not a string map", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"keys":[{"kid":"k1"}]}`))
		}))
		defer server.Close()

		f, err := NewGoogleFetcher(WithEndpoint(server.URL))
		require.NoError(t, err)

		_, err = f.Fetch(context.Background())
		assert.ErrorIs(t, err, core.ErrFetchFailed)
	})

	t.Run("It fails on a transport error", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		f, err := NewGoogleFetcher(WithEndpoint(url))
		require.NoError(t, err)

		_, err = f.Fetch(context.Background())
		assert.ErrorIs(t, err, core.ErrFetchFailed)
	})

	t.Run("It uses the well-known endpoints by default", func(t *testing.T) {
		g, err := NewGoogleFetcher()
		require.NoError(t, err)
		assert.Equal(t, GoogleCertsURL, g.Endpoint())

		fb, err := NewFirebaseFetcher()
		require.NoError(t, err)
		assert.Equal(t, FirebaseCertsURL, fb.Endpoint())
	})

	t.Run("It rejects invalid options", func(t *testing.T) {
		_, err := NewGoogleFetcher(WithHTTPClient(nil))
		assert.Error(t, err)
		_, err = NewGoogleFetcher(WithEndpoint(""))
		assert.Error(t, err)
		_, err = NewGoogleFetcher(WithFetcherLogger(nil))
		assert.ErrorIs(t, err, core.ErrLoggerNil)
		_, err = NewHTTPFetcher(core.Google, "")
		assert.Error(t, err)
	})
}
