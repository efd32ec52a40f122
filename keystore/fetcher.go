package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// Well-known certificate endpoints. Each returns a JSON object mapping key
// IDs to PEM-encoded X.509 certificates.
const (
	GoogleCertsURL   = "https://www.googleapis.com/oauth2/v1/certs"
	FirebaseCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
)

// maxResponseSize bounds the certificate response body.
const maxResponseSize = 1 << 20

// Fetcher retrieves one provider's current signing keys.
type Fetcher interface {
	Fetch(ctx context.Context) (*SigningKeySet, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) (*SigningKeySet, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context) (*SigningKeySet, error) {
	return f(ctx)
}

// HTTPFetcher fetches a flat kid -> PEM map from a fixed endpoint and
// derives the set's expiry from the response caching headers.
type HTTPFetcher struct {
	kind     core.ProviderKind
	endpoint string
	client   *http.Client
	logger   core.Logger
	now      func() time.Time
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher) error

// NewHTTPFetcher returns a fetcher for kind reading from endpoint.
func NewHTTPFetcher(kind core.ProviderKind, endpoint string, opts ...FetcherOption) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		kind:     kind,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   core.NopLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	if f.endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	return f, nil
}

// NewGoogleFetcher returns a fetcher for Google Sign-In certificates.
func NewGoogleFetcher(opts ...FetcherOption) (*HTTPFetcher, error) {
	return NewHTTPFetcher(core.Google, GoogleCertsURL, opts...)
}

// NewFirebaseFetcher returns a fetcher for Firebase Authentication
// certificates.
func NewFirebaseFetcher(opts ...FetcherOption) (*HTTPFetcher, error) {
	return NewHTTPFetcher(core.Firebase, FirebaseCertsURL, opts...)
}

// WithHTTPClient sets a custom HTTP client.
// If not specified, a client with a 30s timeout is used.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) error {
		if c == nil {
			return errors.New("HTTP client cannot be nil")
		}
		f.client = c
		return nil
	}
}

// WithEndpoint overrides the certificate endpoint, for tests and mirrors.
func WithEndpoint(endpoint string) FetcherOption {
	return func(f *HTTPFetcher) error {
		if endpoint == "" {
			return errors.New("endpoint cannot be empty")
		}
		f.endpoint = endpoint
		return nil
	}
}

// WithFetcherLogger sets the logger used to report failed fetches.
func WithFetcherLogger(logger core.Logger) FetcherOption {
	return func(f *HTTPFetcher) error {
		if logger == nil {
			return core.ErrLoggerNil
		}
		f.logger = logger
		return nil
	}
}

// WithFetcherClock sets the clock used to stamp fetched sets.
func WithFetcherClock(now func() time.Time) FetcherOption {
	return func(f *HTTPFetcher) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		f.now = now
		return nil
	}
}

// Kind returns the provider this fetcher serves.
func (f *HTTPFetcher) Kind() core.ProviderKind {
	return f.kind
}

// Endpoint returns the URL this fetcher reads from.
func (f *HTTPFetcher) Endpoint() string {
	return f.endpoint
}

// Fetch issues one GET to the endpoint. Any 2xx or 3xx status is a success.
// Every error wraps core.ErrFetchFailed.
func (f *HTTPFetcher) Fetch(ctx context.Context) (*SigningKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, f.fail(0, "", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.fail(0, "", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
		return nil, f.fail(resp.StatusCode, reason, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var keys map[string]string
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&keys); err != nil {
		return nil, f.fail(resp.StatusCode, "", fmt.Errorf("failed to parse response: %w", err))
	}
	if keys == nil {
		keys = map[string]string{}
	}

	now := f.now()
	expiresAt, cacheable := ExpiresAt(now, resp.Header)

	return &SigningKeySet{
		Kind:      f.kind,
		Keys:      keys,
		FetchedAt: now,
		ExpiresAt: expiresAt,
		Cacheable: cacheable,
	}, nil
}

func (f *HTTPFetcher) fail(status int, reason string, err error) error {
	args := []any{"provider", f.kind, "endpoint", f.endpoint, "error", err}
	if status != 0 {
		args = append(args, "status", status)
	}
	if reason != "" {
		args = append(args, "reason", reason)
	}
	f.logger.Error("Signing key fetch failed", args...)
	return fmt.Errorf("%w: %s: %w", core.ErrFetchFailed, f.kind, err)
}
