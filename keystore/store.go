package keystore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// Store holds the most recent signing key set per enabled provider and
// fetches fresh sets when they are missing or expired.
//
// Concurrent fetches for the same provider are coalesced into one. A failed
// fetch leaves the previous set in place but it is never returned once
// expired.
type Store struct {
	fetchers map[core.ProviderKind]Fetcher
	order    []core.ProviderKind

	mu   sync.RWMutex
	sets map[core.ProviderKind]*SigningKeySet

	group        singleflight.Group
	fetchTimeout time.Duration

	now     func() time.Time
	logger  core.Logger
	metrics core.Metrics
	tracer  core.Tracer
}

// Option configures a Store.
type Option func(*Store) error

// New creates a Store. Providers are registered with WithProvider; the
// registration order is the order in which key IDs are looked up.
//
//	google, _ := keystore.NewGoogleFetcher()
//	store, err := keystore.New(
//	    keystore.WithProvider(core.Google, google),
//	    keystore.WithLogger(logger),
//	)
func New(opts ...Option) (*Store, error) {
	s := &Store{
		fetchers:     make(map[core.ProviderKind]Fetcher),
		sets:         make(map[core.ProviderKind]*SigningKeySet),
		fetchTimeout: 30 * time.Second,
		now:          time.Now,
		logger:       core.NopLogger{},
		metrics:      core.NoopMetrics{},
		tracer:       core.NoopTracer{},
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return s, nil
}

// WithProvider enables a provider kind backed by fetcher.
func WithProvider(kind core.ProviderKind, fetcher Fetcher) Option {
	return func(s *Store) error {
		if kind == core.Unknown {
			return errors.New("cannot enable the unknown provider")
		}
		if fetcher == nil {
			return fmt.Errorf("fetcher for %s cannot be nil", kind)
		}
		if _, dup := s.fetchers[kind]; dup {
			return fmt.Errorf("provider %s registered twice", kind)
		}
		s.fetchers[kind] = fetcher
		s.order = append(s.order, kind)
		return nil
	}
}

// WithFetchTimeout bounds each fetch. The fetch runs detached from the
// caller's cancellation so that a disconnecting client does not abort a
// refresh other callers are waiting on. Default: 30s.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Store) error {
		if d <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		s.fetchTimeout = d
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			return core.ErrLoggerNil
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m core.Metrics) Option {
	return func(s *Store) error {
		if m == nil {
			return core.ErrMetricsNil
		}
		s.metrics = m
		return nil
	}
}

// WithTracer sets the tracer.
func WithTracer(t core.Tracer) Option {
	return func(s *Store) error {
		if t == nil {
			return core.ErrTracerNil
		}
		s.tracer = t
		return nil
	}
}

// WithClock sets the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		s.now = now
		return nil
	}
}

// Enabled returns the enabled provider kinds in lookup order.
func (s *Store) Enabled() []core.ProviderKind {
	return slices.Clone(s.order)
}

// Get returns a fresh key set for kind, fetching it when none is cached or
// the cached one has expired.
func (s *Store) Get(ctx context.Context, kind core.ProviderKind) (*SigningKeySet, error) {
	if _, ok := s.fetchers[kind]; !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrProviderUnavailable, kind)
	}
	if set := s.fresh(kind); set != nil {
		return set, nil
	}
	return s.fetch(ctx, kind, false)
}

// Refresh fetches kind and replaces the cached set, skipping the freshness
// check. A fetch already in flight for kind is joined rather than repeated.
func (s *Store) Refresh(ctx context.Context, kind core.ProviderKind) (*SigningKeySet, error) {
	if _, ok := s.fetchers[kind]; !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrProviderUnavailable, kind)
	}
	return s.fetch(ctx, kind, true)
}

// RefreshAll gets every enabled provider concurrently. One provider's
// failure does not stop the others. The returned snapshot holds the sets
// that are usable now; the error joins every provider failure and is nil
// only if all succeeded.
func (s *Store) RefreshAll(ctx context.Context) (Snapshot, error) {
	sets := make([]*SigningKeySet, len(s.order))
	errs := make([]error, len(s.order))

	var wg sync.WaitGroup
	for i, kind := range s.order {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sets[i], errs[i] = s.Get(ctx, kind)
		}()
	}
	wg.Wait()

	byKind := make(map[core.ProviderKind]*SigningKeySet, len(sets))
	for _, set := range sets {
		if set != nil {
			byKind[set.Kind] = set
		}
	}
	return newSnapshot(s.order, byKind), errors.Join(errs...)
}

// Lookup scans the fresh cached sets in provider order for kid.
func (s *Store) Lookup(kid string) (core.ProviderKind, string, bool) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, kind := range s.order {
		set, ok := s.sets[kind]
		if !ok || set.Expired(now) {
			continue
		}
		if pem, ok := set.Key(kid); ok {
			return kind, pem, true
		}
	}
	return core.Unknown, "", false
}

// Snapshot returns every cached set, fresh or not. It is meant for
// diagnostics; use RefreshAll to get sets that may be trusted.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newSnapshot(s.order, maps.Clone(s.sets))
}

// cached returns the current set for kind, fresh or not.
func (s *Store) cached(kind core.ProviderKind) *SigningKeySet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets[kind]
}

func (s *Store) fresh(kind core.ProviderKind) *SigningKeySet {
	set := s.cached(kind)
	if set == nil || set.Expired(s.now()) {
		return nil
	}
	return set
}

// fetch shares one flight per provider between Get and Refresh. A forced
// refresh that joins a Get flight can return that flight's still-fresh set
// without refetching; the next scheduled refresh compensates.
func (s *Store) fetch(ctx context.Context, kind core.ProviderKind, force bool) (*SigningKeySet, error) {
	ch := s.group.DoChan(kind.String(), func() (any, error) {
		if !force {
			// Another flight may have finished between the caller's check and now.
			if set := s.fresh(kind); set != nil {
				return set, nil
			}
		}
		return s.doFetch(context.WithoutCancel(ctx), kind)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*SigningKeySet), nil
	}
}

func (s *Store) doFetch(ctx context.Context, kind core.ProviderKind) (*SigningKeySet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "idp.keystore.fetch")
	defer span.End()
	span.SetAttribute("idp.provider", kind.String())

	start := time.Now()
	set, err := s.fetchers[kind].Fetch(ctx)
	if err == nil && set == nil {
		err = errors.New("fetcher returned no key set")
	}
	if err != nil {
		if !errors.Is(err, core.ErrFetchFailed) {
			err = fmt.Errorf("%w: %s: %w", core.ErrFetchFailed, kind, err)
		}
		span.RecordError(err)
		s.metrics.IncCounter(core.MetricKeystoreFetches, map[string]string{"provider": kind.String(), "result": "failure"})
		s.logger.Error("Could not refresh signing keys", "provider", kind, "error", err, "duration", time.Since(start))
		return nil, err
	}

	published := *set
	published.Kind = kind
	published.Keys = maps.Clone(set.Keys)

	s.mu.Lock()
	s.sets[kind] = &published
	s.mu.Unlock()

	s.metrics.IncCounter(core.MetricKeystoreFetches, map[string]string{"provider": kind.String(), "result": "success"})
	s.metrics.SetGauge(core.MetricKeystoreKeys, float64(published.Len()), map[string]string{"provider": kind.String()})
	span.SetAttribute("idp.keys", published.Len())

	if !published.Cacheable {
		s.metrics.IncCounter(core.MetricKeystoreUncacheable, map[string]string{"provider": kind.String()})
		s.logger.Warn("Signing key response has no max-age, keys will be refetched on next use", "provider", kind)
	}
	s.logger.Info("Signing keys refreshed",
		"provider", kind,
		"keys", published.Len(),
		"expires_at", published.ExpiresAt,
		"duration", time.Since(start),
	)

	return &published, nil
}
