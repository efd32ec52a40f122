package keystore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// DefaultRefreshSchedule is the cron spec used when none is configured.
const DefaultRefreshSchedule = "@every 5m"

// Refresher re-fetches key sets in the background before they expire so
// that request-time refreshes are cache hits. It goes through the Store's
// single-flight path.
type Refresher struct {
	store    *Store
	cron     *cron.Cron
	schedule string
	ahead    time.Duration
	timeout  time.Duration
	logger   core.Logger
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher) error

// NewRefresher creates a Refresher for store. It does not start until
// Start is called.
func NewRefresher(store *Store, opts ...RefresherOption) (*Refresher, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	r := &Refresher{
		store:    store,
		schedule: DefaultRefreshSchedule,
		ahead:    10 * time.Minute,
		timeout:  time.Minute,
		logger:   store.logger,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	logger := cronLogger{r.logger}
	r.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.SkipIfStillRunning(logger)),
	)
	if _, err := r.cron.AddFunc(r.schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", r.schedule, err)
	}
	return r, nil
}

// WithSchedule sets the cron spec, e.g. "@every 1m" or "*/5 * * * *".
func WithSchedule(spec string) RefresherOption {
	return func(r *Refresher) error {
		if spec == "" {
			return errors.New("schedule cannot be empty")
		}
		r.schedule = spec
		return nil
	}
}

// WithRefreshAhead sets how long before expiry a set is re-fetched.
// Default: 10m.
func WithRefreshAhead(d time.Duration) RefresherOption {
	return func(r *Refresher) error {
		if d < 0 {
			return errors.New("refresh-ahead window cannot be negative")
		}
		r.ahead = d
		return nil
	}
}

// WithRunTimeout bounds one scheduled run. Default: 1m.
func WithRunTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) error {
		if d <= 0 {
			return errors.New("run timeout must be positive")
		}
		r.timeout = d
		return nil
	}
}

// WithRefresherLogger sets the logger. Default: the store's logger.
func WithRefresherLogger(logger core.Logger) RefresherOption {
	return func(r *Refresher) error {
		if logger == nil {
			return core.ErrLoggerNil
		}
		r.logger = logger
		return nil
	}
}

// Start warms every provider once and then starts the schedule. A warm-up
// failure is returned but the schedule starts regardless.
func (r *Refresher) Start(ctx context.Context) error {
	err := r.RunOnce(ctx)
	r.cron.Start()
	return err
}

// Stop stops the schedule and waits for a running refresh to finish or ctx
// to be done.
func (r *Refresher) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce re-fetches every enabled provider whose set is missing or expires
// within the refresh-ahead window.
func (r *Refresher) RunOnce(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	deadline := r.store.now().Add(r.ahead)
	var errs []error
	for _, kind := range r.store.Enabled() {
		if set := r.store.cached(kind); set != nil && deadline.Before(set.ExpiresAt) {
			continue
		}
		if _, err := r.store.Refresh(ctx, kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Refresher) run() {
	if err := r.RunOnce(context.Background()); err != nil {
		r.logger.Warn("Scheduled signing key refresh failed", "error", err)
	}
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	l core.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
