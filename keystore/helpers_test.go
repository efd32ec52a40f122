package keystore

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kitchenhub/go-idp-middleware/core"
)

// fakeClock is a settable clock shared by a Store and its fetchers.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingFetcher returns the next key map from keys on every call.
type countingFetcher struct {
	kind  core.ProviderKind
	clock *fakeClock
	ttl   time.Duration
	calls atomic.Int32
	keys  func(call int32) map[string]string
	err   func(call int32) error
	block chan struct{}
}

func (f *countingFetcher) Fetch(ctx context.Context) (*SigningKeySet, error) {
	call := f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		if err := f.err(call); err != nil {
			return nil, err
		}
	}
	keys := map[string]string{fmt.Sprintf("%s-%d", f.kind, call): "pem"}
	if f.keys != nil {
		keys = f.keys(call)
	}
	now := f.clock.Now()
	return &SigningKeySet{
		Kind:      f.kind,
		Keys:      keys,
		FetchedAt: now,
		ExpiresAt: now.Add(f.ttl),
		Cacheable: f.ttl > 0,
	}, nil
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, msg, args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

type counterMetrics struct {
	core.NoopMetrics
	mu       sync.Mutex
	counters map[string]int
}

func (m *counterMetrics) IncCounter(name string, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]int{}
	}
	key := name
	if p, ok := tags["provider"]; ok {
		key += "/" + p
	}
	if r, ok := tags["result"]; ok {
		key += "/" + r
	}
	m.counters[key]++
}

func (m *counterMetrics) get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}
