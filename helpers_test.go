package goSession

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goSession/internal/logging"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	return newBenchRedis(t)
}

func newBenchRedis(tb testing.TB) (*miniredis.Miniredis, *redis.Client) {
	tb.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		tb.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func discardLogger() *slog.Logger {
	return logging.Discard()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Session.MaxSessionsPerUser = 2
	cfg.Reaper.Enabled = false
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Timeouts.BackendCall = 200 * time.Millisecond
	return cfg
}

// newRedisManager builds a Manager on a fresh miniredis with the fake clock.
func newRedisManager(t *testing.T, cfg Config, sink AuditSink) (*Manager, *miniredis.Miniredis, *fakeClock, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	clk := newFakeClock()
	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithLogger(logging.Discard()).
		WithClock(clk.Now)
	if sink != nil {
		b.WithAuditSink(sink)
	}

	m, err := b.Build()
	if err != nil {
		_ = rdb.Close()
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	return m, mr, clk, func() {
		m.Close()
		_ = rdb.Close()
		mr.Close()
	}
}

func mustStore(t *testing.T, m *Manager, id string, rec *Record) {
	t.Helper()
	if err := m.StoreSession(context.Background(), id, rec); err != nil {
		t.Fatalf("StoreSession(%s) failed: %v", id, err)
	}
}

func recordAt(userID uuid.UUID, at time.Time) *Record {
	return &Record{UserID: userID, CreatedAt: at, LastAccessed: at}
}

// waitForEvent drains sink until an event of eventType arrives.
func waitForEvent(t *testing.T, sink *ChannelSink, eventType string) AuditEvent {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sink.Events():
			if ev.EventType == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", eventType)
			return AuditEvent{}
		}
	}
}
