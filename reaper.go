package goSession

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

const reaperRunTimeout = time.Minute

// Reaper runs [Manager.CleanupExpiredSessions] on a cron schedule. Runs never
// overlap: a tick that fires while the previous sweep is still going is
// skipped.
type Reaper struct {
	m      *Manager
	cron   *cron.Cron
	entry  cron.EntryID
	logger *slog.Logger

	mu      sync.Mutex
	running bool

	runs        atomic.Uint64
	lastRunMs   atomic.Int64
	lastRemoved atomic.Int64
}

// ReaperStats summarizes reaper activity since the Manager was built.
type ReaperStats struct {
	Runs        uint64
	LastRun     time.Time
	LastRemoved int64
	Next        time.Time
}

func newReaper(m *Manager, spec string) (*Reaper, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("reaper schedule %q: %w", spec, err)
	}

	logger := m.logger.With("subsystem", "reaper")
	cl := cronLogger{logger: logger}
	r := &Reaper{
		m:      m,
		logger: logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	r.entry = r.cron.Schedule(schedule, cron.FuncJob(r.tick))
	return r, nil
}

// Start begins scheduled sweeps. Calling Start twice is a no-op.
func (r *Reaper) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.cron.Start()
	r.running = true
	r.logger.Info("reaper started", "next", r.cron.Entry(r.entry).Next)
}

// Stop halts scheduling and waits for an in-flight sweep or ctx, whichever
// ends first.
func (r *Reaper) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	r.running = false
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs a sweep immediately, outside the schedule.
func (r *Reaper) RunOnce(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := r.m.CleanupExpiredSessions(ctx)
	r.runs.Add(1)
	r.lastRunMs.Store(start.UnixMilli())
	if err != nil {
		r.logger.Warn("expired session sweep failed", "error", err)
		return 0, err
	}
	r.lastRemoved.Store(n)
	r.logger.Info("expired sessions swept", "removed", n, "took", time.Since(start))
	return n, nil
}

func (r *Reaper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), reaperRunTimeout)
	defer cancel()
	_, _ = r.RunOnce(ctx)
}

// Stats reports run counters and the next scheduled run.
func (r *Reaper) Stats() ReaperStats {
	s := ReaperStats{
		Runs:        r.runs.Load(),
		LastRemoved: r.lastRemoved.Load(),
	}
	if ms := r.lastRunMs.Load(); ms > 0 {
		s.LastRun = time.UnixMilli(ms)
	}
	r.mu.Lock()
	if r.running {
		s.Next = r.cron.Entry(r.entry).Next
	}
	r.mu.Unlock()
	return s
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
