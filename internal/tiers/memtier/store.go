// Package memtier is the process-local fallback tier. Records live in a map
// guarded by one RWMutex; the per-user index is a live scan. Nothing here
// survives a restart.
package memtier

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/session"
)

// Store is the in-memory tier. The zero value is not usable; call [New].
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session.Record
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	// onLocked runs while the lock is held; tests use it to inject panics.
	onLocked func(op string)
}

// Options configures a [Store].
type Options struct {
	TTL    time.Duration
	Now    func() time.Time
	Logger *slog.Logger
}

// New creates an empty in-memory tier.
func New(opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*session.Record),
		ttl:      opts.TTL,
		now:      opts.Now,
		logger:   opts.Logger,
	}
}

// Name returns the tier label used in logs and metrics.
func (*Store) Name() string { return "memory" }

func (s *Store) live(rec *session.Record, now time.Time) bool {
	return now.Sub(rec.LastAccessed) <= s.ttl
}

// recoverLocked converts a panic raised while the lock was held into
// ErrTierUnavailable. The lock itself is released by the caller's deferred
// Unlock, which runs first.
func (s *Store) recoverLocked(op string, err *error) {
	if r := recover(); r != nil {
		s.logger.Error("memory tier panic recovered", "op", op, "panic", r)
		*err = fmt.Errorf("%w: memory: panic in %s: %v", session.ErrTierUnavailable, op, r)
	}
}

func (s *Store) hook(op string) {
	if s.onLocked != nil {
		s.onLocked(op)
	}
}

// Store saves a copy of rec.
func (s *Store) Store(_ context.Context, sessionID string, rec *session.Record) (err error) {
	defer s.recoverLocked("store", &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook("store")

	s.sessions[sessionID] = rec.Clone()
	return nil
}

// Enforce evicts the user's least recently accessed live sessions beyond
// limit. The count and the evictions happen under one exclusive lock.
func (s *Store) Enforce(_ context.Context, userID uuid.UUID, limit int) (evicted []string, err error) {
	if limit <= 0 {
		return nil, nil
	}
	defer s.recoverLocked("enforce", &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook("enforce")

	type candidate struct {
		id   string
		seen time.Time
	}
	now := s.now()
	var owned []candidate
	for id, rec := range s.sessions {
		if rec.UserID == userID && s.live(rec, now) {
			owned = append(owned, candidate{id: id, seen: rec.LastAccessed})
		}
	}
	if len(owned) <= limit {
		return nil, nil
	}

	slices.SortFunc(owned, func(a, b candidate) int {
		if c := a.seen.Compare(b.seen); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	for _, c := range owned[:len(owned)-limit] {
		delete(s.sessions, c.id)
		evicted = append(evicted, c.id)
	}
	return evicted, nil
}

// Get returns a copy of the live record for sessionID, or nil.
func (s *Store) Get(_ context.Context, sessionID string) (rec *session.Record, err error) {
	defer s.recoverLocked("get", &err)
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.hook("get")

	stored, ok := s.sessions[sessionID]
	if !ok || !s.live(stored, s.now()) {
		return nil, nil
	}
	return stored.Clone(), nil
}

// Touch advances the live record's last access to at.
func (s *Store) Touch(_ context.Context, sessionID string, at time.Time) (ok bool, err error) {
	defer s.recoverLocked("touch", &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook("touch")

	stored, found := s.sessions[sessionID]
	if !found || !s.live(stored, s.now()) {
		return false, nil
	}
	updated := stored.Clone()
	updated.Touch(at)
	s.sessions[sessionID] = updated
	return true, nil
}

// Delete removes one session. An expired record that was not swept yet is
// dropped as well but does not count as removed.
func (s *Store) Delete(_ context.Context, sessionID string) (removed bool, err error) {
	defer s.recoverLocked("delete", &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook("delete")

	if rec, ok := s.sessions[sessionID]; ok {
		removed = s.live(rec, s.now())
		delete(s.sessions, sessionID)
	}
	return removed, nil
}

// InvalidateUser removes every session of userID, live or not, and returns
// the number of live ones.
func (s *Store) InvalidateUser(_ context.Context, userID uuid.UUID) (n int64, err error) {
	defer s.recoverLocked("invalidate", &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook("invalidate")

	now := s.now()
	for id, rec := range s.sessions {
		if rec.UserID == userID {
			if s.live(rec, now) {
				n++
			}
			delete(s.sessions, id)
		}
	}
	return n, nil
}

// Count returns the number of the user's live sessions.
func (s *Store) Count(_ context.Context, userID uuid.UUID) (n int, err error) {
	defer s.recoverLocked("count", &err)
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.hook("count")

	now := s.now()
	for _, rec := range s.sessions {
		if rec.UserID == userID && s.live(rec, now) {
			n++
		}
	}
	return n, nil
}

// Sweep removes records idle for longer than the tier TTL as of now.
func (s *Store) Sweep(_ context.Context, now time.Time) (n int64, err error) {
	defer s.recoverLocked("sweep", &err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook("sweep")

	for id, rec := range s.sessions {
		if !s.live(rec, now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of records held, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Ping always succeeds.
func (*Store) Ping(context.Context) error { return nil }
