// Package tiered composes storage tiers into one failover chain.
//
// Writes land on the first tier that accepts them and the per-user limit is
// enforced on that tier only. Reads walk the tiers in priority order and take
// the first hit. Deletes, bulk invalidation and sweeps fan out to every tier.
// The last tier is the process-local fallback and is never subject to the
// call timeout.
package tiered

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/session"
)

// Backend is one storage tier. Get returns (nil, nil) for an absent session.
type Backend interface {
	Name() string
	Store(ctx context.Context, sessionID string, rec *session.Record) error
	Enforce(ctx context.Context, userID uuid.UUID, limit int) ([]string, error)
	Get(ctx context.Context, sessionID string) (*session.Record, error)
	Touch(ctx context.Context, sessionID string, at time.Time) (bool, error)
	Delete(ctx context.Context, sessionID string) (bool, error)
	InvalidateUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Count(ctx context.Context, userID uuid.UUID) (int, error)
	Sweep(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// Observer receives tier-level failures and fallback use for metrics and
// audit.
type Observer interface {
	TierFailed(tier, op string, err error)
	CorruptRecord(tier, sessionID string)
	FallbackUsed(tier, op string)
}

type nopObserver struct{}

func (nopObserver) TierFailed(string, string, error) {}
func (nopObserver) CorruptRecord(string, string)     {}
func (nopObserver) FallbackUsed(string, string)      {}

// Options configures a [Chain].
type Options struct {
	CallTimeout time.Duration
	Logger      *slog.Logger
	Observer    Observer
}

// Chain is the ordered failover composition of tiers.
type Chain struct {
	tiers    []Backend
	fallback Backend
	timeout  time.Duration
	logger   *slog.Logger
	observer Observer
}

// New builds a chain that tries primaries in order and ends with fallback.
// Nil primaries are skipped.
func New(primaries []Backend, fallback Backend, opts Options) *Chain {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	tiers := make([]Backend, 0, len(primaries)+1)
	for _, b := range primaries {
		if b != nil {
			tiers = append(tiers, b)
		}
	}
	tiers = append(tiers, fallback)

	return &Chain{
		tiers:    tiers,
		fallback: fallback,
		timeout:  opts.CallTimeout,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
}

// Tiers returns the tier names in priority order.
func (c *Chain) Tiers() []string {
	names := make([]string, len(c.tiers))
	for i, b := range c.tiers {
		names[i] = b.Name()
	}
	return names
}

// FallbackName is the name of the last-resort tier.
func (c *Chain) FallbackName() string {
	return c.fallback.Name()
}

func call[T any](c *Chain, ctx context.Context, b Backend, op string, fn func(context.Context) (T, error)) (out T, err error) {
	if b != c.fallback && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("session tier panic recovered", "tier", b.Name(), "op", op, "panic", r)
			err = fmt.Errorf("%w: %s: panic in %s: %v", session.ErrTierUnavailable, b.Name(), op, r)
		}
	}()
	return fn(ctx)
}

func (c *Chain) failed(b Backend, op string, err error) {
	c.logger.Warn("session tier call failed", "tier", b.Name(), "op", op, "error", err)
	c.observer.TierFailed(b.Name(), op, err)
}

// servedByFallback records that the process-local tier answered op.
func (c *Chain) servedByFallback(op string, attrs ...any) {
	args := append([]any{"tier", c.fallback.Name(), "op", op}, attrs...)
	c.logger.Warn("session served by process memory; it will not survive a restart", args...)
	c.observer.FallbackUsed(c.fallback.Name(), op)
}

// StoreResult describes where a write landed.
type StoreResult struct {
	Tier     string
	Fallback bool
	Evicted  []string
}

// Store writes rec to the first tier that accepts it, then enforces limit on
// that tier. Enforcement failures are logged and never returned.
func (c *Chain) Store(ctx context.Context, sessionID string, rec *session.Record, limit int) (StoreResult, error) {
	var lastErr error
	for _, b := range c.tiers {
		_, err := call(c, ctx, b, "store", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, b.Store(ctx, sessionID, rec)
		})
		if err != nil {
			if errors.Is(err, session.ErrSerialization) {
				return StoreResult{}, err
			}
			c.failed(b, "store", err)
			lastErr = err
			continue
		}

		res := StoreResult{Tier: b.Name(), Fallback: b == c.fallback}
		if res.Fallback {
			c.servedByFallback("store", "user_id", rec.UserID.String())
		}

		if limit > 0 {
			evicted, err := call(c, ctx, b, "enforce", func(ctx context.Context) ([]string, error) {
				return b.Enforce(ctx, rec.UserID, limit)
			})
			if err != nil {
				c.failed(b, "enforce", err)
			}
			res.Evicted = evicted
		}
		return res, nil
	}
	return StoreResult{}, lastErr
}

// Get returns the record from the highest-priority tier that holds it along
// with that tier's name. Failing tiers and corrupt records are skipped.
func (c *Chain) Get(ctx context.Context, sessionID string) (*session.Record, string, error) {
	for _, b := range c.tiers {
		rec, err := call(c, ctx, b, "get", func(ctx context.Context) (*session.Record, error) {
			return b.Get(ctx, sessionID)
		})
		if err != nil {
			if errors.Is(err, session.ErrSerialization) {
				c.logger.Warn("corrupt session record treated as missing", "tier", b.Name(), "error", err)
				c.observer.CorruptRecord(b.Name(), sessionID)
				continue
			}
			c.failed(b, "get", err)
			continue
		}
		if rec != nil {
			if b == c.fallback {
				c.servedByFallback("get")
			}
			return rec, b.Name(), nil
		}
	}
	return nil, "", session.ErrSessionNotFound
}

// Touch refreshes last access on the highest-priority tier holding the
// session and returns that tier's name.
func (c *Chain) Touch(ctx context.Context, sessionID string, at time.Time) (string, error) {
	for _, b := range c.tiers {
		ok, err := call(c, ctx, b, "touch", func(ctx context.Context) (bool, error) {
			return b.Touch(ctx, sessionID, at)
		})
		if err != nil {
			c.failed(b, "touch", err)
			continue
		}
		if ok {
			if b == c.fallback {
				c.servedByFallback("touch")
			}
			return b.Name(), nil
		}
	}
	return "", session.ErrSessionNotFound
}

// Delete removes the session from every tier. It returns
// [session.ErrSessionNotFound] when no tier held it.
func (c *Chain) Delete(ctx context.Context, sessionID string) error {
	var removed bool
	for _, b := range c.tiers {
		ok, err := call(c, ctx, b, "delete", func(ctx context.Context) (bool, error) {
			return b.Delete(ctx, sessionID)
		})
		if err != nil {
			c.failed(b, "delete", err)
			continue
		}
		if ok && b == c.fallback {
			c.servedByFallback("delete")
		}
		removed = removed || ok
	}
	if !removed {
		return session.ErrSessionNotFound
	}
	return nil
}

// InvalidateUser removes every session of userID from every reachable tier
// and returns the summed per-tier counts. A session present in two tiers
// counts twice.
func (c *Chain) InvalidateUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	for _, b := range c.tiers {
		n, err := call(c, ctx, b, "invalidate", func(ctx context.Context) (int64, error) {
			return b.InvalidateUser(ctx, userID)
		})
		if err != nil {
			c.failed(b, "invalidate", err)
			continue
		}
		if n > 0 && b == c.fallback {
			c.servedByFallback("invalidate", "removed", n)
		}
		total += n
	}
	return total, nil
}

// Sweep runs expiry cleanup on every tier and returns the summed removals.
func (c *Chain) Sweep(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, b := range c.tiers {
		n, err := call(c, ctx, b, "sweep", func(ctx context.Context) (int64, error) {
			return b.Sweep(ctx, now)
		})
		if err != nil {
			c.failed(b, "sweep", err)
			continue
		}
		total += n
	}
	return total, nil
}

// Count sums the user's live sessions across reachable tiers.
func (c *Chain) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	for _, b := range c.tiers {
		n, err := call(c, ctx, b, "count", func(ctx context.Context) (int, error) {
			return b.Count(ctx, userID)
		})
		if err != nil {
			c.failed(b, "count", err)
			continue
		}
		total += n
	}
	return total, nil
}

// Health is the point-in-time reachability of one tier.
type Health struct {
	Tier    string
	Healthy bool
	Latency time.Duration
	Err     error
}

// Health pings every tier.
func (c *Chain) Health(ctx context.Context) []Health {
	out := make([]Health, 0, len(c.tiers))
	for _, b := range c.tiers {
		start := time.Now()
		_, err := call(c, ctx, b, "ping", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, b.Ping(ctx)
		})
		out = append(out, Health{Tier: b.Name(), Healthy: err == nil, Latency: time.Since(start), Err: err})
	}
	return out
}
