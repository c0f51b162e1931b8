package redistier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/session"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKeyPrefix namespaces session records.
	DefaultKeyPrefix = "session:"
	// DefaultIndexPrefix namespaces per-user session indexes.
	DefaultIndexPrefix = "user_sessions:"

	maxIndexAttempts = 32
)

var errIndexContended = errors.New("user index kept changing during update")

// Options configures a [Store]. Zero values fall back to the defaults.
type Options struct {
	KeyPrefix   string
	IndexPrefix string
	TTL         time.Duration
}

// Store is the Redis storage tier.
type Store struct {
	redis       redis.UniversalClient
	keyPrefix   string
	indexPrefix string
	ttl         time.Duration
}

// NewStore creates a Redis tier over client. Record and index keys of one
// user do not share a hash slot, so client must address a single primary
// (a *redis.Client, optionally created by redis.NewFailoverClient).
func NewStore(client redis.UniversalClient, opts Options) *Store {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.IndexPrefix == "" {
		opts.IndexPrefix = DefaultIndexPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	return &Store{
		redis:       client,
		keyPrefix:   opts.KeyPrefix,
		indexPrefix: opts.IndexPrefix,
		ttl:         opts.TTL,
	}
}

func (s *Store) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

func (s *Store) indexKey(userID uuid.UUID) string {
	return s.indexPrefix + userID.String()
}

func unavailable(err error) error {
	return fmt.Errorf("%w: redis: %v", session.ErrTierUnavailable, err)
}

// Name returns the tier label used in logs and metrics.
func (s *Store) Name() string { return "redis" }

// Store writes the record and indexes it under its user.
//
//	Performance: 1 MULTI/EXEC (SET + ZADD + PEXPIRE).
func (s *Store) Store(ctx context.Context, sessionID string, rec *session.Record) error {
	data, err := session.Encode(rec)
	if err != nil {
		return err
	}

	indexKey := s.indexKey(rec.UserID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sessionID), data, s.ttl)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(rec.LastAccessed.UnixMilli()), Member: sessionID})
		pipe.PExpire(ctx, indexKey, s.ttl)
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// Enforce evicts the user's least recently accessed sessions until at most
// limit remain. Index entries whose record already expired are dropped
// without counting as evictions.
//
// The script only touches keys it is handed, so it runs against a snapshot
// of the index and is retried when a concurrent writer changed the index in
// between.
//
//	Performance: 1 ZRANGE + 1 EVALSHA per attempt.
func (s *Store) Enforce(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	indexKey := s.indexKey(userID)
	for attempt := 0; attempt < maxIndexAttempts; attempt++ {
		ids, err := s.indexSnapshot(ctx, indexKey)
		if err != nil {
			return nil, err
		}
		if len(ids) <= limit {
			return nil, nil
		}

		keys, args := s.snapshotArgs(indexKey, ids, limit, len(ids))
		evicted, err := enforceLimitLua.Run(ctx, s.redis, keys, args...).StringSlice()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, unavailable(err)
		}
		return evicted, nil
	}
	return nil, unavailable(errIndexContended)
}

// Get returns the record for sessionID, or nil when absent.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, sessionID string) (*session.Record, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, unavailable(err)
	}
	return session.Decode(data)
}

// Touch advances the session's last-access time to at and restores its full
// TTL. Returns false when the session does not exist.
func (s *Store) Touch(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	rec, err := s.Get(ctx, sessionID)
	if err != nil || rec == nil {
		return false, err
	}
	rec.Touch(at)

	data, err := session.Encode(rec)
	if err != nil {
		return false, err
	}

	touched, err := touchSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID), s.indexKey(rec.UserID)},
		data,
		s.ttl.Milliseconds(),
		rec.LastAccessed.UnixMilli(),
		sessionID,
	).Int64()
	if err != nil {
		return false, unavailable(err)
	}
	return touched == 1, nil
}

// Delete removes one session and its index entry. A record that no longer
// decodes is still removed; its index entry then ages out with the index TTL
// or is healed by the next enforcement pass.
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, unavailable(err)
	}

	rec, err := session.Decode(data)
	if err != nil {
		n, delErr := s.redis.Del(ctx, key).Result()
		if delErr != nil {
			return false, unavailable(delErr)
		}
		return n == 1, nil
	}

	existed, err := deleteSessionLua.Run(ctx, s.redis, []string{key, s.indexKey(rec.UserID)}, sessionID).Int64()
	if err != nil {
		return false, unavailable(err)
	}
	return existed == 1, nil
}

// InvalidateUser deletes every indexed session of userID together with the
// index and returns the number of records removed.
//
//	Performance: 1 ZRANGE + 1 EVALSHA per attempt, O(sessions of user).
func (s *Store) InvalidateUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	indexKey := s.indexKey(userID)
	for attempt := 0; attempt < maxIndexAttempts; attempt++ {
		ids, err := s.indexSnapshot(ctx, indexKey)
		if err != nil {
			return 0, err
		}
		if len(ids) == 0 {
			return 0, nil
		}

		keys, args := s.snapshotArgs(indexKey, ids, len(ids))
		n, err := invalidateUserLua.Run(ctx, s.redis, keys, args...).Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, unavailable(err)
		}
		return n, nil
	}
	return 0, unavailable(errIndexContended)
}

func (s *Store) indexSnapshot(ctx context.Context, indexKey string) ([]string, error) {
	ids, err := s.redis.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable(err)
	}
	return ids, nil
}

// snapshotArgs declares the index and every snapshot record key as KEYS and
// passes lead followed by the ids as ARGV.
func (s *Store) snapshotArgs(indexKey string, ids []string, lead ...any) ([]string, []any) {
	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, indexKey)
	args := make([]any, 0, len(ids)+len(lead))
	args = append(args, lead...)
	for _, id := range ids {
		keys = append(keys, s.key(id))
		args = append(args, id)
	}
	return keys, args
}

// Count returns the number of the user's indexed sessions whose record is
// still present.
//
//	Performance: 1 ZRANGE + 1 pipelined EXISTS batch.
func (s *Store) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	ids, err := s.redis.ZRange(ctx, s.indexKey(userID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, unavailable(err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		existsCmds[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, unavailable(err)
	}

	var live int
	for _, cmd := range existsCmds {
		v, cmdErr := cmd.Result()
		if cmdErr != nil {
			return 0, unavailable(cmdErr)
		}
		live += int(v)
	}
	return live, nil
}

// Sweep is a no-op: Redis expires records natively.
func (s *Store) Sweep(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Ping checks Redis reachability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}
