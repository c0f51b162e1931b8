// Package sqltier is the relational storage tier. Sessions live in one table
// keyed by session id; updated_at mirrors the record's last access and drives
// both limit enforcement and expiry.
package sqltier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/session"
)

// DefaultTable is the sessions table created by the bundled migrations.
const DefaultTable = "sessions"

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Options configures a [Store].
type Options struct {
	Table string
	TTL   time.Duration
	Now   func() time.Time
}

// Store is the SQL storage tier.
type Store struct {
	db    *sql.DB
	table string
	ttl   time.Duration
	now   func() time.Time
}

// New creates a SQL tier over db. The table must already exist.
func New(db *sql.DB, opts Options) *Store {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		db:    db,
		table: opts.Table,
		ttl:   opts.TTL,
		now:   opts.Now,
	}
}

func unavailable(action string, err error) error {
	return fmt.Errorf("%w: %s: %v", session.ErrTierUnavailable, action, err)
}

// Name returns the tier label used in logs and metrics.
func (*Store) Name() string { return "sql" }

// Store upserts the record.
func (s *Store) Store(ctx context.Context, sessionID string, rec *session.Record) error {
	data, err := session.Encode(rec)
	if err != nil {
		return err
	}

	query, args, err := psq.Insert(s.table).
		Columns("session_id", "user_id", "data", "expires_at", "updated_at").
		Values(sessionID, rec.UserID.String(), data, rec.LastAccessed.Add(s.ttl), rec.LastAccessed).
		Suffix("ON CONFLICT (session_id) DO UPDATE SET " +
			"user_id = EXCLUDED.user_id, data = EXCLUDED.data, " +
			"expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("building upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return unavailable("upserting session", err)
	}
	return nil
}

// Enforce deletes the user's least recently updated live sessions beyond
// limit in one ranked statement and returns their ids.
func (s *Store) Enforce(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	now := s.now()

	count, err := s.countLive(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if count <= limit {
		return nil, nil
	}

	query, args, err := psq.Delete(s.table).
		Where(sq.Expr("session_id IN (SELECT session_id FROM ("+
			"SELECT session_id, ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY updated_at DESC, session_id DESC) AS rn "+
			"FROM "+s.table+" WHERE user_id = ? AND expires_at > ?) ranked WHERE rn > ?)",
			userID.String(), now, limit)).
		Suffix("RETURNING session_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building eviction: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("evicting sessions", err)
	}
	defer func() { _ = rows.Close() }()

	var evicted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("scanning evicted id", err)
		}
		evicted = append(evicted, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating evicted ids", err)
	}
	return evicted, nil
}

// Get returns the unexpired record for sessionID, or nil when absent.
func (s *Store) Get(ctx context.Context, sessionID string) (*session.Record, error) {
	query, args, err := psq.Select("data").
		From(s.table).
		Where(sq.Eq{"session_id": sessionID}).
		Where(sq.Gt{"expires_at": s.now()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	var data []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("selecting session", err)
	}
	return session.Decode(data)
}

// Touch advances the record's last access to at and pushes its expiry out
// by the tier TTL. The read and write share a row lock.
func (s *Store) Touch(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, unavailable("beginning touch", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := psq.Select("data").
		From(s.table).
		Where(sq.Eq{"session_id": sessionID}).
		Where(sq.Gt{"expires_at": s.now()}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building select: %w", err)
	}

	var data []byte
	err = tx.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("locking session", err)
	}

	rec, err := session.Decode(data)
	if err != nil {
		return false, err
	}
	rec.Touch(at)
	if data, err = session.Encode(rec); err != nil {
		return false, err
	}

	query, args, err = psq.Update(s.table).
		Set("data", data).
		Set("updated_at", rec.LastAccessed).
		Set("expires_at", rec.LastAccessed.Add(s.ttl)).
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building update: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return false, unavailable("touching session", err)
	}
	if err := tx.Commit(); err != nil {
		return false, unavailable("committing touch", err)
	}
	return true, nil
}

// Delete removes one session. An expired row that was not swept yet is
// removed too but does not count.
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.deleteLive(ctx, "deleting session", sq.Eq{"session_id": sessionID})
	return n > 0, err
}

// InvalidateUser removes every session of userID and returns how many of
// them were still live.
func (s *Store) InvalidateUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.deleteLive(ctx, "invalidating user sessions", sq.Eq{"user_id": userID.String()})
}

// Count returns the number of the user's unexpired sessions.
func (s *Store) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.countLive(ctx, userID, s.now())
}

// Sweep removes rows whose expiry is at or before now.
func (s *Store) Sweep(ctx context.Context, now time.Time) (int64, error) {
	return s.execDelete(ctx, "sweeping expired sessions", sq.LtOrEq{"expires_at": now})
}

// Ping checks database reachability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *Store) countLive(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	query, args, err := psq.Select("COUNT(*)").
		From(s.table).
		Where(sq.Eq{"user_id": userID.String()}).
		Where(sq.Gt{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, unavailable("counting sessions", err)
	}
	return count, nil
}

// deleteLive deletes every row matching pred and counts those that had not
// expired yet.
func (s *Store) deleteLive(ctx context.Context, action string, pred sq.Sqlizer) (int64, error) {
	query, args, err := psq.Delete(s.table).
		Where(pred).
		Suffix("RETURNING expires_at > ?", s.now()).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building delete: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, unavailable(action, err)
	}
	defer func() { _ = rows.Close() }()

	var n int64
	for rows.Next() {
		var live bool
		if err := rows.Scan(&live); err != nil {
			return 0, unavailable(action, err)
		}
		if live {
			n++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, unavailable(action, err)
	}
	return n, nil
}

func (s *Store) execDelete(ctx context.Context, action string, pred sq.Sqlizer) (int64, error) {
	query, args, err := psq.Delete(s.table).Where(pred).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building delete: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, unavailable(action, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(action, err)
	}
	return n, nil
}
