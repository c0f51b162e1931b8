package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/logging"
)

type app struct {
	cfg     *daemonConfig
	logger  *slog.Logger
	db      *sql.DB
	manager *goSession.Manager
	closers []io.Closer
}

func initLogger(cfg *daemonConfig) *slog.Logger {
	logger, _ := logging.New(logging.Options{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: os.Stderr,
		Debug:  cfg.Logger.Debug,
	})
	return logger
}

// openDB opens and pings the relational tier. It returns nil when no DSN is
// configured. Pool limits are applied by the session builder.
func openDB(ctx context.Context, cfg *daemonConfig) (*sql.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

// newApp loads configuration and builds the Manager with every
// configured tier. An unreachable database is logged and skipped so the
// service still starts on the remaining tiers.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	rt := &app{cfg: cfg, logger: initLogger(cfg)}
	sessCfg := cfg.sessionConfig()

	for _, w := range sessCfg.Lint() {
		rt.logger.Log(ctx, lintLevel(w.Severity), "config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		rt.logger.Error("sql tier unavailable; continuing without it", "error", err)
	}
	rt.db = db

	b := goSession.New().
		WithConfig(sessCfg).
		WithLogger(rt.logger)
	if db != nil {
		b.WithDB(db)
	}

	if cfg.Audit.Enabled {
		sink, closer, err := auditSink(cfg.Audit.Path)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if closer != nil {
			rt.closers = append(rt.closers, closer)
		}
		b.WithAuditSink(sink)
	}

	m, err := b.Build()
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build session manager: %w", err)
	}
	rt.manager = m
	return rt, nil
}

func auditSink(path string) (goSession.AuditSink, io.Closer, error) {
	if path == "" || path == "-" {
		return goSession.NewJSONWriterSink(os.Stdout), nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return goSession.NewJSONWriterSink(f), f, nil
}

// Close releases the manager before the resources it writes to.
func (rt *app) Close() {
	if rt.manager != nil {
		rt.manager.Close()
	}
	for _, c := range rt.closers {
		_ = c.Close()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
}

func lintLevel(sev goSession.LintSeverity) slog.Level {
	switch sev {
	case goSession.LintHigh:
		return slog.LevelError
	case goSession.LintWarn:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
