// Package logging builds the slog loggers used by the session daemon and
// tools: colored tint output on terminals, JSON elsewhere, with source
// locations attached only to the levels that need them.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Options selects level, encoding and destination.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is "json" or "text". Text uses tint.
	Format string
	Output io.Writer
	// Debug adds source locations to every level instead of warn and error only.
	Debug bool
}

// New returns a logger and the level variable that controls it.
func New(opts Options) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(opts.Level))

	w := opts.Output
	if w == nil {
		w = os.Stderr
	}

	showSource := []slog.Level{slog.LevelWarn, slog.LevelError}
	if opts.Debug {
		showSource = []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}
	}

	var base slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		base = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		base = tint.NewHandler(w, &tint.Options{
			Level:       level,
			TimeFormat:  time.DateTime,
			NoColor:     !IsTerminal(w),
			ReplaceAttr: tintErrors,
		})
	}

	return slog.New(NewConditionalSourceHandler(base, showSource...)), level
}

func tintErrors(_ []string, a slog.Attr) slog.Attr {
	if a.Key == "error" && a.Value.Kind() == slog.KindAny {
		if err, ok := a.Value.Any().(error); ok {
			return tint.Err(err)
		}
	}
	return a
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
