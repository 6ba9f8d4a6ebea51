// Package logging builds the structured logger handed to every component
// at startup. Verbosity follows the repeatable -d flag: none logs at info,
// one at debug, two and more at trace, where gateway payloads are dumped.
package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below [slog.LevelDebug] and carries wire-level detail
// (decrypted gateway payloads, raw XMPP bodies).
const LevelTrace = slog.Level(-8)

// Config describes where and how to log. The zero value logs text at info
// level to stderr.
type Config struct {
	Verbosity int
	// File, when set, is opened for appending and takes precedence over Output.
	File   string
	Format string
	Output io.Writer
}

// LevelForVerbosity maps a -d count to a level.
func LevelForVerbosity(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelInfo
	case v == 1:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// New creates the logger described by cfg. The returned closer releases
// the log file, if any, and must be called on shutdown.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	var closer io.Closer = nopCloser{}
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		output = f
		closer = f
	}

	opts := &slog.HandlerOptions{
		Level:       LevelForVerbosity(cfg.Verbosity),
		ReplaceAttr: ReplaceLevelNames,
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "", "text":
		handler = slog.NewTextHandler(output, opts)
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("unknown log format %q (valid: text, json)", cfg.Format)
	}

	return slog.New(handler), closer, nil
}

// ReplaceLevelNames renders [LevelTrace] as "TRACE" instead of "DEBUG-4".
func ReplaceLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// StdLogger adapts logger to the *log.Logger shape expected by libraries
// that predate slog.
func StdLogger(logger *slog.Logger, level slog.Level) *log.Logger {
	return slog.NewLogLogger(logger.Handler(), level)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
