package logger

import (
	"crypto/rand"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
)

type Options struct {
	Level     string
	Format    string // text|json
	AddSource bool
	Env       string
	Output    io.Writer // stdout when nil
}

func New(opts Options) *slog.Logger {
	level := parseLevel(opts.Level)

	hopts := &slog.HandlerOptions{
		Level:     level,
		AddSource: opts.AddSource,
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		h = slog.NewJSONHandler(out, hopts)
	default:
		h = slog.NewTextHandler(out, hopts)
	}

	l := slog.New(h)

	env := strings.TrimSpace(opts.Env)
	if env != "" {
		l = l.With("env", env)
	}

	return l
}

// NewID returns a lexically sortable id for runs and requests.
func NewID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// WithRun tags l with a fresh run id.
func WithRun(l *slog.Logger) (*slog.Logger, string) {
	if l == nil {
		l = slog.Default()
	}
	id := NewID()
	return l.With("run_id", id), id
}

func parseLevel(s string) slog.Level {
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
