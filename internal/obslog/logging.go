// Package obslog provides the kernel's structured logging: a thin
// wrapper over log/slog with run_id/session_id correlation and secret
// redaction, following internal/observability/logging.go's Logger
// pattern from the teacher repo. Redaction reuses the same default
// pattern set as the Gatekeeper's secret-block regexes (internal/
// gatekeeper/redact.go), since both exist to keep the same class of
// secrets out of persisted/printed output.
package obslog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Config configures a Logger.
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // text, json
	Output    io.Writer
	AddSource bool
}

// contextKey is an unexported type for the two correlation keys this
// package adds to a context; following the teacher's ContextKey pattern
// but scoped down to what the kernel actually correlates on.
type contextKey string

const (
	runIDKey     contextKey = "run_id"
	sessionIDKey contextKey = "session_id"
)

// DefaultRedactPatterns mirrors internal/gatekeeper's secret-block
// regexes: API-key/token assignment, bearer tokens, AWS-style secret
// keys, PEM private-key headers, embedded basic-auth URLs, and
// JWT-shaped strings.
var DefaultRedactPatterns = []string{
	`(?i)(api[_-]?key|apikey)[\s:=]+["']?([a-zA-Z0-9_\-]{16,})["']?`,
	`(?i)(bearer|token)[\s:]+([a-zA-Z0-9_\-.]{16,})`,
	`(?i)(secret|password|passwd|pwd)[\s:=]+["']?([^\s"']{8,})["']?`,
	`sk-ant-[a-zA-Z0-9_-]{95,}`,
	`sk-[a-zA-Z0-9]{48,}`,
	`AKIA[0-9A-Z]{16}`,
	`-----BEGIN [A-Z ]*PRIVATE KEY-----`,
	`[a-zA-Z][a-zA-Z0-9+.\-]*://[^\s/:@]+:[^\s/:@]+@[^\s/]+`,
	`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
}

// Logger is the kernel's structured logger.
type Logger struct {
	base    *slog.Logger
	redacts []*regexp.Regexp
}

// New builds a Logger from cfg, defaulting Output to os.Stderr, Level to
// "info", and Format to "text" (CLI tools favor readable stderr/stdout
// over JSON by default; the http-server/daemon surfaces set Format to
// "json" explicitly).
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	level := levelFromString(cfg.Level)
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	redacts := make([]*regexp.Regexp, 0, len(DefaultRedactPatterns))
	for _, p := range DefaultRedactPatterns {
		if re, err := regexp.Compile(p); err == nil {
			redacts = append(redacts, re)
		}
	}

	return &Logger{base: slog.New(handler), redacts: redacts}
}

func levelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
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

// WithRunID returns a Slog-compatible *slog.Logger carrying run_id (and,
// if present in ctx, session_id) as structured fields on every record.
func (l *Logger) WithRunID(ctx context.Context, runID string) *slog.Logger {
	attrs := []any{"run_id", l.redactString(runID)}
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok && sessionID != "" {
		attrs = append(attrs, "session_id", sessionID)
	}
	return l.base.With(attrs...)
}

// Slog returns the underlying *slog.Logger with redaction NOT applied —
// callers that need a plain *slog.Logger to pass into a component
// (internal/supervisor.Start, internal/coordinator.Config.Logger) should
// use this; per-message redaction happens at the handler boundary via
// Handler().
func (l *Logger) Slog() *slog.Logger { return l.base }

// Handler returns a slog.Handler that redacts secret-shaped substrings
// from every message and string-valued attribute before the underlying
// handler formats the record, so any component logging through the
// returned *slog.Logger (not just this package's own helpers) gets
// redaction for free.
func (l *Logger) Handler() slog.Handler {
	return &redactingHandler{inner: l.base.Handler(), redacts: l.redacts}
}

func (l *Logger) redactString(s string) string {
	for _, re := range l.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

// redactingHandler wraps a slog.Handler, redacting the message and any
// string-valued attribute on each record before delegating to inner.
type redactingHandler struct {
	inner   slog.Handler
	redacts []*regexp.Regexp
}

func (h *redactingHandler) redact(s string) string {
	for _, re := range h.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

func (h *redactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactingHandler) Handle(ctx context.Context, record slog.Record) error {
	record.Message = h.redact(record.Message)
	redacted := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		if a.Value.Kind() == slog.KindString {
			a.Value = slog.StringValue(h.redact(a.Value.String()))
		}
		redacted.AddAttrs(a)
		return true
	})
	return h.inner.Handle(ctx, redacted)
}

func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &redactingHandler{inner: h.inner.WithAttrs(attrs), redacts: h.redacts}
}

func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name), redacts: h.redacts}
}

// WithRunID attaches a run id to ctx for later correlation.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithSessionID attaches a session id to ctx for later correlation.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}
