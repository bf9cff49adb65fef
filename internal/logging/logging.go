// Package logging sets up structured JSON logging for truerand. Remote
// source credentials pass through config and auth code, so the handler can
// redact them by attribute key.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// Redacted replaces the value of a sensitive attribute.
const Redacted = "[REDACTED]"

// sensitiveKeys are substrings of attribute keys whose values are redacted:
// remote.password, key_passphrase, keyring secrets and the like.
var sensitiveKeys = []string{
	"password",
	"passphrase",
	"secret",
	"token",
	"credential",
}

// privateKeySuffix marks key material ("private_key", "key"). Keys that only
// name a key, such as key_path or key_file, are kept.
const privateKeySuffix = "key"

// level is shared by every handler built by Setup so SetLevel takes effect
// without rebuilding the logger.
var level = new(slog.LevelVar)

// SanitizingHandler wraps a slog.Handler and redacts sensitive attributes.
type SanitizingHandler struct {
	handler  slog.Handler
	sanitize bool
}

// NewSanitizingHandler creates a new sanitizing handler.
func NewSanitizingHandler(handler slog.Handler, sanitize bool) *SanitizingHandler {
	return &SanitizingHandler{
		handler:  handler,
		sanitize: sanitize,
	}
}

// Enabled implements slog.Handler.
func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SanitizingHandler) Handle(ctx context.Context, r slog.Record) error {
	if !h.sanitize {
		return h.handler.Handle(ctx, r)
	}

	clean := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

// WithAttrs implements slog.Handler.
func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.sanitize {
		clean := make([]slog.Attr, len(attrs))
		for i, a := range attrs {
			clean[i] = sanitizeAttr(a)
		}
		attrs = clean
	}
	return &SanitizingHandler{
		handler:  h.handler.WithAttrs(attrs),
		sanitize: h.sanitize,
	}
}

// WithGroup implements slog.Handler.
func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{
		handler:  h.handler.WithGroup(name),
		sanitize: h.sanitize,
	}
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	if strings.HasSuffix(key, privateKeySuffix) {
		return true
	}
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	if isSensitive(a.Key) {
		return slog.String(a.Key, Redacted)
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		clean := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			clean[i] = sanitizeAttr(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	}

	return a
}

// ParseLevel maps a config level name to a slog level. Unknown names map
// to info and report false.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// SetLevel changes the level of loggers built by Setup.
func SetLevel(name string) {
	l, ok := ParseLevel(name)
	if !ok {
		slog.Warn("unknown log level, using info", slog.String("level", name))
	}
	level.Set(l)
}

// Setup installs a JSON logger on stderr as the slog default. stdout is
// left alone; the MCP transport owns it.
func Setup(levelName string, sanitize bool) {
	SetupWriter(os.Stderr, levelName, sanitize)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, levelName string, sanitize bool) {
	l, _ := ParseLevel(levelName)
	level.Set(l)

	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(NewSanitizingHandler(jsonHandler, sanitize)))
}

// Truncate shortens s to at most max runes for log output, marking the cut
// with "...".
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 0 {
		return "..."
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
