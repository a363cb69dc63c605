package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
)

const (
	lineBufferSize = 256
	timeLayout     = "2006-01-02T15:04:05-07:00"

	// Redacted replaces secret attribute values.
	Redacted = "***"
)

// secretKeys are attribute keys whose values never reach the log.
var secretKeys = []string{"token", "authorization", "password", "secret"}

// secretPrefixes mark GitLab credentials embedded in free-form values.
var secretPrefixes = []string{"glpat-", "gldt-", "glptt-"}

// CustomHandler writes one "time LEVEL msg key=value" line per record.
// Derived handlers share the writer and its lock.
type CustomHandler struct {
	out    *lockedWriter
	level  slog.Level
	attrs  []byte
	prefix string
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewFileHandler creates a handler appending to the file at path.
func NewFileHandler(path string, level slog.Level) (*CustomHandler, error) {
	//nolint:gosec // path comes from the XDG state directory
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions)
	if err != nil {
		return nil, err
	}

	return NewWriterHandler(file, level), nil
}

// NewWriterHandler creates a handler writing to w.
func NewWriterHandler(w io.Writer, level slog.Level) *CustomHandler {
	return &CustomHandler{out: &lockedWriter{w: w}, level: level}
}

// Enabled reports whether records at level are written.
func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats and writes a record.
func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, lineBufferSize)
	buf = r.Time.Local().AppendFormat(buf, timeLayout)
	buf = append(buf, ' ')
	buf = append(buf, r.Level.String()...)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	buf = append(buf, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.prefix, a)

		return true
	})

	buf = append(buf, '\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()

	_, err := h.out.w.Write(buf)

	return err
}

// WithAttrs returns a handler that writes attrs on every record.
func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	pre := append([]byte(nil), h.attrs...)
	for _, a := range attrs {
		pre = appendAttr(pre, h.prefix, a)
	}

	return &CustomHandler{out: h.out, level: h.level, attrs: pre, prefix: h.prefix}
}

// WithGroup returns a handler that prefixes later keys with name.
func (h *CustomHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	return &CustomHandler{out: h.out, level: h.level, attrs: h.attrs, prefix: h.prefix + name + "."}
}

// Close closes the underlying writer when it is closable.
func (h *CustomHandler) Close() error {
	h.out.mu.Lock()
	defer h.out.mu.Unlock()

	if closer, ok := h.out.w.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}

func appendAttr(buf []byte, prefix string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		if a.Key != "" {
			prefix += a.Key + "."
		}

		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, prefix, ga)
		}

		return buf
	}

	buf = append(buf, ' ')
	buf = append(buf, prefix...)
	buf = append(buf, a.Key...)
	buf = append(buf, '=')

	val := redact(a.Key, a.Value.String())
	if strings.ContainsAny(val, " \t\r\n\"") {
		return strconv.AppendQuote(buf, val)
	}

	return append(buf, val...)
}

// redact hides values of secret keys and GitLab tokens inside other values.
func redact(key, val string) string {
	if val == "" {
		return val
	}

	lower := strings.ToLower(key)
	for _, k := range secretKeys {
		if strings.Contains(lower, k) {
			return Redacted
		}
	}

	for _, p := range secretPrefixes {
		for {
			i := strings.Index(val, p)
			if i < 0 {
				break
			}

			end := i + len(p)
			for end < len(val) && isTokenChar(val[end]) {
				end++
			}

			val = val[:i] + Redacted + val[end:]
		}
	}

	return val
}

func isTokenChar(c byte) bool {
	return c == '-' || c == '_' ||
		(c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
