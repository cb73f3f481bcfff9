package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

// ServiceKey is lifted out of the attributes and printed as a line prefix so
// output can be filtered by compaction service.
const ServiceKey = "service"

// TextHandler writes one line per record:
//
//	2006/01/02 15:04:05 INFO [cs1] message key=value
type TextHandler struct {
	out     io.Writer
	mu      *sync.Mutex // Serialize writes to out
	service string
	attrs   []slog.Attr
}

func NewTextHandler() *TextHandler {
	return NewTextHandlerTo(os.Stderr)
}

func NewTextHandlerTo(w io.Writer) *TextHandler {
	return &TextHandler{
		out:     w,
		mu:      &sync.Mutex{},
		service: "root",
	}
}

func (h *TextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= globalLevel.Level()
}

func (h *TextHandler) Handle(ctx context.Context, r slog.Record) error {
	buf := make([]byte, 0, 1024)
	buf = fmt.Appendf(buf, "%s ", r.Time.Format("2006/01/02 15:04:05"))
	buf = fmt.Appendf(buf, "%s ", r.Level.String())
	buf = fmt.Appendf(buf, "[%s] ", h.service)
	buf = fmt.Appendf(buf, "%s", r.Message)

	for _, a := range h.attrs {
		buf = appendAttr(buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	for _, a := range attrs {
		if a.Key == ServiceKey {
			next.service = a.Value.String()
			continue
		}
		next.attrs = append(next.attrs, a)
	}
	return next
}

func (h *TextHandler) WithGroup(name string) slog.Handler {
	panic("groups not supported")
}

func (h *TextHandler) clone() *TextHandler {
	return &TextHandler{
		out:     h.out,
		mu:      h.mu,
		service: h.service,
		attrs:   slices.Clip(h.attrs),
	}
}

func appendAttr(buf []byte, a slog.Attr) []byte {
	if a.Equal(slog.Attr{}) {
		return buf
	}
	buf = fmt.Appendf(buf, " %s=", a.Key)
	return appendValue(buf, a.Value.Resolve())
}

// Append a value to the buffer wrapping in quotes if needed.
func appendValue(buf []byte, value slog.Value) []byte {
	var s string
	if value.Kind() == slog.KindTime {
		s = value.Time().Format(time.RFC3339)
	} else {
		s = value.String()
	}
	if needsQuoting(s) {
		return fmt.Appendf(buf, "%q", s)
	}
	return append(buf, s...)
}

// Only spaces, '=' and unprintable runes need quoting for this format.
func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	if strings.ContainsAny(s, " =\"") {
		return true
	}
	for _, r := range s {
		if r == utf8.RuneError || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}
