package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var entryJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// LogEntry is one line of JSON log output. Top-level string attributes that
// identify where a line came from are lifted out of Fields so log files can
// be filtered by component, session or request.
type LogEntry struct {
	Level      string         `json:"level"`
	Timestamp  string         `json:"timestamp"`
	Component  string         `json:"component,omitempty"`
	SessionKey string         `json:"session_key,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Message    string         `json:"message"`
	Fields     map[string]any `json:"fields,omitempty"`
	Caller     string         `json:"caller,omitempty"`
}

// entryHandler renders records as LogEntry lines. Attributes bound with
// WithAttrs are rendered once into base, so each record only adds its own.
type entryHandler struct {
	level     slog.Level
	addSource bool
	out       *lockedWriter

	base   LogEntry
	prefix string
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) writeLine(line []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.w.Write(append(line, '\n'))
	return err
}

func newEntryHandler(writer io.Writer, level slog.Level, addSource bool) *entryHandler {
	return &entryHandler{
		level:     level,
		addSource: addSource,
		out:       &lockedWriter{w: writer},
	}
}

func (h *entryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *entryHandler) Handle(_ context.Context, record slog.Record) error {
	at := record.Time
	if at.IsZero() {
		at = time.Now()
	}

	entry := h.base
	entry.Level = strings.ToLower(record.Level.String())
	entry.Timestamp = at.UTC().Format(time.RFC3339Nano)
	entry.Message = record.Message
	entry.Fields = maps.Clone(h.base.Fields)

	record.Attrs(func(attr slog.Attr) bool {
		entry.add(h.prefix, attr)
		return true
	})
	if h.addSource {
		entry.Caller = caller(record.PC)
	}

	line, err := entryJSON.Marshal(entry)
	if err != nil {
		return err
	}
	return h.out.writeLine(line)
}

func (h *entryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	next := *h
	next.base.Fields = maps.Clone(h.base.Fields)
	for _, attr := range attrs {
		next.base.add(h.prefix, attr)
	}
	return &next
}

func (h *entryHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func caller(pc uintptr) string {
	if pc == 0 {
		return ""
	}

	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}

func (e *LogEntry) add(prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if prefix == "" && attr.Value.Kind() == slog.KindString {
		switch attr.Key {
		case "component":
			e.Component = attr.Value.String()
			return
		case "session_key":
			e.SessionKey = attr.Value.String()
			return
		case "request_id":
			e.RequestID = attr.Value.String()
			return
		}
	}

	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[prefix+attr.Key] = plain(attr.Value)
}

// plain converts v into something the JSON encoder renders readably.
func plain(v slog.Value) any {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindGroup:
		group := make(map[string]any)
		for _, item := range v.Group() {
			group[item.Key] = plain(item.Value.Resolve())
		}
		return group
	case slog.KindAny:
		switch value := v.Any().(type) {
		case error:
			return value.Error()
		case fmt.Stringer:
			return value.String()
		default:
			return value
		}
	default:
		return v.Any()
	}
}
