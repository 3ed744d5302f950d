// Package testutil provides test helpers shared across packages,
// primarily a capturing slog handler for asserting on log output.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord is one captured log entry.
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// recordStore collects records across derived handlers so that loggers
// built with With or WithGroup still land in the same capture buffer.
type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
	t       *testing.T
}

// CaptureHandler is a slog.Handler that records everything it handles.
type CaptureHandler struct {
	store  *recordStore
	bound  []slog.Attr
	groups []string
}

// NewCaptureHandler creates a capturing handler. The testing.T is
// optional; when set, records are echoed to the test log.
func NewCaptureHandler(t *testing.T) *CaptureHandler {
	return &CaptureHandler{store: &recordStore{t: t}}
}

// NewTestLogger creates a logger backed by a capturing handler.
func NewTestLogger(t *testing.T) (*slog.Logger, *CaptureHandler) {
	handler := NewCaptureHandler(t)
	return slog.New(handler), handler
}

// Enabled implements slog.Handler. Tests capture every level.
func (h *CaptureHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (h *CaptureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.bound))
	for _, a := range h.bound {
		attrs[h.qualify(a.Key)] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.qualify(a.Key)] = a.Value.Resolve().Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   attrs,
	})
	t := h.store.t
	h.store.mu.Unlock()

	if t != nil {
		t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler. The derived handler shares the
// capture buffer.
func (h *CaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make([]slog.Attr, 0, len(h.bound)+len(attrs))
	bound = append(bound, h.bound...)
	bound = append(bound, attrs...)
	return &CaptureHandler{store: h.store, bound: bound, groups: h.groups}
}

// WithGroup implements slog.Handler. Grouped keys are flattened with a
// dot so assertions can address them as "group.key".
func (h *CaptureHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &CaptureHandler{store: h.store, bound: h.bound, groups: groups}
}

func (h *CaptureHandler) qualify(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

// Records returns a copy of every captured record.
func (h *CaptureHandler) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	records := make([]LogRecord, len(h.store.records))
	copy(records, h.store.records)
	return records
}

// RecordsByLevel returns captured records at the given level.
func (h *CaptureHandler) RecordsByLevel(level slog.Level) []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	var filtered []LogRecord
	for _, r := range h.store.records {
		if r.Level == level {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ContainsMessage reports whether any record's message contains the
// given substring.
func (h *CaptureHandler) ContainsMessage(message string) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	for _, r := range h.store.records {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any record carries the attribute.
func (h *CaptureHandler) ContainsAttr(key string, value any) bool {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	for _, r := range h.store.records {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Count returns the number of captured records.
func (h *CaptureHandler) Count() int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return len(h.store.records)
}

// Reset discards all captured records.
func (h *CaptureHandler) Reset() {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.records = h.store.records[:0]
}
