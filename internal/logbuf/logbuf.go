// Package logbuf holds the bounded in-memory log panel shown alongside a
// translation job. It keeps only the most recent entries, evicting the
// oldest first, so a long-running session never grows without bound.
package logbuf

import (
	"sync"
	"time"
)

// DefaultSize is the retention bound used when none is configured.
const DefaultSize = 1000

// Level classifies a log entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one timestamped log line.
type Entry struct {
	Time     time.Time `json:"time"`
	Level    Level     `json:"level"`
	Category string    `json:"category,omitempty"`
	Message  string    `json:"message"`
}

// Buffer is an append-only ring of the most recent log entries.
// Eviction of the oldest entry once the bound is reached is the
// documented retention policy, not data loss.
type Buffer struct {
	mu      sync.Mutex
	max     int
	entries []Entry
	notify  func(Entry)
}

// New creates a buffer retaining at most max entries. A non-positive
// max falls back to DefaultSize.
func New(max int) *Buffer {
	if max <= 0 {
		max = DefaultSize
	}
	return &Buffer{max: max}
}

// OnAppend registers fn to be called for every appended entry, after it
// is stored. Used to mirror entries to a live display. Only one
// subscriber is supported; a later call replaces the earlier one.
func (b *Buffer) OnAppend(fn func(Entry)) {
	b.mu.Lock()
	b.notify = fn
	b.mu.Unlock()
}

// Append stores a new entry, evicting the oldest if the buffer is full.
// Category may be empty.
func (b *Buffer) Append(level Level, category, message string) {
	e := Entry{
		Time:     time.Now(),
		Level:    level,
		Category: category,
		Message:  message,
	}

	b.mu.Lock()
	b.entries = append(b.entries, e)
	if len(b.entries) > b.max {
		// Shift rather than re-slice so the backing array does not
		// pin evicted entries.
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:b.max]
	}
	notify := b.notify
	b.mu.Unlock()

	if notify != nil {
		notify(e)
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len reports the number of retained entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Clear discards all retained entries.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.entries = b.entries[:0]
	b.mu.Unlock()
}
