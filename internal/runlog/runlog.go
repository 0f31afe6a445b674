// Package runlog keeps an in-memory record of recent pipeline runs. With no
// persistent store, this ring plus the structured logs is the only
// operational visibility into what the service has done.
package runlog

import (
	"sync"
	"time"
)

// Record describes one pipeline run, successful or not.
type Record struct {
	ID         string        `json:"id"`
	EventType  string        `json:"event_type"`
	PageID     string        `json:"page_id,omitempty"`
	Outcome    string        `json:"outcome"`
	Error      string        `json:"error,omitempty"`
	PageURL    string        `json:"page_url,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	DurationMS int64         `json:"duration_ms"`
	Duration   time.Duration `json:"-"`
}

// Log is a fixed-capacity ring of run records, newest last.
type Log struct {
	mu    sync.Mutex
	ring  []Record
	start int
	size  int
}

// New creates a Log holding up to capacity records.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = 100
	}
	return &Log{ring: make([]Record, capacity)}
}

// Append records a run, evicting the oldest record when full.
func (l *Log) Append(r Record) {
	r.DurationMS = r.Duration.Milliseconds()

	l.mu.Lock()
	defer l.mu.Unlock()

	capacity := len(l.ring)
	if l.size < capacity {
		idx := (l.start + l.size) % capacity
		l.ring[idx] = r
		l.size++
		return
	}

	l.ring[l.start] = r
	l.start = (l.start + 1) % capacity
}

// Recent returns up to n records, newest first. n <= 0 returns everything
// buffered.
func (l *Log) Recent(n int) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > l.size {
		n = l.size
	}

	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.start + l.size - 1 - i + len(l.ring)) % len(l.ring)
		out = append(out, l.ring[idx])
	}
	return out
}
