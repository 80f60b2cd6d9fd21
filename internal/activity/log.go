// Package activity keeps the append-only diagnostic log of synthesis
// attempts. Insertion order is display order; entries are never changed or
// reordered once appended.
package activity

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Entry is one line of the activity log. Dispatch entries leave Status and
// Duration nil; settlement entries set both.
type Entry struct {
	AttemptID string
	Timestamp time.Time
	Method    string
	URL       string
	Status    *int
	Duration  *time.Duration
	IsError   bool
	Payload   any
}

// Settled reports whether e records the end of an attempt.
func (e Entry) Settled() bool {
	return e.Status != nil
}

// DurationMs returns the elapsed time in milliseconds, if recorded.
func (e Entry) DurationMs() (int64, bool) {
	if e.Duration == nil {
		return 0, false
	}
	return e.Duration.Milliseconds(), true
}

// PayloadText renders the payload for display: strings verbatim, anything
// else as indented JSON.
func (e Entry) PayloadText() string {
	switch p := e.Payload.(type) {
	case nil:
		return ""
	case string:
		return p
	case []byte:
		return string(p)
	}
	b, err := json.MarshalIndent(e.Payload, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", e.Payload)
	}
	return string(b)
}

// Log is the append-only entry sequence. It is safe for concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	subs    []chan struct{}
	now     func() time.Time
}

// New returns an empty log.
func New() *Log {
	return &Log{now: time.Now}
}

// Append adds e at the end of the log. A zero Timestamp is set to now.
func (l *Log) Append(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	subs := l.subs
	l.mu.Unlock()

	log.Debug("activity",
		"attempt", e.AttemptID,
		"method", e.Method,
		"url", e.URL,
		"settled", e.Settled(),
		"error", e.IsError)

	notify(subs)
}

// Entries returns a copy of the log in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear drops every entry. A normal demo session never clears its log.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	subs := l.subs
	l.mu.Unlock()

	notify(subs)
}

// Last returns the newest entry.
func (l *Log) Last() (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return Entry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// Subscribe returns a channel that receives a signal after appends.
// Signals coalesce; readers should re-read Entries.
func (l *Log) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	return ch
}

func notify(subs []chan struct{}) {
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
