package activity

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func intPtr(i int) *int { return &i }

// TestLogAppendOrder tests that insertion order is preserved.
func TestLogAppendOrder(t *testing.T) {
	l := New()
	for i := 0; i < 5; i++ {
		l.Append(Entry{Method: "POST", URL: "http://gw/v1/audio/speech", Payload: i})
	}

	entries := l.Entries()
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Payload != i {
			t.Errorf("entry %d has payload %v", i, e.Payload)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("entry %d should have a timestamp", i)
		}
	}
}

// TestLogEntriesIsCopy tests that callers cannot mutate the log.
func TestLogEntriesIsCopy(t *testing.T) {
	l := New()
	l.Append(Entry{Method: "POST"})

	entries := l.Entries()
	entries[0].Method = "DELETE"

	if got := l.Entries()[0].Method; got != "POST" {
		t.Errorf("log was mutated through a snapshot: %s", got)
	}
}

// TestLogKeepsTimestamp tests that explicit timestamps are kept.
func TestLogKeepsTimestamp(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := New()
	l.Append(Entry{Timestamp: ts})

	last, ok := l.Last()
	if !ok || !last.Timestamp.Equal(ts) {
		t.Errorf("expected timestamp %v, got %v", ts, last.Timestamp)
	}
}

// TestLogLastEmpty tests Last on an empty log.
func TestLogLastEmpty(t *testing.T) {
	l := New()
	if _, ok := l.Last(); ok {
		t.Error("Last should report false on an empty log")
	}
}

// TestLogClear tests that Clear empties the log and notifies.
func TestLogClear(t *testing.T) {
	l := New()
	l.Append(Entry{Method: "POST"})
	ch := l.Subscribe()

	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("expected empty log, got %d entries", l.Len())
	}
	select {
	case <-ch:
	default:
		t.Error("Clear should notify subscribers")
	}

	l.Append(Entry{Method: "GET"})
	if e, _ := l.Last(); e.Method != "GET" {
		t.Errorf("unexpected entry after clear: %+v", e)
	}
}

// TestLogSubscribe tests change notifications.
func TestLogSubscribe(t *testing.T) {
	l := New()
	ch := l.Subscribe()

	l.Append(Entry{})
	l.Append(Entry{}) // coalesces, must not block

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
}

// TestLogConcurrentAppend tests concurrent writers.
func TestLogConcurrentAppend(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(Entry{})
		}()
	}
	wg.Wait()

	if l.Len() != 50 {
		t.Errorf("expected 50 entries, got %d", l.Len())
	}
}

// TestEntryAccessors tests Settled, DurationMs and PayloadText.
func TestEntryAccessors(t *testing.T) {
	d := 1500 * time.Millisecond
	settled := Entry{Status: intPtr(200), Duration: &d, Payload: map[string]any{"mimeType": "audio/mpeg"}}
	dispatch := Entry{Payload: "raw text"}

	if !settled.Settled() || dispatch.Settled() {
		t.Error("Settled should follow Status")
	}
	if ms, ok := settled.DurationMs(); !ok || ms != 1500 {
		t.Errorf("expected 1500ms, got %d (%v)", ms, ok)
	}
	if _, ok := dispatch.DurationMs(); ok {
		t.Error("dispatch entries have no duration")
	}
	if dispatch.PayloadText() != "raw text" {
		t.Errorf("string payloads should render verbatim, got %q", dispatch.PayloadText())
	}
	if !strings.Contains(settled.PayloadText(), `"mimeType": "audio/mpeg"`) {
		t.Errorf("expected indented JSON, got %q", settled.PayloadText())
	}
}
