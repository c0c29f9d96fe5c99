package detection

import (
	"sync"

	"skywatch-sim/internal/simerr"
)

// EventLog is an append-only ring of the most recent events of one device.
// When full, the oldest event is evicted.
type EventLog struct {
	mu    sync.Mutex
	buf   []Event
	start int
	n     int
}

// NewEventLog returns a log holding at most capacity events.
func NewEventLog(capacity int) (*EventLog, error) {
	if capacity <= 0 {
		return nil, simerr.Validation("event log capacity %d must be positive", capacity)
	}
	return &EventLog{buf: make([]Event, capacity)}, nil
}

// Append stores ev, evicting the oldest event when full.
func (l *EventLog) Append(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.n < len(l.buf) {
		l.buf[(l.start+l.n)%len(l.buf)] = ev
		l.n++
		return
	}
	l.buf[l.start] = ev
	l.start = (l.start + 1) % len(l.buf)
}

// Events returns the stored events, oldest first.
func (l *EventLog) Events() []Event {
	return l.Recent(0)
}

// Recent returns up to limit newest events, oldest first. limit <= 0 returns all.
func (l *EventLog) Recent(limit int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := l.n
	if limit > 0 && limit < count {
		count = limit
	}
	out := make([]Event, count)
	skip := l.n - count
	for i := 0; i < count; i++ {
		out[i] = l.buf[(l.start+skip+i)%len(l.buf)]
	}
	return out
}

func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

func (l *EventLog) Cap() int { return len(l.buf) }

// Clear drops every stored event.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.buf)
	l.start, l.n = 0, 0
}
