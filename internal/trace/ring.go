package trace

import (
	"io"
	"sync"
)

// RingTracer keeps the most recent events in memory. After a run the
// history of a file whose fix failed or was rolled back is pulled out of it
// with Events or Dump.
type RingTracer struct {
	mu    sync.RWMutex
	buf   []Event
	next  int // slot of the next write
	count int
	level Level
	focus Focus
}

// NewRingTracer keeps up to capacity events (4096 when not positive).
func NewRingTracer(capacity int, level Level) *RingTracer {
	if capacity <= 0 {
		capacity = defaultRingSize
	}
	return &RingTracer{buf: make([]Event, capacity), level: level}
}

// Emit stores ev over the oldest event once the ring is full. At LevelError
// every scope is kept: the ring is then only read for failure dumps.
func (t *RingTracer) Emit(ev *Event) {
	level := t.level
	if level == LevelError {
		level = LevelDebug
	}
	if !keeps(level, t.focus, ev) {
		return
	}
	t.mu.Lock()
	t.buf[t.next] = *ev
	t.next = (t.next + 1) % len(t.buf)
	t.count = min(t.count+1, len(t.buf))
	t.mu.Unlock()
}

// Events returns the stored events about subj, oldest first. Empty fields
// of subj match anything, so the zero Subject returns the whole ring.
func (t *RingTracer) Events(subj Subject) []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Event, 0, t.count)
	first := (t.next - t.count + len(t.buf)) % len(t.buf)
	for i := range t.count {
		ev := t.buf[(first+i)%len(t.buf)]
		if subj.matches(ev.Subject) {
			out = append(out, ev)
		}
	}
	return out
}

// Dump writes Events(subj) to w.
func (t *RingTracer) Dump(w io.Writer, subj Subject, format Format) error {
	for _, ev := range t.Events(subj) {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (t *RingTracer) Flush() error { return nil }

func (t *RingTracer) Close() error { return nil }

func (t *RingTracer) Level() Level { return t.level }

func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
