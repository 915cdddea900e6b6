package trace

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// StreamTracer formats every event as it arrives and writes it out. Writes
// are serialized, so the lines of files fixed in parallel never interleave.
type StreamTracer struct {
	mu     sync.Mutex
	w      io.Writer
	level  Level
	format Format
	focus  Focus
	lost   int // events whose write failed since the last Flush
}

// NewStreamTracer writes events at or below level to w.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

// Emit writes ev. A failed write never reaches the caller; Flush reports it.
func (t *StreamTracer) Emit(ev *Event) {
	if !keeps(t.level, t.focus, ev) {
		return
	}
	line := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(line); err != nil {
		t.lost++
	}
}

// Flush flushes a buffered writer and reports events lost to write errors.
func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var err error
	if t.lost > 0 {
		err = fmt.Errorf("trace: %d event(s) could not be written", t.lost)
		t.lost = 0
	}
	if f, ok := t.w.(interface{ Flush() error }); ok {
		err = errors.Join(err, f.Flush())
	}
	return err
}

// Close flushes, then closes the writer when it is an io.Closer.
func (t *StreamTracer) Close() error {
	err := t.Flush()
	if c, ok := t.w.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}

func (t *StreamTracer) Level() Level { return t.level }

func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
