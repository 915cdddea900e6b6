package trace

import "errors"

// MultiTracer sends every event to several sinks, in practice a stream for
// the trace file and a ring for failure dumps.
type MultiTracer struct {
	sinks []Tracer
	level Level
}

// NewMultiTracer fans out to sinks.
func NewMultiTracer(level Level, sinks ...Tracer) *MultiTracer {
	return &MultiTracer{sinks: sinks, level: level}
}

func (t *MultiTracer) Emit(ev *Event) {
	for _, s := range t.sinks {
		s.Emit(ev)
	}
}

// Flush flushes every sink and joins their errors.
func (t *MultiTracer) Flush() error { return t.each(Tracer.Flush) }

// Close closes every sink and joins their errors.
func (t *MultiTracer) Close() error { return t.each(Tracer.Close) }

func (t *MultiTracer) each(fn func(Tracer) error) error {
	var errs []error
	for _, s := range t.sinks {
		if err := fn(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *MultiTracer) Level() Level { return t.level }

func (t *MultiTracer) Enabled() bool { return t.level > LevelOff }

// RingOf returns the ring buffer behind t, looking through MultiTracers.
func RingOf(t Tracer) (*RingTracer, bool) {
	switch t := t.(type) {
	case *RingTracer:
		return t, true
	case *MultiTracer:
		for _, s := range t.sinks {
			if r, ok := RingOf(s); ok {
				return r, true
			}
		}
	}
	return nil, false
}
