package trace

import (
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// NextSpanID returns a unique span ID.
func NextSpanID() uint64 { return spanCounter.Add(1) }

// goroutineID parses the header line of runtime.Stack:
// "goroutine 123 [running]:". Zero when the format is unexpected.
func goroutineID() uint64 {
	var buf [64]byte
	head := string(buf[:runtime.Stack(buf[:], false)])
	fields := strings.Fields(head)
	if len(fields) < 2 || fields[0] != "goroutine" {
		return 0
	}
	gid, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// admits reports whether events of scope should be built for t. At
// LevelError they all are: streams drop them and rings keep them for
// failure dumps.
func admits(t Tracer, scope Scope) bool {
	if t == nil || !t.Enabled() {
		return false
	}
	l := t.Level()
	return l == LevelError || l.ShouldEmit(scope)
}

// stamp fills the bookkeeping fields of ev.
func stamp(ev *Event) *Event {
	ev.Time = time.Now()
	ev.Seq = NextSeq()
	return ev
}

// Span is one timed operation: a snapshot, an apply, one generator run.
// The zero-cost form returned for disabled scopes still measures time.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	gid     uint64
	scope   Scope
	subject Subject
	name    string
	started time.Time
	extra   map[string]string
}

// Begin starts a span and emits its begin event. parent is the enclosing
// span ID (0 for a root span).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	return begin(t, scope, name, parent, Subject{})
}

func begin(t Tracer, scope Scope, name string, parent uint64, subj Subject) *Span {
	if !admits(t, scope) {
		return &Span{tracer: Nop, started: time.Now()}
	}
	s := &Span{
		tracer:  t,
		id:      NextSpanID(),
		parent:  parent,
		gid:     goroutineID(),
		scope:   scope,
		subject: subj,
		name:    name,
	}
	ev := stamp(&Event{
		Kind:     KindSpanBegin,
		Scope:    scope,
		SpanID:   s.id,
		ParentID: parent,
		GID:      s.gid,
		Subject:  subj,
		Name:     name,
	})
	s.started = ev.Time
	t.Emit(ev)
	return s
}

// End emits the end event and returns how long the span lasted.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	dur := time.Since(s.started)
	if s.tracer == nil || !s.tracer.Enabled() {
		return dur
	}
	extra := s.extra
	if extra == nil {
		extra = make(map[string]string, 1)
	}
	extra["elapsed"] = dur.Round(time.Microsecond).String()
	s.tracer.Emit(stamp(&Event{
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		GID:      s.gid,
		Subject:  s.subject,
		Name:     s.name,
		Detail:   detail,
		Extra:    extra,
	}))
	return dur
}

// WithExtra records a key/value on the end event and returns s.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID; 0 for a disabled span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event. kv is a flat list of key/value pairs; an odd
// trailing key is ignored.
func Point(t Tracer, scope Scope, name, detail string, parent uint64, kv ...string) {
	point(t, scope, name, detail, parent, Subject{}, kv)
}

func point(t Tracer, scope Scope, name, detail string, parent uint64, subj Subject, kv []string) {
	if !admits(t, scope) {
		return
	}
	var extra map[string]string
	if len(kv) >= 2 {
		extra = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			extra[kv[i]] = kv[i+1]
		}
	}
	t.Emit(stamp(&Event{
		Kind:     KindPoint,
		Scope:    scope,
		SpanID:   NextSpanID(),
		ParentID: parent,
		GID:      goroutineID(),
		Subject:  subj,
		Name:     name,
		Detail:   detail,
		Extra:    extra,
	}))
}
