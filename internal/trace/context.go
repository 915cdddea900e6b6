package trace

import "context"

type (
	tracerKey  struct{}
	spanKey    struct{}
	subjectKey struct{}
)

// FromContext returns the Tracer in ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches a Tracer to context.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// CurrentSpan returns the ID of the span attached to ctx, or 0.
func CurrentSpan(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	if id, ok := ctx.Value(spanKey{}).(uint64); ok {
		return id
	}
	return 0
}

// WithSpan attaches s as the parent for spans started from ctx.
func WithSpan(ctx context.Context, s *Span) context.Context {
	if s == nil || s.id == 0 {
		return ctx
	}
	return context.WithValue(ctx, spanKey{}, s.id)
}

// SubjectOf returns the file and diagnostic code attached to ctx.
func SubjectOf(ctx context.Context) Subject {
	if ctx == nil {
		return Subject{}
	}
	s, _ := ctx.Value(subjectKey{}).(Subject)
	return s
}

// WithFile tags events started from ctx with a source file. The diagnostic
// code, if any, is reset.
func WithFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, subjectKey{}, Subject{File: path})
}

// WithDiagnostic tags events started from ctx with a diagnostic code. The
// file set by WithFile is kept.
func WithDiagnostic(ctx context.Context, code string) context.Context {
	s := SubjectOf(ctx)
	s.Code = code
	return context.WithValue(ctx, subjectKey{}, s)
}

// Start begins a span parented to the span in ctx and returns a context
// carrying the new span. The span carries the subject of ctx.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	s := begin(FromContext(ctx), scope, name, CurrentSpan(ctx), SubjectOf(ctx))
	return WithSpan(ctx, s), s
}

// Note emits a point event under the current span of ctx, tagged with its
// subject. kv is a flat list of key/value pairs.
func Note(ctx context.Context, scope Scope, name, detail string, kv ...string) {
	point(FromContext(ctx), scope, name, detail, CurrentSpan(ctx), SubjectOf(ctx), kv)
}
