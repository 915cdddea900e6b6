// Package trace provides the tracing subsystem of rectify.
//
// Tracing replaces a line logger: every pipeline step emits span or point
// events that can be streamed to a file, kept in a ring buffer and dumped on
// failure, or discarded at zero cost.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	rectify fix --trace=- --trace-level=detail
//	rectify fix --trace=fix.ndjson --trace-file=src/main.rs
//	rectify fix --trace-level=error --trace-mode=ring
//
// The last form writes nothing while the run goes well; afterwards the ring
// is dumped for every file whose fix failed or was rolled back.
//
// # Architecture
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer, read back per file or per diagnostic code
//   - MultiTracer: combines multiple tracers
//   - Focus: limits any sink to events about some files
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: everything goes to the ring, nothing to the stream
//   - LevelPhase: run and per-file boundaries
//   - LevelDetail: per-diagnostic events, swallowed strategy errors
//   - LevelDebug: everything including individual proposals
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx = trace.WithFile(ctx, "src/main.rs")
//	ctx = trace.WithDiagnostic(ctx, "E0599")
//
//	ctx, span := trace.Start(ctx, trace.ScopeFile, "apply")
//	trace.Note(ctx, trace.ScopeFile, "apply.committed", "s.len()")
//	span.End("committed")
//
// Events started this way carry the file and the diagnostic code, so a
// trace of a parallel run can be filtered per file.
package trace
