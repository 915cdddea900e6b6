// Package diag defines the diagnostic model shared by the correction pipeline.
//
// # Two kinds of findings
//
//   - Diagnostic is the immutable record produced by the external compiler
//     (through a Diagnoser). It names a problem in a user's source file and is
//     the input of the whole pipeline. Its Code is an opaque string such as
//     "E0599"; Family maps known codes onto the strategy families the proposal
//     generator dispatches on.
//   - Issue is produced by this module's own front end (lexer and parser) when
//     it reads a file or a candidate snippet. Issues carry a compact numeric Code
//     with a stable string form (LEX1002, SYN2001) and a byte Span.
//
// # Aggregation
//
// FileDiagnostics is a point-in-time summary (error and warning counts plus
// messages) used by the applier to compare a file before and after an edit.
// Bag collects Issues during a parse and keeps them in a deterministic order.
//
// # Scope
//
// Package diag performs no IO and no formatting beyond String methods.
// Rendering lives in cmd/rectify; collection of compiler output lives in
// internal/diagnoser.
package diag
