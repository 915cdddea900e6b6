// Package token defines lexical token kinds and trivia for the correction engine's
// front end.
// Invariants:
//   - Token.Text is a slice of the original source (no copies).
//   - Token.Span matches Text exactly (Begin..End).
//   - Compound closing operators (>>, >=, >>=) are emitted whole; the parser splits them
//     when a generic argument list needs a single '>'.
//   - Comments never appear in the main token stream; they ride along as leading Trivia.
//   - Primitive type names (i32, usize, str, ...) are identifiers.
package token
