// Package ast declares the syntax tree produced by internal/parser.
//
// Nodes are plain pointer structs grouped by role: Item, Stmt, Expr, Type and
// Pat. Every node knows its byte Span in the originating file; spans of
// children always lie inside the span of their parent, which is what lets the
// context builder find the smallest node around a diagnostic by descending.
//
// The tree is syntactic only. Names are strings, paths keep their segments and
// no resolution or typing happens here.
package ast
