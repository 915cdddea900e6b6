// Package astctx turns a (file, diagnostic) pair into a Context: the parsed
// file, the smallest grammatical unit enclosing the diagnostic and the names
// visible at that point.
//
// A Context is built fresh from disk for every diagnostic and never cached
// across edits. When the file does not parse, Build fails with a *ParseError
// and no partial context is returned.
package astctx
