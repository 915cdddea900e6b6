package fix

import (
	"rectify/internal/source"
)

// Replace creates an edit replacing span with newText, guarded by expect.
func Replace(span source.Span, newText, expect string) Edit {
	return Edit{Span: span, NewText: newText, OldText: expect}
}

// Insert creates an edit inserting text at the start of at.
func Insert(at source.Span, text string) Edit {
	return Edit{Span: source.Span{File: at.File, Start: at.Start, End: at.Start}, NewText: text}
}

// InsertAfter creates an edit inserting text at the end of at.
func InsertAfter(at source.Span, text string) Edit {
	return Edit{Span: source.Span{File: at.File, Start: at.End, End: at.End}, NewText: text}
}

// Delete removes the text covered by span, guarded by expect.
func Delete(span source.Span, expect string) Edit {
	return Edit{Span: span, OldText: expect}
}

// Wrap surrounds span with prefix and suffix insertions.
func Wrap(span source.Span, prefix, suffix string) []Edit {
	return []Edit{
		Insert(span, prefix),
		InsertAfter(span, suffix),
	}
}

// DeleteLine removes span together with the whitespace before it on its line
// and the line terminator after it, when span is the only content of its line.
// Otherwise it removes span alone.
func DeleteLine(f *source.File, span source.Span) Edit {
	start, end := span.Start, span.End
	content := f.Content
	for start > 0 && (content[start-1] == ' ' || content[start-1] == '\t') {
		start--
	}
	if start > 0 && content[start-1] != '\n' {
		return Delete(span, f.Text(span))
	}
	e := end
	for e < uint32(len(content)) && (content[e] == ' ' || content[e] == '\t') { // #nosec G115
		e++
	}
	switch {
	case e < uint32(len(content)) && content[e] == '\r' && e+1 < uint32(len(content)) && content[e+1] == '\n': // #nosec G115
		e += 2
	case e < uint32(len(content)) && content[e] == '\n': // #nosec G115
		e++
	case e < uint32(len(content)): // #nosec G115
		return Delete(span, f.Text(span))
	}
	full := source.Span{File: span.File, Start: start, End: e}
	return Delete(full, f.Text(full))
}
