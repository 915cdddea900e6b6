package source

import (
	"fmt"
)

// Span is a half-open byte range inside one file.
type Span struct {
	File  FileID
	Start uint32 // в байтах включительно
	End   uint32 // в байтах не включительно
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover returns the smallest span containing both s and other.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Contains reports whether other lies fully inside s.
// An empty span at the end of s is considered inside.
func (s Span) Contains(other Span) bool {
	if s.File != other.File {
		return false
	}
	return s.Start <= other.Start && other.End <= s.End
}

// Overlaps reports whether two half-open spans share at least one byte.
// Two empty spans at the same offset also overlap: inserts there would race.
func (s Span) Overlaps(other Span) bool {
	if s.File != other.File {
		return false
	}
	if s.Empty() && other.Empty() {
		return s.Start == other.Start
	}
	if s.Empty() {
		return other.Start < s.Start && s.Start < other.End
	}
	if other.Empty() {
		return s.Start < other.Start && other.Start < s.End
	}
	return s.Start < other.End && other.Start < s.End
}

func (s Span) ShiftLeft(n uint32) Span {
	if n > s.Start {
		return s
	}
	return Span{
		File:  s.File,
		Start: s.Start - n,
		End:   s.End - n,
	}
}

func (s Span) ShiftRight(n uint32) Span {
	return Span{
		File:  s.File,
		Start: s.Start + n,
		End:   s.End + n,
	}
}
