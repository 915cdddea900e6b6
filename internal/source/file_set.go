package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"unicode/utf8"

	"fortio.org/safecast"
)

// FileSet manages a collection of source files loaded for one pipeline run.
type FileSet struct {
	files []File
	index map[string]FileID // path -> id
}

// NewFileSet creates a new empty FileSet.
func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 0),
		index: make(map[string]FileID),
	}
}

// Add stores a file from raw bytes, computes LineIdx and Hash, and returns a new FileID.
// It always creates a new FileID even if a file with the same path already exists.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	hash := sha256.Sum256(content)
	lineIdx := buildLineIndex(content)
	normalizedPath := normalizePath(path)

	if HasBOM(content) {
		flags |= FileHadBOM
	}
	if DetectLineEnding(content) == "\r\n" {
		flags |= FileUsesCRLF
	}

	lenFiles, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    normalizedPath,
		Content: content,
		LineIdx: lineIdx,
		Hash:    hash,
		Flags:   flags,
	})
	// Всегда обновляем индекс на последнюю версию файла
	fileSet.index[normalizedPath] = id
	return id
}

// Load reads a file from disk and calls Add. Content is not normalised:
// spans must address the bytes that an edit will later rewrite.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return fileSet.Add(path, content, 0), nil
}

// AddVirtual adds a virtual file (stdin, test, or generated) with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file metadata for the given ID.
func (fileSet *FileSet) Get(id FileID) *File {
	return &fileSet.files[id]
}

// GetLatest returns the latest file ID for the given path, if it exists.
func (fileSet *FileSet) GetLatest(path string) (FileID, bool) {
	id, ok := fileSet.index[normalizePath(path)]
	return id, ok
}

// Resolve converts a span into line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := &fileSet.files[span.File]
	return f.LineCol(span.Start), f.LineCol(span.End)
}

// Len returns the content length as uint32.
func (f *File) Len() uint32 {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}
	return n
}

// Text returns the source text covered by span, clamped to the file bounds.
func (f *File) Text(span Span) string {
	n := f.Len()
	start, end := span.Start, span.End
	if start > n {
		start = n
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return string(f.Content[start:end])
}

// LineStart returns the byte offset where the 1-based line begins.
func (f *File) LineStart(line uint32) (uint32, bool) {
	if line == 0 {
		return 0, false
	}
	if line == 1 {
		return 0, true
	}
	idx := int(line) - 2
	if idx >= len(f.LineIdx) {
		return 0, false
	}
	return f.LineIdx[idx] + 1, true
}

// lineEnd returns the offset of the line terminator (or EOF) for line.
func (f *File) lineEnd(line uint32) uint32 {
	idx := int(line) - 1
	if idx < len(f.LineIdx) {
		end := f.LineIdx[idx]
		if end > 0 && f.Content[end-1] == '\r' {
			end--
		}
		return end
	}
	return f.Len()
}

// Offset converts a 1-based line and 1-based character column into a byte offset.
// Columns count Unicode scalar values, the way compilers report them; a column one past
// the end of the line addresses the line terminator.
func (f *File) Offset(pos LineCol) (uint32, bool) {
	start, ok := f.LineStart(pos.Line)
	if !ok || pos.Col == 0 {
		return 0, false
	}
	end := f.lineEnd(pos.Line)
	off := start
	for col := uint32(1); col < pos.Col; col++ {
		if off >= end {
			return 0, false
		}
		_, size := utf8.DecodeRune(f.Content[off:end])
		off += uint32(size) // #nosec G115 -- rune size is at most 4
	}
	return off, true
}

// LineCol converts a byte offset into a line and character column.
func (f *File) LineCol(off uint32) LineCol {
	byteCol := toLineCol(f.LineIdx, off)
	start, _ := f.LineStart(byteCol.Line)
	if off > f.Len() {
		return byteCol
	}
	chars := utf8.RuneCount(f.Content[start:off])
	col, err := safecast.Conv[uint32](chars)
	if err != nil {
		return byteCol
	}
	return LineCol{Line: byteCol.Line, Col: col + 1}
}

// GetLine возвращает строку с заданным номером (1-based) из файла без терминатора.
// Если строка не существует, возвращает пустую строку.
func (f *File) GetLine(lineNum uint32) string {
	start, ok := f.LineStart(lineNum)
	if !ok || start > f.Len() {
		return ""
	}
	return string(f.Content[start:f.lineEnd(lineNum)])
}

// LineCount returns the number of lines in the file.
func (f *File) LineCount() uint32 {
	n, err := safecast.Conv[uint32](len(f.LineIdx) + 1)
	if err != nil {
		panic(fmt.Errorf("line count overflow: %w", err))
	}
	return n
}
