package source

import (
	"bytes"
	"path/filepath"
	"strings"
)

// DetectLineEnding returns "\r\n" when the first line terminator in content is CRLF, "\n" otherwise.
func DetectLineEnding(content []byte) string {
	i := bytes.IndexByte(content, '\n')
	if i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// ToLineEnding rewrites bare LF terminators in text to eol. CRLF already present is kept.
func ToLineEnding(text, eol string) string {
	if eol != "\r\n" || !strings.Contains(text, "\n") {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text) + strings.Count(text, "\n"))
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' && (i == 0 || text[i-1] != '\r') {
			sb.WriteByte('\r')
		}
		sb.WriteByte(text[i])
	}
	return sb.String()
}

// HasBOM reports whether content starts with a UTF-8 byte order mark.
func HasBOM(content []byte) bool {
	return len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF
}

func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, len(content)/32+1)
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i)) // #nosec G115 -- file size checked by caller
		}
	}
	return out
}

func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// Если LineIdx пустой, то весь файл - одна строка
	if len(lineIdx) == 0 {
		return LineCol{Line: 1, Col: off + 1}
	}

	// бинпоиск: находим количество терминаторов строго до off
	lo, hi := 0, len(lineIdx)-1
	for lo <= hi {
		mid := (lo + hi) >> 1
		if lineIdx[mid] < off {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	line := lo // число строк, завершившихся до off

	var startOff uint32
	if line > 0 {
		startOff = lineIdx[line-1] + 1
	}
	return LineCol{Line: uint32(line + 1), Col: off - startOff + 1} // #nosec G115
}

func normalizePath(p string) string {
	// единый вид в кроссплатформенных дифах
	return filepath.ToSlash(filepath.Clean(p))
}
