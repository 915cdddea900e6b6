package diag

import (
	"fmt"
)

// Code identifies an Issue raised by the module's own front end.
type Code uint16

const (
	// Неизвестная ошибка
	UnknownCode Code = 0
	// Лексические
	LexInfo                     Code = 1000
	LexUnknownChar              Code = 1001
	LexUnterminatedString       Code = 1002
	LexUnterminatedBlockComment Code = 1003
	LexBadNumber                Code = 1004
	LexUnterminatedChar         Code = 1005
	LexBadRawString             Code = 1006

	// Парсерные
	SynInfo              Code = 2000
	SynUnexpectedToken   Code = 2001
	SynUnclosedDelimiter Code = 2002
	SynExpectSemicolon   Code = 2003
	SynExpectIdentifier  Code = 2004
	SynExpectType        Code = 2005
	SynExpectExpression  Code = 2006
	SynExpectPattern     Code = 2007
	SynExpectItem        Code = 2008
	SynExpectBlock       Code = 2009
	SynTrailingInput     Code = 2010
	SynTooManyErrors     Code = 2011
)

var codeTitles = map[Code]string{
	UnknownCode:                 "Unknown error",
	LexInfo:                     "Lexical information",
	LexUnknownChar:              "Unknown character",
	LexUnterminatedString:       "Unterminated string literal",
	LexUnterminatedBlockComment: "Unterminated block comment",
	LexBadNumber:                "Invalid numeric literal",
	LexUnterminatedChar:         "Unterminated character literal",
	LexBadRawString:             "Malformed raw string",
	SynInfo:                     "Syntax information",
	SynUnexpectedToken:          "Unexpected token",
	SynUnclosedDelimiter:        "Unclosed delimiter",
	SynExpectSemicolon:          "Missing semicolon",
	SynExpectIdentifier:         "Expected identifier",
	SynExpectType:               "Expected type",
	SynExpectExpression:         "Expected expression",
	SynExpectPattern:            "Expected pattern",
	SynExpectItem:               "Expected item",
	SynExpectBlock:              "Expected block",
	SynTrailingInput:            "Unexpected trailing input",
	SynTooManyErrors:            "Too many errors",
}

// ID returns the stable string form, e.g. SYN2001.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	if t, ok := codeTitles[c]; ok {
		return t
	}
	return codeTitles[UnknownCode]
}

func (c Code) String() string {
	return c.ID()
}
