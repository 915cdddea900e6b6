// Package typepat parses type strings as the compiler prints them
// ("Option<Vec<&'a str>>", "&mut [u8]") and matches them structurally against
// patterns in which a single capital letter (T, U, E) is a type variable.
//
// Whitespace is insignificant. Lifetimes are kept as written and are not
// normalised: "&'a str" does not match "&str".
package typepat

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"rectify/internal/failure"
)

// Heads used for non-path types.
const (
	HeadRef    = "&"
	HeadRefMut = "&mut"
	HeadSlice  = "[]"
	HeadArray  = "[;]"
	HeadTuple  = "()"
	HeadNever  = "!"
	HeadFn     = "fn"
	HeadPtr    = "*const"
	HeadPtrMut = "*mut"
	HeadDyn    = "dyn"
	HeadImpl   = "impl"
)

// Type is a parsed type string.
type Type struct {
	Head     string
	Lifetime string  // для ссылок: 'a
	Args     []*Type // generic arguments, pointee, element, tuple members, fn params
	Bindings []string
	Ret      *Type  // return type of fn pointers
	Len      string // array length expression
}

var errSyntax = errors.New("invalid type")

// Parse parses s.
func Parse(s string) (*Type, error) {
	p := &parser{src: s}
	p.skipSpace()
	t, err := p.parseType()
	if err == nil {
		p.skipSpace()
		if p.pos < len(p.src) {
			err = p.errorf("unexpected %q", p.src[p.pos:])
		}
	}
	if err != nil {
		return nil, failure.New(failure.KindParse, "typepat", "parse", "", err)
	}
	return t, nil
}

// MustParse is Parse for table literals; it panics on malformed input.
func MustParse(s string) *Type {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// IsVar reports whether t is a type variable: a bare single capital letter.
func (t *Type) IsVar() bool {
	if t == nil || len(t.Args) > 0 || len(t.Head) != 1 {
		return false
	}
	return t.Head[0] >= 'A' && t.Head[0] <= 'Z'
}

// IsRef reports whether t is a shared or mutable reference.
func (t *Type) IsRef() bool {
	return t != nil && (t.Head == HeadRef || t.Head == HeadRefMut)
}

// Base returns the last path segment of the head: std::string::String -> String.
func (t *Type) Base() string {
	if i := strings.LastIndex(t.Head, "::"); i >= 0 {
		return t.Head[i+2:]
	}
	return t.Head
}

func (t *Type) String() string {
	if t == nil {
		return ""
	}
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Type) write(sb *strings.Builder) {
	arg := func(i int) {
		if i < len(t.Args) {
			t.Args[i].write(sb)
		}
	}
	list := func(sep string) {
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(sep)
			}
			a.write(sb)
		}
	}
	switch t.Head {
	case HeadRef, HeadRefMut:
		sb.WriteByte('&')
		if t.Lifetime != "" {
			sb.WriteString(t.Lifetime)
			sb.WriteByte(' ')
		}
		if t.Head == HeadRefMut {
			sb.WriteString("mut ")
		}
		arg(0)
	case HeadPtr, HeadPtrMut:
		sb.WriteString(t.Head)
		sb.WriteByte(' ')
		arg(0)
	case HeadSlice:
		sb.WriteByte('[')
		arg(0)
		sb.WriteByte(']')
	case HeadArray:
		sb.WriteByte('[')
		arg(0)
		sb.WriteString("; ")
		sb.WriteString(t.Len)
		sb.WriteByte(']')
	case HeadTuple:
		sb.WriteByte('(')
		list(", ")
		if len(t.Args) == 1 {
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	case HeadFn:
		sb.WriteString("fn(")
		list(", ")
		sb.WriteByte(')')
		if t.Ret != nil {
			sb.WriteString(" -> ")
			t.Ret.write(sb)
		}
	case HeadDyn, HeadImpl:
		sb.WriteString(t.Head)
		sb.WriteByte(' ')
		list(" + ")
	default:
		sb.WriteString(t.Head)
		if len(t.Args) > 0 || len(t.Bindings) > 0 {
			sb.WriteByte('<')
			list(", ")
			for i, b := range t.Bindings {
				if i > 0 || len(t.Args) > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(b)
			}
			sb.WriteByte('>')
		}
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w %q at %d: %s", errSyntax, p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *parser) peekByte() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) eat(s string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

// eatWord consumes keyword w only when it is not a prefix of a longer name.
func (p *parser) eatWord(w string) bool {
	p.skipSpace()
	rest := p.src[p.pos:]
	if !strings.HasPrefix(rest, w) {
		return false
	}
	if len(rest) > len(w) {
		r, _ := utf8.DecodeRuneInString(rest[len(w):])
		if isNameRune(r) {
			return false
		}
	}
	p.pos += len(w)
	return true
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (p *parser) name() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !isNameRune(r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

func (p *parser) lifetime() string {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '\'' {
		return ""
	}
	p.pos++
	return "'" + p.name()
}

func (p *parser) parseType() (*Type, error) {
	switch c := p.peekByte(); c {
	case 0:
		return nil, p.errorf("unexpected end of input")
	case '&':
		p.pos++
		t := &Type{Head: HeadRef, Lifetime: p.lifetime()}
		if p.eatWord("mut") {
			t.Head = HeadRefMut
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		t.Args = []*Type{elem}
		return t, nil
	case '*':
		p.pos++
		t := &Type{}
		switch {
		case p.eatWord("const"):
			t.Head = HeadPtr
		case p.eatWord("mut"):
			t.Head = HeadPtrMut
		default:
			return nil, p.errorf("expected const or mut after *")
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		t.Args = []*Type{elem}
		return t, nil
	case '[':
		p.pos++
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if p.eat(";") {
			p.skipSpace()
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				return nil, p.errorf("unclosed array type")
			}
			n := strings.TrimSpace(p.src[p.pos : p.pos+end])
			p.pos += end + 1
			return &Type{Head: HeadArray, Args: []*Type{elem}, Len: n}, nil
		}
		if !p.eat("]") {
			return nil, p.errorf("expected ]")
		}
		return &Type{Head: HeadSlice, Args: []*Type{elem}}, nil
	case '(':
		p.pos++
		args, trailing, err := p.parseList(")")
		if err != nil {
			return nil, err
		}
		if len(args) == 1 && !trailing {
			return args[0], nil // скобки вокруг типа
		}
		return &Type{Head: HeadTuple, Args: args}, nil
	case '!':
		p.pos++
		return &Type{Head: HeadNever}, nil
	case '{':
		// {integer}, {float}: неуточнённые литералы в сообщениях компилятора
		end := strings.IndexByte(p.src[p.pos:], '}')
		if end < 0 {
			return nil, p.errorf("unclosed {")
		}
		t := &Type{Head: p.src[p.pos : p.pos+end+1]}
		p.pos += end + 1
		return t, nil
	}
	switch {
	case p.eatWord("dyn"):
		return p.parseBounds(HeadDyn)
	case p.eatWord("impl"):
		return p.parseBounds(HeadImpl)
	case p.eatWord("fn"):
		if !p.eat("(") {
			return nil, p.errorf("expected ( after fn")
		}
		args, _, err := p.parseList(")")
		if err != nil {
			return nil, err
		}
		t := &Type{Head: HeadFn, Args: args}
		if p.eat("->") {
			if t.Ret, err = p.parseType(); err != nil {
				return nil, err
			}
		}
		return t, nil
	}
	return p.parsePath()
}

func (p *parser) parseBounds(head string) (*Type, error) {
	t := &Type{Head: head}
	for {
		var b *Type
		if lt := p.lifetime(); lt != "" {
			b = &Type{Head: lt}
		} else {
			var err error
			if b, err = p.parsePath(); err != nil {
				return nil, err
			}
		}
		t.Args = append(t.Args, b)
		if !p.eat("+") {
			return t, nil
		}
	}
}

func (p *parser) parsePath() (*Type, error) {
	var segs []string
	t := &Type{}
	for {
		if lt := p.lifetime(); lt != "" && len(segs) == 0 {
			return &Type{Head: lt}, nil
		}
		n := p.name()
		if n == "" {
			return nil, p.errorf("expected type name")
		}
		segs = append(segs, n)
		if p.eat("::<") || p.eat("<") {
			if err := p.parseGenericArgs(t); err != nil {
				return nil, err
			}
		}
		if !p.eat("::") {
			break
		}
	}
	t.Head = strings.Join(segs, "::")
	return t, nil
}

func (p *parser) parseGenericArgs(t *Type) error {
	for {
		if p.eat(">") {
			return nil
		}
		if lt := p.lifetime(); lt != "" {
			t.Args = append(t.Args, &Type{Head: lt})
		} else {
			save := p.pos
			n := p.name()
			if n != "" && p.eat("=") && !strings.HasPrefix(p.src[p.pos:], "=") {
				val, err := p.parseType()
				if err != nil {
					return err
				}
				t.Bindings = append(t.Bindings, n+" = "+val.String())
			} else {
				p.pos = save
				arg, err := p.parseType()
				if err != nil {
					return err
				}
				t.Args = append(t.Args, arg)
			}
		}
		if !p.eat(",") {
			if !p.eat(">") {
				return p.errorf("expected , or >")
			}
			return nil
		}
	}
}

// parseList parses comma-separated types up to closer; trailing reports a
// trailing comma.
func (p *parser) parseList(closer string) (args []*Type, trailing bool, err error) {
	for {
		if p.eat(closer) {
			return args, trailing, nil
		}
		arg, err := p.parseType()
		if err != nil {
			return nil, false, err
		}
		args = append(args, arg)
		trailing = p.eat(",")
		if !trailing {
			if !p.eat(closer) {
				return nil, false, p.errorf("expected , or %s", closer)
			}
			return args, false, nil
		}
	}
}
