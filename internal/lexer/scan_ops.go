package lexer

import (
	"rectify/internal/diag"
	"rectify/internal/token"
)

type opEntry struct {
	text string
	kind token.Kind
}

// Жадность: сначала 3-символьные, затем 2-символьные, затем 1-символьные.
var multiOps = []opEntry{
	{"<<=", token.ShlAssign},
	{">>=", token.ShrAssign},
	{"...", token.DotDotDot},
	{"..=", token.DotDotEq},
	{"::", token.ColonColon},
	{"->", token.Arrow},
	{"=>", token.FatArrow},
	{"==", token.EqEq},
	{"!=", token.BangEq},
	{"<=", token.LtEq},
	{">=", token.GtEq},
	{"&&", token.AndAnd},
	{"||", token.OrOr},
	{"+=", token.PlusAssign},
	{"-=", token.MinusAssign},
	{"*=", token.StarAssign},
	{"/=", token.SlashAssign},
	{"%=", token.PercentAssign},
	{"^=", token.CaretAssign},
	{"&=", token.AmpAssign},
	{"|=", token.PipeAssign},
	{"<<", token.Shl},
	{">>", token.Shr},
	{"..", token.DotDot},
}

var singleOps = [256]token.Kind{
	'+': token.Plus,
	'-': token.Minus,
	'*': token.Star,
	'/': token.Slash,
	'%': token.Percent,
	'^': token.Caret,
	'!': token.Bang,
	'&': token.Amp,
	'|': token.Pipe,
	'=': token.Assign,
	'>': token.Gt,
	'<': token.Lt,
	'@': token.At,
	'.': token.Dot,
	',': token.Comma,
	';': token.Semicolon,
	':': token.Colon,
	'#': token.Pound,
	'$': token.Dollar,
	'?': token.Question,
	'~': token.Tilde,
	'(': token.LParen,
	')': token.RParen,
	'[': token.LBracket,
	']': token.RBracket,
	'{': token.LBrace,
	'}': token.RBrace,
}

func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	for _, op := range multiOps {
		if lx.hasPrefix(op.text) {
			lx.cursor.BumpN(len(op.text))
			return lx.emit(op.kind, start)
		}
	}

	ch := lx.cursor.Peek()
	if k := singleOps[ch]; k != token.Invalid {
		lx.cursor.Bump()
		return lx.emit(k, start)
	}

	// неизвестный символ: съедаем целую руну
	if _, sz := lx.peekRune(); sz > 0 {
		lx.bumpRune()
	} else {
		lx.cursor.Bump()
	}
	tok := lx.emit(token.Invalid, start)
	lx.errLex(diag.LexUnknownChar, tok.Span, "unknown character")
	return tok
}

func (lx *Lexer) hasPrefix(s string) bool {
	for i := 0; i < len(s); i++ {
		if lx.cursor.PeekAhead(i) != s[i] {
			return false
		}
	}
	return true
}
