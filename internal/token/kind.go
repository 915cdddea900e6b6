package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	// Ident represents an identifier token (raw identifiers included).
	Ident
	// Lifetime represents a lifetime or loop label such as 'a.
	Lifetime

	IntLit    // 42, 0xff_u8
	FloatLit  // 1.5, 2e10f64
	StringLit // "..", r#".."#, b".."
	CharLit   // 'x', b'x'

	KwAs
	KwAsync
	KwAwait
	KwBreak
	KwConst
	KwContinue
	KwCrate
	KwDyn
	KwElse
	KwEnum
	KwExtern
	KwFalse
	KwFn
	KwFor
	KwIf
	KwImpl
	KwIn
	KwLet
	KwLoop
	KwMatch
	KwMod
	KwMove
	KwMut
	KwPub
	KwRef
	KwReturn
	KwSelfValue // self
	KwSelfType  // Self
	KwStatic
	KwStruct
	KwSuper
	KwTrait
	KwTrue
	KwType
	KwUnsafe
	KwUse
	KwWhere
	KwWhile

	Plus          // +
	Minus         // -
	Star          // *
	Slash         // /
	Percent       // %
	Caret         // ^
	Bang          // !
	Amp           // &
	Pipe          // |
	AndAnd        // &&
	OrOr          // ||
	Shl           // <<
	Shr           // >>
	PlusAssign    // +=
	MinusAssign   // -=
	StarAssign    // *=
	SlashAssign   // /=
	PercentAssign // %=
	CaretAssign   // ^=
	AmpAssign     // &=
	PipeAssign    // |=
	ShlAssign     // <<=
	ShrAssign     // >>=
	Assign        // =
	EqEq          // ==
	BangEq        // !=
	Gt            // >
	Lt            // <
	GtEq          // >=
	LtEq          // <=
	At            // @
	Underscore    // _
	Dot           // .
	DotDot        // ..
	DotDotDot     // ...
	DotDotEq      // ..=
	Comma         // ,
	Semicolon     // ;
	Colon         // :
	ColonColon    // ::
	Arrow         // ->
	FatArrow      // =>
	Pound         // #
	Dollar        // $
	Question      // ?
	Tilde         // ~
	LParen        // (
	RParen        // )
	LBracket      // [
	RBracket      // ]
	LBrace        // {
	RBrace        // }

	kindCount
)

var kindNames = [...]string{
	Invalid:       "invalid",
	EOF:           "EOF",
	Ident:         "identifier",
	Lifetime:      "lifetime",
	IntLit:        "integer literal",
	FloatLit:      "float literal",
	StringLit:     "string literal",
	CharLit:       "char literal",
	KwAs:          "as",
	KwAsync:       "async",
	KwAwait:       "await",
	KwBreak:       "break",
	KwConst:       "const",
	KwContinue:    "continue",
	KwCrate:       "crate",
	KwDyn:         "dyn",
	KwElse:        "else",
	KwEnum:        "enum",
	KwExtern:      "extern",
	KwFalse:       "false",
	KwFn:          "fn",
	KwFor:         "for",
	KwIf:          "if",
	KwImpl:        "impl",
	KwIn:          "in",
	KwLet:         "let",
	KwLoop:        "loop",
	KwMatch:       "match",
	KwMod:         "mod",
	KwMove:        "move",
	KwMut:         "mut",
	KwPub:         "pub",
	KwRef:         "ref",
	KwReturn:      "return",
	KwSelfValue:   "self",
	KwSelfType:    "Self",
	KwStatic:      "static",
	KwStruct:      "struct",
	KwSuper:       "super",
	KwTrait:       "trait",
	KwTrue:        "true",
	KwType:        "type",
	KwUnsafe:      "unsafe",
	KwUse:         "use",
	KwWhere:       "where",
	KwWhile:       "while",
	Plus:          "+",
	Minus:         "-",
	Star:          "*",
	Slash:         "/",
	Percent:       "%",
	Caret:         "^",
	Bang:          "!",
	Amp:           "&",
	Pipe:          "|",
	AndAnd:        "&&",
	OrOr:          "||",
	Shl:           "<<",
	Shr:           ">>",
	PlusAssign:    "+=",
	MinusAssign:   "-=",
	StarAssign:    "*=",
	SlashAssign:   "/=",
	PercentAssign: "%=",
	CaretAssign:   "^=",
	AmpAssign:     "&=",
	PipeAssign:    "|=",
	ShlAssign:     "<<=",
	ShrAssign:     ">>=",
	Assign:        "=",
	EqEq:          "==",
	BangEq:        "!=",
	Gt:            ">",
	Lt:            "<",
	GtEq:          ">=",
	LtEq:          "<=",
	At:            "@",
	Underscore:    "_",
	Dot:           ".",
	DotDot:        "..",
	DotDotDot:     "...",
	DotDotEq:      "..=",
	Comma:         ",",
	Semicolon:     ";",
	Colon:         ":",
	ColonColon:    "::",
	Arrow:         "->",
	FatArrow:      "=>",
	Pound:         "#",
	Dollar:        "$",
	Question:      "?",
	Tilde:         "~",
	LParen:        "(",
	RParen:        ")",
	LBracket:      "[",
	RBracket:      "]",
	LBrace:        "{",
	RBrace:        "}",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "unknown"
}
