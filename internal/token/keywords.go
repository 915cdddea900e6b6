package token

var keywords = map[string]Kind{
	"as":       KwAs,
	"async":    KwAsync,
	"await":    KwAwait,
	"break":    KwBreak,
	"const":    KwConst,
	"continue": KwContinue,
	"crate":    KwCrate,
	"dyn":      KwDyn,
	"else":     KwElse,
	"enum":     KwEnum,
	"extern":   KwExtern,
	"false":    KwFalse,
	"fn":       KwFn,
	"for":      KwFor,
	"if":       KwIf,
	"impl":     KwImpl,
	"in":       KwIn,
	"let":      KwLet,
	"loop":     KwLoop,
	"match":    KwMatch,
	"mod":      KwMod,
	"move":     KwMove,
	"mut":      KwMut,
	"pub":      KwPub,
	"ref":      KwRef,
	"return":   KwReturn,
	"self":     KwSelfValue,
	"Self":     KwSelfType,
	"static":   KwStatic,
	"struct":   KwStruct,
	"super":    KwSuper,
	"trait":    KwTrait,
	"true":     KwTrue,
	"type":     KwType,
	"unsafe":   KwUnsafe,
	"use":      KwUse,
	"where":    KwWhere,
	"while":    KwWhile,
	"_":        Underscore,
}

// LookupKeyword возвращает тип и bool если это ключевое слово.
// Contextual keywords (union, macro_rules, default) stay identifiers.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}
