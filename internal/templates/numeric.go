package templates

import "rectify/internal/typepat"

type numInfo struct {
	signed bool
	float  bool
	bits   int // 0 для usize/isize: ширина платформенная
}

var numerics = map[string]numInfo{
	"i8": {signed: true, bits: 8}, "i16": {signed: true, bits: 16}, "i32": {signed: true, bits: 32},
	"i64": {signed: true, bits: 64}, "i128": {signed: true, bits: 128}, "isize": {signed: true},
	"u8": {bits: 8}, "u16": {bits: 16}, "u32": {bits: 32}, "u64": {bits: 64}, "u128": {bits: 128}, "usize": {},
	"f32": {signed: true, float: true, bits: 32}, "f64": {signed: true, float: true, bits: 64},
}

// IsNumeric reports whether name is a primitive numeric type.
func IsNumeric(name string) bool {
	_, ok := numerics[name]
	return ok
}

// Lossless reports whether the standard library has a From conversion from
// one primitive numeric type to another.
func Lossless(from, to string) bool {
	f, okF := numerics[from]
	t, okT := numerics[to]
	if !okF || !okT || from == to {
		return false
	}
	switch {
	case f.float:
		return t.float && t.bits > f.bits
	case t.float:
		// f32: i8/i16/u8/u16, f64: до 32 бит включительно
		return f.bits != 0 && f.bits <= t.bits/2
	case f.bits == 0 || t.bits == 0:
		// usize гарантированно >= 16 бит
		if to == "usize" {
			return !f.signed && f.bits != 0 && f.bits <= 16
		}
		if to == "isize" {
			return f.bits != 0 && (f.signed && f.bits <= 16 || !f.signed && f.bits <= 8)
		}
		return false
	case f.signed && !t.signed:
		return false
	case !f.signed && t.signed:
		return t.bits > f.bits
	default:
		return t.bits > f.bits
	}
}

func isNumericType(t *typepat.Type) bool {
	return t != nil && len(t.Args) == 0 && (IsNumeric(t.Head) || t.Head == "{integer}" || t.Head == "{float}")
}

func numericPair(from, to *typepat.Type, _ typepat.Bindings) bool {
	return isNumericType(from) && isNumericType(to) && from.Head != to.Head
}

func losslessPair(from, to *typepat.Type, b typepat.Bindings) bool {
	return numericPair(from, to, b) && Lossless(from.Head, to.Head)
}

func lossyPair(from, to *typepat.Type, b typepat.Bindings) bool {
	return numericPair(from, to, b) && !Lossless(from.Head, to.Head) && from.Head[0] != '{'
}

// copyPointee limits dereference to referents that are Copy primitives.
func copyPointee(_, _ *typepat.Type, b typepat.Bindings) bool {
	t := b["T"]
	return t != nil && len(t.Args) == 0 && (IsNumeric(t.Head) || t.Head == "bool" || t.Head == "char")
}

func notCopyPointee(from, to *typepat.Type, b typepat.Bindings) bool {
	return !copyPointee(from, to, b) && !isVarless(b["T"], "str")
}

func isVarless(t *typepat.Type, head string) bool {
	return t != nil && t.Head == head && len(t.Args) == 0
}

// notWrapped keeps the generic wrapping templates from stacking a wrapper on
// a value that already has it (Option<T> -> Option<Option<T>>).
func notWrapped(from, to *typepat.Type, _ typepat.Bindings) bool {
	return from.Base() != to.Base()
}
