package proposal

import (
	"fmt"
	"strconv"
)

// StrategyKind names a strategy family in reports and metrics.
type StrategyKind uint8

const (
	KindMethodName StrategyKind = iota + 1
	KindTraitImport
	KindTypeConversion
	KindReference
	KindBorrowing
	KindStructField
	KindFieldAccess
	KindGeneric
)

var kindNames = [...]string{
	KindMethodName:     "method-name",
	KindTraitImport:    "trait-import",
	KindTypeConversion: "type-conversion",
	KindReference:      "reference",
	KindBorrowing:      "borrowing",
	KindStructField:    "struct-field",
	KindFieldAccess:    "field-access",
	KindGeneric:        "generic",
}

func (k StrategyKind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Strategy describes how a proposal was derived. The set of variants is
// closed: MethodNameCorrection, TraitImport, TypeConversion,
// ReferenceCorrection, BorrowingCorrection, StructFieldCorrection,
// FieldAccessCorrection and Generic.
type Strategy interface {
	Kind() StrategyKind
	Describe() string
	strategy()
}

// MethodNameCorrection renames a misspelled method call.
type MethodNameCorrection struct {
	Original   string
	Suggested  string
	Similarity float64
}

// TraitImport brings a trait into scope so its method resolves.
type TraitImport struct {
	TraitName  string // std::io::Write
	MethodName string
}

// TypeConversion converts a value so it matches the expected type.
type TypeConversion struct {
	From   string
	To     string
	Method string // .to_string(), Some(), as
}

// ReferenceCorrection adds or removes a reference or a dereference.
type ReferenceCorrection struct {
	Operation string // borrow, borrow_mut, deref_copy, ...
}

// BorrowingCorrection fixes ownership: clone a moved value, make a binding
// mutable.
type BorrowingCorrection struct {
	Operation string // add_clone, make_mutable
	Binding   string
}

// StructFieldCorrection edits the fields of a struct literal or pattern.
type StructFieldCorrection struct {
	StructName string
	FieldName  string
	Operation  string // add_missing_field, add_todo_field, add_none_field, rename_field, ignore_rest
}

// FieldAccessCorrection renames a misspelled field access.
type FieldAccessCorrection struct {
	OriginalField  string
	SuggestedField string
	TypeName       string
}

// Generic is any other fix: imports, unused bindings, renamed names.
type Generic struct {
	Description string
}

func (MethodNameCorrection) Kind() StrategyKind  { return KindMethodName }
func (TraitImport) Kind() StrategyKind           { return KindTraitImport }
func (TypeConversion) Kind() StrategyKind        { return KindTypeConversion }
func (ReferenceCorrection) Kind() StrategyKind   { return KindReference }
func (BorrowingCorrection) Kind() StrategyKind   { return KindBorrowing }
func (StructFieldCorrection) Kind() StrategyKind { return KindStructField }
func (FieldAccessCorrection) Kind() StrategyKind { return KindFieldAccess }
func (Generic) Kind() StrategyKind               { return KindGeneric }

func (MethodNameCorrection) strategy()  {}
func (TraitImport) strategy()           {}
func (TypeConversion) strategy()        {}
func (ReferenceCorrection) strategy()   {}
func (BorrowingCorrection) strategy()   {}
func (StructFieldCorrection) strategy() {}
func (FieldAccessCorrection) strategy() {}
func (Generic) strategy()               {}

func (s MethodNameCorrection) Describe() string {
	return fmt.Sprintf("rename method `%s` to `%s` (similarity %s)", s.Original, s.Suggested,
		strconv.FormatFloat(s.Similarity, 'f', 2, 64))
}

func (s TraitImport) Describe() string {
	return fmt.Sprintf("import trait `%s` for method `%s`", s.TraitName, s.MethodName)
}

func (s TypeConversion) Describe() string {
	return fmt.Sprintf("convert `%s` to `%s` with `%s`", s.From, s.To, s.Method)
}

func (s ReferenceCorrection) Describe() string {
	return "reference: " + s.Operation
}

func (s BorrowingCorrection) Describe() string {
	if s.Binding == "" {
		return "ownership: " + s.Operation
	}
	return fmt.Sprintf("ownership: %s `%s`", s.Operation, s.Binding)
}

func (s StructFieldCorrection) Describe() string {
	return fmt.Sprintf("%s `%s` of `%s`", s.Operation, s.FieldName, s.StructName)
}

func (s FieldAccessCorrection) Describe() string {
	return fmt.Sprintf("rename field `%s` to `%s` on `%s`", s.OriginalField, s.SuggestedField, s.TypeName)
}

func (s Generic) Describe() string { return s.Description }
