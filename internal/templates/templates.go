// Package templates holds the process-wide cache of correction templates:
// closed, deterministic type conversions ("&str" -> "String" via
// ".to_string()", "T" -> "Option<T>" via "Some(...)", ...) with usage counters.
//
// The set of templates is fixed at first use and never grows; the only
// mutable state is the per-template usage count.
package templates

import (
	"math"
	"strings"

	"rectify/internal/fix"
	"rectify/internal/typepat"
)

// Category groups templates for listing and reporting.
type Category string

const (
	CategoryString    Category = "string"
	CategoryOption    Category = "option"
	CategoryReference Category = "reference"
	CategoryNumeric   Category = "numeric"
	CategoryBox       Category = "box"
)

// Guard restricts a template beyond its patterns. from and to are the
// concrete types; b holds the variables bound by the patterns.
type Guard func(from, to *typepat.Type, b typepat.Bindings) bool

// Template converts an expression of type From into one of type To.
//
// Replacement is applied to the expression text: "{}" is replaced by the
// expression and "{to}" by the concrete target type. A replacement without
// "{}" is a suffix appended to the expression.
type Template struct {
	Name        string
	Category    Category
	From        string
	To          string
	Replacement string
	Confidence  float64
	Safety      fix.Safety
	Description string
	Guard       Guard

	from *typepat.Type
	to   *typepat.Type
}

// Method returns the method-like part of the replacement, the text the
// proposal reports as the conversion: ".to_string()", "Some()", "&".
func (t Template) Method() string {
	r := strings.ReplaceAll(t.Replacement, "{}", "")
	return strings.TrimSpace(r)
}

// Apply renders the template for expr. Operands that are not atoms are
// parenthesised before a postfix or prefix operator is attached to them.
func (t Template) Apply(expr, to string) string {
	r := t.Replacement
	if !strings.Contains(r, "{}") {
		r = "{}" + r
	}
	operand := expr
	if needsParens(r, expr) {
		operand = "(" + expr + ")"
	}
	r = strings.ReplaceAll(r, "{to}", to)
	return strings.ReplaceAll(r, "{}", operand)
}

// needsParens reports whether expr must be wrapped to keep operator precedence
// when substituted into r. Call-like positions ("Some({})") never need it.
func needsParens(r, expr string) bool {
	i := strings.Index(r, "{}")
	prev, next := "", ""
	if i > 0 {
		prev = r[i-1 : i]
	}
	if i+2 < len(r) {
		next = r[i+2 : i+3]
	}
	if prev == "(" && (next == ")" || next == ",") {
		return false
	}
	if next != "." && next != "?" && next != " " && prev != "&" && prev != "*" && prev != " " {
		return false
	}
	return !isAtom(expr)
}

// isAtom reports whether expr binds tighter than any operator it could be
// combined with: a path, literal, call or method chain without top-level
// operators.
func isAtom(expr string) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true
	}
	if expr[0] == '&' || expr[0] == '*' || expr[0] == '-' || expr[0] == '!' {
		return false
	}
	depth := 0
	inStr := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if inStr {
			switch c {
			case '\\':
				i++
			case '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ' ', '+', '-', '*', '/', '%', '=', '<', '>', '|', '^':
			if depth == 0 {
				return false
			}
		}
	}
	return true
}

// Effectiveness is confidence·ln(max(1, usage)); a template that never
// contributed to a committed fix scores 0.
func Effectiveness(confidence float64, usage uint64) float64 {
	return confidence * math.Log(math.Max(1, float64(usage)))
}
