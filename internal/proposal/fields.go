package proposal

import (
	"strings"

	"rectify/internal/ast"
	"rectify/internal/astctx"
	"rectify/internal/diag"
	"rectify/internal/fix"
	"rectify/internal/similarity"
	"rectify/internal/source"
)

// Confidences of the missing-field fills.
const (
	defaultFieldConfidence = 0.8
	noneFieldConfidence    = 0.82
	todoFieldConfidence    = 0.7
	restPatternConfidence  = 0.7
)

// missingFieldNames returns the fields named by "missing field `a` in
// initializer of `T`" or "missing fields `a`, `b` and `c` in initializer".
func missingFieldNames(msg string) []string {
	if i := strings.Index(msg, " in initializer"); i >= 0 {
		return diag.Backticked(msg[:i])
	}
	names := diag.Backticked(msg)
	if len(names) > 1 {
		names = names[:len(names)-1]
	}
	return names
}

// structLiteral returns the struct expression at the diagnostic.
func structLiteral(c *astctx.Context) (*ast.StructExpr, bool) {
	if sl, ok := c.Node.(*astctx.StructLit); ok {
		return sl.Expr, true
	}
	if se, ok := enclosing[*ast.StructExpr](c); ok {
		return se, true
	}
	return find[*ast.StructExpr](c.Tree, c.Target)
}

// fieldType returns the declared type of field in the struct called name.
func fieldType(c *astctx.Context, name, field string) string {
	ti, ok := c.Scope.Type(astctx.Head(name))
	if !ok {
		return ""
	}
	for _, f := range ti.Fields {
		if f.Name == field {
			return f.Type
		}
	}
	return ""
}

// missingField completes a struct literal with the fields the compiler
// reported: Default::default(), None for Option fields, or a todo!()
// placeholder.
func missingField(in *input) ([]draft, error) {
	c := in.c
	if !strings.Contains(c.Diagnostic.Message, "missing field") {
		return nil, nil
	}
	se, ok := structLiteral(c)
	if !ok || se.Base != nil {
		return nil, nil
	}
	names := missingFieldNames(c.Diagnostic.Message)
	if len(names) == 0 {
		return nil, nil
	}
	structName := se.Path.String()
	allOptional := true
	for _, n := range names {
		if astctx.Head(fieldType(c, structName, n)) != "Option" {
			allOptional = false
		}
	}

	fill := func(value func(field string) string, conf float64, op string) draft {
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = n + ": " + value(n)
		}
		return draft{
			unit:       se.Sp,
			edits:      []fix.Edit{fieldInsertion(c.Source, se, strings.Join(parts, ", "))},
			confidence: conf,
			floor:      fix.RequiresReview,
			strategy:   StructFieldCorrection{StructName: structName, FieldName: strings.Join(names, ", "), Operation: op},
		}
	}
	out := []draft{
		fill(func(string) string { return "Default::default()" }, defaultFieldConfidence, "add_missing_field"),
		fill(func(f string) string { return `todo!("implement ` + f + `")` }, todoFieldConfidence, "add_todo_field"),
	}
	if allOptional {
		out = append(out, fill(func(string) string { return "None" }, noneFieldConfidence, "add_none_field"))
	}
	return out, nil
}

// fieldInsertion adds text as the last field initializers of se.
func fieldInsertion(f *source.File, se *ast.StructExpr, text string) fix.Edit {
	if n := len(se.Fields); n > 0 {
		last := se.Fields[n-1].Sp
		rest := f.Text(source.Span{File: last.File, Start: last.End, End: se.BraceSp.End - 1})
		if i := strings.IndexByte(rest, ','); i >= 0 {
			at := last.End + uint32(i) + 1 // #nosec G115 -- offset inside the literal
			return fix.Insert(source.Span{File: last.File, Start: at, End: at}, " "+text+",")
		}
		return fix.InsertAfter(last, ", "+text)
	}
	open := source.Span{File: se.BraceSp.File, Start: se.BraceSp.Start, End: se.BraceSp.Start + 1}
	if f.Text(se.BraceSp) == "{}" {
		return fix.InsertAfter(open, " "+text+" ")
	}
	return fix.InsertAfter(open, " "+text)
}

// usedFields returns the field names already initialised in se.
func usedFields(se *ast.StructExpr) map[string]bool {
	out := make(map[string]bool, len(se.Fields))
	for _, fi := range se.Fields {
		out[fi.Name.Name] = true
	}
	return out
}

// unknownField renames a field that the struct does not have, in a literal
// ("struct `User` has no field named `nmae`") or a pattern ("struct `User`
// does not have a field named `nmae`").
func unknownField(in *input) ([]draft, error) {
	c := in.c
	msg := c.Diagnostic.Message
	if !strings.Contains(msg, "field named") {
		return nil, nil
	}
	name := tickedAfter(msg, "field named")
	structName := tickedAfter(msg, "struct")
	if structName == "" {
		structName = tickedAfter(msg, "variant")
	}
	ti, ok := c.Scope.Type(astctx.Head(structName))
	if name == "" || !ok {
		return nil, nil
	}

	var used map[string]bool
	var sp, unit source.Span
	var replace func(field string) string
	if fi, ok := find[*ast.FieldInit](c.Tree, c.Target); ok && fi.Name.Name == name {
		se, _ := find[*ast.StructExpr](c.Tree, c.Target)
		if se != nil {
			used, unit = usedFields(se), se.Sp
		}
		sp = fi.Name.Sp
		replace = func(field string) string { return field }
		if fi.Shorthand {
			sp = fi.Sp
			replace = func(field string) string { return field + ": " + name }
		}
	} else if fp, ok := find[*ast.FieldPat](c.Tree, c.Target); ok && fp.Name.Name == name {
		sp = fp.Name.Sp
		replace = func(field string) string { return field }
		if fp.Shorthand {
			sp = fp.Sp
			replace = func(field string) string { return field + ": " + c.Source.Text(fp.Sp) }
		}
	} else {
		return nil, nil
	}

	var cands []string
	for _, f := range ti.Fields {
		if !used[f.Name] {
			cands = append(cands, f.Name)
		}
	}
	var out []draft
	for _, s := range similarity.Suggest(name, cands, in.g.threshold) {
		out = append(out, draft{
			unit:       unit,
			edits:      []fix.Edit{fix.Replace(sp, replace(s.Name), c.Source.Text(sp))},
			confidence: s.Score,
			strategy:   StructFieldCorrection{StructName: ti.Name, FieldName: s.Name, Operation: "rename_field"},
		})
	}
	return out, nil
}

// fieldAccess renames a misspelled field in base.field.
func fieldAccess(in *input) ([]draft, error) {
	c := in.c
	fa, ok := c.Node.(*astctx.FieldAccess)
	if !ok {
		fe, found := find[*ast.FieldExpr](c.Tree, c.Target)
		if !found {
			return nil, nil
		}
		fa = &astctx.FieldAccess{Expr: fe, Base: c.Text(fe.X), Field: fe.Field.Name, FieldSp: fe.Field.Sp, BaseType: c.TypeOf(fe.X)}
	}
	typeName := fa.BaseType
	if typeName == "" {
		typeName = tickedAfter(c.Diagnostic.Message, "on type")
	}
	ti, ok := c.Scope.Type(astctx.Head(typeName))
	if !ok {
		return nil, nil
	}
	cands := make([]string, 0, len(ti.Fields))
	for _, f := range ti.Fields {
		cands = append(cands, f.Name)
	}
	var out []draft
	for _, s := range similarity.Suggest(fa.Field, cands, in.g.threshold) {
		out = append(out, draft{
			unit:       fa.Span(),
			edits:      []fix.Edit{fix.Replace(fa.FieldSp, s.Name, fa.Field)},
			confidence: s.Score,
			strategy:   FieldAccessCorrection{OriginalField: fa.Field, SuggestedField: s.Name, TypeName: ti.Name},
		})
	}
	return out, nil
}

// patternRest adds `..` to a struct pattern that does not mention every
// field.
func patternRest(in *input) ([]draft, error) {
	c := in.c
	if !strings.Contains(c.Diagnostic.Message, "does not mention") {
		return nil, nil
	}
	sp, ok := find[*ast.StructPat](c.Tree, c.Target)
	if !ok || sp.Rest {
		return nil, nil
	}
	f := c.Source
	closing := source.Span{File: sp.Sp.File, Start: sp.Sp.End - 1, End: sp.Sp.End}
	if f.Text(closing) != "}" {
		return nil, nil
	}
	var edit fix.Edit
	if n := len(sp.Fields); n > 0 {
		last := sp.Fields[n-1].Sp
		rest := f.Text(source.Span{File: last.File, Start: last.End, End: closing.Start})
		if i := strings.IndexByte(rest, ','); i >= 0 {
			at := last.End + uint32(i) + 1 // #nosec G115 -- offset inside the pattern
			edit = fix.Insert(source.Span{File: last.File, Start: at, End: at}, " ..")
		} else {
			edit = fix.InsertAfter(last, ", ..")
		}
	} else {
		edit = fix.Insert(closing, " .. ")
	}
	return []draft{{
		edits:      []fix.Edit{edit},
		confidence: restPatternConfidence,
		floor:      fix.RequiresReview,
		strategy:   StructFieldCorrection{StructName: sp.Path.String(), FieldName: "..", Operation: "ignore_rest"},
	}}, nil
}
