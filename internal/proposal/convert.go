package proposal

import (
	"strings"

	"rectify/internal/fix"
	"rectify/internal/templates"
)

// maxConversions bounds the conversions proposed for one mismatch.
const maxConversions = 3

// typeConversion converts the offending expression with the template table.
func typeConversion(in *input) ([]draft, error) {
	c := in.c
	e := targetExpr(c)
	if e == nil {
		return nil, nil
	}
	expected, found, ok := messageTypes(append([]string{c.Diagnostic.Message}, c.Diagnostic.Hints...)...)
	if !ok {
		return nil, nil
	}
	if found == "" || found == "_" {
		found = c.TypeOf(e)
	}
	text := c.Text(e)

	var out []draft
	for _, cv := range in.g.templates.Convert(found, expected) {
		if len(out) == maxConversions {
			break
		}
		t := cv.Template
		var st Strategy = TypeConversion{From: cv.From, To: cv.To, Method: t.Method()}
		if t.Category == templates.CategoryReference {
			st = ReferenceCorrection{Operation: t.Name}
		}
		out = append(out, draft{
			unit:       e.Span(),
			edits:      []fix.Edit{fix.Replace(e.Span(), cv.Render(text), text)},
			confidence: t.Confidence,
			floor:      t.Safety,
			strategy:   st,
			template:   t.Name,
			meta:       map[string]string{"expected": expected, "found": found},
		})
	}
	return out, nil
}

func typeConversionIfMismatch(in *input) ([]draft, error) {
	if !strings.Contains(in.c.Diagnostic.Message, "mismatched types") {
		return nil, nil
	}
	return typeConversion(in)
}
