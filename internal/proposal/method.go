package proposal

import (
	"strings"

	"rectify/internal/astctx"
	"rectify/internal/docs"
	"rectify/internal/fix"
	"rectify/internal/similarity"
)

// Evidence bonus for method names backed by documentation.
const (
	evidenceBonus = 0.1
	evidenceCap   = 0.99
	traitFactor   = 0.9
)

// receiverType returns the receiver type of mc from inference or from the
// message: "no method named `x` found for struct `Foo` in the current scope".
func receiverType(c *astctx.Context, mc *astctx.MethodCall) string {
	if mc.ReceiverType != "" {
		return mc.ReceiverType
	}
	return tickedAfter(c.Diagnostic.Message, "found for")
}

type methodInfo struct {
	arity  int // -1 when unknown
	source string
}

// methodCandidates collects the methods known for typeName: documented ones,
// inherent methods declared in the file, and methods of trait impls in the
// file.
func methodCandidates(c *astctx.Context, typeName string, d *docs.CachedDocs) map[string]methodInfo {
	out := make(map[string]methodInfo)
	if d != nil {
		for _, m := range d.Methods {
			out[m.Name] = methodInfo{arity: m.Arity(), source: d.Source}
		}
	}
	head := astctx.Head(typeName)
	if ti, ok := c.Scope.Type(head); ok {
		for _, m := range ti.Methods {
			if _, dup := out[m.Name]; !dup && m.HasSelf {
				out[m.Name] = methodInfo{arity: m.Arity, source: "file"}
			}
		}
	}
	for _, impl := range c.Scope.TraitImpls {
		if astctx.Head(impl.Type) != head {
			continue
		}
		for _, m := range impl.Methods {
			if _, dup := out[m]; !dup {
				out[m] = methodInfo{arity: -1, source: "file"}
			}
		}
	}
	return out
}

func keys(m map[string]methodInfo) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// methodName suggests known methods with a similar name.
func methodName(in *input) ([]draft, error) {
	mc, ok := in.c.Node.(*astctx.MethodCall)
	if !ok {
		return nil, nil
	}
	recv := receiverType(in.c, mc)
	if recv == "" {
		return nil, nil
	}
	d := in.lookup(recv)
	known := methodCandidates(in.c, recv, d)

	var out []draft
	for _, s := range similarity.Suggest(mc.Method, keys(known), in.g.threshold) {
		info := known[s.Name]
		conf := s.Score
		// документированный метод и совпадение арности повышают уверенность
		if info.source != "" {
			conf += evidenceBonus
			if info.arity >= 0 && info.arity == len(mc.Args) {
				conf += evidenceBonus
			}
			conf = min(conf, evidenceCap)
		}
		out = append(out, draft{
			unit:       mc.Span(),
			edits:      []fix.Edit{fix.Replace(mc.MethodSp, s.Name, mc.Method)},
			confidence: conf,
			strategy:   MethodNameCorrection{Original: mc.Method, Suggested: s.Name, Similarity: s.Score},
			docSource:  info.source,
			meta:       map[string]string{"receiver_type": recv},
		})
	}
	return out, nil
}

// traitImport imports a standard trait providing the method, either as
// suggested by the compiler or from the builtin trait table.
func traitImport(in *input) ([]draft, error) {
	mc, ok := in.c.Node.(*astctx.MethodCall)
	if !ok {
		return nil, nil
	}
	c := in.c
	var out []draft
	seen := make(map[string]bool)
	add := func(path, method string, score float64, rename bool) {
		if seen[path+"#"+method] || imported(c, path) {
			return
		}
		seen[path+"#"+method] = true
		edits := []fix.Edit{useInsertion(c, path)}
		if rename {
			edits = append(edits, fix.Replace(mc.MethodSp, method, mc.Method))
		}
		out = append(out, draft{
			edits:      edits,
			confidence: score * traitFactor,
			strategy:   TraitImport{TraitName: path, MethodName: method},
			docSource:  "builtin",
		})
	}

	for _, path := range hintedImports(c.Diagnostic.Hints) {
		add(path, mc.Method, 1, false)
	}
	for _, t := range docs.TraitsProviding(mc.Method) {
		add(t.Path, mc.Method, 1, false)
	}
	for _, s := range similarity.Suggest(mc.Method, docs.TraitMethods(), in.g.threshold) {
		for _, t := range docs.TraitsProviding(s.Name) {
			add(t.Path, s.Name, s.Score, true)
		}
	}
	return out, nil
}

// imported reports whether path, or a glob covering it, is in scope.
func imported(c *astctx.Context, path string) bool {
	if c.Scope.Imported(path) {
		return true
	}
	if i := strings.LastIndex(path, "::"); i >= 0 {
		return c.Scope.Imported(path[:i] + "::*")
	}
	return false
}

// hintedImports extracts `use path;` suggestions from compiler help lines.
func hintedImports(hints []string) []string {
	var out []string
	for _, h := range hints {
		cands := []string{strings.TrimSpace(h)}
		for _, t := range strings.Split(h, "`") {
			cands = append(cands, strings.TrimSpace(t))
		}
		for _, t := range cands {
			rest, ok := strings.CutPrefix(t, "use ")
			if !ok || !strings.HasSuffix(rest, ";") {
				continue
			}
			path := strings.TrimSpace(strings.TrimSuffix(rest, ";"))
			if path != "" && !strings.ContainsAny(path, " {}") {
				out = append(out, path)
			}
		}
	}
	return out
}

// wrappedReceiver unwraps an Option, Result or Box receiver whose inner type
// has the method.
func wrappedReceiver(in *input) ([]draft, error) {
	mc, ok := in.c.Node.(*astctx.MethodCall)
	if !ok {
		return nil, nil
	}
	recv := receiverType(in.c, mc)
	if recv == "" {
		return nil, nil
	}
	var out []draft
	for _, cv := range in.g.templates.Unwrappers(recv) {
		known := methodCandidates(in.c, cv.To, in.lookup(cv.To))
		info, ok := known[mc.Method]
		if !ok {
			continue
		}
		recvSp := mc.Expr.Receiver.Span()
		out = append(out, draft{
			unit:       mc.Span(),
			edits:      []fix.Edit{fix.Replace(recvSp, cv.Render(mc.Receiver), mc.Receiver)},
			confidence: cv.Template.Confidence,
			floor:      cv.Template.Safety,
			strategy:   TypeConversion{From: cv.From, To: cv.To, Method: cv.Template.Method()},
			docSource:  info.source,
			template:   cv.Template.Name,
		})
	}
	return out, nil
}
