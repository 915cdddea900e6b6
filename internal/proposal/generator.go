// Package proposal turns an astctx.Context into ranked, validated
// correction proposals. Strategies are chosen by the diagnostic's code
// family; every candidate is validated and classified before it is returned.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"rectify/internal/astctx"
	"rectify/internal/diag"
	"rectify/internal/docs"
	"rectify/internal/failure"
	"rectify/internal/fix"
	"rectify/internal/observ"
	"rectify/internal/source"
	"rectify/internal/templates"
	"rectify/internal/trace"
	"rectify/internal/validate"
)

const component = "proposal"

// Defaults.
const (
	DefaultMaxProposals  = 5
	DefaultThreshold     = 0.6
	DefaultMinConfidence = 0.5
)

var errNilContext = errors.New("nil context")

// Generator produces proposals. It never writes files; its only shared
// state is the template cache, the validator cache and the metrics registry.
type Generator struct {
	docs          docs.Provider
	templates     *templates.Cache
	validator     *validate.Validator
	metrics       *observ.Registry
	scorer        Scorer
	scorerWeight  float64
	max           int
	threshold     float64
	minConfidence float64
}

// Option configures a Generator.
type Option func(*Generator)

// WithDocs sets the default documentation provider.
func WithDocs(p docs.Provider) Option { return func(g *Generator) { g.docs = p } }

// WithTemplates replaces the process-wide template cache.
func WithTemplates(c *templates.Cache) Option { return func(g *Generator) { g.templates = c } }

// WithValidator replaces the process-wide validator.
func WithValidator(v *validate.Validator) Option { return func(g *Generator) { g.validator = v } }

// WithMetrics replaces the process-wide metrics registry.
func WithMetrics(r *observ.Registry) Option { return func(g *Generator) { g.metrics = r } }

// WithMaxProposals caps the number of returned proposals.
func WithMaxProposals(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.max = n
		}
	}
}

// WithThreshold sets the similarity threshold of name suggestions.
func WithThreshold(t float64) Option {
	return func(g *Generator) {
		if t > 0 && t < 1 {
			g.threshold = t
		}
	}
}

// WithMinConfidence sets the confidence below which proposals are dropped.
func WithMinConfidence(c float64) Option {
	return func(g *Generator) {
		if c >= 0 && c < 1 {
			g.minConfidence = c
		}
	}
}

// WithScorer blends s into every confidence with the given weight in (0, 1].
func WithScorer(s Scorer, weight float64) Option {
	return func(g *Generator) {
		if s == nil || weight <= 0 {
			return
		}
		g.scorer, g.scorerWeight = s, min(weight, 1)
	}
}

// New returns a Generator using the process-wide caches unless overridden.
func New(opts ...Option) *Generator {
	g := &Generator{
		max:           DefaultMaxProposals,
		threshold:     DefaultThreshold,
		minConfidence: DefaultMinConfidence,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.templates == nil {
		g.templates = templates.Default()
	}
	if g.validator == nil {
		g.validator = validate.Default()
	}
	if g.metrics == nil {
		g.metrics = observ.Default()
	}
	return g
}

// draft is a proposal before validation.
type draft struct {
	// unit is the grammatical unit the edits rewrite; an empty unit makes
	// the draft a fragment.
	unit       source.Span
	edits      []fix.Edit
	confidence float64
	floor      fix.Safety
	strategy   Strategy
	docSource  string
	template   string
	delete     bool
	meta       map[string]string
}

// input is what a strategy sees.
type input struct {
	ctx  context.Context
	c    *astctx.Context
	docs docs.Provider
	g    *Generator
	span uint64
	seen map[string]*docs.CachedDocs
}

// lookup fetches documentation; provider failures are traced and treated as
// missing documentation.
func (in *input) lookup(typeName string) *docs.CachedDocs {
	if in.docs == nil || typeName == "" {
		return nil
	}
	key := docs.Key(typeName)
	if d, ok := in.seen[key]; ok {
		return d
	}
	d, err := in.docs.Lookup(in.ctx, key)
	if err != nil {
		trace.Point(trace.FromContext(in.ctx), trace.ScopeDiagnostic, "docs.failed", err.Error(), in.span, "type", key)
		d = nil
	}
	in.seen[key] = d
	return d
}

// Generate returns at most N proposals for c, most confident first. dp
// overrides the generator's documentation provider when non-nil. Strategy
// failures are swallowed; an error is returned only for a nil or cancelled
// context.
func (g *Generator) Generate(ctx context.Context, c *astctx.Context, dp docs.Provider) ([]Proposal, error) {
	if ctx == nil {
		return nil, failure.New(failure.KindGeneration, component, "generate", "", errNilContext)
	}
	if c == nil {
		return nil, failure.New(failure.KindGeneration, component, "generate", "", errors.New("nil AST context"))
	}
	if err := ctx.Err(); err != nil {
		return nil, failure.Wrap(component, "generate", c.FilePath, err)
	}
	started := time.Now()
	family := c.Diagnostic.Family()
	ctx, span := trace.Start(ctx, trace.ScopeDiagnostic, "generate")
	span.WithExtra("family", family.String()).WithExtra("node", astctx.KindName(c.Node))

	if dp == nil {
		dp = g.docs
	}
	in := &input{ctx: ctx, c: c, docs: dp, g: g, span: span.ID(), seen: make(map[string]*docs.CachedDocs)}

	var drafts []draft
	for _, st := range strategiesFor(family) {
		ds, err := g.run(in, st)
		if cerr := ctx.Err(); cerr != nil {
			span.End("cancelled")
			return nil, failure.Wrap(component, "generate", c.FilePath, cerr)
		}
		if err != nil {
			g.metrics.RecordStrategyFailure()
			trace.Note(ctx, trace.ScopeDiagnostic, "strategy.failed", err.Error(),
				"strategy", st.name)
			continue
		}
		drafts = append(drafts, ds...)
	}

	out := g.finish(in, drafts)
	g.metrics.RecordGeneration(len(out), time.Since(started))
	span.End(strconv.Itoa(len(out)) + " proposals")
	return out, nil
}

// run calls one strategy, turning a panic into an error.
func (g *Generator) run(in *input, st namedStrategy) (ds []draft, err error) {
	defer func() {
		if r := recover(); r != nil {
			ds, err = nil, fmt.Errorf("%s: panic: %v", st.name, r)
		}
	}()
	ds, err = st.fn(in)
	if err != nil {
		err = fmt.Errorf("%s: %w", st.name, err)
	}
	return ds, err
}

// finish scores, validates, classifies, deduplicates and ranks drafts.
func (g *Generator) finish(in *input, drafts []draft) []Proposal {
	tr := trace.FromContext(in.ctx)
	byID := make(map[string]int)
	var out []Proposal
	for _, d := range drafts {
		if len(d.edits) == 0 {
			continue
		}
		p, err := g.build(in, d)
		if err != nil {
			trace.Point(tr, trace.ScopeProposal, "proposal.rejected", err.Error(), in.span,
				"strategy", d.strategy.Kind().String())
			continue
		}
		if p.Confidence < g.minConfidence {
			trace.Point(tr, trace.ScopeProposal, "proposal.dropped", "low confidence", in.span,
				"confidence", strconv.FormatFloat(p.Confidence, 'f', 2, 64))
			continue
		}
		if i, dup := byID[p.ID]; dup {
			if p.Confidence > out[i].Confidence {
				out[i] = p
			}
			continue
		}
		byID[p.ID] = len(out)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if len(out) > g.max {
		out = out[:g.max]
	}
	return out
}

// build turns one draft into a validated Proposal.
func (g *Generator) build(in *input, d draft) (Proposal, error) {
	c := in.c
	fragment := d.unit.Empty()
	for _, e := range d.edits {
		if !fragment && !d.unit.Contains(e.Span) {
			fragment = true
		}
	}

	edited, err := fix.Apply(c.Source.Content, d.edits)
	if err != nil {
		return Proposal{}, err
	}

	p := Proposal{
		Path:      c.FilePath,
		Edits:     d.edits,
		Strategy:  d.strategy,
		DocSource: d.docSource,
		Template:  d.template,
		Delete:    d.delete,
		Fragment:  fragment,
		Metadata:  make(map[string]string, len(d.meta)+1),
	}
	for k, v := range d.meta {
		p.Metadata[k] = v
	}
	if fragment {
		var olds, news []string
		for _, e := range d.edits {
			olds = append(olds, c.Source.Text(e.Span))
			news = append(news, e.NewText)
		}
		p.Original, p.Corrected = strings.Join(olds, " … "), strings.Join(news, " … ")
	} else {
		p.Original = c.Source.Text(d.unit)
		if p.Corrected, err = render(c.Source, d.unit, d.edits); err != nil {
			return Proposal{}, err
		}
	}

	vin := validate.Input{Code: p.Corrected, Delete: d.delete, Path: c.FilePath, Context: c}
	if fragment || d.delete {
		vin.File = edited
		vin.Code = strings.TrimSpace(joinNew(d.edits))
	}
	_, vspan := trace.Start(in.ctx, trace.ScopeProposal, "validate")
	res, err := g.validator.Validate(vin)
	g.metrics.RecordValidation(err == nil)
	if err != nil {
		vspan.End("rejected")
		return Proposal{}, err
	}
	vspan.End(res.Unit.String())
	if len(res.Warnings) > 0 {
		p.Metadata["warnings"] = strings.Join(res.Warnings, "; ")
	}

	conf := d.confidence
	if g.scorer != nil {
		conf = g.blend(in, p, conf)
	}
	p.Confidence = min(1, max(0, conf))
	p.Safety = Classify(p.Confidence, d.floor)
	p.ID = proposalID(c.FilePath, d.edits)
	return p, nil
}

// render applies edits to the text of unit.
func render(f *source.File, unit source.Span, edits []fix.Edit) (string, error) {
	shifted := make([]fix.Edit, len(edits))
	for i, e := range edits {
		e.Span = e.Span.ShiftLeft(unit.Start)
		shifted[i] = e
	}
	out, err := fix.Apply([]byte(f.Text(unit)), shifted)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func joinNew(edits []fix.Edit) string {
	var sb strings.Builder
	for _, e := range edits {
		sb.WriteString(e.NewText)
	}
	return sb.String()
}

// strategyFunc returns drafts, or nothing when it does not apply.
type strategyFunc func(in *input) ([]draft, error)

type namedStrategy struct {
	name string
	fn   strategyFunc
}

// dispatch is the fixed routing table from code family to strategies.
var dispatch = map[diag.Family][]namedStrategy{
	diag.FamilyMethodMissing: {
		{"method_name", methodName},
		{"trait_import", traitImport},
		{"wrapped_receiver", wrappedReceiver},
	},
	diag.FamilyTypeMismatch: {
		{"type_conversion", typeConversion},
	},
	diag.FamilyUnresolved: {
		{"similar_name", similarName},
		{"std_import", stdImport},
	},
	diag.FamilyStructField: {
		{"missing_field", missingField},
		{"unknown_field", unknownField},
		{"field_access", fieldAccess},
		{"pattern_rest", patternRest},
	},
	diag.FamilyMove:           {{"add_clone", addClone}},
	diag.FamilyMutability:     {{"make_mutable", makeMutable}},
	diag.FamilyUnusedImport:   {{"remove_import", removeImport}},
	diag.FamilyUnusedVariable: {{"unused_variable", unusedVariable}},
	diag.FamilyUnusedMut:      {{"remove_mut", removeMut}},
}

// fallback serves diagnostics outside the known families; each strategy
// checks the message and does nothing when it does not apply.
var fallback = []namedStrategy{
	{"add_clone", addCloneIfMoved},
	{"make_mutable", makeMutableIfImmutable},
	{"remove_import", removeImportIfUnused},
	{"type_conversion", typeConversionIfMismatch},
}

func strategiesFor(f diag.Family) []namedStrategy {
	if s, ok := dispatch[f]; ok {
		return s
	}
	return fallback
}
