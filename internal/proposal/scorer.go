package proposal

import (
	"context"
	"strconv"

	"rectify/internal/astctx"
	"rectify/internal/trace"
)

// Scorer is an optional plug-in contributing one confidence signal in
// [0, 1] per proposal. Generation behaves the same without it.
type Scorer interface {
	Score(ctx context.Context, c *astctx.Context, p Proposal) (float64, error)
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(ctx context.Context, c *astctx.Context, p Proposal) (float64, error)

func (f ScorerFunc) Score(ctx context.Context, c *astctx.Context, p Proposal) (float64, error) {
	return f(ctx, c, p)
}

// blend mixes the scorer's signal into conf. A failing scorer leaves conf
// unchanged.
func (g *Generator) blend(in *input, p Proposal, conf float64) float64 {
	p.Confidence = conf
	s, err := g.scorer.Score(in.ctx, in.c, p)
	if err != nil {
		trace.Point(trace.FromContext(in.ctx), trace.ScopeProposal, "scorer.failed", err.Error(), in.span)
		return conf
	}
	s = min(1, max(0, s))
	out := (1-g.scorerWeight)*conf + g.scorerWeight*s
	trace.Point(trace.FromContext(in.ctx), trace.ScopeProposal, "scorer.blend", "", in.span,
		"base", strconv.FormatFloat(conf, 'f', 3, 64), "signal", strconv.FormatFloat(s, 'f', 3, 64))
	return out
}
