package apply

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"rectify/internal/proposal"
)

// ApplyBatch applies ps with at most jobs in flight; jobs <= 0 means
// GOMAXPROCS. Results come back in the order of ps. A failing proposal does
// not stop the others; only cancellation does, and proposals not started by
// then are reported as Failed with the context error.
func (a *Applier) ApplyBatch(ctx context.Context, ps []proposal.Proposal, jobs int) []Result {
	results := make([]Result, len(ps))
	if len(ps) == 0 {
		return results
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// индексы уникальны для каждой горутины, мьютекс не нужен
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(ps)))
	for i := range ps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Path: ps[i].Path, ProposalID: ps[i].ID, Outcome: Failed, Err: err}
				return nil
			}
			results[i], _ = a.Apply(gctx, ps[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}
