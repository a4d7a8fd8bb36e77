package payengine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// AnalyzeAll analyzes requests concurrently. The analyses are returned in the
// order of the requests. The first request that can't be analyzed cancels
// the remaining ones.
func (a *Analyzer) AnalyzeAll(ctx context.Context,
	reqs []PaymentRequest) ([]*PaymentAnalysis, error) {

	analyses := make([]*PaymentAnalysis, len(reqs))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(a.maxParallel)

	for i := range reqs {
		i := i

		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			analysis, err := a.Analyze(reqs[i])
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			analyses[i] = analysis

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return analyses, nil
}
