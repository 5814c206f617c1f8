package packer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/scenepack/scenepack/internal/report"
)

// BatchResult pairs one Options with what packing it produced (or the
// error it failed with), in submission order.
type BatchResult struct {
	Options Options
	Result  *Result
	Err     error
}

// PackAll runs jobs through a bounded pool of workers, each pulling the
// next job off a shared channel the way batch.scheduler.run's worker
// loop does (§5 "Packing multiple independent root files may run
// concurrent tasks, each with its own container set" — independent
// jobs share no state beyond the Sink, which is safe for concurrent use).
// One job's error does not cancel the others; every job's outcome is
// returned.
func PackAll(ctx context.Context, jobs []Options, workers int, sink *report.Sink) ([]BatchResult, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]BatchResult, len(jobs))
	work := make(chan int, len(jobs))
	for i := range jobs {
		work <- i
	}
	close(work)

	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			for i := range work {
				opts := jobs[i]
				result, err := Pack(ctx, opts, sink)
				results[i] = BatchResult{Options: opts, Result: result, Err: err}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
