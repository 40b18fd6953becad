package ensemble

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

type job struct {
	family Family
	config Config
}

type outcome struct {
	candidate *Candidate
	err       error
	elapsed   time.Duration
}

// runJobs fits every job on a bounded pool and returns outcomes indexed like
// jobs. Fit failures are recorded in the outcome; only cancellation of ctx
// is returned as an error, and it stops jobs that have not started.
func runJobs(ctx context.Context, jobs []job, y []float64, horizon, workers int, timeout time.Duration) ([]outcome, error) {
	outcomes := make([]outcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = fitWithTimeout(gctx, j.config, y, horizon, timeout)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Fits already running at cancellation finish as failed outcomes.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// fitWithTimeout bounds one fit by its own deadline. A panicking fit counts
// as a failed fit.
func fitWithTimeout(ctx context.Context, cfg Config, y []float64, horizon int, timeout time.Duration) outcome {
	start := time.Now()
	fitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultChan := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultChan <- outcome{err: fmt.Errorf("fit %s panicked: %v", cfg.Order(), r)}
			}
		}()
		c, err := cfg.Fit(fitCtx, y, horizon)
		resultChan <- outcome{candidate: c, err: err}
	}()

	var res outcome
	select {
	case res = <-resultChan:
	case <-fitCtx.Done():
		res = outcome{err: fmt.Errorf("fit %s: %w", cfg.Order(), fitCtx.Err())}
	}
	res.elapsed = time.Since(start)
	return res
}
