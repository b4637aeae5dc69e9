// Package batch runs many independent frontier computations concurrently,
// such as one per ticker set, with cooperative cancellation.
package batch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/aristath/frontier/internal/modules/frontier"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is used when a non-positive concurrency is configured.
const DefaultConcurrency = 4

// Computer runs a single computation. *frontier.Service satisfies it.
type Computer interface {
	Compute(matrix *frontier.ReturnMatrix, params frontier.Params) (*frontier.Result, error)
}

// Job is one unit of work. ID is generated when empty.
type Job struct {
	ID     string
	Name   string
	Matrix *frontier.ReturnMatrix
	Params frontier.Params
}

// JobResult pairs a job with its outcome. Exactly one of Result and Err is set.
type JobResult struct {
	JobID    string
	Name     string
	Result   *frontier.Result
	Err      error
	Duration time.Duration
}

// Runner executes jobs with bounded concurrency.
type Runner struct {
	computer    Computer
	concurrency int
	log         zerolog.Logger
}

// NewRunner creates a new batch runner.
func NewRunner(computer Computer, concurrency int, log zerolog.Logger) *Runner {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Runner{
		computer:    computer,
		concurrency: concurrency,
		log:         log.With().Str("component", "batch_runner").Logger(),
	}
}

// Run executes every job and returns results in job order. A failing job does
// not stop the others. Once ctx is done, jobs that have not started are
// marked with ctx.Err() and Run returns that error alongside the results.
// Jobs already running finish normally.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))
	var done, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i := range jobs {
		job := jobs[i]
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		results[i] = JobResult{JobID: job.ID, Name: job.Name}

		if err := gctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}

			start := time.Now()
			res, err := r.computer.Compute(job.Matrix, job.Params)
			results[i].Result, results[i].Err = res, err
			results[i].Duration = time.Since(start)

			if err != nil {
				failed.Add(1)
				r.log.Warn().Err(err).Str("job_id", job.ID).Str("name", job.Name).Msg("Batch job failed")
			}
			r.log.Debug().
				Str("job_id", job.ID).
				Int64("done", done.Add(1)).
				Int("total", len(jobs)).
				Msg("Batch job finished")
			return nil
		})
	}

	// Jobs record their own errors; the group never fails.
	_ = g.Wait()

	r.log.Info().
		Int("jobs", len(jobs)).
		Int64("completed", done.Load()).
		Int64("failed", failed.Load()).
		Msg("Batch finished")

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
