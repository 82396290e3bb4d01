// Package suite sweeps a collaborator executable across thread counts for
// every sampled round and renders the results as they arrive.
package suite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pthlab/threadbench/harness"
	"github.com/pthlab/threadbench/workload"
)

// Trialer runs a single trial. *harness.Runner satisfies it.
type Trialer interface {
	Run(ctx context.Context, threads int, size int64) (*harness.Result, error)
}

// Observer is notified of every trial, failed ones included.
type Observer interface {
	ObserveTrial(res harness.Result)
}

// Suite is a named group of rounds driving one collaborator.
type Suite struct {
	Name    string
	Unit    string
	Rounds  []workload.Round
	Trialer Trialer
}

// Options controls the thread sweep.
type Options struct {
	MaxThreads      int
	ContinueOnError bool
}

// Driver runs suites sequentially, one trial at a time.
type Driver struct {
	console   *Console
	opts      Options
	logger    *slog.Logger
	observers []Observer
}

// NewDriver creates a Driver rendering to console.
func NewDriver(console *Console, opts Options, logger *slog.Logger, observers ...Observer) *Driver {
	return &Driver{
		console:   console,
		opts:      opts,
		logger:    logger,
		observers: observers,
	}
}

// RunAll runs the suites in order, printing the preamble first and a
// separator between suites. It stops at the first suite that fails and
// returns the results gathered so far.
func (d *Driver) RunAll(ctx context.Context, suites []Suite) ([]harness.SuiteResult, error) {
	names := make([]string, 0, len(suites))
	for _, s := range suites {
		names = append(names, s.Name)
	}

	d.console.Preamble(names)

	results := make([]harness.SuiteResult, 0, len(suites))

	for i, s := range suites {
		if i > 0 {
			d.console.Separator()
		}

		res, err := d.Run(ctx, s)
		results = append(results, res)

		if err != nil {
			return results, err
		}
	}

	return results, nil
}

// Run sweeps threads 1..MaxThreads for each round of s.
func (d *Driver) Run(ctx context.Context, s Suite) (harness.SuiteResult, error) {
	logger := d.logger.With(slog.String("suite", s.Name))

	result := harness.SuiteResult{
		Name:   s.Name,
		Unit:   s.Unit,
		Rounds: make([]harness.RoundResult, 0, len(s.Rounds)),
	}

	logger.InfoContext(ctx, "starting suite",
		slog.Int("rounds", len(s.Rounds)),
		slog.Int("max_threads", d.opts.MaxThreads),
	)

	d.console.SuiteHeader(s.Name)

	for _, round := range s.Rounds {
		d.console.RoundHeader(round, s.Unit)

		rr := harness.RoundResult{
			Index:  round.Index,
			Total:  round.Total,
			Size:   round.Size,
			Trials: make([]harness.Result, 0, d.opts.MaxThreads),
		}

		for threads := 1; threads <= d.opts.MaxThreads; threads++ {
			res, err := d.trial(ctx, s, round, threads)
			if err != nil {
				d.console.EndRow()
				result.Rounds = append(result.Rounds, rr)

				return result, fmt.Errorf("%s round %d/%d (%d threads, size %d): %w",
					s.Name, round.Index, round.Total, threads, round.Size, err)
			}

			rr.Trials = append(rr.Trials, *res)
		}

		d.console.EndRow()
		result.Rounds = append(result.Rounds, rr)
	}

	logger.InfoContext(ctx, "suite finished", slog.Int("trials", result.Trials()))

	return result, nil
}

// trial runs one trial and renders it. A failed trial is recorded and
// swallowed when ContinueOnError is set; context cancellation never is.
func (d *Driver) trial(ctx context.Context, s Suite, round workload.Round, threads int) (*harness.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := s.Trialer.Run(ctx, threads, round.Size)
	if err != nil {
		if !d.opts.ContinueOnError || ctx.Err() != nil {
			return nil, err
		}

		d.logger.ErrorContext(ctx, "trial failed",
			slog.String("suite", s.Name),
			slog.Int("round", round.Index),
			slog.Int("threads", threads),
			slog.Int64("size", round.Size),
			slog.String("error", err.Error()),
		)

		res = &harness.Result{
			Suite:   s.Name,
			Threads: threads,
			Size:    round.Size,
			Error:   err.Error(),
		}

		d.console.Failed(threads)
	} else {
		d.console.Trial(res)
	}

	for _, o := range d.observers {
		o.ObserveTrial(*res)
	}

	return res, nil
}
