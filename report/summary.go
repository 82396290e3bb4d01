package report

import (
	"math"

	"github.com/pthlab/threadbench/harness"
	"gonum.org/v1/gonum/stat"
)

// Meta identifies the run a summary belongs to.
type Meta struct {
	RunID string `json:"run_id" yaml:"run_id"`
	Seed  int64  `json:"seed" yaml:"seed"`
	Host  Host   `json:"host" yaml:"host"`
}

// Summary is the serializable outcome of a whole run.
type Summary struct {
	Meta   `yaml:",inline"`
	Suites []SuiteSummary `json:"suites" yaml:"suites"`
}

// SuiteSummary adds thread scaling statistics to a suite's raw results.
type SuiteSummary struct {
	Name    string                `json:"name" yaml:"name"`
	Unit    string                `json:"unit" yaml:"unit"`
	Rounds  []harness.RoundResult `json:"rounds" yaml:"rounds"`
	Scaling []ThreadStats         `json:"scaling" yaml:"scaling"`
}

// ThreadStats aggregates speedup over the rounds that measured a
// thread count. Efficiency is speedup divided by the thread count.
type ThreadStats struct {
	Threads          int     `json:"threads" yaml:"threads"`
	Samples          int     `json:"samples" yaml:"samples"`
	MeanSpeedup      float64 `json:"mean_speedup" yaml:"mean_speedup"`
	MeanEfficiency   float64 `json:"mean_efficiency" yaml:"mean_efficiency"`
	StdDevEfficiency float64 `json:"stddev_efficiency" yaml:"stddev_efficiency"`
}

// Build computes a Summary from suite results.
func Build(meta Meta, results []harness.SuiteResult) *Summary {
	s := &Summary{
		Meta:   meta,
		Suites: make([]SuiteSummary, 0, len(results)),
	}

	for _, r := range results {
		s.Suites = append(s.Suites, SuiteSummary{
			Name:    r.Name,
			Unit:    r.Unit,
			Rounds:  r.Rounds,
			Scaling: scaling(r.Rounds),
		})
	}

	return s
}

// speedups returns, per trial of the round, the single-thread time
// divided by the trial's time. Entries are NaN where either side is
// missing or failed.
func speedups(round harness.RoundResult) []float64 {
	out := make([]float64, len(round.Trials))

	base := baseline(round)

	for i, tr := range round.Trials {
		if base <= 0 || tr.Failed() || tr.Elapsed <= 0 {
			out[i] = math.NaN()

			continue
		}

		out[i] = base / float64(tr.Elapsed)
	}

	return out
}

func baseline(round harness.RoundResult) float64 {
	for _, tr := range round.Trials {
		if tr.Threads == 1 && !tr.Failed() {
			return float64(tr.Elapsed)
		}
	}

	return 0
}

func scaling(rounds []harness.RoundResult) []ThreadStats {
	speedupsByThreads := map[int][]float64{}
	maxThreads := 0

	for _, round := range rounds {
		for i, sp := range speedups(round) {
			threads := round.Trials[i].Threads
			maxThreads = max(maxThreads, threads)

			if !math.IsNaN(sp) {
				speedupsByThreads[threads] = append(speedupsByThreads[threads], sp)
			}
		}
	}

	stats := make([]ThreadStats, 0, maxThreads)

	for threads := 1; threads <= maxThreads; threads++ {
		sp := speedupsByThreads[threads]
		if len(sp) == 0 {
			continue
		}

		eff := make([]float64, len(sp))
		for i, v := range sp {
			eff[i] = v / float64(threads)
		}

		ts := ThreadStats{
			Threads:        threads,
			Samples:        len(sp),
			MeanSpeedup:    stat.Mean(sp, nil),
			MeanEfficiency: stat.Mean(eff, nil),
		}

		if len(eff) > 1 {
			ts.StdDevEfficiency = stat.StdDev(eff, nil)
		}

		stats = append(stats, ts)
	}

	return stats
}
