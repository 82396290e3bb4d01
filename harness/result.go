// Package harness runs collaborator benchmark executables one trial at a
// time and extracts the timing they report on stdout.
package harness

import "time"

// Result holds the outcome of a single trial.
type Result struct {
	Suite    string        `json:"suite" yaml:"suite"`
	Threads  int           `json:"threads" yaml:"threads"`
	Size     int64         `json:"size" yaml:"size"`
	Time     string        `json:"time" yaml:"time"`
	Elapsed  time.Duration `json:"elapsed_ns" yaml:"elapsed_ns"`
	Wall     time.Duration `json:"wall_ns" yaml:"wall_ns"`
	ExitCode int           `json:"exit_code" yaml:"exit_code"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the trial produced no usable timing.
func (r Result) Failed() bool {
	return r.Error != ""
}

// RoundResult holds the thread sweep of one round.
type RoundResult struct {
	Index  int      `json:"round" yaml:"round"`
	Total  int      `json:"rounds" yaml:"rounds"`
	Size   int64    `json:"size" yaml:"size"`
	Trials []Result `json:"trials" yaml:"trials"`
}

// SuiteResult holds every round of one suite.
type SuiteResult struct {
	Name   string        `json:"name" yaml:"name"`
	Unit   string        `json:"unit" yaml:"unit"`
	Rounds []RoundResult `json:"rounds" yaml:"rounds"`
}

// Trials returns the number of trials recorded across all rounds.
func (s SuiteResult) Trials() int {
	var n int
	for _, r := range s.Rounds {
		n += len(r.Trials)
	}

	return n
}
