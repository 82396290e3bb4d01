package suite

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/pthlab/threadbench/harness"
	"github.com/pthlab/threadbench/workload"
)

// Console renders live progress as one row of trials per round.
type Console struct {
	w io.Writer

	header  *color.Color
	threads *color.Color
	time    *color.Color
	failed  *color.Color
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer, noColor bool) *Console {
	c := &Console{
		w:       w,
		header:  color.New(color.Bold),
		threads: color.New(color.FgCyan),
		time:    color.New(color.FgGreen),
		failed:  color.New(color.FgRed),
	}

	if noColor {
		for _, col := range []*color.Color{c.header, c.threads, c.time, c.failed} {
			col.DisableColor()
		}
	}

	return c
}

// Preamble prints the banner shown before the first suite.
func (c *Console) Preamble(suites []string) {
	fmt.Fprintln(c.w, "Time-measurement tests")
	fmt.Fprintf(c.w, "Suites: %s\n", strings.Join(suites, ", "))
	fmt.Fprintln(c.w, "Run tests...")
	fmt.Fprintln(c.w)
}

// Separator prints the banner between two suites.
func (c *Console) Separator() {
	fmt.Fprint(c.w, "\n-----------\n\n")
}

// SuiteHeader announces a suite.
func (c *Console) SuiteHeader(name string) {
	c.header.Fprintf(c.w, "Run %s suite...", name)
	fmt.Fprintln(c.w)
}

// RoundHeader announces a round and its sampled size.
func (c *Console) RoundHeader(r workload.Round, unit string) {
	fmt.Fprintf(c.w, "(#%d/%d) %d %s:\n", r.Index, r.Total, r.Size, unit)
}

// Trial prints one `[threads] time` entry followed by a tab.
func (c *Console) Trial(res *harness.Result) {
	c.threads.Fprintf(c.w, "[%d]", res.Threads)
	fmt.Fprint(c.w, " ")
	c.time.Fprint(c.w, res.Time)
	fmt.Fprint(c.w, "\t")
}

// Failed prints the entry of a trial that produced no timing.
func (c *Console) Failed(threads int) {
	c.threads.Fprintf(c.w, "[%d]", threads)
	fmt.Fprint(c.w, " ")
	c.failed.Fprint(c.w, "ERR")
	fmt.Fprint(c.w, "\t")
}

// EndRow terminates the current round's row.
func (c *Console) EndRow() {
	fmt.Fprintln(c.w)
}
