// Package report formats benchmark results into thread-scaling tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pthlab/threadbench/harness"
	"gopkg.in/yaml.v3"
)

// Generate writes a markdown summary: per suite, the measured time and
// the speedup over one thread for every round, then scaling statistics
// per thread count.
func Generate(w io.Writer, s *Summary) error {
	if s == nil || len(s.Suites) == 0 {
		return fmt.Errorf("no results to report")
	}

	// Header.
	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run `%s`, seed %d\n", s.RunID, s.Seed)

	if s.Host.CPUModel != "" || s.Host.LogicalCPUs > 0 {
		fmt.Fprintf(w, "Host: %s (%d logical / %d physical CPUs), %s/%s\n",
			orDash(s.Host.CPUModel), s.Host.LogicalCPUs, s.Host.PhysicalCPUs,
			s.Host.OS, s.Host.Arch)
	}

	for _, suite := range s.Suites {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "### %s\n", suite.Name)
		fmt.Fprintln(w)

		threads := maxThreads(suite.Rounds)
		if threads == 0 {
			fmt.Fprintln(w, "No trials recorded.")

			continue
		}

		// Times.
		writeHeader(w, "Round", capitalize(suite.Unit), threads)

		for _, round := range suite.Rounds {
			cells := make([]string, threads)
			for i := range cells {
				cells[i] = "-"
			}

			for _, tr := range round.Trials {
				if tr.Failed() {
					cells[tr.Threads-1] = "ERR"
				} else {
					cells[tr.Threads-1] = formatDuration(tr.Elapsed)
				}
			}

			writeRow(w, round, cells)
		}

		fmt.Fprintln(w)

		// Speedup.
		writeHeader(w, "Round", "Speedup", threads)

		for _, round := range suite.Rounds {
			cells := make([]string, threads)
			for i := range cells {
				cells[i] = "-"
			}

			for i, sp := range speedups(round) {
				cells[round.Trials[i].Threads-1] = formatSpeedup(sp)
			}

			writeRow(w, round, cells)
		}

		fmt.Fprintln(w)

		// Scaling.
		fmt.Fprintln(w, "| Threads | Mean Speedup | Efficiency | Rounds |")
		fmt.Fprintln(w, "|---------|--------------|------------|--------|")

		for _, ts := range suite.Scaling {
			fmt.Fprintf(w, "| %d | %s | %.1f%% ± %.1f%% | %d |\n",
				ts.Threads,
				formatSpeedup(ts.MeanSpeedup),
				ts.MeanEfficiency*100,
				ts.StdDevEfficiency*100,
				ts.Samples,
			)
		}
	}

	return nil
}

// GenerateJSON writes the summary as JSON to w.
func GenerateJSON(w io.Writer, s *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(s)
}

// GenerateYAML writes the summary as YAML to w.
func GenerateYAML(w io.Writer, s *Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return enc.Close()
}

// Write renders s in the named format.
func Write(w io.Writer, format string, s *Summary) error {
	switch format {
	case "markdown":
		return Generate(w, s)
	case "json":
		return GenerateJSON(w, s)
	case "yaml":
		return GenerateYAML(w, s)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func writeHeader(w io.Writer, first, second string, threads int) {
	var head, sep strings.Builder

	head.WriteString("| " + first + " | " + second + " |")
	sep.WriteString("|-------|--------|")

	for t := 1; t <= threads; t++ {
		fmt.Fprintf(&head, " %d |", t)
		sep.WriteString("-----|")
	}

	fmt.Fprintln(w, head.String())
	fmt.Fprintln(w, sep.String())
}

func writeRow(w io.Writer, round harness.RoundResult, cells []string) {
	fmt.Fprintf(w, "| %d/%d | %s | %s |\n",
		round.Index, round.Total,
		humanize.Comma(round.Size),
		strings.Join(cells, " | "),
	)
}

func maxThreads(rounds []harness.RoundResult) int {
	var n int
	for _, r := range rounds {
		for _, tr := range r.Trials {
			n = max(n, tr.Threads)
		}
	}

	return n
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	}

	return fmt.Sprintf("%.3fs", d.Seconds())
}

func formatSpeedup(sp float64) string {
	if math.IsNaN(sp) || math.IsInf(sp, 0) {
		return "-"
	}

	return fmt.Sprintf("%.2fx", sp)
}

func capitalize(s string) string {
	if s == "" {
		return "Size"
	}

	return strings.ToUpper(s[:1]) + s[1:]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
