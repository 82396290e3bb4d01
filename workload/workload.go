// Package workload samples the per-round workload sizes of a benchmark
// run. Sizes are drawn from a single seeded source in suite order, so a
// fixed seed reproduces the whole plan.
package workload

import (
	"encoding/json"
	"fmt"
	"io"
	mrand "math/rand"

	"github.com/pthlab/threadbench/config"
)

// Round is one sampled workload size for a suite.
type Round struct {
	Suite string `json:"suite"`
	Index int    `json:"round"`
	Total int    `json:"rounds"`
	Low   int64  `json:"low"`
	High  int64  `json:"high"`
	Size  int64  `json:"size"`
}

// Plan holds the rounds of every suite in run order.
type Plan struct {
	Seed   int64              `json:"seed"`
	Suites map[string][]Round `json:"suites"`
	Order  []string           `json:"order"`
}

// Rounds returns the rounds sampled for the named suite.
func (p *Plan) Rounds(suite string) []Round {
	return p.Suites[suite]
}

// Generator draws workload sizes from a seeded source.
type Generator struct {
	seed int64
	rng  *mrand.Rand
}

// NewGenerator creates a Generator for the given seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		seed: seed,
		rng:  mrand.New(mrand.NewSource(seed)),
	}
}

// Sample returns a size drawn uniformly from [low, high], both inclusive.
func (g *Generator) Sample(low, high int64) int64 {
	return low + g.rng.Int63n(high-low+1)
}

// Rounds samples one size per multiplier of s.
func (g *Generator) Rounds(s config.SuiteConfig) []Round {
	rounds := make([]Round, 0, len(s.Multipliers))

	for i, m := range s.Multipliers {
		low, high := s.Low*m, s.High*m

		rounds = append(rounds, Round{
			Suite: s.Name,
			Index: i + 1,
			Total: len(s.Multipliers),
			Low:   low,
			High:  high,
			Size:  g.Sample(low, high),
		})
	}

	return rounds
}

// Plan samples every suite in the given order.
func (g *Generator) Plan(suites []config.SuiteConfig) *Plan {
	plan := &Plan{
		Seed:   g.seed,
		Suites: make(map[string][]Round, len(suites)),
		Order:  make([]string, 0, len(suites)),
	}

	for _, s := range suites {
		plan.Suites[s.Name] = g.Rounds(s)
		plan.Order = append(plan.Order, s.Name)
	}

	return plan
}

// WriteJSONL writes one JSON object per round, in run order.
func (p *Plan) WriteJSONL(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for _, name := range p.Order {
		for _, r := range p.Suites[name] {
			if err := enc.Encode(r); err != nil {
				return fmt.Errorf("encode %s round %d: %w", name, r.Index, err)
			}
		}
	}

	return nil
}
