// Montecarlo harness estimates pi by throwing random points at the unit
// square and counting those inside the quarter circle. The points are
// generated up front and split across worker goroutines; only the counting
// is timed.
//
// Usage: montecarlo <nthreads> <ntrials>
package main

import (
	"context"
	"fmt"
	mrand "math/rand"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// checkEvery is how many points a worker counts between cancellation checks.
const checkEvery = 1 << 16

type point struct {
	x, y float64
}

func main() {
	threads, trials, err := parseArgs(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\nUsage:\n%s [nthreads] [ntrials]\n", err, os.Args[0])
		os.Exit(255)
	}

	threads = effectiveThreads(threads, trials)

	rng := mrand.New(mrand.NewSource(time.Now().UnixNano()))
	points := make([]point, trials)
	for i := range points {
		points[i] = point{x: rng.Float64(), y: rng.Float64()}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	inside, err := countParallel(ctx, points, threads)
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Interrupted: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Estimated PI = %f\n", 4*float64(inside)/float64(trials))
	fmt.Printf("Done in %fs ( %d threads, %d trials )\n", elapsed.Seconds(), threads, trials)
}

func parseArgs(args []string) (int, int, error) {
	if len(args) != 3 {
		return 0, 0, fmt.Errorf("want 2 arguments, got %d", len(args)-1)
	}

	threads, err := strconv.Atoi(args[1])
	if err != nil || threads < 1 {
		return 0, 0, fmt.Errorf("nthreads must be a positive integer, got %q", args[1])
	}

	trials, err := strconv.Atoi(args[2])
	if err != nil || trials < 1 {
		return 0, 0, fmt.Errorf("ntrials must be a positive integer, got %q", args[2])
	}

	return threads, trials, nil
}

// effectiveThreads falls back to one worker when each would get fewer
// than two points.
func effectiveThreads(threads, trials int) int {
	if threads >= trials>>1 {
		return 1
	}

	return threads
}

// chunks splits n items into `parts` contiguous ranges; the last range
// takes the remainder.
func chunks(n, parts int) [][2]int {
	size := n / parts
	out := make([][2]int, parts)

	for i := range out {
		lo := i * size
		hi := lo + size
		if i == parts-1 {
			hi = n
		}

		out[i] = [2]int{lo, hi}
	}

	return out
}

func countParallel(ctx context.Context, points []point, threads int) (uint64, error) {
	counts := make([]uint64, threads)

	g, ctx := errgroup.WithContext(ctx)
	for i, r := range chunks(len(points), threads) {
		g.Go(func() error {
			n, err := countChunk(ctx, points[r[0]:r[1]])
			counts[i] = n

			return err
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total uint64
	for _, c := range counts {
		total += c
	}

	return total, nil
}

// countChunk counts in batches so a cancelled run stops early.
func countChunk(ctx context.Context, points []point) (uint64, error) {
	var n uint64
	for lo := 0; lo < len(points); lo += checkEvery {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		n += countInside(points[lo:min(lo+checkEvery, len(points))])
	}

	return n, nil
}

func countInside(points []point) uint64 {
	var n uint64
	for _, p := range points {
		if p.x*p.x+p.y*p.y <= 1.0 {
			n++
		}
	}

	return n
}
