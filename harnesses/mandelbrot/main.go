// Mandelbrot harness collects points of the Mandelbrot set by scanning a
// grid over [-2, 2) x [-1, 1). The x axis is split into one strip per
// worker; workers share a bounded result buffer and stop once it holds
// the requested number of points.
//
// Usage: mandelbrot <nthreads> <npoints>
package main

import (
	"bufio"
	"fmt"
	"math/cmplx"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	iterations = 4000
	step       = 0.00015
	outputFile = "./mandelbrot_output.csv"
)

func main() {
	threads, limit, err := parseArgs(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\nUsage:\n%s [nthreads] [npoints]\n", err, os.Args[0])
		os.Exit(255)
	}

	col := newCollector(limit)

	start := time.Now()
	scan(col, threads)
	elapsed := time.Since(start)

	if err := writePoints(outputFile, col.points); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot write %s: %v\n", outputFile, err)
	}

	fmt.Printf("Check result in the %s\n", outputFile)
	fmt.Printf("Done in %fs ( %d threads, %d points )\n", elapsed.Seconds(), threads, limit)
}

func parseArgs(args []string) (int, int, error) {
	if len(args) != 3 {
		return 0, 0, fmt.Errorf("want 2 arguments, got %d", len(args)-1)
	}

	threads, err := strconv.Atoi(args[1])
	if err != nil || threads < 1 {
		return 0, 0, fmt.Errorf("nthreads must be a positive integer, got %q", args[1])
	}

	points, err := strconv.Atoi(args[2])
	if err != nil || points < 0 {
		return 0, 0, fmt.Errorf("npoints must be a non-negative integer, got %q", args[2])
	}

	return threads, points, nil
}

// collector is the shared result buffer, capped at limit points.
type collector struct {
	mu     sync.Mutex
	points []complex128
	limit  int
}

func newCollector(limit int) *collector {
	return &collector{
		points: make([]complex128, 0, limit),
		limit:  limit,
	}
}

// add stores c and reports false once the buffer is full.
func (c *collector) add(p complex128) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.points) >= c.limit {
		return false
	}

	c.points = append(c.points, p)

	return true
}

func (c *collector) full() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.points) >= c.limit
}

func scan(col *collector, threads int) {
	width := 4.0 / float64(threads)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		xStart := -2.0 + width*float64(i)

		wg.Add(1)
		go func() {
			defer wg.Done()
			scanStrip(col, xStart, xStart+width)
		}()
	}

	wg.Wait()
}

func scanStrip(col *collector, xStart, xEnd float64) {
	for x := xStart; x < xEnd; x += step {
		for y := -1.0; y < 1; y += step {
			c := complex(x, y)
			if inSet(c) && !col.add(c) {
				break
			}
		}

		if col.full() {
			return
		}
	}
}

func inSet(c complex128) bool {
	var z complex128
	for i := 0; i < iterations; i++ {
		z = z*z + c
		if cmplx.Abs(z) >= 2.0 {
			return false
		}
	}

	return true
}

func writePoints(path string, points []complex128) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, p := range points {
		fmt.Fprintf(w, "(%f, %f)\n", real(p), imag(p))
	}

	if err := w.Flush(); err != nil {
		return err
	}

	return f.Close()
}
