// Rwlock harness measures a sorted linked list shared by worker goroutines
// under a read-write lock. Each worker runs its share of a random mix of
// member, insert and delete operations; members take the read side, the
// rest take the write side. The lock is either sync.RWMutex or a
// writer-preferring lock built on sync.Cond.
//
// Usage: rwlock [flags] <nthreads> <nops>
package main

import (
	"fmt"
	mrand "math/rand"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/spf13/pflag"
)

// maxKey bounds the random keys stored in the list.
const maxKey = 100000000

const (
	implStd  = "std"
	implCond = "cond"
)

type options struct {
	threads   int
	ops       int
	impl      string
	inserts   int
	searchPct float64
	insertPct float64
}

type counts struct {
	member, insert, delete int
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\nUsage:\n%s [flags] [nthreads] [nops]\n", err, os.Args[0])
		os.Exit(255)
	}

	l := &list{}
	inserted := populate(l, opts.inserts, mrand.New(mrand.NewSource(1)))

	start := time.Now()
	total := run(l, newLocker(opts.impl), opts)
	elapsed := time.Since(start)

	fmt.Printf("Rwlock implementation: %s\n", opts.impl)
	fmt.Printf("Done in %fs ( %d threads, %d ops )\n", elapsed.Seconds(), opts.threads, opts.ops)
	fmt.Printf("Inserted %d keys in empty list\n", inserted)
	fmt.Printf("member ops = %d\ninsert ops = %d\ndelete ops = %d\n",
		total.member, total.insert, total.delete)
}

func parseArgs(args []string) (options, error) {
	opts := options{}

	fs := pflag.NewFlagSet("rwlock", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&opts.impl, "impl", implStd, "Lock implementation: std or cond")
	fs.IntVar(&opts.inserts, "inserts", 1000, "Keys inserted before the workers start")
	fs.Float64Var(&opts.searchPct, "search", 0.8, "Fraction of ops that are member lookups")
	fs.Float64Var(&opts.insertPct, "insert", 0.1, "Fraction of ops that are inserts")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if fs.NArg() != 2 {
		return opts, fmt.Errorf("want 2 arguments, got %d", fs.NArg())
	}

	threads, err := strconv.Atoi(fs.Arg(0))
	if err != nil || threads < 1 {
		return opts, fmt.Errorf("nthreads must be a positive integer, got %q", fs.Arg(0))
	}

	ops, err := strconv.Atoi(fs.Arg(1))
	if err != nil || ops < 0 {
		return opts, fmt.Errorf("nops must be a non-negative integer, got %q", fs.Arg(1))
	}

	opts.threads, opts.ops = threads, ops

	switch {
	case opts.impl != implStd && opts.impl != implCond:
		return opts, fmt.Errorf("impl must be %q or %q, got %q", implStd, implCond, opts.impl)
	case opts.inserts < 0:
		return opts, fmt.Errorf("inserts must not be negative, got %d", opts.inserts)
	case opts.searchPct < 0 || opts.insertPct < 0 || opts.searchPct+opts.insertPct > 1:
		return opts, fmt.Errorf("search and insert fractions must be in [0, 1] and sum to at most 1")
	}

	return opts, nil
}

// populate inserts up to n distinct keys, giving up after 2n attempts.
func populate(l *list, n int, rng *mrand.Rand) int {
	inserted := 0
	for attempts := 0; inserted < n && attempts < 2*n; attempts++ {
		if l.insert(rng.Intn(maxKey)) {
			inserted++
		}
	}

	return inserted
}

// run splits opts.ops evenly across the workers; the remainder is dropped.
func run(l *list, lk locker, opts options) counts {
	perWorker := opts.ops / opts.threads
	results := make([]counts, opts.threads)

	var wg sync.WaitGroup
	for rank := 0; rank < opts.threads; rank++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := mrand.New(mrand.NewSource(int64(rank) + 1))
			results[rank] = work(l, lk, rng, perWorker, opts.searchPct, opts.insertPct)
		}()
	}

	wg.Wait()

	var total counts
	for _, c := range results {
		total.member += c.member
		total.insert += c.insert
		total.delete += c.delete
	}

	return total
}

func work(l *list, lk locker, rng *mrand.Rand, n int, searchPct, insertPct float64) counts {
	var c counts
	for i := 0; i < n; i++ {
		which := rng.Float64()
		key := rng.Intn(maxKey)

		switch {
		case which < searchPct:
			lk.RLock()
			l.member(key)
			lk.RUnlock()
			c.member++
		case which < searchPct+insertPct:
			lk.Lock()
			l.insert(key)
			lk.Unlock()
			c.insert++
		default:
			lk.Lock()
			l.delete(key)
			lk.Unlock()
			c.delete++
		}
	}

	return c
}
