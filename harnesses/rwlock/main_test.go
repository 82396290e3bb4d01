package main

import (
	mrand "math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListOperations(t *testing.T) {
	l := &list{}

	assert.True(t, l.insert(5))
	assert.True(t, l.insert(1))
	assert.True(t, l.insert(9))
	assert.False(t, l.insert(5))
	assert.Equal(t, []int{1, 5, 9}, l.keys())

	assert.True(t, l.member(9))
	assert.False(t, l.member(4))

	assert.True(t, l.delete(1))
	assert.False(t, l.delete(1))
	assert.True(t, l.delete(9))
	assert.Equal(t, []int{5}, l.keys())
}

func TestPopulate(t *testing.T) {
	l := &list{}
	n := populate(l, 500, mrand.New(mrand.NewSource(1)))

	assert.Equal(t, 500, n)
	keys := l.keys()
	assert.Len(t, keys, 500)
	assert.True(t, sort.IntsAreSorted(keys))
}

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"--impl", "cond", "--search", "0.5", "4", "1000"})
	require.NoError(t, err)
	assert.Equal(t, implCond, opts.impl)
	assert.Equal(t, 4, opts.threads)
	assert.Equal(t, 1000, opts.ops)
	assert.InDelta(t, 0.5, opts.searchPct, 1e-9)
	assert.InDelta(t, 0.1, opts.insertPct, 1e-9)

	opts, err = parseArgs([]string{"2", "10"})
	require.NoError(t, err)
	assert.Equal(t, implStd, opts.impl)
	assert.Equal(t, 1000, opts.inserts)

	for _, args := range [][]string{
		{},
		{"2"},
		{"0", "10"},
		{"2", "x"},
		{"--impl", "spin", "2", "10"},
		{"--search", "0.9", "--insert", "0.2", "2", "10"},
		{"--inserts", "-1", "2", "10"},
	} {
		_, err := parseArgs(args)
		assert.Error(t, err, "args %v", args)
	}
}

func TestRunCountsEveryOp(t *testing.T) {
	for _, impl := range []string{implStd, implCond} {
		t.Run(impl, func(t *testing.T) {
			l := &list{}
			populate(l, 100, mrand.New(mrand.NewSource(1)))

			opts := options{threads: 4, ops: 4003, impl: impl, searchPct: 0.5, insertPct: 0.25}
			c := run(l, newLocker(impl), opts)

			assert.Equal(t, 4000, c.member+c.insert+c.delete)
			assert.Positive(t, c.member)
			assert.Positive(t, c.insert)
			assert.Positive(t, c.delete)
			assert.True(t, sort.IntsAreSorted(l.keys()))
		})
	}
}

func TestCondRWLockExclusion(t *testing.T) {
	lk := newCondRWLock()

	var (
		readers atomic.Int32
		writers atomic.Int32
		bad     atomic.Bool
		value   int
	)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				lk.Lock()
				if writers.Add(1) != 1 || readers.Load() != 0 {
					bad.Store(true)
				}
				value++
				writers.Add(-1)
				lk.Unlock()
			}
		}()

		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				lk.RLock()
				readers.Add(1)
				if writers.Load() != 0 {
					bad.Store(true)
				}
				readers.Add(-1)
				lk.RUnlock()
			}
		}()
	}

	wg.Wait()

	assert.False(t, bad.Load())
	assert.Equal(t, 8*200, value)
}
