package main

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInSet(t *testing.T) {
	assert.True(t, inSet(0))
	assert.True(t, inSet(complex(-1, 0)))
	assert.False(t, inSet(complex(1, 1)))
	assert.False(t, inSet(complex(-2, 0.5)))
}

func TestCollectorLimit(t *testing.T) {
	col := newCollector(100)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				col.add(complex(float64(j), 0))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, col.points, 100)
	assert.True(t, col.full())
	assert.False(t, col.add(0))
}

func TestScanStopsAtLimit(t *testing.T) {
	for _, threads := range []int{2, 4} {
		col := newCollector(200)
		scan(col, threads)

		require.Len(t, col.points, 200, "threads=%d", threads)
		for _, p := range col.points {
			assert.True(t, inSet(p))
		}
	}
}

func TestParseArgs(t *testing.T) {
	threads, points, err := parseArgs([]string{"mandelbrot", "8", "1000"})
	require.NoError(t, err)
	assert.Equal(t, 8, threads)
	assert.Equal(t, 1000, points)

	_, _, err = parseArgs([]string{"mandelbrot", "0", "1000"})
	assert.Error(t, err)

	_, _, err = parseArgs([]string{"mandelbrot", "1"})
	assert.Error(t, err)
}

func TestWritePoints(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, writePoints(path, []complex128{complex(-1, 0), complex(0.25, -0.5)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "(-1.000000, 0.000000)\n(0.250000, -0.500000)\n", string(data))
}
