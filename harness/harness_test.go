package harness

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name    string
		stdout  string
		want    string
		wantDur time.Duration
	}{
		{
			name:    "montecarlo",
			stdout:  "Estimated PI = 3.141000\nDone in 0.012500s ( 4 threads, 53421 trials )\n",
			want:    "0.012500s",
			wantDur: 12500 * time.Microsecond,
		},
		{
			name:    "mandelbrot",
			stdout:  "Check result in the ./mandelbrot_output.csv\nDone in 1.5s ( 8 threads, 1000 points )",
			want:    "1.5s",
			wantDur: 1500 * time.Millisecond,
		},
		{
			name:    "bare seconds",
			stdout:  "header\nDone in 0.25 seconds\n",
			want:    "0.25",
			wantDur: 250 * time.Millisecond,
		},
		{
			name:    "go duration",
			stdout:  "header\n  took   about   12ms  \nextra\n",
			want:    "12ms",
			wantDur: 12 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, d, err := ParseOutput(tt.stdout)
			require.NoError(t, err)
			assert.Equal(t, tt.want, raw)
			assert.Equal(t, tt.wantDur, d)
		})
	}
}

func TestParseOutputMalformed(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
	}{
		{"empty", ""},
		{"single line", "Estimated PI = 3.14"},
		{"single line with newline", "Estimated PI = 3.14\n"},
		{"short second line", "first\nDone in\n"},
		{"non numeric time", "first\nDone in soon ( 1 threads )\n"},
		{"negative time", "first\nDone in -1s\n"},
		{"nan time", "first\nDone in NaN\n"},
		{"infinite time", "first\nDone in Inf\n"},
		{"signed infinite time", "first\nDone in +Inf\n"},
		{"overflowing time", "first\nDone in 1e12\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseOutput(tt.stdout)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedOutput)
		})
	}
}

// writeScript creates an executable shell script standing in for a
// collaborator binary.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell collaborators are not supported on windows")
	}

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))

	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunnerRun(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "montecarlo.exe",
		`echo "Estimated PI = 3.14"
echo "Done in 0.004200s ( $1 threads, $2 trials )"
`)

	r := NewRunner("monte-carlo", bin, RunConfig{Dir: dir, Timeout: 10 * time.Second}, discardLogger())

	res, err := r.Run(context.Background(), 4, 53421)
	require.NoError(t, err)

	assert.Equal(t, "monte-carlo", res.Suite)
	assert.Equal(t, 4, res.Threads)
	assert.Equal(t, int64(53421), res.Size)
	assert.Equal(t, "0.004200s", res.Time)
	assert.Equal(t, 4200*time.Microsecond, res.Elapsed)
	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.Failed())
	assert.Positive(t, res.Wall)
}

func TestRunnerRelativeBinary(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "mandelbrot.exe", `echo "$PWD"; echo "Done in 1s"`)

	r := NewRunner("mandelbrot", "./mandelbrot.exe", RunConfig{Dir: dir}, discardLogger())

	res, err := r.Run(context.Background(), 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, "1s", res.Time)
}

func TestRunnerPassesArguments(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "echo.exe", `echo "args"; echo "got $1 $2s"`)

	r := NewRunner("echo", bin, RunConfig{}, discardLogger())

	// Field 3 is "<size>s", so the size comes back as the time.
	res, err := r.Run(context.Background(), 3, 7)
	require.NoError(t, err)
	assert.Equal(t, "7s", res.Time)
}

func TestRunnerMalformedOutput(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "short.exe", `echo "only one line"`)

	r := NewRunner("short", bin, RunConfig{}, discardLogger())

	_, err := r.Run(context.Background(), 1, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedOutput)
	assert.Contains(t, err.Error(), "only one line")
}

func TestRunnerTimeout(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "hang.exe", "exec sleep 30\n")

	r := NewRunner("hang", bin, RunConfig{Timeout: 200 * time.Millisecond}, discardLogger())

	start := time.Now()
	_, err := r.Run(context.Background(), 1, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunnerCancelled(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "ok.exe", `echo a; echo "Done in 1s"`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner("ok", bin, RunConfig{}, discardLogger())

	_, err := r.Run(ctx, 1, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunnerExitPolicy(t *testing.T) {
	dir := t.TempDir()
	bin := writeScript(t, dir, "fails.exe", `echo "header"
echo "Done in 0.5s ( 1 threads )"
exit 3
`)

	t.Run("ignore", func(t *testing.T) {
		r := NewRunner("fails", bin, RunConfig{}, discardLogger())

		res, err := r.Run(context.Background(), 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "0.5s", res.Time)
	})

	t.Run("fail", func(t *testing.T) {
		r := NewRunner("fails", bin, RunConfig{FailOnExitCode: true}, discardLogger())

		_, err := r.Run(context.Background(), 1, 10)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNonZeroExit)
	})
}

func TestRunnerMissingBinary(t *testing.T) {
	r := NewRunner("missing", filepath.Join(t.TempDir(), "nope.exe"), RunConfig{}, discardLogger())

	_, err := r.Run(context.Background(), 1, 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedOutput)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestResolveBinary(t *testing.T) {
	assert.Equal(t, filepath.Join("bin", "montecarlo.exe"), ResolveBinary("bin", "./montecarlo.exe"))

	abs := filepath.Join(string(filepath.Separator), "opt", "mandelbrot")
	assert.Equal(t, abs, ResolveBinary("bin", abs))
}

func TestBuildUnknownHarness(t *testing.T) {
	_, err := Build(context.Background(), discardLogger(), t.TempDir(), t.TempDir(), "nope", "nope.exe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown harness")
}

func TestBuildMissingSource(t *testing.T) {
	_, err := Build(context.Background(), discardLogger(), t.TempDir(), t.TempDir(), "montecarlo", "montecarlo.exe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "harness source")

	_, err = Build(context.Background(), discardLogger(), t.TempDir(), t.TempDir(), "", "montecarlo.exe")
	require.Error(t, err)
}

// requireGoToolchain skips tests that compile the reference harnesses.
func requireGoToolchain(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("compiles reference harnesses")
	}

	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not on PATH")
	}
}

func TestBuildReferenceHarnesses(t *testing.T) {
	requireGoToolchain(t)

	harnessesDir, err := filepath.Abs(filepath.Join("..", "harnesses"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		executable string
		size       int64
	}{
		{"montecarlo", "./montecarlo.exe", 20000},
		{"mandelbrot", "./mandelbrot.exe", 50},
		{"rwlock", "./rwlock.exe", 10000},
	}

	binDir := t.TempDir()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin, err := Build(context.Background(), discardLogger(), harnessesDir, binDir, tt.name, tt.executable)
			require.NoError(t, err)

			assert.Equal(t, filepath.Join(binDir, tt.name+".exe"), bin)
			info, err := os.Stat(bin)
			require.NoError(t, err)
			assert.False(t, info.IsDir())

			r := NewRunner(tt.name, tt.executable, RunConfig{Dir: binDir, Timeout: time.Minute}, discardLogger())

			res, err := r.Run(context.Background(), 2, tt.size)
			require.NoError(t, err)
			assert.Equal(t, 0, res.ExitCode)
			assert.True(t, strings.HasSuffix(res.Time, "s"))
			assert.GreaterOrEqual(t, res.Elapsed, time.Duration(0))
		})
	}
}
