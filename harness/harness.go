package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMalformedOutput is returned when stdout does not carry a timing
	// token at line 2, field 3.
	ErrMalformedOutput = errors.New("malformed benchmark output")
	// ErrTimeout is returned when a trial outlives its deadline.
	ErrTimeout = errors.New("trial timed out")
	// ErrNonZeroExit is returned for a failed process under the fail policy.
	ErrNonZeroExit = errors.New("non-zero exit status")
)

// waitDelay bounds how long Run waits for output pipes after the process
// is killed, in case it left children holding them open.
const waitDelay = 2 * time.Second

// RunConfig holds parameters shared by every trial of a suite.
type RunConfig struct {
	// Dir is the working directory; a relative BinaryPath resolves
	// against it.
	Dir string
	// Timeout bounds a single trial. Zero disables the deadline.
	Timeout time.Duration
	// FailOnExitCode rejects trials whose process exits non-zero.
	FailOnExitCode bool
}

// Runner launches one collaborator executable.
type Runner struct {
	Name       string
	BinaryPath string
	Config     RunConfig
	Logger     *slog.Logger
}

// NewRunner creates a Runner for the named suite.
func NewRunner(
	name, binaryPath string,
	cfg RunConfig,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		Name:       name,
		BinaryPath: binaryPath,
		Config:     cfg,
		Logger:     logger.With(slog.String("suite", name)),
	}
}

// Run executes `<binary> <threads> <size>`, waits for it to exit and
// parses the reported time from its stdout.
func (r *Runner) Run(ctx context.Context, threads int, size int64) (*Result, error) {
	if r.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Config.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.BinaryPath,
		strconv.Itoa(threads), strconv.FormatInt(size, 10),
	)
	cmd.Dir = r.Config.Dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	result := &Result{
		Suite:   r.Name,
		Threads: threads,
		Size:    size,
	}

	wallStart := time.Now()
	runErr := cmd.Run()
	result.Wall = time.Since(wallStart)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s [%d threads, size %d]: %w after %s",
				r.Name, threads, size, ErrTimeout, result.Wall.Round(time.Millisecond))
		}

		return nil, fmt.Errorf("%s [%d threads, size %d]: %w", r.Name, threads, size, ctxErr)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, fmt.Errorf("start %s: %w", r.BinaryPath, runErr)
		}

		result.ExitCode = exitErr.ExitCode()

		if r.Config.FailOnExitCode {
			return nil, fmt.Errorf("%s [%d threads, size %d]: %w %d\nstderr: %s",
				r.Name, threads, size, ErrNonZeroExit, result.ExitCode, stderr.String())
		}

		r.Logger.Warn("collaborator exited non-zero",
			slog.Int("threads", threads),
			slog.Int64("size", size),
			slog.Int("exit_code", result.ExitCode),
		)
	}

	raw, elapsed, err := ParseOutput(stdout.String())
	if err != nil {
		return nil, fmt.Errorf("parse %s output: %w\nstdout: %s",
			r.Name, err, stdout.String())
	}

	result.Time = raw
	result.Elapsed = elapsed

	r.Logger.Debug("trial finished",
		slog.Int("threads", threads),
		slog.Int64("size", size),
		slog.String("time", raw),
		slog.Duration("wall_time", result.Wall),
	)

	return result, nil
}

// ParseOutput extracts the timing token from collaborator stdout: the
// third whitespace-separated field of the second line. It returns the
// token as printed along with its value as a duration.
func ParseOutput(stdout string) (string, time.Duration, error) {
	lines := strings.Split(stdout, "\n")
	if len(lines) < 2 {
		return "", 0, fmt.Errorf("%w: want at least 2 lines, got %d",
			ErrMalformedOutput, len(lines))
	}

	fields := strings.Fields(lines[1])
	if len(fields) < 3 {
		return "", 0, fmt.Errorf("%w: want at least 3 fields on line 2, got %d",
			ErrMalformedOutput, len(fields))
	}

	raw := fields[2]

	d, err := parseTiming(raw)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	return raw, d, nil
}

// maxSeconds is the largest number of seconds a time.Duration holds.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// parseTiming accepts Go duration syntax ("0.0123s", "12ms") or a bare
// number of seconds.
func parseTiming(raw string) (time.Duration, error) {
	if d, err := time.ParseDuration(raw); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("negative time %q", raw)
		}

		return d, nil
	}

	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("time %q is not a duration", raw)
	}

	if secs < 0 {
		return 0, fmt.Errorf("negative time %q", raw)
	}

	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs >= maxSeconds {
		return 0, fmt.Errorf("time %q is out of range", raw)
	}

	return time.Duration(secs * float64(time.Second)), nil
}
