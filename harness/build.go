package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
)

// KnownHarnesses returns the reference collaborators under harnesses/.
func KnownHarnesses() []string {
	return []string{"montecarlo", "mandelbrot", "rwlock"}
}

// ResolveBinary returns the path a suite executable is run from, given
// the bin directory trials execute in.
func ResolveBinary(binDir, executable string) string {
	if filepath.IsAbs(executable) {
		return executable
	}

	return filepath.Join(binDir, executable)
}

// Build compiles a reference harness into binDir under the name the
// suite expects to execute.
func Build(
	ctx context.Context,
	logger *slog.Logger,
	harnessesDir string,
	binDir string,
	name string,
	executable string,
) (string, error) {
	if name == "" {
		return "", fmt.Errorf("no reference harness configured for %s", executable)
	}

	if !slices.Contains(KnownHarnesses(), name) {
		return "", fmt.Errorf("unknown harness %q, want one of %v", name, KnownHarnesses())
	}

	srcDir := filepath.Join(harnessesDir, name)

	binPath, err := filepath.Abs(ResolveBinary(binDir, executable))
	if err != nil {
		return "", fmt.Errorf("resolve binary path for %s: %w", name, err)
	}

	if _, err := os.Stat(srcDir); err != nil {
		return "", fmt.Errorf("harness source for %q: %w", name, err)
	}

	if err := os.MkdirAll(filepath.Dir(binPath), 0o755); err != nil {
		return "", fmt.Errorf("create bin dir: %w", err)
	}

	logger.InfoContext(ctx, "building harness",
		slog.String("harness", name),
		slog.String("source_dir", srcDir),
	)

	cmd := exec.CommandContext(ctx, "go", "build", "-o", binPath, ".")
	cmd.Dir = srcDir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("build %s: %w", name, err)
	}

	if _, err := os.Stat(binPath); err != nil {
		return "", fmt.Errorf(
			"build %s: binary not found at %s", name, binPath,
		)
	}

	logger.InfoContext(ctx, "harness built",
		slog.String("harness", name),
		slog.String("binary", binPath),
	)

	return binPath, nil
}
