// Package main provides the CLI entry point for threadbench, a harness
// that measures how multi-threaded collaborator programs scale with their
// thread count.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/pthlab/threadbench/config"
	"github.com/pthlab/threadbench/harness"
	"github.com/pthlab/threadbench/metrics"
	"github.com/pthlab/threadbench/report"
	"github.com/pthlab/threadbench/suite"
	"github.com/pthlab/threadbench/workload"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(logger, level)
	root.SetOut(color.Output)

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("threadbench failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var opts rootOptions

	root := &cobra.Command{
		Use:   "threadbench",
		Short: "Thread-scaling benchmark harness",
		Long: `Threadbench runs the monte-carlo and mandelbrot collaborator programs
with thread counts 1..N against randomly sampled workload sizes and prints
the time each run reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if opts.debug {
				level.Set(slog.LevelDebug)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "",
		"Path to a YAML config file (default $"+config.EnvConfigFile+")")
	flags.BoolVar(&opts.debug, "debug", false,
		"Enable debug logging")

	root.AddCommand(
		newRunCmd(logger, &opts),
		newPlanCmd(logger, &opts),
		newBuildCmd(logger, &opts),
	)

	return root
}

// bindFlags maps flag names onto config keys so flags override env and
// file values only when set.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}

	return nil
}

func loadConfig(ctx context.Context, v *viper.Viper, path string) (*config.Config, error) {
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, err
	}

	if err := cfg.ResolveMaxThreads(ctx); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newRunCmd(logger *slog.Logger, root *rootOptions) *cobra.Command {
	v := config.New()

	var (
		build        bool
		harnessesDir string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monte-carlo and mandelbrot suites",
		Long: `Run every round of the monte-carlo suite, then the mandelbrot suite,
sweeping thread counts 1..max-threads for each sampled workload size.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(v, cmd.Flags(), map[string]string{
				"bin-dir":           "bin_dir",
				"max-threads":       "max_threads",
				"timeout":           "timeout",
				"exit-policy":       "exit_policy",
				"continue-on-error": "continue_on_error",
				"seed":              "seed",
				"report":            "report",
				"metrics-file":      "metrics_file",
				"no-color":          "no_color",
			})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context(), v, root.configPath)
			if err != nil {
				return err
			}

			if build {
				if err := buildHarnesses(cmd.Context(), logger, cfg, harnessesDir, nil); err != nil {
					return err
				}
			}

			return runBenchmark(cmd.Context(), logger, cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("bin-dir", "./cmake-build-debug",
		"Directory the collaborator executables are run from")
	flags.Int("max-threads", 8,
		"Highest thread count to sweep (0 = logical CPUs)")
	flags.Duration("timeout", 10*time.Minute,
		"Deadline for a single trial (0 = none)")
	flags.String("exit-policy", config.ExitPolicyIgnore,
		"Non-zero collaborator exit: ignore or fail")
	flags.Bool("continue-on-error", false,
		"Record failed trials and keep sweeping instead of aborting")
	flags.Int64("seed", 0,
		"Random seed for workload sizes (0 = use current time)")
	flags.String("report", "",
		"Print a summary after the run: markdown, json or yaml")
	flags.String("metrics-file", "",
		"Write trial metrics in Prometheus textfile format")
	flags.Bool("no-color", false,
		"Disable coloured output")
	flags.BoolVar(&build, "build", false,
		"Build the reference harnesses into the bin dir first")
	flags.StringVar(&harnessesDir, "harnesses-dir", "harnesses",
		"Path to the reference harnesses (with --build)")

	return cmd
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	out io.Writer,
	cfg *config.Config,
) error {
	runID := uuid.NewString()
	logger = logger.With(slog.String("run_id", runID))

	binDir, err := filepath.Abs(cfg.BinDir)
	if err != nil {
		return fmt.Errorf("resolve bin dir: %w", err)
	}

	info, err := os.Stat(binDir)
	if err != nil {
		return fmt.Errorf("bin dir: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("bin dir %s is not a directory", binDir)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("bin_dir", binDir),
		slog.Int("max_threads", cfg.MaxThreads),
		slog.Int64("seed", seed),
		slog.Duration("timeout", cfg.Timeout),
		slog.String("exit_policy", cfg.ExitPolicy),
	)

	plan := workload.NewGenerator(seed).Plan(cfg.Suites())

	suites := make([]suite.Suite, 0, len(cfg.Suites()))
	for _, sc := range cfg.Suites() {
		runner := harness.NewRunner(
			sc.Name,
			harness.ResolveBinary(binDir, sc.Executable),
			harness.RunConfig{
				Dir:            binDir,
				Timeout:        cfg.Timeout,
				FailOnExitCode: cfg.ExitPolicy == config.ExitPolicyFail,
			},
			logger,
		)

		suites = append(suites, suite.Suite{
			Name:    sc.Name,
			Unit:    sc.Unit,
			Rounds:  plan.Rounds(sc.Name),
			Trialer: runner,
		})
	}

	noColor := cfg.NoColor || !term.IsTerminal(int(os.Stdout.Fd()))
	recorder := metrics.NewRecorder(runID)

	driver := suite.NewDriver(
		suite.NewConsole(out, noColor),
		suite.Options{
			MaxThreads:      cfg.MaxThreads,
			ContinueOnError: cfg.ContinueOnError,
		},
		logger,
		recorder,
	)

	results, runErr := driver.RunAll(ctx, suites)

	// Metrics and the report cover whatever completed before a failure.
	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.ErrorContext(ctx, "failed to write metrics", slog.String("error", err.Error()))
		} else {
			logger.InfoContext(ctx, "metrics written", slog.String("path", cfg.MetricsFile))
		}
	}

	if cfg.Report != "" {
		host, err := report.CollectHost(ctx)
		if err != nil {
			logger.WarnContext(ctx, "incomplete host info", slog.String("error", err.Error()))
		}

		summary := report.Build(report.Meta{RunID: runID, Seed: seed, Host: host}, results)

		fmt.Fprintln(out)

		if err := report.Write(out, cfg.Report, summary); err != nil {
			return fmt.Errorf("generate %s report: %w", cfg.Report, err)
		}
	}

	if runErr != nil {
		return runErr
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}

func newPlanCmd(logger *slog.Logger, root *rootOptions) *cobra.Command {
	v := config.New()

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the sampled workload sizes without running anything",
		Long: `Sample the round plan for a seed and print it as JSON lines. The same
seed passed to run reproduces exactly these sizes.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(v, cmd.Flags(), map[string]string{
				"seed": "seed",
			})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context(), v, root.configPath)
			if err != nil {
				return err
			}

			seed := cfg.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			logger.InfoContext(cmd.Context(), "sampling plan", slog.Int64("seed", seed))

			plan := workload.NewGenerator(seed).Plan(cfg.Suites())

			return plan.WriteJSONL(cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int64("seed", 0,
		"Random seed for workload sizes (0 = use current time)")

	return cmd
}

func newBuildCmd(logger *slog.Logger, root *rootOptions) *cobra.Command {
	v := config.New()

	var harnessesDir string

	cmd := &cobra.Command{
		Use:   "build [harness...]",
		Short: "Build the reference collaborator harnesses",
		Long: `Compile the Go reference implementations under harnesses/ into the bin
dir, named after each suite's configured executable. Extra harness names
(e.g. rwlock) are built as ./<name>.exe so a suite can be pointed at them.`,
		Args: cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return bindFlags(v, cmd.Flags(), map[string]string{
				"bin-dir": "bin_dir",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), v, root.configPath)
			if err != nil {
				return err
			}

			return buildHarnesses(cmd.Context(), logger, cfg, harnessesDir, args)
		},
	}

	cmd.Flags().String("bin-dir", "./cmake-build-debug",
		"Directory to place the built executables in")
	cmd.Flags().StringVar(&harnessesDir, "harnesses-dir", "harnesses",
		"Path to the reference harnesses")

	return cmd
}

func buildHarnesses(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	harnessesDir string,
	extra []string,
) error {
	harnessesDir, err := filepath.Abs(harnessesDir)
	if err != nil {
		return fmt.Errorf("resolve harnesses dir: %w", err)
	}

	// executable -> harness
	targets := make(map[string]string)
	for _, sc := range cfg.Suites() {
		targets[sc.Executable] = sc.Harness
	}

	for _, name := range extra {
		exe := "./" + name + ".exe"
		if _, ok := targets[exe]; !ok {
			targets[exe] = name
		}
	}

	for _, exe := range slices.Sorted(maps.Keys(targets)) {
		if _, err := harness.Build(
			ctx, logger, harnessesDir, cfg.BinDir, targets[exe], exe,
		); err != nil {
			return err
		}
	}

	return nil
}
