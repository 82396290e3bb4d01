// Package config loads the suite configuration for a benchmark run from
// defaults, an optional YAML file, THREADBENCH_* environment variables and
// command-line flags.
package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/spf13/viper"
)

const (
	// ExitPolicyIgnore parses a trial's stdout regardless of exit status.
	ExitPolicyIgnore = "ignore"
	// ExitPolicyFail rejects a trial whose process exits non-zero.
	ExitPolicyFail = "fail"

	// EnvConfigFile names the environment variable holding a config path.
	EnvConfigFile = "THREADBENCH_CONFIG_FILE"

	envPrefix = "THREADBENCH"

	defaultBinDir     = "./cmake-build-debug"
	defaultMaxThreads = 8
	defaultTimeout    = 10 * time.Minute
)

// Report formats accepted by the run command. Empty means no summary.
var reportFormats = []string{"", "markdown", "json", "yaml"}

// Config is the read-only configuration of one harness run.
type Config struct {
	BinDir          string        `mapstructure:"bin_dir"`
	MaxThreads      int           `mapstructure:"max_threads"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ExitPolicy      string        `mapstructure:"exit_policy"`
	ContinueOnError bool          `mapstructure:"continue_on_error"`
	Seed            int64         `mapstructure:"seed"`

	Report      string `mapstructure:"report"`
	MetricsFile string `mapstructure:"metrics_file"`
	NoColor     bool   `mapstructure:"no_color"`

	MonteCarlo SuiteConfig `mapstructure:"montecarlo"`
	Mandelbrot SuiteConfig `mapstructure:"mandelbrot"`
}

// SuiteConfig describes one collaborator executable and its rounds.
// Round j samples a size from [Low*Multipliers[j], High*Multipliers[j]].
type SuiteConfig struct {
	Name        string  `mapstructure:"name"`
	Harness     string  `mapstructure:"harness"`
	Executable  string  `mapstructure:"executable"`
	Unit        string  `mapstructure:"unit"`
	Low         int64   `mapstructure:"low"`
	High        int64   `mapstructure:"high"`
	Multipliers []int64 `mapstructure:"multipliers"`
}

// Suites returns the suites in the order they are run.
func (c *Config) Suites() []SuiteConfig {
	return []SuiteConfig{c.MonteCarlo, c.Mandelbrot}
}

// New returns a viper instance with defaults and env bindings applied.
func New() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("bin_dir", defaultBinDir)
	v.SetDefault("max_threads", defaultMaxThreads)
	v.SetDefault("timeout", defaultTimeout)
	v.SetDefault("exit_policy", ExitPolicyIgnore)
	v.SetDefault("continue_on_error", false)
	v.SetDefault("seed", 0)
	v.SetDefault("report", "")
	v.SetDefault("metrics_file", "")
	v.SetDefault("no_color", false)

	v.SetDefault("montecarlo.name", "monte-carlo")
	v.SetDefault("montecarlo.harness", "montecarlo")
	v.SetDefault("montecarlo.executable", "./montecarlo.exe")
	v.SetDefault("montecarlo.unit", "trials")
	v.SetDefault("montecarlo.low", 10000)
	v.SetDefault("montecarlo.high", 100000)
	v.SetDefault("montecarlo.multipliers", []int64{1, 10, 100, 1000})

	v.SetDefault("mandelbrot.name", "mandelbrot")
	v.SetDefault("mandelbrot.harness", "mandelbrot")
	v.SetDefault("mandelbrot.executable", "./mandelbrot.exe")
	v.SetDefault("mandelbrot.unit", "points")
	v.SetDefault("mandelbrot.low", 1000)
	v.SetDefault("mandelbrot.high", 10000)
	v.SetDefault("mandelbrot.multipliers", []int64{1, 10, 100})

	return v
}

// Load reads the optional config file into v and decodes the result.
// path takes precedence over THREADBENCH_CONFIG_FILE; with neither set
// only defaults, env and bound flags apply.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}

// ResolveMaxThreads replaces a zero thread ceiling with the number of
// logical CPUs on this host.
func (c *Config) ResolveMaxThreads(ctx context.Context) error {
	if c.MaxThreads != 0 {
		return nil
	}

	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return fmt.Errorf("count logical cpus: %w", err)
	}

	c.MaxThreads = max(n, 1)

	return nil
}

// Validate reports every problem found in c.
func (c *Config) Validate() error {
	var errs []error

	if c.BinDir == "" {
		errs = append(errs, errors.New("bin_dir must not be empty"))
	}

	if c.MaxThreads < 1 {
		errs = append(errs, fmt.Errorf("max_threads must be positive, got %d", c.MaxThreads))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}

	if c.ExitPolicy != ExitPolicyIgnore && c.ExitPolicy != ExitPolicyFail {
		errs = append(errs, fmt.Errorf("exit_policy must be %q or %q, got %q",
			ExitPolicyIgnore, ExitPolicyFail, c.ExitPolicy))
	}

	if !slices.Contains(reportFormats, c.Report) {
		errs = append(errs, fmt.Errorf("report must be one of markdown, json, yaml, got %q", c.Report))
	}

	for _, s := range c.Suites() {
		if err := s.validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.MonteCarlo.Name == c.Mandelbrot.Name {
		errs = append(errs, fmt.Errorf("suite names must differ, both are %q", c.MonteCarlo.Name))
	}

	return errors.Join(errs...)
}

func (s SuiteConfig) validate() error {
	if s.Name == "" {
		return errors.New("suite name must not be empty")
	}

	if s.Executable == "" {
		return fmt.Errorf("%s: executable must not be empty", s.Name)
	}

	if s.Low < 1 || s.High < s.Low {
		return fmt.Errorf("%s: bounds must satisfy 0 < low <= high, got [%d, %d]",
			s.Name, s.Low, s.High)
	}

	if len(s.Multipliers) == 0 {
		return fmt.Errorf("%s: at least one round multiplier is required", s.Name)
	}

	for i, m := range s.Multipliers {
		if m < 1 {
			return fmt.Errorf("%s: multiplier #%d must be positive, got %d", s.Name, i+1, m)
		}

		if m > math.MaxInt64/s.High {
			return fmt.Errorf("%s: multiplier #%d overflows the size range", s.Name, i+1)
		}
	}

	return nil
}
