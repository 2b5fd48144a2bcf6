// Package config loads the scheduling engine's configuration: exploration
// bounds, strategy selection, and the daemon's own listen/storage settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the scheduling engine configuration.
type Config struct {
	// MaxFairSchedulingSteps caps the number of scheduling steps per
	// iteration for fair strategies (Random, and the delay strategies,
	// which are all trivially fair).
	MaxFairSchedulingSteps int `yaml:"max_fair_scheduling_steps"`
	// MaxUnfairSchedulingSteps caps steps per iteration for strategies
	// that are not guaranteed fair (PCT).
	MaxUnfairSchedulingSteps int `yaml:"max_unfair_scheduling_steps"`
	// SafetyPrefixBound is the prefix length used by the Combo strategy.
	SafetyPrefixBound int `yaml:"safety_prefix_bound"`
	// StrategyBound is PCT's `d`: the maximum number of priority change
	// points (and hence demotions) per iteration.
	StrategyBound int `yaml:"strategy_bound"`
	// RandomSeed seeds the per-scheduler deterministic PRNG.
	RandomSeed int64 `yaml:"random_seed"`
	// OperationStrategy selects the strategy driving ScheduleNext:
	// random, probabilistic, pct, fairpct, or replay. Unknown values
	// fall back to random.
	OperationStrategy string `yaml:"operation_strategy"`
	// DelayStrategy optionally selects the strategy driving
	// GetNextInteger when the caller is injecting cooperative delays
	// rather than choosing a plain nondeterministic integer. Empty
	// disables delay injection. Unknown values fall back to random.
	DelayStrategy string `yaml:"delay_strategy"`
	// ListenAddr is the daemon's HTTP listen address.
	ListenAddr string `yaml:"listen_addr"`
	// ReportDBPath is the path to the session report SQLite database.
	ReportDBPath string `yaml:"report_db_path"`
	// LivenessThreshold, when positive, wraps a fair delay strategy with a
	// TemperatureChecker that refuses further delays once a monitor's
	// temperature exceeds this value. Nothing in the daemon heats the
	// checker's monitors, so the wrapped strategy never refuses a delay.
	// Zero disables the wrap entirely.
	LivenessThreshold int `yaml:"liveness_threshold"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxFairSchedulingSteps:   10000,
		MaxUnfairSchedulingSteps: 100,
		SafetyPrefixBound:        10,
		StrategyBound:            2,
		RandomSeed:               0,
		OperationStrategy:        "random",
		DelayStrategy:            "",
		ListenAddr:               "127.0.0.1:7477",
		ReportDBPath:             defaultReportDBPath(),
		LivenessThreshold:        0,
	}
}

func defaultReportDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".interleave", "reports.db")
	}
	return filepath.Join(home, ".interleave", "reports.db")
}

// Load loads configuration from a YAML file, falling back to defaults for
// any field the file omits. A missing file returns defaults, not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromHome loads configuration from ~/.interleave/config.yaml.
func LoadFromHome() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}
	return Load(filepath.Join(home, ".interleave", "config.yaml"))
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the configuration's numeric bounds make sense.
func (c *Config) Validate() error {
	if c.MaxFairSchedulingSteps < 1 {
		return fmt.Errorf("max_fair_scheduling_steps must be at least 1")
	}
	if c.MaxUnfairSchedulingSteps < 1 {
		return fmt.Errorf("max_unfair_scheduling_steps must be at least 1")
	}
	if c.SafetyPrefixBound < 0 {
		return fmt.Errorf("safety_prefix_bound must be non-negative")
	}
	if c.StrategyBound < 0 {
		return fmt.Errorf("strategy_bound must be non-negative")
	}
	if c.LivenessThreshold < 0 {
		return fmt.Errorf("liveness_threshold must be non-negative")
	}
	return nil
}
