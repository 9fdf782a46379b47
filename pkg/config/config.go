package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the follower cleanup tool
type Config struct {
	// Bot detection settings
	Detection DetectionConfig `yaml:"detection" json:"detection"`

	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Pacing between browser actions
	Delays DelayConfig `yaml:"delays" json:"delays"`

	// Safety limits
	Limits LimitConfig `yaml:"limits" json:"limits"`

	// Report and backup output
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DetectionConfig holds the username classification rules
type DetectionConfig struct {
	// MinTrailingDigits is the primary rule threshold: a username ending in
	// this many consecutive digits is flagged. Deliberately configurable
	// rather than a constant; defaults to 3.
	MinTrailingDigits int `yaml:"min_trailing_digits" json:"min_trailing_digits"`
	// ExtraPatterns are additional regexes checked after the primary rule
	ExtraPatterns []string `yaml:"extra_patterns" json:"extra_patterns"`
	// UseSuspiciousPatterns enables the built-in secondary pattern set
	UseSuspiciousPatterns bool `yaml:"use_suspicious_patterns" json:"use_suspicious_patterns"`
}

// BrowserConfig holds browser session configuration
type BrowserConfig struct {
	Headless     bool          `yaml:"headless" json:"headless"`
	UserDataDir  string        `yaml:"user_data_dir" json:"user_data_dir"`
	LoginTimeout time.Duration `yaml:"login_timeout" json:"login_timeout"`
	PageTimeout  time.Duration `yaml:"page_timeout" json:"page_timeout"`
}

// DelayConfig holds pacing configuration between browser actions
type DelayConfig struct {
	BetweenRemovals    time.Duration `yaml:"between_removals" json:"between_removals"`
	AfterScroll        time.Duration `yaml:"after_scroll" json:"after_scroll"`
	LoginCheckInterval time.Duration `yaml:"login_check_interval" json:"login_check_interval"`
	// JitterFactor randomizes delays by up to this fraction in either
	// direction so actions do not land on a fixed interval
	JitterFactor float64 `yaml:"jitter_factor" json:"jitter_factor"`
}

// LimitConfig holds safety limits for a run
type LimitConfig struct {
	// Limit is the maximum number of followers to remove this run
	Limit int `yaml:"limit" json:"limit"`
	// DailyCap is the hard per-day removal ceiling
	DailyCap int `yaml:"daily_cap" json:"daily_cap"`
	// MaxRetryAttempts bounds per-action retries
	MaxRetryAttempts int `yaml:"max_retry_attempts" json:"max_retry_attempts"`
	// MaxScrollAttempts prevents infinite scrolling
	MaxScrollAttempts int `yaml:"max_scroll_attempts" json:"max_scroll_attempts"`
	// StallThreshold is the number of consecutive scrolls yielding no new
	// followers before enumeration stops
	StallThreshold int `yaml:"stall_threshold" json:"stall_threshold"`
	// CircuitBreakerThreshold is the number of consecutive removal failures
	// that aborts the remaining queue
	CircuitBreakerThreshold int `yaml:"circuit_breaker_threshold" json:"circuit_breaker_threshold"`
	// ActionsPerMinute caps browser-facing actions per minute
	ActionsPerMinute int `yaml:"actions_per_minute" json:"actions_per_minute"`
}

// OutputConfig holds artifact output configuration
type OutputConfig struct {
	ReportsDir string `yaml:"reports_dir" json:"reports_dir"`
	BackupsDir string `yaml:"backups_dir" json:"backups_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			MinTrailingDigits:     3,
			ExtraPatterns:         nil,
			UseSuspiciousPatterns: false,
		},
		Browser: BrowserConfig{
			Headless:     false,
			UserDataDir:  "./browser_data",
			LoginTimeout: 5 * time.Minute,
			PageTimeout:  60 * time.Second,
		},
		Delays: DelayConfig{
			BetweenRemovals:    2 * time.Second,
			AfterScroll:        1500 * time.Millisecond,
			LoginCheckInterval: 2 * time.Second,
			JitterFactor:       0.2,
		},
		Limits: LimitConfig{
			Limit:                   100,
			DailyCap:                1000,
			MaxRetryAttempts:        3,
			MaxScrollAttempts:       150,
			StallThreshold:          3,
			CircuitBreakerThreshold: 5,
			ActionsPerMinute:        30,
		},
		Output: OutputConfig{
			ReportsDir: "./reports",
			BackupsDir: "./backups",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// Load builds the effective configuration: defaults, then config file, then
// environment variables, then command line flags
func Load(path string, flags map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(path); err != nil {
		return nil, err
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		"followersweep.yaml",
		".followersweep.yaml",
		".followersweep.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "followersweep", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "followersweep", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".followersweep.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// LoadFromEnv loads configuration from environment variables. A .env file in
// the working directory is honored if present.
func (c *Config) LoadFromEnv() error {
	_ = godotenv.Load()

	if v := os.Getenv("FOLLOWERSWEEP_MIN_TRAILING_DIGITS"); v != "" {
		var val int
		fmt.Sscanf(v, "%d", &val)
		if val > 0 {
			c.Detection.MinTrailingDigits = val
		}
	}
	if v := os.Getenv("FOLLOWERSWEEP_USER_DATA_DIR"); v != "" {
		c.Browser.UserDataDir = v
	}
	if v := os.Getenv("FOLLOWERSWEEP_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("FOLLOWERSWEEP_DAILY_CAP"); v != "" {
		var val int
		fmt.Sscanf(v, "%d", &val)
		if val > 0 {
			c.Limits.DailyCap = val
		}
	}
	if v := os.Getenv("FOLLOWERSWEEP_REPORTS_DIR"); v != "" {
		c.Output.ReportsDir = v
	}
	if v := os.Getenv("FOLLOWERSWEEP_BACKUPS_DIR"); v != "" {
		c.Output.BackupsDir = v
	}
	if v := os.Getenv("FOLLOWERSWEEP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	for key, value := range flags {
		switch key {
		case "limit":
			if v, ok := value.(int); ok && v > 0 {
				c.Limits.Limit = v
			}
		case "daily-cap":
			if v, ok := value.(int); ok && v > 0 {
				c.Limits.DailyCap = v
			}
		case "min-digits":
			if v, ok := value.(int); ok && v > 0 {
				c.Detection.MinTrailingDigits = v
			}
		case "headless":
			if v, ok := value.(bool); ok {
				c.Browser.Headless = v
			}
		case "user-data-dir":
			if v, ok := value.(string); ok && v != "" {
				c.Browser.UserDataDir = v
			}
		case "reports-dir":
			if v, ok := value.(string); ok && v != "" {
				c.Output.ReportsDir = v
			}
		case "backups-dir":
			if v, ok := value.(string); ok && v != "" {
				c.Output.BackupsDir = v
			}
		case "log-level":
			if v, ok := value.(string); ok && v != "" {
				c.Logging.Level = v
			}
		case "log-file":
			if v, ok := value.(string); ok && v != "" {
				c.Logging.File = v
			}
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Detection.MinTrailingDigits < 1 {
		errs = append(errs, errors.New("min trailing digits must be at least 1"))
	}

	for _, p := range c.Detection.ExtraPatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("invalid detection pattern %q: %w", p, err))
		}
	}

	if c.Delays.JitterFactor < 0 || c.Delays.JitterFactor > 1 {
		errs = append(errs, errors.New("jitter factor must be between 0 and 1"))
	}
	if c.Delays.BetweenRemovals < 0 {
		errs = append(errs, errors.New("delay between removals cannot be negative"))
	}
	if c.Delays.AfterScroll < 0 {
		errs = append(errs, errors.New("delay after scroll cannot be negative"))
	}

	if c.Limits.Limit <= 0 {
		errs = append(errs, errors.New("removal limit must be positive"))
	}
	if c.Limits.DailyCap <= 0 {
		errs = append(errs, errors.New("daily cap must be positive"))
	}
	if c.Limits.MaxRetryAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}
	if c.Limits.MaxScrollAttempts <= 0 {
		errs = append(errs, errors.New("max scroll attempts must be positive"))
	}
	if c.Limits.StallThreshold <= 0 {
		errs = append(errs, errors.New("stall threshold must be positive"))
	}
	if c.Limits.CircuitBreakerThreshold <= 0 {
		errs = append(errs, errors.New("circuit breaker threshold must be positive"))
	}

	if c.Output.ReportsDir == "" {
		errs = append(errs, errors.New("reports directory is required"))
	}
	if c.Output.BackupsDir == "" {
		errs = append(errs, errors.New("backups directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
