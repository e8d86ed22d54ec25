package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the profile watcher.
type Config struct {
	// Profiles to watch and how often
	Watch WatchConfig `yaml:"watch" json:"watch"`

	// Fetch engine selection and timeouts
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Browser binary locations for the browser engine
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Optional Instagram session for profiles behind a login wall
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Output paths (CSV log, pictures directory, state file)
	Output OutputConfig `yaml:"output" json:"output"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry behaviour for fetches and downloads
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// WatchConfig lists the profiles to observe.
type WatchConfig struct {
	Usernames []string      `yaml:"usernames" json:"usernames"`
	Interval  time.Duration `yaml:"interval" json:"interval"`
	Workers   int           `yaml:"workers" json:"workers"`
}

// Fetch engine names accepted by FetchConfig.Engine.
const (
	EngineAuto    = "auto"
	EngineAPI     = "api"
	EngineBrowser = "browser"
)

// FetchConfig selects how profile snapshots are obtained.
type FetchConfig struct {
	Engine  string        `yaml:"engine" json:"engine"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// BrowserConfig holds browser binary locations. ChromeDriverPath is
// accepted for compatibility with CI workflows that provision a WebDriver
// binary; the browser engine speaks the DevTools protocol directly and
// never execs it.
type BrowserConfig struct {
	ChromePath       string `yaml:"chrome_path" json:"chrome_path"`
	ChromeDriverPath string `yaml:"chromedriver_path" json:"chromedriver_path"`
	UserAgent        string `yaml:"user_agent" json:"user_agent"`
	Headless         bool   `yaml:"headless" json:"headless"`
}

// InstagramConfig holds optional session credentials and the API user agent.
type InstagramConfig struct {
	SessionID string `yaml:"session_id" json:"session_id"`
	CSRFToken string `yaml:"csrf_token" json:"csrf_token"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
}

// OutputConfig holds the artifact paths. The defaults are fixed by the
// scheduled-run orchestration and should not normally be changed.
type OutputConfig struct {
	LogFile       string `yaml:"log_file" json:"log_file"`
	PicsDirectory string `yaml:"pics_directory" json:"pics_directory"`
	StateFile     string `yaml:"state_file" json:"state_file"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig holds retry configuration for fetches and downloads.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Watch: WatchConfig{
			Interval: time.Hour,
			Workers:  2,
		},
		Fetch: FetchConfig{
			Engine:  EngineAuto,
			Timeout: 30 * time.Second,
		},
		Browser: BrowserConfig{
			UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) " +
				"AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
			Headless: true,
		},
		Instagram: InstagramConfig{
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		Output: OutputConfig{
			LogFile:       "profile_log.csv",
			PicsDirectory: "profile_pics",
			StateFile:     "last_pic_urls.json",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         5,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    60 * time.Second,
			Multiplier:  2.0,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	// Watched usernames: comma-separated list, or the single-profile
	// variable used by the original scheduled job.
	if usernames := os.Getenv("IGWATCHER_USERNAMES"); usernames != "" {
		c.Watch.Usernames = splitUsernames(usernames)
	} else if username := os.Getenv("IG_USERNAME"); username != "" {
		c.Watch.Usernames = []string{strings.TrimSpace(username)}
	}

	if interval := os.Getenv("IGWATCHER_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return fmt.Errorf("invalid IGWATCHER_INTERVAL: %w", err)
		}
		c.Watch.Interval = d
	}

	if engine := os.Getenv("IGWATCHER_ENGINE"); engine != "" {
		c.Fetch.Engine = strings.ToLower(engine)
	}

	// Browser paths as provided by the CI workflow (setup-chrome action).
	for _, name := range []string{"CHROME_PATH", "CHROME_BIN"} {
		if v := os.Getenv(name); v != "" {
			c.Browser.ChromePath = v
			break
		}
	}
	if v := os.Getenv("CHROMEDRIVER_PATH"); v != "" {
		c.Browser.ChromeDriverPath = v
	}

	// Session credentials
	if sessionID := os.Getenv("IGWATCHER_SESSION_ID"); sessionID != "" {
		c.Instagram.SessionID = sessionID
	}
	if csrfToken := os.Getenv("IGWATCHER_CSRF_TOKEN"); csrfToken != "" {
		c.Instagram.CSRFToken = csrfToken
	}
	if userAgent := os.Getenv("IGWATCHER_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}

	// Output paths
	if logFile := os.Getenv("IGWATCHER_LOG_FILE"); logFile != "" {
		c.Output.LogFile = logFile
	}
	if picsDir := os.Getenv("IGWATCHER_PICS_DIR"); picsDir != "" {
		c.Output.PicsDirectory = picsDir
	}
	if stateFile := os.Getenv("IGWATCHER_STATE_FILE"); stateFile != "" {
		c.Output.StateFile = stateFile
	}

	// Rate limiting
	if rpm := os.Getenv("IGWATCHER_REQUESTS_PER_MINUTE"); rpm != "" {
		val, err := strconv.Atoi(rpm)
		if err != nil {
			return fmt.Errorf("invalid IGWATCHER_REQUESTS_PER_MINUTE: %w", err)
		}
		if val > 0 {
			c.RateLimit.RequestsPerMinute = val
		}
	}

	// Logging level
	if logLevel := os.Getenv("IGWATCHER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

func splitUsernames(s string) []string {
	parts := strings.Split(s, ",")
	usernames := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			usernames = append(usernames, p)
		}
	}
	return usernames
}

// LoadFromFile loads configuration from a YAML file.
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

// findConfigFile searches for config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".igwatcher.yaml",
		".igwatcher.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "igwatcher", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "igwatcher", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".igwatcher.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. All problems are
// collected so a misconfigured scheduled run fails with one complete
// report instead of one error per run.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Watch.Usernames) == 0 {
		errs = append(errs, errors.New("at least one username to watch is required"))
	}
	if c.Watch.Interval <= 0 {
		errs = append(errs, errors.New("watch interval must be positive"))
	}
	if c.Watch.Workers <= 0 {
		errs = append(errs, errors.New("worker count must be positive"))
	}
	if c.Watch.Workers > 10 {
		errs = append(errs, errors.New("worker count should not exceed 10"))
	}

	switch c.Fetch.Engine {
	case EngineAuto, EngineAPI, EngineBrowser:
	default:
		errs = append(errs, fmt.Errorf("unknown fetch engine %q", c.Fetch.Engine))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}

	if c.Output.LogFile == "" {
		errs = append(errs, errors.New("log file path is required"))
	}
	if c.Output.PicsDirectory == "" {
		errs = append(errs, errors.New("pictures directory is required"))
	}
	if c.Output.StateFile == "" {
		errs = append(errs, errors.New("state file path is required"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
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

// Save saves the configuration to a file.
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

// MergeCommandLineFlags merges command line flags into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if usernames, ok := flags["usernames"].([]string); ok && len(usernames) > 0 {
		c.Watch.Usernames = usernames
	}
	if interval, ok := flags["interval"].(time.Duration); ok && interval > 0 {
		c.Watch.Interval = interval
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Watch.Workers = workers
	}
	if engine, ok := flags["engine"].(string); ok && engine != "" {
		c.Fetch.Engine = engine
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Output.LogFile = logFile
	}
	if picsDir, ok := flags["pics-dir"].(string); ok && picsDir != "" {
		c.Output.PicsDirectory = picsDir
	}
	if stateFile, ok := flags["state-file"].(string); ok && stateFile != "" {
		c.Output.StateFile = stateFile
	}
	if rpm, ok := flags["rate-limit"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries >= 0 {
		c.Retry.MaxAttempts = maxRetries
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".igwatcher.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
