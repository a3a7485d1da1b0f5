// Package config handles loading and validating configuration from a YAML
// file, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPathEnv names the environment variable holding the YAML config path.
const ConfigPathEnv = "FUSION_CONFIG"

// Config holds all configuration values for the FUSION dashboard.
type Config struct {
	// Event stream
	WSURL string

	// Optional REST base URL for the bootstrap document
	RESTURL string

	// Feeds
	FeedCapacity int

	// Reconnect backoff
	RetryBase   time.Duration
	RetryMax    time.Duration
	RetryJitter float64

	// Parameters coerced to numbers
	NumericParameters []string

	// UI
	EnableTUI     bool
	UIRefreshRate time.Duration

	// Status server; empty disables it
	HTTPAddr string

	// Logging
	LogLevel string
	LogFile  string
}

// ConfigurationError reports an invalid setting. It is fatal at startup.
type ConfigurationError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("invalid configuration %s=%q: %s", e.Key, e.Value, e.Reason)
}

// fileConfig mirrors Config for the YAML overlay. Unset keys keep their defaults.
type fileConfig struct {
	WSURL             *string  `yaml:"ws_url"`
	RESTURL           *string  `yaml:"rest_url"`
	FeedCapacity      *int     `yaml:"feed_capacity"`
	RetryBaseMS       *int     `yaml:"retry_base_ms"`
	RetryMaxMS        *int     `yaml:"retry_max_ms"`
	RetryJitter       *float64 `yaml:"retry_jitter"`
	NumericParameters []string `yaml:"numeric_parameters"`
	EnableTUI         *bool    `yaml:"enable_tui"`
	UIRefreshMS       *int     `yaml:"ui_refresh_ms"`
	HTTPAddr          *string  `yaml:"http_addr"`
	LogLevel          *string  `yaml:"log_level"`
	LogFile           *string  `yaml:"log_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WSURL:             "ws://localhost:8080/ws/events",
		RESTURL:           "",
		FeedCapacity:      100,
		RetryBase:         1000 * time.Millisecond,
		RetryMax:          30000 * time.Millisecond,
		RetryJitter:       0.2,
		NumericParameters: []string{"slippage_tolerance", "risk_level", "gas_price", "profit_threshold"},
		EnableTUI:         true,
		UIRefreshRate:     500 * time.Millisecond,
		HTTPAddr:          "127.0.0.1:8090",
		LogLevel:          "INFO",
		LogFile:           "fusion.log",
	}
}

// Load builds the configuration.
// Priority order: environment variables > .env file > YAML file > defaults.
// path names the YAML file; when empty FUSION_CONFIG is consulted, and when
// that is empty too no file is read.
func Load(path string) (*Config, error) {
	cfg := Default()

	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	env := &envLoader{}
	cfg.WSURL = env.getEnv("FUSION_WS_URL", cfg.WSURL)
	cfg.RESTURL = env.getEnv("FUSION_REST_URL", cfg.RESTURL)
	cfg.FeedCapacity = env.getEnvInt("FEED_CAPACITY", cfg.FeedCapacity)
	cfg.RetryBase = env.getEnvMillis("RETRY_BASE_MS", cfg.RetryBase)
	cfg.RetryMax = env.getEnvMillis("RETRY_MAX_MS", cfg.RetryMax)
	cfg.RetryJitter = env.getEnvFloat("RETRY_JITTER", cfg.RetryJitter)
	cfg.NumericParameters = env.getEnvAsSlice("NUMERIC_PARAMETERS", cfg.NumericParameters, ",")
	cfg.EnableTUI = env.getEnvBool("ENABLE_TUI", cfg.EnableTUI)
	cfg.UIRefreshRate = env.getEnvMillis("UI_REFRESH_MS", cfg.UIRefreshRate)
	cfg.HTTPAddr = env.getEnvAllowEmpty("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = env.getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = env.getEnv("LOG_FILE", cfg.LogFile)
	if env.err != nil {
		return nil, env.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return &ConfigurationError{Key: path, Reason: fmt.Sprintf("invalid YAML: %v", err)}
	}

	if fc.WSURL != nil {
		c.WSURL = *fc.WSURL
	}
	if fc.RESTURL != nil {
		c.RESTURL = *fc.RESTURL
	}
	if fc.FeedCapacity != nil {
		c.FeedCapacity = *fc.FeedCapacity
	}
	if fc.RetryBaseMS != nil {
		c.RetryBase = time.Duration(*fc.RetryBaseMS) * time.Millisecond
	}
	if fc.RetryMaxMS != nil {
		c.RetryMax = time.Duration(*fc.RetryMaxMS) * time.Millisecond
	}
	if fc.RetryJitter != nil {
		c.RetryJitter = *fc.RetryJitter
	}
	if fc.NumericParameters != nil {
		c.NumericParameters = fc.NumericParameters
	}
	if fc.EnableTUI != nil {
		c.EnableTUI = *fc.EnableTUI
	}
	if fc.UIRefreshMS != nil {
		c.UIRefreshRate = time.Duration(*fc.UIRefreshMS) * time.Millisecond
	}
	if fc.HTTPAddr != nil {
		c.HTTPAddr = *fc.HTTPAddr
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}
	if fc.LogFile != nil {
		c.LogFile = *fc.LogFile
	}
	return nil
}

// Validate checks that configuration values are set and valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.WSURL)
	if err != nil || u.Host == "" {
		return &ConfigurationError{Key: "FUSION_WS_URL", Value: c.WSURL, Reason: "not a valid URL"}
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return &ConfigurationError{Key: "FUSION_WS_URL", Value: c.WSURL, Reason: "scheme must be ws or wss"}
	}

	if c.RESTURL != "" {
		u, err := url.Parse(c.RESTURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return &ConfigurationError{Key: "FUSION_REST_URL", Value: c.RESTURL, Reason: "must be an http or https URL"}
		}
	}

	if c.FeedCapacity < 1 {
		return &ConfigurationError{Key: "FEED_CAPACITY", Value: strconv.Itoa(c.FeedCapacity), Reason: "must be at least 1"}
	}

	if c.RetryBase <= 0 {
		return &ConfigurationError{Key: "RETRY_BASE_MS", Value: msString(c.RetryBase), Reason: "must be positive"}
	}

	if c.RetryMax < c.RetryBase {
		return &ConfigurationError{Key: "RETRY_MAX_MS", Value: msString(c.RetryMax), Reason: "must not be below RETRY_BASE_MS"}
	}

	if math.IsNaN(c.RetryJitter) || c.RetryJitter < 0 || c.RetryJitter > 1 {
		return &ConfigurationError{Key: "RETRY_JITTER", Value: strconv.FormatFloat(c.RetryJitter, 'f', -1, 64), Reason: "must be between 0 and 1"}
	}

	if c.UIRefreshRate <= 0 {
		return &ConfigurationError{Key: "UI_REFRESH_MS", Value: msString(c.UIRefreshRate), Reason: "must be positive"}
	}

	if c.HTTPAddr != "" {
		if _, _, err := net.SplitHostPort(c.HTTPAddr); err != nil {
			return &ConfigurationError{Key: "HTTP_ADDR", Value: c.HTTPAddr, Reason: "must be host:port"}
		}
	}

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return &ConfigurationError{Key: "LOG_LEVEL", Value: c.LogLevel, Reason: "must be DEBUG, INFO, WARN or ERROR"}
	}

	return nil
}

// IsConfigurationError reports whether err carries a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

func msString(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

// envLoader reads typed environment variables and keeps the first parse error.
type envLoader struct {
	err error
}

func (l *envLoader) fail(key, value, reason string) {
	if l.err == nil {
		l.err = &ConfigurationError{Key: key, Value: value, Reason: reason}
	}
}

// getEnv retrieves an environment variable or returns a default value.
func (l *envLoader) getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty is getEnv, but a variable set to "" overrides the default.
func (l *envLoader) getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func (l *envLoader) getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			l.fail(key, value, "must be an integer")
			return defaultValue
		}
		return intVal
	}
	return defaultValue
}

// getEnvMillis retrieves an environment variable in milliseconds as a duration.
func (l *envLoader) getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	ms := l.getEnvInt(key, int(defaultValue.Milliseconds()))
	return time.Duration(ms) * time.Millisecond
}

// getEnvFloat retrieves an environment variable as a float64 or returns a default.
func (l *envLoader) getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		floatVal, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			l.fail(key, value, "must be a number")
			return defaultValue
		}
		return floatVal
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func (l *envLoader) getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			l.fail(key, value, "must be a boolean")
			return defaultValue
		}
		return boolVal
	}
	return defaultValue
}

// getEnvAsSlice splits a separated environment variable, trimming blanks.
func (l *envLoader) getEnvAsSlice(key string, defaultValue []string, sep string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
