package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for valavatar
type Config struct {
	// Where the list of chain LCD endpoints comes from
	Directory DirectoryConfig `yaml:"directory" json:"directory"`

	// Validator listing pagination
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// Keybase identity lookups
	Keybase KeybaseConfig `yaml:"keybase" json:"keybase"`

	// Avatar downloads
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DirectoryConfig describes the remote chain directory and per-endpoint overrides
type DirectoryConfig struct {
	URL     string `yaml:"url" json:"url" validate:"required,url"`
	Network string `yaml:"network" json:"network" validate:"required"`
	// SkipChains lists chain IDs excluded before any walk begins
	SkipChains []string `yaml:"skip_chains" json:"skip_chains"`
	// OffsetLCDs and OffsetChains select the offset pagination dialect
	OffsetLCDs   []string      `yaml:"offset_lcds" json:"offset_lcds" validate:"dive,url"`
	OffsetChains []string      `yaml:"offset_chains" json:"offset_chains"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
}

// HarvestConfig holds validator listing configuration
type HarvestConfig struct {
	PageSize       int           `yaml:"page_size" json:"page_size" validate:"min=1,max=1000"`
	MaxPages       int           `yaml:"max_pages" json:"max_pages" validate:"min=0"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout" validate:"gt=0"`
}

// KeybaseConfig holds identity lookup configuration
type KeybaseConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url" validate:"required,url"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute" validate:"min=0"`
	Burst             int           `yaml:"burst" json:"burst" validate:"min=1"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout" validate:"gt=0"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Concurrency     int           `yaml:"concurrency" json:"concurrency" validate:"min=1,max=32"`
	OutputDirectory string        `yaml:"output_directory" json:"output_directory" validate:"required"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
	// TaskTimeout bounds one resolve+download task; zero disables it
	TaskTimeout time.Duration `yaml:"task_timeout" json:"task_timeout" validate:"min=0"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Directory: DirectoryConfig{
			URL:        "https://assets.terra.money/station/chains.json",
			Network:    "mainnet",
			SkipChains: []string{},
			OffsetLCDs: []string{"https://osmosis.feather.network"},
			Timeout:    30 * time.Second,
		},
		Harvest: HarvestConfig{
			PageSize:       100,
			MaxPages:       0, // 0 means no cap
			RequestTimeout: 30 * time.Second,
		},
		Keybase: KeybaseConfig{
			BaseURL:           "https://keybase.io/_/api/1.0",
			RequestsPerMinute: 60,
			Burst:             1,
			RequestTimeout:    30 * time.Second,
		},
		Download: DownloadConfig{
			Concurrency:     2,
			OutputDirectory: "images",
			Timeout:         60 * time.Second,
			TaskTimeout:     2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("VALAVATAR_DIRECTORY_URL"); v != "" {
		c.Directory.URL = v
	}
	if v := os.Getenv("VALAVATAR_NETWORK"); v != "" {
		c.Directory.Network = v
	}
	if v := os.Getenv("VALAVATAR_SKIP_CHAINS"); v != "" {
		c.Directory.SkipChains = splitList(v)
	}
	if v := os.Getenv("VALAVATAR_OFFSET_LCDS"); v != "" {
		c.Directory.OffsetLCDs = splitList(v)
	}
	if v := os.Getenv("VALAVATAR_KEYBASE_URL"); v != "" {
		c.Keybase.BaseURL = v
	}
	if v := os.Getenv("VALAVATAR_OUTPUT_DIR"); v != "" {
		c.Download.OutputDirectory = v
	}
	if v := os.Getenv("VALAVATAR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"VALAVATAR_PAGE_SIZE", &c.Harvest.PageSize},
		{"VALAVATAR_MAX_PAGES", &c.Harvest.MaxPages},
		{"VALAVATAR_CONCURRENCY", &c.Download.Concurrency},
		{"VALAVATAR_KEYBASE_RPM", &c.Keybase.RequestsPerMinute},
	}
	for _, e := range ints {
		raw := os.Getenv(e.key)
		if raw == "" {
			continue
		}
		val, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", e.key, err)
		}
		*e.dst = val
	}

	if v := os.Getenv("VALAVATAR_TASK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid value for VALAVATAR_TASK_TIMEOUT: %w", err)
		}
		c.Download.TaskTimeout = d
	}

	return nil
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
	home := os.Getenv("HOME")
	locations := []string{
		".valavatar.yaml",
		".valavatar.yml",
		filepath.Join(home, ".config", "valavatar", "config.yaml"),
		filepath.Join(home, ".config", "valavatar", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fieldError(fe))
	}
	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	name := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", name)
	case "url":
		return fmt.Errorf("%s must be an absolute URL, got %q", name, fe.Value())
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	case "min", "max", "gt":
		return fmt.Errorf("%s must satisfy %s=%s, got %v", name, fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Errorf("%s failed %s validation", name, fe.Tag())
	}
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

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Keys match the long flag names of the run command.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["directory-url"].(string); ok && v != "" {
		c.Directory.URL = v
	}
	if v, ok := flags["network"].(string); ok && v != "" {
		c.Directory.Network = v
	}
	if v, ok := flags["skip-chain"].([]string); ok && len(v) > 0 {
		c.Directory.SkipChains = append(c.Directory.SkipChains, v...)
	}
	if v, ok := flags["offset-lcd"].([]string); ok && len(v) > 0 {
		c.Directory.OffsetLCDs = append(c.Directory.OffsetLCDs, v...)
	}
	if v, ok := flags["page-size"].(int); ok && v > 0 {
		c.Harvest.PageSize = v
	}
	if v, ok := flags["concurrency"].(int); ok && v > 0 {
		c.Download.Concurrency = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Download.OutputDirectory = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".valavatar.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
