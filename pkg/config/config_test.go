package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://assets.terra.money/station/chains.json", cfg.Directory.URL)
	assert.Equal(t, "mainnet", cfg.Directory.Network)
	assert.Equal(t, []string{"https://osmosis.feather.network"}, cfg.Directory.OffsetLCDs)
	assert.Equal(t, 100, cfg.Harvest.PageSize)
	assert.Equal(t, 0, cfg.Harvest.MaxPages)
	assert.Equal(t, "https://keybase.io/_/api/1.0", cfg.Keybase.BaseURL)
	assert.Equal(t, 2, cfg.Download.Concurrency)
	assert.Equal(t, "images", cfg.Download.OutputDirectory)
	assert.Equal(t, 2*time.Minute, cfg.Download.TaskTimeout)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VALAVATAR_DIRECTORY_URL", "https://example.com/chains.json")
	t.Setenv("VALAVATAR_NETWORK", "testnet")
	t.Setenv("VALAVATAR_SKIP_CHAINS", "pisco-1, ,localterra")
	t.Setenv("VALAVATAR_PAGE_SIZE", "50")
	t.Setenv("VALAVATAR_CONCURRENCY", "4")
	t.Setenv("VALAVATAR_OUTPUT_DIR", "/tmp/avatars")
	t.Setenv("VALAVATAR_TASK_TIMEOUT", "45s")
	t.Setenv("VALAVATAR_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "https://example.com/chains.json", cfg.Directory.URL)
	assert.Equal(t, "testnet", cfg.Directory.Network)
	assert.Equal(t, []string{"pisco-1", "localterra"}, cfg.Directory.SkipChains)
	assert.Equal(t, 50, cfg.Harvest.PageSize)
	assert.Equal(t, 4, cfg.Download.Concurrency)
	assert.Equal(t, "/tmp/avatars", cfg.Download.OutputDirectory)
	assert.Equal(t, 45*time.Second, cfg.Download.TaskTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvInvalidInt(t *testing.T) {
	t.Setenv("VALAVATAR_CONCURRENCY", "many")

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALAVATAR_CONCURRENCY")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing directory url",
			mutate:  func(c *Config) { c.Directory.URL = "" },
			wantErr: "Directory.URL is required",
		},
		{
			name:    "relative keybase url",
			mutate:  func(c *Config) { c.Keybase.BaseURL = "keybase.io" },
			wantErr: "Keybase.BaseURL must be an absolute URL",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Download.Concurrency = 0 },
			wantErr: "Download.Concurrency",
		},
		{
			name:    "page size too large",
			mutate:  func(c *Config) { c.Harvest.PageSize = 5000 },
			wantErr: "Harvest.PageSize",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "Logging.Level must be one of",
		},
		{
			name:    "invalid offset lcd",
			mutate:  func(c *Config) { c.Directory.OffsetLCDs = []string{"not a url"} },
			wantErr: "Directory.OffsetLCDs[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Directory.Network = ""
	cfg.Download.OutputDirectory = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Directory.Network is required")
	assert.Contains(t, err.Error(), "Download.OutputDirectory is required")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()

	cfg.MergeCommandLineFlags(map[string]interface{}{
		"skip-chain":  []string{"columbus-5"},
		"offset-lcd":  []string{"https://lcd.example.com"},
		"page-size":   25,
		"concurrency": 6,
		"output":      "/flag/output",
		"log-level":   "error",
	})

	assert.Equal(t, []string{"columbus-5"}, cfg.Directory.SkipChains)
	assert.Equal(t, []string{"https://osmosis.feather.network", "https://lcd.example.com"}, cfg.Directory.OffsetLCDs)
	assert.Equal(t, 25, cfg.Harvest.PageSize)
	assert.Equal(t, 6, cfg.Download.Concurrency)
	assert.Equal(t, "/flag/output", cfg.Download.OutputDirectory)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Directory.SkipChains = []string{"phoenix-1"}
	cfg.Download.Concurrency = 5
	cfg.Download.TaskTimeout = 90 * time.Second
	require.NoError(t, cfg.Save(configPath))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))

	assert.Equal(t, []string{"phoenix-1"}, loaded.Directory.SkipChains)
	assert.Equal(t, 5, loaded.Download.Concurrency)
	assert.Equal(t, 90*time.Second, loaded.Download.TaskTimeout)
}

func TestLoadFromFileErrors(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("download: [unclosed"), 0644))
	err = cfg.LoadFromFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	yamlBody := "download:\n  concurrency: 3\n  output_directory: from-file\n"
	require.NoError(t, os.WriteFile(configPath, []byte(yamlBody), 0644))

	t.Setenv("VALAVATAR_OUTPUT_DIR", "from-env")

	cfg, err := Load(configPath, map[string]interface{}{"concurrency": 7})
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Download.Concurrency)
	assert.Equal(t, "from-env", cfg.Download.OutputDirectory)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("VALAVATAR_CONCURRENCY", "0")
	t.Setenv("VALAVATAR_LOG_LEVEL", "loud")

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
