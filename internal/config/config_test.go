package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "zerodha-allocator/internal/errors"
	"zerodha-allocator/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
}

func TestLoad_CreatesTemplateWhenMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "created template")
	assert.FileExists(t, filepath.Join(dir, "config.toml"))

	// The template itself must load cleanly.
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, string(models.WeightDriven), cfg.Allocation.DefaultMode)
	assert.True(t, cfg.Allocation.OptimizeWithRemainingFunds)
	assert.Equal(t, filepath.Join(dir, "allocator.db"), cfg.Store.Path)
	assert.Equal(t, filepath.Join(dir, "logs", "allocator.log"), cfg.Logging.FilePath)
}

func TestLoad_ReadsValuesAndCredentials(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", `
[allocation]
default_mode = "amount"
min_qty_per_row = 2
require_weights_sum_to_100 = true
optimize_with_remaining_funds = false

[prices]
source = "kite"
`)
	writeFile(t, dir, "credentials.toml", `
[zerodha]
api_key = "key"
access_token = "token"
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "amount", cfg.Allocation.DefaultMode)
	assert.Equal(t, PriceSourceKite, cfg.Prices.Source)
	assert.True(t, cfg.HasKiteCredentials())
	assert.Equal(t, models.AllocationOptions{
		RequireWeightsSumTo100: true,
		MinQtyPerRow:           2,
	}, cfg.AllocationOptions())
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.toml", "[prices]\nsource = \"static\"\n")
	t.Setenv("ALLOCATOR_PRICE_SOURCE", "kite")
	t.Setenv("ZERODHA_API_KEY", "env-key")
	t.Setenv("ZERODHA_ACCESS_TOKEN", "env-token")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, PriceSourceKite, cfg.Prices.Source)
	assert.Equal(t, "env-key", cfg.Credentials.Zerodha.APIKey)
	assert.Equal(t, "env-token", cfg.Credentials.Zerodha.AccessToken)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"mode":     func(c *Config) { c.Allocation.DefaultMode = "percent" },
		"decimals": func(c *Config) { c.Allocation.Decimals = -1 },
		"min qty":  func(c *Config) { c.Allocation.MinQtyPerRow = -3 },
		"source":   func(c *Config) { c.Prices.Source = "yahoo" },
		"store":    func(c *Config) { c.Store.Path = "" },
	}
	for name, mutate := range cases {
		cfg := Default(t.TempDir())
		mutate(cfg)
		err := cfg.Validate()
		assert.ErrorIs(t, err, apperrors.ErrConfigInvalid, name)
	}

	assert.NoError(t, Default(t.TempDir()).Validate())
}

func TestWriteCredentialsTemplate(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteCredentialsTemplate(dir)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
