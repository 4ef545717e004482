// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/pixivfe/markerscan/core/extract"
)

/*
LoadConfig mutates the process environment and the global logger, so the
tests below that call it do not run in parallel.
*/

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefaultsAreValid(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.SetDefaults()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{".js"}, cfg.Scan.Extensions)
	assert.Positive(t, cfg.Scan.Workers)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, errInvalidLogLevel},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, errInvalidLogFormat},
		{"bad output format", func(c *Config) { c.Scan.Format = "po" }, errInvalidFormat},
		{"zero workers", func(c *Config) { c.Scan.Workers = 0 }, errInvalidWorkers},
		{"zero cache size", func(c *Config) { c.Cache.Size = 0 }, errInvalidCacheSize},
		{"no extensions", func(c *Config) { c.Scan.Extensions = nil }, errNoExtensions},
		{"bad extension", func(c *Config) { c.Scan.Extensions = []string{"j s"} }, errInvalidExtension},
		{"empty exclude", func(c *Config) { c.Scan.Exclude = []string{"vendor", " "} }, errEmptyExcludeEntry},
		{"disabled cache ignores size", func(c *Config) {
			c.Cache.Enabled = false
			c.Cache.Size = 0
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{}
			cfg.SetDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.want == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateNormalizesExtensions(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.SetDefaults()
	cfg.Scan.Extensions = []string{"JS", ".mjs", " .js "}

	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{".js", ".mjs"}, cfg.Scan.Extensions)
}

// TestLoadConfigPrecedence checks defaults < YAML < environment < overrides.
func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", `
scan:
  workers: 2
  exclude: [vendor]
  format: text
cache:
  size: 16
log:
  level: warn
`)

	t.Setenv("MARKERSCAN_SCAN_WORKERS", "6")
	t.Setenv("MARKERSCAN_SCAN_EXTENSIONS", "js,ts")

	cfg := &Config{}
	err := cfg.LoadConfig(path, func(c *Config) { c.Scan.Strict = true })
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Scan.Workers, "environment beats the file")
	assert.Equal(t, []string{".js", ".ts"}, cfg.Scan.Extensions)
	assert.Equal(t, []string{"vendor"}, cfg.Scan.Exclude, "file beats defaults")
	assert.Equal(t, FormatText, cfg.Scan.Format)
	assert.Equal(t, 16, cfg.Cache.Size)
	assert.True(t, cfg.Cache.Compress, "untouched defaults survive")
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Scan.Strict, "overrides apply last")
}

func TestLoadConfigFileSelection(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	// ./markerscan.yml is the fallback when ./markerscan.yaml is absent.
	writeFile(t, dir, "markerscan.yml", "scan:\n  workers: 3\n")

	cfg := &Config{}
	require.NoError(t, cfg.LoadConfig(""))
	assert.Equal(t, 3, cfg.Scan.Workers)

	// The environment variable names a file when the flag is not given.
	envPath := writeFile(t, dir, "from-env.yaml", "scan:\n  workers: 4\n")
	t.Setenv(configFileEnv, envPath)

	cfg = &Config{}
	require.NoError(t, cfg.LoadConfig(""))
	assert.Equal(t, 4, cfg.Scan.Workers)

	// The flag wins over both.
	flagPath := writeFile(t, dir, "from-flag.yaml", "scan:\n  workers: 5\n")

	cfg = &Config{}
	require.NoError(t, cfg.LoadConfig(flagPath))
	assert.Equal(t, 5, cfg.Scan.Workers)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"missing explicit file", filepath.Join(dir, "missing.yaml")},
		{"unknown field", writeFile(t, dir, "unknown.yaml", "scan:\n  threads: 2\n")},
		{"invalid value", writeFile(t, dir, "invalid.yaml", "log:\n  level: loud\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			require.Error(t, cfg.LoadConfig(tt.path))
		})
	}

	t.Run("malformed environment", func(t *testing.T) {
		t.Setenv("MARKERSCAN_SCAN_WORKERS", "many")

		cfg := &Config{}
		require.Error(t, cfg.LoadConfig(writeFile(t, dir, "valid.yaml", "scan:\n  workers: 2\n")))
	})
}

func TestDotEnvNeverOverridesEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	writeFile(t, dir, ".env", "MARKERSCAN_LOG_LEVEL=debug\nMARKERSCAN_CACHE_SIZE=7\n")
	t.Setenv("MARKERSCAN_LOG_LEVEL", "error")
	t.Cleanup(func() { os.Unsetenv("MARKERSCAN_CACHE_SIZE") })

	cfg := &Config{}
	require.NoError(t, cfg.LoadConfig(""))

	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Cache.Size)
}

func TestMarkers(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.SetDefaults()

	markers, err := cfg.Markers()
	require.NoError(t, err)
	assert.Equal(t, extract.DefaultMarkers().Fingerprint(), markers.Fingerprint())

	cfg.Scan.MarkersFile = writeFile(t, t.TempDir(), "markers.yaml",
		"markers:\n  - name: t\n    kind: singular\n    args: [string]\n")

	markers, err = cfg.Markers()
	require.NoError(t, err)
	assert.Equal(t, 1, markers.Len())

	cfg.Scan.MarkersFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.Markers()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCollectorOptions(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.SetDefaults()
	cfg.Scan.Workers = 3

	opts, err := cfg.CollectorOptions()
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Workers)
	assert.NotNil(t, opts.Cache)

	cfg.Cache.Enabled = false

	opts, err = cfg.CollectorOptions()
	require.NoError(t, err)
	assert.Nil(t, opts.Cache)
}

func TestYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cfg.SetDefaults()

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "markersFile:")
	assert.NotContains(t, string(out), "VcsRevision")

	dir := t.TempDir()
	path := writeFile(t, dir, "round.yaml", string(out))

	loaded := &Config{}
	require.NoError(t, loaded.readYAML(path, true))
	assert.Equal(t, cfg.Scan, loaded.Scan)
	assert.Equal(t, cfg.Cache, loaded.Cache)
}
