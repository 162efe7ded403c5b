package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for configuration loading and validation:
// - Defaults are valid and include Python source patterns
// - Missing config file falls back to defaults
// - Config file values override defaults
// - Environment variables override the config file
// - Malformed YAML fails loading
// - Validation rejects empty includes, bad globs, negative budget,
//   negative workers, zero cache capacity, negative debounce
// - Multiple validation failures are joined into one error
// - SourceExtensions derives extensions from include patterns

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Contains(t, cfg.Paths.Include, "**/*.py")
	assert.Contains(t, cfg.Paths.Include, "**/*.pyi")
	assert.Contains(t, cfg.Paths.Ignore, "__pycache__/**")
	assert.True(t, cfg.Cache.Enabled)
	assert.Positive(t, cfg.Extract.Budget)
	assert.Positive(t, cfg.Watch.DebounceMs)
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromDir(t.TempDir())
	require.NoError(t, err)

	defaults := Default()
	assert.Equal(t, defaults.Paths.Include, cfg.Paths.Include)
	assert.Equal(t, defaults.Extract.Budget, cfg.Extract.Budget)
	assert.Equal(t, defaults.Cache.Capacity, cfg.Cache.Capacity)
}

func TestLoad_ConfigFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, `
paths:
  include:
    - "src/**/*.py"
extract:
  budget: 1000
  workers: 2
cache:
  enabled: false
watch:
  debounce_ms: 250
`)

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"src/**/*.py"}, cfg.Paths.Include)
	assert.Equal(t, 1000, cfg.Extract.Budget)
	assert.Equal(t, 2, cfg.Extract.Workers)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 250, cfg.Watch.DebounceMs)

	// Untouched sections keep their defaults.
	assert.Equal(t, Default().Paths.Ignore, cfg.Paths.Ignore)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "extract:\n  budget: 1000\n")

	t.Setenv("PYMAP_EXTRACT_BUDGET", "77")
	t.Setenv("PYMAP_EXTRACT_WORKERS", "3")

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 77, cfg.Extract.Budget)
	assert.Equal(t, 3, cfg.Extract.Workers)
}

func TestLoad_MalformedYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "paths: [not: valid: yaml\n")

	_, err := LoadConfigFromDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate_EmptyIncludes(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Paths.Include = nil

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoIncludePatterns)
}

func TestValidate_BadGlob(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Paths.Include = append(cfg.Paths.Include, "[unclosed")

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestValidate_BoundsChecks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"negative budget", func(c *Config) { c.Extract.Budget = -1 }, ErrInvalidBudget},
		{"negative workers", func(c *Config) { c.Extract.Workers = -4 }, ErrInvalidWorkers},
		{"zero cache capacity", func(c *Config) { c.Cache.Capacity = 0 }, ErrInvalidCacheCapacity},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -100 }, ErrInvalidDebounce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tt.want)
		})
	}
}

func TestValidate_CacheCapacityIgnoredWhenDisabled(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Cache.Enabled = false
	cfg.Cache.Capacity = 0
	assert.NoError(t, Validate(cfg))
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Extract.Budget = -1
	cfg.Watch.DebounceMs = -1

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid extraction budget")
	assert.Contains(t, err.Error(), "invalid watch debounce")
}

func TestSourceExtensions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, []string{".py", ".pyi"}, cfg.SourceExtensions())

	cfg.Paths.Include = []string{"**/*.py", "src/*.py", "docs/**"}
	assert.Equal(t, []string{".py"}, cfg.SourceExtensions())
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, ".pymap")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yml"), []byte(content), 0o644))
}
