package config

// Config represents the complete pymap configuration.
// It can be loaded from .pymap/config.yml with environment variable overrides.
type Config struct {
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
}

// PathsConfig defines which files to extract and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// ExtractConfig bounds the per-unit extraction work.
type ExtractConfig struct {
	Budget  int `yaml:"budget" mapstructure:"budget"`   // max cooperative steps per unit, 0 = unlimited
	Workers int `yaml:"workers" mapstructure:"workers"` // concurrent units, 0 = NumCPU
}

// CacheConfig controls the in-process result cache keyed by file content.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled" mapstructure:"enabled"`
	Capacity int  `yaml:"capacity" mapstructure:"capacity"` // max cached results
}

// WatchConfig controls watch-mode re-extraction.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"` // quiet period before re-running
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Include: []string{
				"**/*.py",
				"**/*.pyi",
			},
			Ignore: []string{
				"__pycache__/**",
				".git/**",
				".venv/**",
				"venv/**",
				"node_modules/**",
				"build/**",
				"dist/**",
				"*.pyc",
			},
		},
		Extract: ExtractConfig{
			Budget:  200_000,
			Workers: 0,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Capacity: 4096,
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
	}
}

// SourceExtensions extracts unique file extensions from the include
// patterns, with the leading dot (e.g. []string{".py", ".pyi"}).
func (c *Config) SourceExtensions() []string {
	seen := make(map[string]bool)
	var exts []string
	for _, pattern := range c.Paths.Include {
		ext := extractExtension(pattern)
		if ext != "" && !seen[ext] {
			seen[ext] = true
			exts = append(exts, ext)
		}
	}
	return exts
}

// extractExtension pulls the trailing *.ext out of a glob pattern.
// Examples: "**/*.py" -> ".py", "*.pyi" -> ".pyi". Returns "" when the
// pattern does not end in a simple extension.
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
