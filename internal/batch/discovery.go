// Package batch drives extraction across many source files: glob-based
// discovery, a bounded worker pool, and a content-keyed result cache.
// The extraction core stays free of filesystem access; everything that
// touches disk lives here.
package batch

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob.
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Discovery finds source files under a root using include and ignore
// glob patterns.
type Discovery struct {
	rootDir         string
	includePatterns []compiledPattern
	ignorePatterns  []compiledPattern
}

// NewDiscovery compiles the pattern lists for the given root directory.
func NewDiscovery(rootDir string, include, ignore []string) (*Discovery, error) {
	d := &Discovery{rootDir: rootDir}

	for _, pattern := range include {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		d.includePatterns = append(d.includePatterns, compiledPattern{pattern: pattern, glob: g})
	}
	for _, pattern := range ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		d.ignorePatterns = append(d.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	return d, nil
}

// Discover walks the root and returns matching files in deterministic
// (sorted) order, so batch output is stable run to run.
func (d *Discovery) Discover() ([]string, error) {
	files := []string{}

	err := filepath.Walk(d.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, relErr := filepath.Rel(d.rootDir, path)
		if relErr != nil {
			return relErr
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			// Prune ignored directory subtrees entirely.
			if relPath != "." && d.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.shouldIgnore(relPath) {
			return nil
		}
		if matchesAny(relPath, d.includePatterns) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// shouldIgnore checks a relative path against the ignore patterns. A
// directory also matches patterns written with a /** suffix, so
// "__pycache__" is pruned by the pattern "__pycache__/**".
func (d *Discovery) shouldIgnore(relPath string) bool {
	if strings.HasPrefix(relPath, ".pymap/") || relPath == ".pymap" {
		return true
	}
	if matchesAny(relPath, d.ignorePatterns) {
		return true
	}
	return matchesAny(relPath+"/**", d.ignorePatterns)
}

// matchesAny reports whether the path matches one of the patterns. Paths
// at the root (no slash) also match against patterns with their leading
// **/ stripped, so "**/*.py" covers both "main.py" and "pkg/main.py".
func matchesAny(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if simplified, ok := strings.CutPrefix(cp.pattern, "**/"); ok {
				if g, err := glob.Compile(simplified, '/'); err == nil && g.Match(path) {
					return true
				}
			}
		}
	}
	return false
}
