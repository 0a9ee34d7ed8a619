package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"cogify/internal/config"
)

// ErrNoPatterns is returned when no glob pattern is configured.
var ErrNoPatterns = errors.New("no scan patterns configured")

// Options controls which files Find returns.
type Options struct {
	// Patterns are doublestar globs relative to the scanned directory.
	Patterns        []string
	CaseInsensitive bool
	// Exclude lists directories whose contents are never returned.
	Exclude []string
}

// OptionsFromConfig builds scan options that skip the output tree.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Patterns:        append([]string(nil), cfg.Scan.Patterns...),
		CaseInsensitive: cfg.Scan.CaseInsensitive,
		Exclude:         []string{cfg.Paths.OutputDir},
	}
}

// Find returns the sorted absolute paths of regular files under dir that
// match any pattern.
func Find(dir string, opts Options) ([]string, error) {
	if len(opts.Patterns) == 0 {
		return nil, ErrNoPatterns
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve scan dir: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan dir %s is not a directory", root)
	}

	globOpts := []doublestar.GlobOption{doublestar.WithFilesOnly()}
	if opts.CaseInsensitive {
		globOpts = append(globOpts, doublestar.WithCaseInsensitive())
	}

	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	var results []string
	for _, pattern := range opts.Patterns {
		pattern = filepath.ToSlash(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid scan pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, globOpts...)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, match := range matches {
			path := filepath.Join(root, filepath.FromSlash(match))
			if excluded(path, opts.Exclude) {
				continue
			}
			if !isRegular(path) {
				continue
			}
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			results = append(results, path)
		}
	}
	sort.Strings(results)
	return results, nil
}

// Matches reports whether rel, a slash or OS separated path relative to the
// scanned directory, matches any pattern.
func Matches(rel string, opts Options) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range opts.Patterns {
		pattern = filepath.ToSlash(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		candidate := rel
		if opts.CaseInsensitive {
			pattern = strings.ToLower(pattern)
			candidate = strings.ToLower(candidate)
		}
		if ok, err := doublestar.Match(pattern, candidate); err == nil && ok {
			return true
		}
	}
	return false
}

func excluded(path string, dirs []string) bool {
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
