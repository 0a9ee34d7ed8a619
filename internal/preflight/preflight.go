package preflight

import (
	"context"
	"fmt"
	"strings"

	"cogify/internal/config"
	"cogify/internal/deps"
	"cogify/internal/gdal"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every check a batch run depends on.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDirectory("Source directory", cfg.Paths.SourceDir),
		CheckCreatableDirectory("Output directory", cfg.Paths.OutputDir),
		CheckCreatableDirectory("Log directory", cfg.Paths.LogDir),
	}

	for _, status := range CheckSystemDeps(cfg) {
		if status.Optional && !status.Available {
			continue
		}
		results = append(results, depResult(status))
	}

	results = append(results, CheckGDAL(ctx, gdal.NewTools(cfg, nil)))
	return results
}

func depResult(status deps.Status) Result {
	if status.Available {
		return Result{Name: status.Name, Passed: true, Detail: status.Path}
	}
	return Result{Name: status.Name, Detail: status.Detail}
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Summarize folds failed checks into a single error, or returns nil.
func Summarize(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, result := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", result.Name, result.Detail))
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
}
