package batch

import (
	"time"

	"cogify/internal/cog"
)

// Status is the final outcome of one input raster.
type Status string

const (
	// StatusValid marks an input that was already a valid COG and was left alone.
	StatusValid Status = "valid"
	// StatusTranslated marks a valid translated output with reprojection disabled.
	StatusTranslated Status = "translated"
	// StatusTranslatedInvalid marks a translated output that still fails validation.
	StatusTranslatedInvalid Status = "translated_invalid"
	// StatusReprojected marks a translated output that was also reprojected.
	StatusReprojected Status = "reprojected"
	// StatusFailed marks a file where a GDAL program failed.
	StatusFailed Status = "failed"
)

// FileResult describes what happened to one input raster.
type FileResult struct {
	Input        string        `json:"input"`
	Output       string        `json:"output,omitempty"`
	Reprojected  string        `json:"reprojected,omitempty"`
	Status       Status        `json:"status"`
	Source       cog.Report    `json:"source"`
	OutputReport *cog.Report   `json:"output_report,omitempty"`
	Errors       []string      `json:"errors,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Summary is the outcome of a batch run.
type Summary struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	SourceDir  string       `json:"source_dir"`
	OutputDir  string       `json:"output_dir"`
	Scanned    int          `json:"scanned"`
	Valid      int          `json:"valid"`
	Invalid    int          `json:"invalid"`
	Files      []FileResult `json:"files"`
	Mosaic     string       `json:"mosaic,omitempty"`
	// MosaicError is set when building the mosaic failed; the run still succeeds.
	MosaicError string `json:"mosaic_error,omitempty"`
	// NoProcessingRequired is true when nothing was queued for translation.
	NoProcessingRequired bool `json:"no_processing_required"`
}

// Count returns how many files ended with status.
func (s Summary) Count(status Status) int {
	n := 0
	for _, file := range s.Files {
		if file.Status == status {
			n++
		}
	}
	return n
}

// Processed returns how many files were queued for translation.
func (s Summary) Processed() int {
	return len(s.Files) - s.Count(StatusValid)
}

// Duration returns the wall-clock length of the run.
func (s Summary) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
