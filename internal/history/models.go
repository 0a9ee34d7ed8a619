package history

import "time"

// Run is the summary row for one batch invocation.
type Run struct {
	ID                string    `json:"id"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	SourceDir         string    `json:"source_dir"`
	OutputDir         string    `json:"output_dir"`
	Scanned           int       `json:"scanned"`
	Valid             int       `json:"valid"`
	Invalid           int       `json:"invalid"`
	Translated        int       `json:"translated"`
	TranslatedInvalid int       `json:"translated_invalid"`
	Reprojected       int       `json:"reprojected"`
	Failed            int       `json:"failed"`
	MosaicPath        string    `json:"mosaic_path,omitempty"`
	// ErrorMessage is set when the run aborted before finishing.
	ErrorMessage string `json:"error_message,omitempty"`
}

// Duration returns the wall-clock length of the run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FileRecord is the outcome of one input raster within a run.
type FileRecord struct {
	RunID           string        `json:"run_id"`
	InputPath       string        `json:"input_path"`
	OutputPath      string        `json:"output_path,omitempty"`
	ReprojectedPath string        `json:"reprojected_path,omitempty"`
	Status          string        `json:"status"`
	Errors          []string      `json:"errors,omitempty"`
	Warnings        []string      `json:"warnings,omitempty"`
	Duration        time.Duration `json:"duration"`
}
