package gdal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"cogify/internal/config"
	"cogify/internal/logging"
)

// ErrEmptyPath is returned when a raster path argument is blank.
var ErrEmptyPath = errors.New("empty raster path")

// maxOutputInError caps how much tool output is folded into an error message.
const maxOutputInError = 2048

// Tools holds the GDAL program names used for each operation.
type Tools struct {
	InfoPath      string
	TranslatePath string
	WarpPath      string
	BuildVRTPath  string
	// Timeout bounds a single program invocation; zero means no limit.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewTools builds Tools from configuration.
func NewTools(cfg *config.Config, logger *slog.Logger) Tools {
	return Tools{
		InfoPath:      cfg.GDAL.Info,
		TranslatePath: cfg.GDAL.Translate,
		WarpPath:      cfg.GDAL.Warp,
		BuildVRTPath:  cfg.GDAL.BuildVRT,
		Timeout:       cfg.CommandTimeout(),
		Logger:        logging.NewComponentLogger(logger, "gdal"),
	}
}

func binaryOr(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

// run executes a GDAL program and returns its stdout. Stderr is folded into
// the returned error on failure and logged at debug level otherwise.
func (t Tools) run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	started := time.Now()
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if t.Logger != nil {
		attrs := []logging.Attr{
			logging.String("binary", binary),
			logging.String("args", strings.Join(args, " ")),
			logging.Duration("duration", time.Since(started)),
			logging.Bool("ok", err == nil),
		}
		if stderr.Len() > 0 {
			attrs = append(attrs, logging.String("stderr", trimOutput(stderr.Bytes())))
		}
		t.Logger.Debug("gdal command finished", logging.Args(attrs...)...)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.Bytes(), fmt.Errorf("%s: %w", binary, ctxErr)
		}
		detail := trimOutput(stderr.Bytes())
		if detail == "" {
			detail = trimOutput(stdout.Bytes())
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w: %s", binary, err, detail)
	}
	return stdout.Bytes(), nil
}

func trimOutput(output []byte) string {
	text := strings.TrimSpace(string(output))
	if len(text) > maxOutputInError {
		text = "..." + text[len(text)-maxOutputInError:]
	}
	return text
}

// requireOutput reports an error when a program exited cleanly but produced no file.
func requireOutput(binary, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s produced no output at %s: %w", binary, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s output %s is a directory", binary, path)
	}
	return nil
}

// Version returns the GDAL release string reported by gdalinfo.
func (t Tools) Version(ctx context.Context) (string, error) {
	output, err := t.run(ctx, binaryOr(t.InfoPath, "gdalinfo"), "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}
