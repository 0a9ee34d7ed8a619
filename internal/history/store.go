package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var (
	// ErrNotFound is returned when no run matches an identifier.
	ErrNotFound = errors.New("run not found")
	// ErrAmbiguous is returned when a run ID prefix matches several runs.
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun writes a run and its file outcomes in a single transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, files []FileRecord) error {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("record run: empty run id")
	}
	return retryOnBusy(ctx, func() error {
		return s.recordRunTx(ctx, run, files)
	})
}

func (s *Store) recordRunTx(ctx context.Context, run Run, files []FileRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (
            id, started_at, finished_at, source_dir, output_dir,
            scanned, valid, invalid, translated, translated_invalid,
            reprojected, failed, mosaic_path, error_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.SourceDir,
		run.OutputDir,
		run.Scanned,
		run.Valid,
		run.Invalid,
		run.Translated,
		run.TranslatedInvalid,
		run.Reprojected,
		run.Failed,
		run.MosaicPath,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_files (
            run_id, input_path, output_path, reprojected_path, status,
            errors_json, warnings_json, duration_ms
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare file insert: %w", err)
	}
	defer stmt.Close()

	for _, file := range files {
		errorsJSON, err := encodeMessages(file.Errors)
		if err != nil {
			return err
		}
		warningsJSON, err := encodeMessages(file.Warnings)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID,
			file.InputPath,
			file.OutputPath,
			file.ReprojectedPath,
			file.Status,
			errorsJSON,
			warningsJSON,
			file.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert file %s: %w", file.InputPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, finished_at, source_dir, output_dir,
    scanned, valid, invalid, translated, translated_invalid,
    reprojected, failed, mosaic_path, error_message`

// ListRuns returns the most recent runs first. A limit of zero or less returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a run by full ID or unique ID prefix.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return Run{}, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`,
		id, escapeLike(id)+"%")
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		if run.ID == id {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}
}

// FilesForRun returns the file outcomes recorded for a run in input order.
func (s *Store) FilesForRun(ctx context.Context, runID string) ([]FileRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, input_path, output_path, reprojected_path,
            status, errors_json, warnings_json, duration_ms
        FROM run_files WHERE run_id = ? ORDER BY input_path, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("files for run: %w", err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var (
			file         FileRecord
			errorsJSON   string
			warningsJSON string
			durationMS   int64
		)
		if err := rows.Scan(
			&file.RunID,
			&file.InputPath,
			&file.OutputPath,
			&file.ReprojectedPath,
			&file.Status,
			&errorsJSON,
			&warningsJSON,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		if file.Errors, err = decodeMessages(errorsJSON); err != nil {
			return nil, err
		}
		if file.Warnings, err = decodeMessages(warningsJSON); err != nil {
			return nil, err
		}
		file.Duration = time.Duration(durationMS) * time.Millisecond
		files = append(files, file)
	}
	return files, rows.Err()
}

// Prune deletes all but the newest keep runs and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	ctx = ensureContext(ctx)
	if keep < 0 {
		return 0, fmt.Errorf("prune: keep must be >= 0, got %d", keep)
	}
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id NOT IN (
                SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?
            )`, keep)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		// foreign_keys is per connection; sweep orphans in case this one lacks it.
		_, err = s.db.ExecContext(ctx, `DELETE FROM run_files WHERE run_id NOT IN (SELECT id FROM runs)`)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return int(removed), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run      Run
		started  string
		finished string
	)
	if err := row.Scan(
		&run.ID,
		&started,
		&finished,
		&run.SourceDir,
		&run.OutputDir,
		&run.Scanned,
		&run.Valid,
		&run.Invalid,
		&run.Translated,
		&run.TranslatedInvalid,
		&run.Reprojected,
		&run.Failed,
		&run.MosaicPath,
		&run.ErrorMessage,
	); err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return run, nil
}

// timeLayout keeps a fixed-width fraction so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func encodeMessages(messages []string) (string, error) {
	if len(messages) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("encode messages: %w", err)
	}
	return string(data), nil
}

func decodeMessages(value string) ([]string, error) {
	if value == "" || value == "[]" {
		return nil, nil
	}
	var messages []string
	if err := json.Unmarshal([]byte(value), &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
