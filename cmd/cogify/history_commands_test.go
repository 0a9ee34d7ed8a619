package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"cogify/internal/history"
)

func seedRuns(t *testing.T, path string, n int) {
	t.Helper()
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		run := history.Run{
			ID:         fmt.Sprintf("run%05d-seeded", i),
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			SourceDir:  "/data/source",
			OutputDir:  "/data/source/translated",
			Scanned:    2,
			Invalid:    1,
			Failed:     i % 2,
		}
		files := []history.FileRecord{{InputPath: "/data/source/a.TIF", Status: "translated_invalid", Errors: []string{"still striped"}}}
		if err := store.RecordRun(context.Background(), run, files); err != nil {
			t.Fatalf("record run: %v", err)
		}
	}
}

func TestHistoryListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRuns(t, env.cfg.History.Path, 3)

	out, _, err := runCLI(t, env.configPath, "history", "--limit", "2")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "run00002")
	requireContains(t, out, "run00001")
	if strings.Contains(out, "run00000") {
		t.Fatalf("limit should hide the oldest run:\n%s", out)
	}

	out, _, err = runCLI(t, env.configPath, "history", "show", "run00001")
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, "run00001-seeded")
	requireContains(t, out, "Translated Invalid")
	requireContains(t, out, "still striped")
	requireContains(t, out, "completed with problems")

	out, _, err = runCLI(t, env.configPath, "history", "show", "--json", "run00000")
	if err != nil {
		t.Fatalf("history show --json: %v", err)
	}
	var detail struct {
		Run   history.Run          `json:"run"`
		Files []history.FileRecord `json:"files"`
	}
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if detail.Run.ID != "run00000-seeded" || len(detail.Files) != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}

func TestHistoryShowAmbiguousPrefix(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRuns(t, env.cfg.History.Path, 2)

	_, _, err := runCLI(t, env.configPath, "history", "show", "run")
	if !errors.Is(err, history.ErrAmbiguous) {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
}

func TestHistoryPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	seedRuns(t, env.cfg.History.Path, 4)

	out, _, err := runCLI(t, env.configPath, "history", "prune", "--keep", "1")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	requireContains(t, out, "Removed 3 run(s)")

	out, _, err = runCLI(t, env.configPath, "history", "--json")
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var runs []history.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run00003-seeded" {
		t.Fatalf("unexpected runs after prune: %+v", runs)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.History.Enabled = false
	writeTestConfig(t, env.configPath, env.cfg)

	if _, _, err := runCLI(t, env.configPath, "history"); !errors.Is(err, errHistoryDisabled) {
		t.Fatalf("expected errHistoryDisabled, got %v", err)
	}
}
