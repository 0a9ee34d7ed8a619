package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cogify/internal/batch"
	"cogify/internal/logging"
	"cogify/internal/runlock"
	"cogify/internal/testsupport"
)

func TestWatchBatchRecoversFromLockedRun(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteRaster(t, env.cfg.Paths.SourceDir, "strip.TIF", testsupport.StripTIFF)

	lock, err := runlock.Acquire(env.cfg.LockPath())
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	cli := newCommandContext(new(string))
	if err := cli.watchBatch(context.Background(), env.cfg, logging.NewNop()); err != nil {
		t.Fatalf("locked run should not stop the watcher: %v", err)
	}
	if calls := testsupport.StubCalls(t, env.cfg.GDAL.Translate); len(calls) != 0 {
		t.Fatalf("no conversion expected while locked, got %v", calls)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	if err := cli.watchBatch(context.Background(), env.cfg, logging.NewNop()); err != nil {
		t.Fatalf("watchBatch: %v", err)
	}
	if calls := testsupport.StubCalls(t, env.cfg.GDAL.Translate); len(calls) != 1 {
		t.Fatalf("expected one translate call, got %v", calls)
	}
}

func TestWatchBatchStopsOnCancel(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteRaster(t, env.cfg.Paths.SourceDir, "strip.TIF", testsupport.StripTIFF)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cli := newCommandContext(new(string))
	err := cli.watchBatch(ctx, env.cfg, logging.NewNop())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRenderSummaryNoProcessing(t *testing.T) {
	out := renderSummary(batch.Summary{RunID: "0123456789", Scanned: 2, NoProcessingRequired: true})
	requireContains(t, out, "No Processing Required (2 scanned, all valid)")
	requireContains(t, out, "Run 01234567")
}

// startWatchCommand runs `cogify watch` until the returned stop function is
// called, which also reports the command's error.
func startWatchCommand(t *testing.T, env *cliTestEnv, args ...string) func() error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := runCLIContext(ctx, t, env.configPath, append([]string{"watch", "--debounce", "100ms"}, args...)...)
		done <- err
	}()
	stopped := false
	stop := func() error {
		if stopped {
			return nil
		}
		stopped = true
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(10 * time.Second):
			return errors.New("watch command did not stop")
		}
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func waitForTranslate(t *testing.T, binary, fragment string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		for _, call := range testsupport.StubCalls(t, binary) {
			if strings.Contains(call, fragment) {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("no gdal_translate call for %q, got %v", fragment, testsupport.StubCalls(t, binary))
}

func TestWatchCommandRunsInitialBatchThenReactsToChanges(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteRaster(t, env.cfg.Paths.SourceDir, "strip.TIF", testsupport.StripTIFF)

	stop := startWatchCommand(t, env)
	waitForTranslate(t, env.cfg.GDAL.Translate, "strip.TIF")

	testsupport.WriteRaster(t, env.cfg.Paths.SourceDir, "late.TIF", testsupport.StripTIFF)
	waitForTranslate(t, env.cfg.GDAL.Translate, "late.TIF")

	if err := stop(); err != nil {
		t.Fatalf("watch: %v", err)
	}
}

func TestWatchCommandNoInitialWaitsForChange(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteRaster(t, env.cfg.Paths.SourceDir, "strip.TIF", testsupport.StripTIFF)

	stop := startWatchCommand(t, env, "--no-initial")
	time.Sleep(500 * time.Millisecond)
	if calls := testsupport.StubCalls(t, env.cfg.GDAL.Translate); len(calls) != 0 {
		t.Fatalf("--no-initial should skip the startup batch, got %v", calls)
	}

	testsupport.WriteRaster(t, env.cfg.Paths.SourceDir, "late.TIF", testsupport.StripTIFF)
	waitForTranslate(t, env.cfg.GDAL.Translate, "late.TIF")

	if err := stop(); err != nil {
		t.Fatalf("watch: %v", err)
	}
}

func TestWatchCommandRejectsBadDebounce(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env.configPath, "watch", "--debounce", "soon")
	if err == nil || !strings.Contains(err.Error(), "debounce") {
		t.Fatalf("expected debounce parse error, got %v", err)
	}
}
