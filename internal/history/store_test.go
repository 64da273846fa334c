package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pspman/internal/history"
)

func TestRecordAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ".pspman.history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	first := history.Run{ID: "run-1", StartedAt: start, FinishedAt: start.Add(time.Minute), Succeeded: 1, Failed: 1}
	err = store.Record(ctx, first, []history.Entry{
		{Project: "fd", Step: "install", Success: true, Message: "Installed project fd", RecordedAt: start.Add(10 * time.Second)},
		{Project: "bat", Step: "pull", Success: false, Message: "pull failed", RecordedAt: start.Add(20 * time.Second)},
	})
	if err != nil {
		t.Fatalf("Record first run: %v", err)
	}
	second := history.Run{ID: "run-2", StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour + time.Minute), Succeeded: 1, Interrupted: true}
	if err := store.Record(ctx, second, []history.Entry{{Project: "fd", Step: "pull", Success: true}}); err != nil {
		t.Fatalf("Record second run: %v", err)
	}

	runs, err := store.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" || !runs[0].Interrupted {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[1].Failed != 1 || !runs[1].StartedAt.Equal(start) {
		t.Fatalf("unexpected first run: %+v", runs[1])
	}

	fdOutcomes, err := store.Outcomes(ctx, "fd", 0)
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	if len(fdOutcomes) != 2 || fdOutcomes[0].RunID != "run-2" {
		t.Fatalf("unexpected outcomes for fd: %+v", fdOutcomes)
	}
	if !fdOutcomes[0].RecordedAt.Equal(second.FinishedAt) {
		t.Fatalf("missing recorded_at should default to run end, got %v", fdOutcomes[0].RecordedAt)
	}

	limited, err := store.Outcomes(ctx, "", 1)
	if err != nil {
		t.Fatalf("Outcomes limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestReopenKeepsJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	now := time.Now()
	if err := store.Record(context.Background(), history.Run{ID: "only", StartedAt: now, FinishedAt: now}, nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.Runs(context.Background(), 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %v %v", runs, err)
	}
}

func TestDuplicateRunIDRejected(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	now := time.Now()
	run := history.Run{ID: "dup", StartedAt: now, FinishedAt: now}
	if err := store.Record(context.Background(), run, nil); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if err := store.Record(context.Background(), run, nil); err == nil {
		t.Fatal("expected duplicate run id to fail")
	}
}
