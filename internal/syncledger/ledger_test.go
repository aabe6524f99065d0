package syncledger_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tvrecs/internal/syncledger"
)

func openLedger(t *testing.T) (*syncledger.Ledger, string) {
	t.Helper()
	path := syncledger.Path(t.TempDir())
	ledger, err := syncledger.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger, path
}

func TestPendingSkipsSyncedAndInvalid(t *testing.T) {
	ledger, _ := openLedger(t)
	ctx := context.Background()
	watched := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := ledger.MarkSynced(ctx, syncledger.SinkTrakt, []int64{1, 2}, map[int64]time.Time{1: watched}, watched.Add(time.Hour)); err != nil {
		t.Fatalf("MarkSynced returned error: %v", err)
	}
	pending, err := ledger.Pending(ctx, syncledger.SinkTrakt, []syncledger.Entry{
		{TVDBID: 1}, {TVDBID: 3}, {TVDBID: 0}, {TVDBID: 3}, {TVDBID: 2}, {TVDBID: 4},
	})
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	if len(pending) != 2 || pending[0].TVDBID != 3 || pending[1].TVDBID != 4 {
		t.Fatalf("unexpected pending %+v", pending)
	}

	other, err := ledger.Pending(ctx, "other", []syncledger.Entry{{TVDBID: 1}})
	if err != nil || len(other) != 1 {
		t.Fatalf("sinks should be independent, got %+v %v", other, err)
	}

	records, err := ledger.Records(ctx, syncledger.SinkTrakt)
	if err != nil {
		t.Fatalf("Records returned error: %v", err)
	}
	if len(records) != 2 || !records[0].WatchedAt.Equal(watched) || !records[1].WatchedAt.IsZero() {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestClearAndStatsPersistAcrossOpen(t *testing.T) {
	ledger, path := openLedger(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := ledger.MarkSynced(ctx, syncledger.SinkTrakt, []int64{10, 11, 12}, nil, now); err != nil {
		t.Fatalf("MarkSynced returned error: %v", err)
	}
	if err := ledger.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := syncledger.Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	defer reopened.Close()

	stats, err := reopened.Stats(ctx, syncledger.SinkTrakt)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.Episodes != 3 || !stats.LastSync.Equal(now) {
		t.Fatalf("unexpected stats %+v", stats)
	}

	removed, err := reopened.Clear(ctx, syncledger.SinkTrakt)
	if err != nil || removed != 3 {
		t.Fatalf("Clear returned %d, %v", removed, err)
	}
	stats, err = reopened.Stats(ctx, syncledger.SinkTrakt)
	if err != nil || stats.Episodes != 0 || !stats.LastSync.IsZero() {
		t.Fatalf("expected empty ledger, got %+v %v", stats, err)
	}
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	ledger, path := openLedger(t)
	if _, err := ledger.Exec(context.Background(), "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = ledger.Close()

	_, err := syncledger.Open(context.Background(), path)
	if !errors.Is(err, syncledger.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if filepath.Base(path) != syncledger.FileName {
		t.Fatalf("unexpected ledger path %s", path)
	}
}
