package testsupport

import (
	"context"
	"testing"

	"tvrecs/internal/cache"
	"tvrecs/internal/config"
	"tvrecs/internal/logging"
	"tvrecs/internal/syncledger"
)

// MustOpenLedger opens the sync ledger in the config's cache directory and
// registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *syncledger.Ledger {
	t.Helper()

	ledger, err := syncledger.Open(context.Background(), syncledger.Path(cfg.Paths.CacheDir))
	if err != nil {
		t.Fatalf("syncledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = ledger.Close()
	})
	return ledger
}

// MustOpenCache opens the snapshot of contextKey and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config, contextKey string) *cache.Manager {
	t.Helper()

	mgr, err := cache.Open(context.Background(), cfg.Paths.CacheDir, contextKey, cfg.Cache.Fingerprint, logging.NewNop())
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = mgr.Close()
	})
	return mgr
}
