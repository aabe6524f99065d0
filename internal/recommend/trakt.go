package recommend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"tvrecs/internal/logging"
	"tvrecs/internal/services"
	"tvrecs/internal/services/trakt"
	"tvrecs/internal/syncledger"
)

// ErrTraktDisabled is returned by Trakt operations without credentials.
var ErrTraktDisabled = errors.New("trakt is not configured")

// SyncSummary reports one history sync.
type SyncSummary struct {
	Watched int
	Pending int
	Result  trakt.SyncResult
}

// traktMaintenance runs the clear and sync steps enabled in configuration.
// Only fatal errors abort the run.
func (r *Runner) traktMaintenance(ctx context.Context) error {
	if r.deps.Trakt == nil {
		return nil
	}
	if r.cfg.Trakt.ClearWatchHistory {
		if _, err := r.ClearTrakt(ctx); err != nil {
			if err := r.warnOrFail(ctx, "trakt history clear failed", "trakt_clear_failed", err); err != nil {
				return err
			}
		}
	}
	if r.cfg.Trakt.SyncWatchHistory {
		if _, err := r.SyncTrakt(ctx); err != nil {
			return r.warnOrFail(ctx, "trakt history sync incomplete", "trakt_sync_failed", err,
				logging.String(logging.FieldImpact, "unsynced episodes are retried on the next run"),
			)
		}
	}
	return nil
}

// SyncTrakt pushes watched episodes that the ledger has not recorded yet.
func (r *Runner) SyncTrakt(ctx context.Context) (SyncSummary, error) {
	if r.deps.Trakt == nil {
		return SyncSummary{}, ErrTraktDisabled
	}
	ctx = services.WithPhase(ctx, "trakt_sync")
	logger := logging.WithContext(ctx, r.logger)

	ledger, err := syncledger.Open(ctx, syncledger.Path(r.cfg.Paths.CacheDir))
	if err != nil {
		return SyncSummary{}, err
	}
	defer ledger.Close()

	latest, err := r.watchedEpisodes(ctx)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("load watched episodes: %w", err)
	}
	entries := make([]syncledger.Entry, 0, len(latest))
	for id, at := range latest {
		entries = append(entries, syncledger.Entry{TVDBID: id, WatchedAt: at})
	}
	slices.SortFunc(entries, func(a, b syncledger.Entry) int { return a.WatchedAt.Compare(b.WatchedAt) })

	pending, err := ledger.Pending(ctx, syncledger.SinkTrakt, entries)
	if err != nil {
		return SyncSummary{}, err
	}
	summary := SyncSummary{Watched: len(entries), Pending: len(pending)}
	if len(pending) == 0 {
		logger.Info("trakt history up to date", logging.Int("episodes", len(entries)))
		return summary, nil
	}

	watches := make([]trakt.Watch, len(pending))
	for i, e := range pending {
		watches[i] = trakt.Watch{TVDBID: e.TVDBID, WatchedAt: e.WatchedAt}
	}
	result, syncErr := r.deps.Trakt.SyncHistory(ctx, watches)
	summary.Result = result

	if len(result.Synced) > 0 {
		if err := ledger.MarkSynced(ctx, syncledger.SinkTrakt, result.Synced, latest, r.deps.Now()); err != nil {
			return summary, errors.Join(syncErr, err)
		}
	}
	logger.Info("trakt history synced",
		logging.Int("pending", len(pending)),
		logging.Int("recorded", len(result.Synced)),
		logging.Int("added", result.Added),
		logging.Int("failed_batches", result.Failed),
	)
	if r.deps.Notifier != nil {
		if err := r.deps.Notifier.NotifyTraktSync(ctx, result.Added); err != nil {
			logger.Debug("trakt sync notification failed", logging.Error(err))
		}
	}
	return summary, syncErr
}

// watchedEpisodes merges the watched episodes of every configured Plex user,
// keeping the latest watch time per TVDB id.
func (r *Runner) watchedEpisodes(ctx context.Context) (map[int64]time.Time, error) {
	users := r.cfg.Plex.ManagedUsers
	if len(users) == 0 {
		users = []string{""}
	}
	latest := map[int64]time.Time{}
	skipped := 0
	for _, user := range users {
		episodes, err := r.deps.History(user).WatchedEpisodes(ctx)
		if err != nil {
			return nil, err
		}
		for _, ep := range episodes {
			if ep.TVDBID <= 0 {
				skipped++
				continue
			}
			if prev, ok := latest[ep.TVDBID]; !ok || ep.WatchedAt.After(prev) {
				latest[ep.TVDBID] = ep.WatchedAt
			}
		}
	}
	if skipped > 0 {
		logging.WithContext(ctx, r.logger).Debug("episodes without tvdb id skipped", logging.Int("count", skipped))
	}
	return latest, nil
}

// ClearTrakt removes the account's show history and forgets the ledger.
func (r *Runner) ClearTrakt(ctx context.Context) (int, error) {
	if r.deps.Trakt == nil {
		return 0, ErrTraktDisabled
	}
	ctx = services.WithPhase(ctx, "trakt_clear")
	removed, err := r.deps.Trakt.ClearHistory(ctx)
	if err != nil {
		return 0, err
	}
	ledger, err := syncledger.Open(ctx, syncledger.Path(r.cfg.Paths.CacheDir))
	if err != nil {
		return removed, err
	}
	defer ledger.Close()
	forgotten, err := ledger.Clear(ctx, syncledger.SinkTrakt)
	if err != nil {
		return removed, err
	}
	logging.WithContext(ctx, r.logger).Info("trakt history cleared",
		logging.Int("shows", removed),
		logging.Int64("ledger_entries", forgotten),
	)
	return removed, nil
}
