package recommend

import (
	"context"
	"slices"
	"strconv"

	"tvrecs/internal/cache"
	"tvrecs/internal/features"
	"tvrecs/internal/logging"
	"tvrecs/internal/media"
	"tvrecs/internal/profile"
	"tvrecs/internal/selection"
)

func itemKey(show media.Show) string {
	return strconv.FormatInt(show.RatingKey, 10)
}

// sameInputs reports whether the metadata a feature record derives from is
// unchanged between a cached show and the current one.
func sameInputs(a, b media.Show) bool {
	return a.Title == b.Title &&
		a.Year == b.Year &&
		a.Studio == b.Studio &&
		a.IMDbID == b.IMDbID &&
		a.TMDBID == b.TMDBID &&
		slices.Equal(a.Genres, b.Genres) &&
		slices.Equal(a.Cast, b.Cast)
}

// reusable returns the cached record of show from the context's profile items
// or candidate records.
func reusable(mgr *cache.Manager, candidates map[string]cache.Item, key string, show media.Show) (features.Record, bool) {
	if item, ok := mgr.Item(key); ok && sameInputs(item.Show, show) {
		return item.Features, true
	}
	if item, ok := candidates[key]; ok && sameInputs(item.Show, show) {
		return item.Features, true
	}
	return features.Record{}, false
}

func (r *Runner) profileBuilder(sess *session, mgr *cache.Manager, extractor *features.Extractor) cache.Builder {
	return func(ctx context.Context, ids []string) (profile.Profile, map[string]cache.Item, error) {
		logger := logging.WithContext(ctx, r.logger)
		cachedCandidates, _ := mgr.Candidates(len(sess.shows))
		progress := r.deps.Progress("Building profile", len(ids))
		defer func() { _ = progress.Finish() }()

		items := make([]profile.Item, 0, len(ids))
		stored := make(map[string]cache.Item, len(ids))
		var missing, reused int
		for i, id := range ids {
			if err := ctx.Err(); err != nil {
				return profile.Profile{}, nil, err
			}
			_ = progress.Add(1)
			show, ok := sess.byKey[id]
			if !ok {
				missing++
				continue
			}
			record, ok := reusable(mgr, cachedCandidates, id, show)
			if ok {
				reused++
			} else {
				record = extractor.Extract(ctx, show)
			}
			items = append(items, profile.Item{Key: id, Show: show, Features: record})
			stored[id] = cache.Item{Show: show, Features: record}
			if r.sampler.ShouldLog("profile", i+1, len(ids)) {
				logger.Info("profile progress", logging.Int("processed", i+1), logging.Int("total", len(ids)))
			}
		}
		if missing > 0 {
			logger.Info("watched shows missing from library skipped", logging.Int("count", missing))
		}
		logger.Debug("profile items collected",
			logging.Int("items", len(items)),
			logging.Int("reused", reused),
		)
		return profile.Aggregate(items), stored, nil
	}
}

// libraryCandidates returns one candidate per library show. Watched shows are
// included without features; the pipeline drops them before scoring.
func (r *Runner) libraryCandidates(ctx context.Context, sess *session, mgr *cache.Manager, extractor *features.Extractor, watched cache.WatchedSet) ([]selection.Candidate, error) {
	logger := logging.WithContext(ctx, r.logger)
	cached, hit := mgr.Candidates(len(sess.shows))

	unwatched := 0
	for _, show := range sess.shows {
		if !watched.Contains(itemKey(show)) {
			unwatched++
		}
	}
	progress := r.deps.Progress("Scanning library", unwatched)
	defer func() { _ = progress.Finish() }()

	out := make([]selection.Candidate, 0, len(sess.shows))
	items := make(map[string]cache.Item, unwatched)
	var fresh, done int
	for _, show := range sess.shows {
		key := itemKey(show)
		if watched.Contains(key) {
			out = append(out, selection.Candidate{Key: key, Show: show})
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, ok := reusable(mgr, cached, key, show)
		if !ok {
			record = extractor.Extract(ctx, show)
			fresh++
		}
		items[key] = cache.Item{Show: show, Features: record}
		out = append(out, selection.Candidate{Key: key, Show: show, Features: record})
		done++
		_ = progress.Add(1)
		if r.sampler.ShouldLog("candidates", done, unwatched) {
			logger.Info("candidate progress", logging.Int("processed", done), logging.Int("total", unwatched))
		}
	}

	if !hit || fresh > 0 || len(items) != len(cached) {
		if err := mgr.StoreCandidates(len(sess.shows), items); err != nil {
			logging.WarnWithContext(logger, "candidate cache write failed", "cache_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.cache_dir permissions and free space"),
				logging.String(logging.FieldImpact, "candidates are re-extracted on the next run"),
			)
		}
	}
	logger.Info("library candidates ready",
		logging.Int("candidates", unwatched),
		logging.Int("extracted", fresh),
		logging.Bool("cache_hit", hit && fresh == 0),
	)
	return out, nil
}
