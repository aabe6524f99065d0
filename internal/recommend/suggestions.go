package recommend

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strconv"

	"tvrecs/internal/features"
	"tvrecs/internal/identification"
	"tvrecs/internal/identification/tmdb"
	"tvrecs/internal/language"
	"tvrecs/internal/logging"
	"tvrecs/internal/media"
	"tvrecs/internal/profile"
	"tvrecs/internal/retry"
	"tvrecs/internal/selection"
	"tvrecs/internal/services"
	"tvrecs/internal/services/trakt"
)

// suggestionOverfetch widens the Trakt request so owned and excluded shows
// can be dropped while still filling the limit.
const suggestionOverfetch = 5

// enrichment is the TMDB data added to picked suggestions for display.
type enrichment struct {
	language string
	cast     []string
}

// fetchSuggestions pulls Trakt recommendations once per run. Failures other
// than fatal ones leave the run without suggestions.
func (r *Runner) fetchSuggestions(ctx context.Context) ([]media.Show, error) {
	if r.deps.Trakt == nil || r.cfg.Recommend.PlexOnly || r.cfg.Recommend.LimitTrakt <= 0 {
		return nil, nil
	}
	ctx = services.WithPhase(ctx, "suggestions")
	logger := logging.WithContext(ctx, r.logger)

	has, err := r.deps.Trakt.HasHistory(ctx)
	if err != nil {
		return nil, r.warnOrFail(ctx, "trakt history check failed; suggestions skipped", "trakt_unavailable", err,
			logging.String(logging.FieldErrorHint, "check trakt.client_id and trakt.access_token"),
			logging.String(logging.FieldImpact, "no external suggestions this run"),
		)
	}
	if !has {
		logging.WarnWithContext(logger, "trakt account has no watch history; suggestions skipped", "trakt_history_empty",
			logging.String(logging.FieldErrorHint, "enable trakt.sync_watch_history or run 'tvrecs trakt sync'"),
			logging.String(logging.FieldImpact, "no external suggestions this run"),
		)
		return nil, nil
	}

	shows, err := r.deps.Trakt.Recommendations(ctx, max(r.cfg.Recommend.LimitTrakt*suggestionOverfetch, trakt.PageSize))
	if err != nil {
		return nil, r.warnOrFail(ctx, "trakt recommendations failed; suggestions skipped", "trakt_unavailable", err,
			logging.String(logging.FieldImpact, "no external suggestions this run"),
		)
	}
	logger.Info("trakt suggestions fetched", logging.Int("shows", len(shows)))
	return shows, nil
}

func suggestionKey(show media.Show) string {
	if show.TraktID > 0 {
		return "trakt:" + strconv.FormatInt(show.TraktID, 10)
	}
	return identification.CacheKey(show)
}

// selectSuggestions filters the run's suggestions for one context, scores the
// picks against the profile and enriches them.
func (r *Runner) selectSuggestions(ctx context.Context, sess *session, prof profile.Profile) ([]selection.Candidate, selection.Stats) {
	extractor := features.NewExtractor(r.logger)
	cands := make([]selection.Candidate, 0, len(sess.suggestions))
	for _, show := range sess.suggestions {
		cands = append(cands, selection.Candidate{
			Key:      suggestionKey(show),
			Show:     show,
			Features: extractor.Extract(ctx, show),
		})
	}
	pipeline := selection.New(r.scorer, selection.Options{
		Limit:         r.cfg.Recommend.LimitTrakt,
		ExcludeGenres: r.cfg.Recommend.ExcludeGenres,
	}, r.deps.Rand, r.logger)
	picks, stats := pipeline.Suggestions(cands, sess.index)

	for i := range picks {
		picks[i].Show = r.enrich(ctx, sess, picks[i].Show)
		picks[i].Features = extractor.Extract(ctx, picks[i].Show)
		if res, err := r.scorer.Score(prof, picks[i].Features); err == nil {
			picks[i].Result = res
		}
	}
	return picks, stats
}

// enrich adds the original language and top-billed cast from TMDB when the
// output shows them. Lookups are shared across contexts of one run.
func (r *Runner) enrich(ctx context.Context, sess *session, show media.Show) media.Show {
	wantLang := r.cfg.Output.ShowLanguage
	wantCast := r.cfg.Output.ShowCast && len(show.Cast) == 0
	if r.deps.TMDB == nil || show.TMDBID <= 0 || (!wantLang && !wantCast) {
		return show
	}
	e, ok := sess.enriched[show.TMDBID]
	if !ok {
		e = r.lookupEnrichment(ctx, show, wantLang, wantCast)
		sess.enriched[show.TMDBID] = e
	}
	if wantLang && e.language != "" {
		show.Language = e.language
	}
	if wantCast && len(e.cast) > 0 {
		show.Cast = e.cast
	}
	return show
}

func (r *Runner) lookupEnrichment(ctx context.Context, show media.Show, wantLang, wantCast bool) enrichment {
	logger := logging.WithContext(ctx, r.logger)
	var e enrichment
	if wantLang {
		details, err := r.deps.TMDB.TVDetails(ctx, show.TMDBID)
		switch {
		case err == nil:
			e.language = language.DisplayName(details.OriginalLanguage)
		case retry.StatusCode(err) != http.StatusNotFound:
			logger.Debug("tmdb details lookup failed", logging.String("title", show.Label()), logging.Error(err))
		}
	}
	if wantCast {
		credits, err := r.deps.TMDB.Credits(ctx, show.TMDBID)
		if err != nil {
			logger.Debug("tmdb credits lookup failed", logging.String("title", show.Label()), logging.Error(err))
			return e
		}
		credits = slices.Clone(credits)
		slices.SortStableFunc(credits, func(a, b tmdb.CastMember) int { return cmp.Compare(a.Order, b.Order) })
		for _, member := range credits {
			if len(e.cast) == features.MaxCast {
				break
			}
			if member.Name != "" {
				e.cast = append(e.cast, member.Name)
			}
		}
	}
	return e
}
