package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tvrecs/internal/cache"
	"tvrecs/internal/config"
	"tvrecs/internal/features"
	"tvrecs/internal/identification"
	"tvrecs/internal/library"
	"tvrecs/internal/logging"
	"tvrecs/internal/media"
	"tvrecs/internal/notifications"
	"tvrecs/internal/profile"
	"tvrecs/internal/selection"
	"tvrecs/internal/services"
	"tvrecs/internal/similarity"
)

// Report is the outcome of one history context.
type Report struct {
	Context         HistoryContext
	Cache           cache.Outcome
	Profile         profile.Profile
	Library         []selection.Candidate
	LibraryStats    selection.Stats
	Suggestions     []selection.Candidate
	SuggestionStats selection.Stats
}

// Runner executes recommendation runs.
type Runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	deps    Deps
	scorer  *similarity.Scorer
	sampler *logging.ProgressSampler
}

// NewRunner builds a Runner. Deps.Library and Deps.History are required.
func NewRunner(cfg *config.Config, logger *slog.Logger, deps Deps) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Progress == nil {
		deps.Progress = func(string, int) Progress { return noopProgress{} }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Runner{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "recommend"),
		deps:    deps,
		scorer:  similarity.NewScorer(cfg.Weights, cfg.Recommend.SqrtNormalization, logger),
		sampler: logging.NewProgressSampler(25),
	}
}

// session holds what one Run shares between its contexts.
type session struct {
	shows       []media.Show
	byKey       map[string]media.Show
	index       *library.Index
	suggestions []media.Show
	enriched    map[int64]enrichment
}

// Run resolves the history contexts and produces one Report per context.
func (r *Runner) Run(ctx context.Context) ([]Report, error) {
	if _, ok := services.RunIDFromContext(ctx); !ok {
		ctx = services.WithRunID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, r.logger)
	started := r.deps.Now()

	if err := r.traktMaintenance(ctx); err != nil {
		return nil, err
	}

	shows, err := r.deps.Library.Shows(services.WithPhase(ctx, "library"))
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	sess := &session{
		shows:    shows,
		byKey:    make(map[string]media.Show, len(shows)),
		index:    library.NewIndex(shows),
		enriched: map[int64]enrichment{},
	}
	for _, show := range shows {
		sess.byKey[itemKey(show)] = show
	}
	logger.Info("library loaded", logging.Int("shows", len(shows)))

	contexts, err := r.historyContexts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load watch history: %w", err)
	}

	sess.suggestions, err = r.fetchSuggestions(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(contexts))
	for _, hc := range contexts {
		report, err := r.runContext(ctx, sess, hc)
		if err != nil {
			return reports, fmt.Errorf("context %s: %w", hc.Key, err)
		}
		reports = append(reports, report)
		r.notify(ctx, report)
	}

	logger.Info("recommendation run complete",
		logging.Int("contexts", len(reports)),
		logging.Duration("elapsed", r.deps.Now().Sub(started)),
	)
	return reports, nil
}

// extractorOptions wires the library and, when enabled, TMDB keywords into
// the feature extractor. store may be nil.
func (r *Runner) extractorOptions(store identification.Store) []features.Option {
	opts := []features.Option{
		features.WithLanguageSource(r.deps.Library),
		features.WithCastSource(r.deps.Library),
	}
	if r.cfg.KeywordsEnabled() && r.deps.TMDB != nil {
		opts = append(opts, features.WithKeywordSource(identification.NewResolver(r.deps.TMDB, store, r.logger)))
	}
	return opts
}

func (r *Runner) runContext(ctx context.Context, sess *session, hc HistoryContext) (Report, error) {
	ctx = services.WithUserContext(ctx, hc.Key)
	logger := logging.WithContext(ctx, r.logger)
	report := Report{Context: hc}

	sources := features.NewExtractor(r.logger, r.extractorOptions(nil)...).Sources()
	mgr, err := cache.Open(ctx, r.cfg.Paths.CacheDir, hc.Key, r.cfg.Cache.Fingerprint, r.logger,
		cache.WithClock(r.deps.Now),
		cache.WithFeatureSources(sources),
	)
	if err != nil {
		return report, err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			logger.Debug("cache unlock failed", logging.Error(err))
		}
	}()

	extractor := features.NewExtractor(r.logger, r.extractorOptions(mgr)...)

	prof, outcome, err := mgr.Profile(services.WithPhase(ctx, "profile"), hc.Watched, r.profileBuilder(sess, mgr, extractor))
	if err != nil {
		return report, err
	}
	report.Cache = outcome
	report.Profile = prof
	logger.Info("taste profile ready",
		logging.Bool("cache_hit", outcome.Hit),
		logging.String("reason", outcome.Reason),
		logging.Int("shows", prof.Shows),
		logging.Int("genres", len(prof.Genres)),
		logging.Int("actors", len(prof.Actors)),
	)

	candidates, err := r.libraryCandidates(services.WithPhase(ctx, "candidates"), sess, mgr, extractor, hc.Watched)
	if err != nil {
		return report, err
	}
	if r.cfg.Recommend.LimitPlex > 0 {
		pipeline := selection.New(r.scorer, selection.Options{
			Limit:         r.cfg.Recommend.LimitPlex,
			PoolFraction:  r.cfg.Recommend.PoolFraction,
			ExcludeGenres: r.cfg.Recommend.ExcludeGenres,
		}, r.deps.Rand, r.logger)
		report.Library, report.LibraryStats = pipeline.Library(prof, candidates, hc.Watched)
	}

	if len(sess.suggestions) > 0 {
		report.Suggestions, report.SuggestionStats = r.selectSuggestions(services.WithPhase(ctx, "suggestions"), sess, prof)
	}
	return report, nil
}

func (r *Runner) notify(ctx context.Context, report Report) {
	if r.deps.Notifier == nil {
		return
	}
	summary := notifications.Summary{Context: report.Context.Label()}
	for _, c := range report.Library {
		summary.Library = append(summary.Library, notifications.Pick{Label: c.Show.Label(), Score: c.Result.Score})
	}
	for _, c := range report.Suggestions {
		summary.Suggestions = append(summary.Suggestions, notifications.Pick{Label: c.Show.Label()})
	}
	if err := r.deps.Notifier.NotifyRecommendations(ctx, summary); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "recommendation notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// warnOrFail logs err as a warning unless it is fatal or the context ended.
func (r *Runner) warnOrFail(ctx context.Context, msg, event string, err error, attrs ...logging.Attr) error {
	if services.IsFatal(err) || errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	attrs = append(attrs, logging.Error(err))
	logging.WarnWithContext(logging.WithContext(ctx, r.logger), msg, event, attrs...)
	return nil
}
