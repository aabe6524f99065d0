package identification

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"tvrecs/internal/cache"
	"tvrecs/internal/identification/tmdb"
	"tvrecs/internal/logging"
	"tvrecs/internal/media"
	"tvrecs/internal/retry"
	"tvrecs/internal/services"
	"tvrecs/internal/textutil"
)

// Store persists resolutions. *cache.Manager implements it.
type Store interface {
	ExternalID(key string) (cache.ExternalID, bool)
	StoreExternalID(key string, id cache.ExternalID) error
	Keywords(tmdbID int64) ([]string, bool)
	StoreKeywords(tmdbID int64, keywords []string) error
}

// Resolver maps shows to TMDB ids and keywords.
type Resolver struct {
	client tmdb.Searcher
	store  Store
	logger *slog.Logger
}

// NewResolver builds a Resolver. A nil client resolves only ids already known.
func NewResolver(client tmdb.Searcher, store Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		client: client,
		store:  store,
		logger: logging.NewComponentLogger(logger, "identification"),
	}
}

// CacheKey identifies a show in the external-id cache. Library shows use
// their rating key; suggestions use title and year.
func CacheKey(show media.Show) string {
	if show.RatingKey > 0 {
		return "plex:" + strconv.FormatInt(show.RatingKey, 10)
	}
	return "title:" + textutil.NormalizeTitle(show.Title) + "|" + strconv.Itoa(show.Year)
}

// ResolveTMDBID returns the TMDB id of show, or 0 when none can be found.
func (r *Resolver) ResolveTMDBID(ctx context.Context, show media.Show) (int64, error) {
	if show.TMDBID > 0 {
		return show.TMDBID, nil
	}
	key := CacheKey(show)
	if r.store != nil {
		if cached, ok := r.store.ExternalID(key); ok {
			return cached.TMDBID, nil
		}
	}
	if r.client == nil {
		return 0, nil
	}

	id, err := r.search(ctx, show)
	if err != nil {
		return 0, err
	}
	if id == 0 && show.IMDbID != "" {
		if id, err = r.findByIMDb(ctx, show.IMDbID); err != nil {
			return 0, err
		}
	}
	r.remember(key, cache.ExternalID{TMDBID: id, IMDbID: show.IMDbID})
	if id == 0 {
		r.logger.Debug("no tmdb id found", logging.String("title", show.Label()))
	}
	return id, nil
}

func (r *Resolver) search(ctx context.Context, show media.Show) (int64, error) {
	title, year := show.Title, show.Year
	if clean, embedded, ok := textutil.SplitEmbeddedYear(title); ok {
		title = clean
		if year == 0 {
			year = embedded
		}
	}
	if title == "" {
		return 0, nil
	}
	resp, err := r.client.SearchTV(ctx, title, tmdb.SearchOptions{Year: year})
	if err != nil {
		return 0, classify("search", err)
	}
	if best := selectBestResult(r.logger, title, year, resp); best != nil {
		return best.ID, nil
	}
	return 0, nil
}

func (r *Resolver) findByIMDb(ctx context.Context, imdbID string) (int64, error) {
	results, err := r.client.FindByIMDb(ctx, imdbID)
	if err != nil {
		if retry.StatusCode(err) == http.StatusNotFound {
			return 0, nil
		}
		return 0, classify("find", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].ID, nil
}

// Keywords implements features.KeywordSource.
func (r *Resolver) Keywords(ctx context.Context, show media.Show) ([]string, error) {
	id, err := r.ResolveTMDBID(ctx, show)
	if err != nil || id == 0 {
		return nil, err
	}
	if r.store != nil {
		if cached, ok := r.store.Keywords(id); ok {
			return cached, nil
		}
	}
	if r.client == nil {
		return nil, nil
	}
	keywords, err := r.client.Keywords(ctx, id)
	if err != nil {
		if retry.StatusCode(err) != http.StatusNotFound {
			return nil, classify("keywords", err)
		}
		keywords = nil
	}
	if r.store != nil {
		if err := r.store.StoreKeywords(id, keywords); err != nil {
			r.warnPersist(err)
		}
	}
	return keywords, nil
}

func (r *Resolver) remember(key string, id cache.ExternalID) {
	if r.store == nil {
		return
	}
	if err := r.store.StoreExternalID(key, id); err != nil {
		r.warnPersist(err)
	}
}

func (r *Resolver) warnPersist(err error) {
	logging.WarnWithContext(r.logger, "lookup cache write failed", "cache_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check paths.cache_dir permissions and free space"),
		logging.String(logging.FieldImpact, "lookup repeats on the next run"),
	)
}

func classify(op string, err error) error {
	marker := services.ErrUpstream
	if retry.Retryable(err) || errors.Is(err, tmdb.ErrUnavailable) {
		marker = services.ErrTransient
	}
	return services.Wrap(marker, "tmdb", op, "", err)
}
