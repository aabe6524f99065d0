package trakt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tvrecs/internal/language"
	"tvrecs/internal/media"
	"tvrecs/internal/retry"
	"tvrecs/internal/services"
	"tvrecs/internal/services/apiclient"
)

const (
	apiVersion = "2"
	// PageSize is the largest page Trakt serves.
	PageSize = 100
	// SyncBatchSize bounds the episodes sent in one history request.
	SyncBatchSize = 100
	// DefaultBatchPause spaces consecutive sync batches.
	DefaultBatchPause = time.Second
)

// IDs holds the identifiers Trakt reports for a show.
type IDs struct {
	Trakt int64  `json:"trakt,omitempty"`
	Slug  string `json:"slug,omitempty"`
	IMDb  string `json:"imdb,omitempty"`
	TMDB  int64  `json:"tmdb,omitempty"`
	TVDB  int64  `json:"tvdb,omitempty"`
}

// Show is the extended show representation.
type Show struct {
	Title    string   `json:"title"`
	Year     int      `json:"year"`
	Overview string   `json:"overview"`
	Genres   []string `json:"genres"`
	Rating   float64  `json:"rating"`
	Votes    int      `json:"votes"`
	Language string   `json:"language"`
	IDs      IDs      `json:"ids"`
}

// Media converts the show into the shared show model. The rating is rounded
// to one decimal, genres are lower-cased and the language code becomes a
// display name.
func (s Show) Media() media.Show {
	genres := make([]string, 0, len(s.Genres))
	for _, g := range s.Genres {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			genres = append(genres, g)
		}
	}
	return media.Show{
		Title:          strings.TrimSpace(s.Title),
		Year:           s.Year,
		Summary:        s.Overview,
		Genres:         genres,
		AudienceRating: math.Round(s.Rating*10) / 10,
		Votes:          s.Votes,
		Language:       language.DisplayName(s.Language),
		IMDbID:         s.IDs.IMDb,
		TMDBID:         s.IDs.TMDB,
		TVDBID:         s.IDs.TVDB,
		TraktID:        s.IDs.Trakt,
	}
}

type showEnvelope struct {
	Show *Show `json:"show"`
}

// Watch is one watched episode to forward.
type Watch struct {
	TVDBID    int64
	WatchedAt time.Time
}

// SyncResult reports a history sync.
type SyncResult struct {
	// Synced lists the TVDB ids of batches Trakt accepted.
	Synced  []int64
	Added   int
	Batches int
	Failed  int
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	ClientID          string
	AccessToken       string
	RequestsPerSecond float64
	Timeout           time.Duration
	Retry             retry.Policy
	HTTP              apiclient.HTTPDoer
	// BatchPause overrides DefaultBatchPause; negative disables the pause.
	BatchPause time.Duration
}

// Client talks to the Trakt API.
type Client struct {
	api        *apiclient.Client
	batchPause time.Duration
}

// New builds a Client.
func New(opts Options) *Client {
	apiOpts := []apiclient.Option{
		apiclient.WithHeader("trakt-api-version", apiVersion),
		apiclient.WithHeader("trakt-api-key", opts.ClientID),
		apiclient.WithRetry(opts.Retry),
		apiclient.WithRateLimit(opts.RequestsPerSecond),
		apiclient.WithTimeout(opts.Timeout),
	}
	if token := strings.TrimSpace(opts.AccessToken); token != "" {
		apiOpts = append(apiOpts, apiclient.WithHeader("Authorization", "Bearer "+token))
	}
	if opts.HTTP != nil {
		apiOpts = append(apiOpts, apiclient.WithHTTPClient(opts.HTTP))
	}
	pause := opts.BatchPause
	if pause == 0 {
		pause = DefaultBatchPause
	}
	return &Client{api: apiclient.New("trakt", opts.BaseURL, apiOpts...), batchPause: pause}
}

// HasHistory reports whether the account has any watched shows.
func (c *Client) HasHistory(ctx context.Context) (bool, error) {
	var page []showEnvelope
	query := url.Values{"limit": {"1"}}
	if err := c.api.Get(ctx, "/sync/history/shows", query, &page); err != nil {
		return false, classify("history", err)
	}
	return len(page) > 0, nil
}

// Recommendations pages through personalised show suggestions until limit shows
// are collected or Trakt runs out. A non-positive limit reads one page.
func (c *Client) Recommendations(ctx context.Context, limit int) ([]media.Show, error) {
	var shows []media.Show
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(PageSize))
		query.Set("page", strconv.Itoa(page))
		query.Set("extended", "full")
		var batch []Show
		if err := c.api.Get(ctx, "/recommendations/shows", query, &batch); err != nil {
			return shows, classify("recommendations", err)
		}
		for _, s := range batch {
			if strings.TrimSpace(s.Title) == "" {
				continue
			}
			shows = append(shows, s.Media())
		}
		if limit <= 0 || len(shows) >= limit || len(batch) < PageSize {
			break
		}
	}
	if limit > 0 && len(shows) > limit {
		shows = shows[:limit]
	}
	return shows, nil
}

// Search returns shows matching title, optionally narrowed by year.
func (c *Client) Search(ctx context.Context, title string, year int) ([]Show, error) {
	query := url.Values{"query": {strings.TrimSpace(title)}}
	if year > 0 {
		query.Set("years", strconv.Itoa(year))
	}
	var results []showEnvelope
	if err := c.api.Get(ctx, "/search/show", query, &results); err != nil {
		return nil, classify("search", err)
	}
	shows := make([]Show, 0, len(results))
	for _, r := range results {
		if r.Show != nil {
			shows = append(shows, *r.Show)
		}
	}
	return shows, nil
}

// FindShow searches for title and prefers an exact title and year match,
// falling back to the first result. ok is false without results.
func (c *Client) FindShow(ctx context.Context, title string, year int) (Show, bool, error) {
	results, err := c.Search(ctx, title, year)
	if err != nil || len(results) == 0 {
		return Show{}, false, err
	}
	for _, r := range results {
		if strings.EqualFold(strings.TrimSpace(r.Title), strings.TrimSpace(title)) && r.Year == year {
			return r, true, nil
		}
	}
	return results[0], true, nil
}

// HistoryShowIDs collects the Trakt ids of every show in the watch history.
func (c *Client) HistoryShowIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	seen := map[int64]struct{}{}
	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", strconv.Itoa(PageSize))
		var batch []showEnvelope
		if err := c.api.Get(ctx, "/sync/history/shows", query, &batch); err != nil {
			return ids, classify("history", err)
		}
		for _, item := range batch {
			if item.Show == nil || item.Show.IDs.Trakt == 0 {
				continue
			}
			if _, dup := seen[item.Show.IDs.Trakt]; dup {
				continue
			}
			seen[item.Show.IDs.Trakt] = struct{}{}
			ids = append(ids, item.Show.IDs.Trakt)
		}
		if len(batch) < PageSize {
			return ids, nil
		}
	}
}

type idsOnly struct {
	IDs IDs `json:"ids"`
}

// ClearHistory removes every show from the watch history and returns the
// number of shows Trakt reports deleted.
func (c *Client) ClearHistory(ctx context.Context) (int, error) {
	ids, err := c.HistoryShowIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	payload := struct {
		Shows []idsOnly `json:"shows"`
	}{Shows: make([]idsOnly, len(ids))}
	for i, id := range ids {
		payload.Shows[i] = idsOnly{IDs: IDs{Trakt: id}}
	}
	var resp struct {
		Deleted struct {
			Shows    int `json:"shows"`
			Episodes int `json:"episodes"`
		} `json:"deleted"`
	}
	if err := c.api.Post(ctx, "/sync/history/remove", payload, &resp); err != nil {
		return 0, classify("history remove", err)
	}
	return resp.Deleted.Shows, nil
}

type episodeWatch struct {
	IDs       IDs    `json:"ids"`
	WatchedAt string `json:"watched_at"`
}

// SyncHistory forwards watched episodes in batches. A batch counts as synced
// only when Trakt reports added episodes. Failed batches are skipped and their
// errors joined into the returned error; a fatal or cancelled batch stops the
// sync.
func (c *Client) SyncHistory(ctx context.Context, watches []Watch) (SyncResult, error) {
	var (
		result SyncResult
		errs   []error
	)
	for start := 0; start < len(watches); start += SyncBatchSize {
		if start > 0 && c.batchPause > 0 {
			select {
			case <-ctx.Done():
				return result, errors.Join(append(errs, ctx.Err())...)
			case <-time.After(c.batchPause):
			}
		}
		batch := watches[start:min(start+SyncBatchSize, len(watches))]
		result.Batches++
		added, err := c.syncBatch(ctx, batch)
		if err != nil {
			result.Failed++
			errs = append(errs, err)
			if services.IsFatal(err) || ctx.Err() != nil {
				return result, errors.Join(errs...)
			}
			continue
		}
		if added == 0 {
			continue
		}
		result.Added += added
		for _, w := range batch {
			result.Synced = append(result.Synced, w.TVDBID)
		}
	}
	return result, errors.Join(errs...)
}

func (c *Client) syncBatch(ctx context.Context, batch []Watch) (int, error) {
	payload := struct {
		Episodes []episodeWatch `json:"episodes"`
	}{Episodes: make([]episodeWatch, len(batch))}
	for i, w := range batch {
		watched := w.WatchedAt
		if watched.IsZero() {
			watched = time.Now()
		}
		payload.Episodes[i] = episodeWatch{
			IDs:       IDs{TVDB: w.TVDBID},
			WatchedAt: watched.UTC().Format("2006-01-02T15:04:05.000Z"),
		}
	}
	var resp struct {
		Added struct {
			Episodes int `json:"episodes"`
		} `json:"added"`
	}
	if err := c.api.Post(ctx, "/sync/history", payload, &resp); err != nil {
		return 0, classify(fmt.Sprintf("sync batch of %d", len(batch)), err)
	}
	return resp.Added.Episodes, nil
}

func classify(op string, err error) error {
	switch code := retry.StatusCode(err); {
	case code == 401 || code == 403:
		return services.Wrap(services.ErrConfiguration, "trakt", op, "access token rejected; re-authorize the application", err)
	case code == 404:
		return services.Wrap(services.ErrNotFound, "trakt", op, "", err)
	case retry.Retryable(err) || errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTransient, "trakt", op, "", err)
	}
	return services.Wrap(services.ErrUpstream, "trakt", op, "", err)
}
