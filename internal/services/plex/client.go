package plex

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"tvrecs/internal/media"
	"tvrecs/internal/retry"
	"tvrecs/internal/services"
	"tvrecs/internal/services/apiclient"
)

const (
	typeShow    = "2"
	typeEpisode = "4"
)

// Client reads one library section with one token.
type Client struct {
	api     *apiclient.Client
	library string

	mu         sync.Mutex
	sectionKey string
}

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	Retry   retry.Policy
	HTTP    apiclient.HTTPDoer
}

// New builds a Client for the named library.
func New(baseURL, token, library string, opts Options) *Client {
	apiOpts := []apiclient.Option{
		apiclient.WithHeader("X-Plex-Token", token),
		apiclient.WithHeader("X-Plex-Product", "tvrecs"),
		apiclient.WithRetry(opts.Retry),
		apiclient.WithTimeout(opts.Timeout),
	}
	if opts.HTTP != nil {
		apiOpts = append(apiOpts, apiclient.WithHTTPClient(opts.HTTP))
	}
	return &Client{
		api:     apiclient.New("plex", baseURL, apiOpts...),
		library: strings.TrimSpace(library),
	}
}

// SectionKey resolves the configured library title (case-insensitive) to its
// section key. An unknown library is a configuration error.
func (c *Client) SectionKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sectionKey != "" {
		return c.sectionKey, nil
	}
	var payload container[sectionList]
	if err := c.api.Get(ctx, "/library/sections", nil, &payload); err != nil {
		return "", classify("sections", err)
	}
	var available []string
	for _, dir := range payload.MediaContainer.Directory {
		available = append(available, dir.Title)
		if strings.EqualFold(dir.Title, c.library) && dir.Key != "" {
			c.sectionKey = dir.Key
			return dir.Key, nil
		}
	}
	slices.Sort(available)
	return "", services.Wrap(services.ErrConfiguration, "plex", "sections",
		fmt.Sprintf("library %q not found (available: %s)", c.library, strings.Join(available, ", ")), nil)
}

func (c *Client) list(ctx context.Context, kind string, extra url.Values) ([]metadata, error) {
	key, err := c.SectionKey(ctx)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("type", kind)
	query.Set("includeGuids", "1")
	for k, v := range extra {
		query[k] = v
	}
	var payload container[metadataList]
	if err := c.api.Get(ctx, "/library/sections/"+url.PathEscape(key)+"/all", query, &payload); err != nil {
		return nil, classify("list", err)
	}
	return payload.MediaContainer.Metadata, nil
}

// Shows lists every show in the library. Listing entries carry no cast; use
// Show or Cast for full metadata.
func (c *Client) Shows(ctx context.Context) ([]media.Show, error) {
	items, err := c.list(ctx, typeShow, nil)
	if err != nil {
		return nil, err
	}
	shows := make([]media.Show, 0, len(items))
	for _, item := range items {
		if show := item.toShow(); show.RatingKey > 0 {
			shows = append(shows, show)
		}
	}
	return shows, nil
}

// Show fetches full metadata (cast included) for one show.
func (c *Client) Show(ctx context.Context, ratingKey int64) (media.Show, error) {
	item, err := c.metadata(ctx, ratingKey)
	if err != nil {
		return media.Show{}, err
	}
	return item.toShow(), nil
}

// Cast returns the billed cast from the show's full metadata. It implements
// features.CastSource.
func (c *Client) Cast(ctx context.Context, show media.Show) ([]string, error) {
	if show.RatingKey <= 0 {
		return nil, nil
	}
	full, err := c.Show(ctx, show.RatingKey)
	if err != nil {
		return nil, err
	}
	return full.Cast, nil
}

func (c *Client) metadata(ctx context.Context, ratingKey int64) (metadata, error) {
	query := url.Values{}
	query.Set("includeGuids", "1")
	var payload container[metadataList]
	path := "/library/metadata/" + strconv.FormatInt(ratingKey, 10)
	if err := c.api.Get(ctx, path, query, &payload); err != nil {
		return metadata{}, classify("metadata", err)
	}
	if len(payload.MediaContainer.Metadata) == 0 {
		return metadata{}, services.Wrap(services.ErrNotFound, "plex", "metadata", path, nil)
	}
	return payload.MediaContainer.Metadata[0], nil
}

// WatchedShowKeys returns the rating keys of shows with at least one watched
// episode.
func (c *Client) WatchedShowKeys(ctx context.Context) ([]int64, error) {
	episodes, err := c.WatchedEpisodes(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(episodes))
	keys := make([]int64, 0, len(episodes))
	for _, ep := range episodes {
		if ep.ShowKey == 0 {
			continue
		}
		if _, dup := seen[ep.ShowKey]; dup {
			continue
		}
		seen[ep.ShowKey] = struct{}{}
		keys = append(keys, ep.ShowKey)
	}
	slices.Sort(keys)
	return keys, nil
}

// WatchedEpisodes lists watched episodes with their TVDB ids and last view time.
func (c *Client) WatchedEpisodes(ctx context.Context) ([]Episode, error) {
	items, err := c.list(ctx, typeEpisode, url.Values{"unwatched": {"0"}})
	if err != nil {
		return nil, err
	}
	episodes := make([]Episode, 0, len(items))
	for _, item := range items {
		episodes = append(episodes, item.toEpisode())
	}
	return episodes, nil
}

// AudioLanguage returns the language of the primary audio stream of the
// show's first episode, or "" without audio metadata. It implements
// features.LanguageSource.
func (c *Client) AudioLanguage(ctx context.Context, show media.Show) (string, error) {
	if show.RatingKey <= 0 {
		return "", nil
	}
	query := url.Values{}
	query.Set("X-Plex-Container-Start", "0")
	query.Set("X-Plex-Container-Size", "1")
	var leaves container[metadataList]
	path := "/library/metadata/" + strconv.FormatInt(show.RatingKey, 10) + "/allLeaves"
	if err := c.api.Get(ctx, path, query, &leaves); err != nil {
		return "", classify("episodes", err)
	}
	if len(leaves.MediaContainer.Metadata) == 0 {
		return "", nil
	}
	first := leaves.MediaContainer.Metadata[0]
	if lang := first.audioLanguage(); lang != "" {
		return lang, nil
	}
	// Listings omit streams; the episode itself carries them.
	episodeKey := parseKey(first.RatingKey)
	if episodeKey == 0 {
		return "", nil
	}
	episode, err := c.metadata(ctx, episodeKey)
	if err != nil {
		return "", err
	}
	return episode.audioLanguage(), nil
}

func classify(op string, err error) error {
	switch code := retry.StatusCode(err); {
	case code == 401 || code == 403:
		return services.Wrap(services.ErrConfiguration, "plex", op, "token rejected", err)
	case code == 404:
		return services.Wrap(services.ErrNotFound, "plex", op, "", err)
	case retry.Retryable(err):
		return services.Wrap(services.ErrTransient, "plex", op, "", err)
	}
	return services.Wrap(services.ErrUpstream, "plex", op, "", err)
}
