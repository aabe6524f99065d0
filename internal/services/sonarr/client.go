// Package sonarr forwards picked suggestions to a Sonarr v3 server.
package sonarr

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"tvrecs/internal/retry"
	"tvrecs/internal/services"
	"tvrecs/internal/services/apiclient"
)

// Series is the subset of a Sonarr series the add flow reads.
type Series struct {
	ID     int64  `json:"id"`
	TVDBID int64  `json:"tvdbId"`
	Title  string `json:"title"`
}

// Tag is a Sonarr tag.
type Tag struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// QualityProfile is a Sonarr quality profile.
type QualityProfile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SeasonMonitor toggles one season.
type SeasonMonitor struct {
	SeasonNumber int  `json:"seasonNumber"`
	Monitored    bool `json:"monitored"`
}

// AddOptions controls what Sonarr does right after adding a series.
type AddOptions struct {
	SearchForMissingEpisodes bool   `json:"searchForMissingEpisodes"`
	Monitor                  string `json:"monitor"`
}

// AddRequest is the series/POST payload.
type AddRequest struct {
	TVDBID           int64           `json:"tvdbId"`
	Title            string          `json:"title"`
	QualityProfileID int64           `json:"qualityProfileId"`
	SeasonFolder     bool            `json:"seasonFolder"`
	RootFolderPath   string          `json:"rootFolderPath"`
	Monitored        bool            `json:"monitored"`
	AddOptions       AddOptions      `json:"addOptions"`
	Seasons          []SeasonMonitor `json:"seasons,omitempty"`
	Tags             []int64         `json:"tags,omitempty"`
}

// Command is a command/POST payload such as MissingEpisodeSearch.
type Command struct {
	Name      string  `json:"name"`
	SeriesID  int64   `json:"seriesId,omitempty"`
	SeriesIDs []int64 `json:"seriesIds,omitempty"`
}

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	Retry   retry.Policy
	HTTP    apiclient.HTTPDoer
}

// Client talks to the Sonarr v3 API.
type Client struct {
	api *apiclient.Client
}

// New builds a Client. A base URL without an /api/ segment gets /api/v3.
func New(baseURL, apiKey string, opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.Contains(base, "/api/") {
		base += "/api/v3"
	}
	apiOpts := []apiclient.Option{
		apiclient.WithHeader("X-Api-Key", apiKey),
		apiclient.WithRetry(opts.Retry),
		apiclient.WithTimeout(opts.Timeout),
	}
	if opts.HTTP != nil {
		apiOpts = append(apiOpts, apiclient.WithHTTPClient(opts.HTTP))
	}
	return &Client{api: apiclient.New("sonarr", base, apiOpts...)}
}

// Status checks connectivity and credentials.
func (c *Client) Status(ctx context.Context) error {
	if err := c.api.Get(ctx, "/system/status", nil, nil); err != nil {
		return classify("status", err)
	}
	return nil
}

// EnsureTag returns the id of the tag with label (case-insensitive),
// creating it when missing.
func (c *Client) EnsureTag(ctx context.Context, label string) (int64, error) {
	var tags []Tag
	if err := c.api.Get(ctx, "/tag", nil, &tags); err != nil {
		return 0, classify("tags", err)
	}
	for _, t := range tags {
		if strings.EqualFold(t.Label, label) {
			return t.ID, nil
		}
	}
	var created Tag
	if err := c.api.Post(ctx, "/tag", Tag{Label: label}, &created); err != nil {
		return 0, classify("create tag", err)
	}
	return created.ID, nil
}

// QualityProfileID resolves a profile name (case-insensitive). An unknown name
// is a configuration error listing the available profiles.
func (c *Client) QualityProfileID(ctx context.Context, name string) (int64, error) {
	var profiles []QualityProfile
	if err := c.api.Get(ctx, "/qualityprofile", nil, &profiles); err != nil {
		return 0, classify("quality profiles", err)
	}
	available := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if strings.EqualFold(p.Name, name) {
			return p.ID, nil
		}
		available = append(available, p.Name)
	}
	slices.Sort(available)
	return 0, services.Wrap(services.ErrConfiguration, "sonarr", "quality profiles",
		fmt.Sprintf("profile %q not found (available: %s)", name, strings.Join(available, ", ")), nil)
}

// Series lists every series Sonarr manages.
func (c *Client) Series(ctx context.Context) ([]Series, error) {
	var series []Series
	if err := c.api.Get(ctx, "/series", nil, &series); err != nil {
		return nil, classify("series", err)
	}
	return series, nil
}

// SeriesDocument fetches the full series resource. It is kept as a raw
// document so updates round-trip fields this package does not model.
func (c *Client) SeriesDocument(ctx context.Context, id int64) (map[string]any, error) {
	var doc map[string]any
	if err := c.api.Get(ctx, seriesPath(id), nil, &doc); err != nil {
		return nil, classify("series "+strconv.FormatInt(id, 10), err)
	}
	return doc, nil
}

// UpdateSeries replaces the series resource.
func (c *Client) UpdateSeries(ctx context.Context, id int64, doc map[string]any) error {
	if err := c.api.Put(ctx, seriesPath(id), doc, nil); err != nil {
		return classify("update series "+strconv.FormatInt(id, 10), err)
	}
	return nil
}

// AddSeries creates a series and returns it.
func (c *Client) AddSeries(ctx context.Context, req AddRequest) (Series, error) {
	var created Series
	if err := c.api.Post(ctx, "/series", req, &created); err != nil {
		return Series{}, classify("add series", err)
	}
	return created, nil
}

// RunCommand queues a Sonarr command.
func (c *Client) RunCommand(ctx context.Context, cmd Command) error {
	if err := c.api.Post(ctx, "/command", cmd, nil); err != nil {
		return classify("command "+cmd.Name, err)
	}
	return nil
}

func seriesPath(id int64) string {
	return "/series/" + url.PathEscape(strconv.FormatInt(id, 10))
}

// applyMonitoring marks the series monitored and rewrites its season list for
// the monitor option. Specials (season 0) are dropped from the list.
func applyMonitoring(doc map[string]any, monitor string) {
	doc["monitored"] = true
	raw, ok := doc["seasons"].([]any)
	if !ok {
		return
	}
	seasons := make([]any, 0, len(raw))
	for _, item := range raw {
		season, ok := item.(map[string]any)
		if !ok {
			continue
		}
		number := seasonNumber(season["seasonNumber"])
		if number == 0 {
			continue
		}
		entry := map[string]any{
			"seasonNumber": number,
			"monitored":    monitor == MonitorAll || (monitor == MonitorFirstSeason && number == 1),
		}
		if stats, ok := season["statistics"]; ok {
			entry["statistics"] = stats
		}
		seasons = append(seasons, entry)
	}
	doc["seasons"] = seasons
}

func seasonNumber(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func classify(op string, err error) error {
	switch code := retry.StatusCode(err); {
	case code == 401 || code == 403:
		return services.Wrap(services.ErrConfiguration, "sonarr", op, "api key rejected", err)
	case code == 404:
		return services.Wrap(services.ErrNotFound, "sonarr", op, "", err)
	case retry.Retryable(err):
		return services.Wrap(services.ErrTransient, "sonarr", op, "", err)
	}
	return services.Wrap(services.ErrUpstream, "sonarr", op, "", err)
}
