package tmdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"tvrecs/internal/retry"
	"tvrecs/internal/services/apiclient"
)

// Result represents a single TMDB search match.
type Result struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	OriginalName string  `json:"original_name"`
	Overview     string  `json:"overview"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	VoteCount    int64   `json:"vote_count"`
}

// Year returns the first-air year or 0.
func (r Result) Year() int {
	if len(r.FirstAirDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(r.FirstAirDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Season is a season summary from the show details payload.
type Season struct {
	SeasonNumber int `json:"season_number"`
	EpisodeCount int `json:"episode_count"`
}

// Details is the subset of /tv/{id} used for enrichment and Sonarr seasons.
type Details struct {
	ID               int64    `json:"id"`
	Name             string   `json:"name"`
	OriginalLanguage string   `json:"original_language"`
	Seasons          []Season `json:"seasons"`
}

// CastMember is one credited actor, in billing order.
type CastMember struct {
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// ExternalIDs links a TMDB show to other catalogues.
type ExternalIDs struct {
	IMDbID string `json:"imdb_id"`
	TVDBID int64  `json:"tvdb_id"`
}

// SearchOptions contains optional parameters for TMDB TV search.
type SearchOptions struct {
	Year int `json:"year,omitempty"`
}

// Searcher defines the TMDB operations used by identification and enrichment.
type Searcher interface {
	SearchTV(ctx context.Context, query string, opts SearchOptions) (*Response, error)
	FindByIMDb(ctx context.Context, imdbID string) ([]Result, error)
	TVDetails(ctx context.Context, showID int64) (*Details, error)
	Keywords(ctx context.Context, showID int64) ([]string, error)
	Credits(ctx context.Context, showID int64) ([]CastMember, error)
	ExternalIDs(ctx context.Context, showID int64) (*ExternalIDs, error)
}

// Client provides access to the TMDB API.
type Client struct {
	api      *apiclient.Client
	language string
	breaker  *gobreaker.CircuitBreaker[struct{}]
}

var _ Searcher = (*Client)(nil)

type settings struct {
	api      []apiclient.Option
	failures uint32
	cooldown time.Duration
}

// Option configures a Client.
type Option func(*settings)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client apiclient.HTTPDoer) Option {
	return func(s *settings) { s.api = append(s.api, apiclient.WithHTTPClient(client)) }
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(policy retry.Policy) Option {
	return func(s *settings) { s.api = append(s.api, apiclient.WithRetry(policy)) }
}

// WithRateLimit throttles requests per second.
func WithRateLimit(rps float64) Option {
	return func(s *settings) { s.api = append(s.api, apiclient.WithRateLimit(rps)) }
}

// WithBreaker sets how many consecutive failures open the breaker and how
// long it stays open.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(s *settings) {
		if failures > 0 {
			s.failures = failures
		}
		if cooldown > 0 {
			s.cooldown = cooldown
		}
	}
}

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("tmdb temporarily unavailable")

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	s := settings{failures: 5, cooldown: time.Minute}
	for _, opt := range opts {
		opt(&s)
	}
	apiOpts := append([]apiclient.Option{
		apiclient.WithQuery("api_key", apiKey),
		apiclient.WithTimeout(10 * time.Second),
	}, s.api...)

	failures := s.failures
	return &Client{
		api:      apiclient.New("tmdb", baseURL, apiOpts...),
		language: strings.TrimSpace(language),
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:    "tmdb",
			Timeout: s.cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				// A 404 is an answer, not an outage.
				return err == nil || retry.StatusCode(err) == http.StatusNotFound || errors.Is(err, context.Canceled)
			},
		}),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	if c.language != "" {
		query.Set("language", c.language)
	}
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.api.Get(ctx, path, query, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// SearchTV performs a TMDB TV search with an optional first-air-date year.
func (c *Client) SearchTV(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	params := url.Values{}
	params.Set("query", query)
	if opts.Year > 0 {
		params.Set("first_air_date_year", strconv.Itoa(opts.Year))
	}
	var payload Response
	if err := c.get(ctx, "/search/tv", params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FindByIMDb returns the TV results TMDB links to an IMDb id.
func (c *Client) FindByIMDb(ctx context.Context, imdbID string) ([]Result, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, errors.New("imdb id must not be empty")
	}
	params := url.Values{}
	params.Set("external_source", "imdb_id")
	var payload struct {
		TVResults []Result `json:"tv_results"`
	}
	if err := c.get(ctx, "/find/"+url.PathEscape(imdbID), params, &payload); err != nil {
		return nil, err
	}
	return payload.TVResults, nil
}

// TVDetails fetches show details by TMDB ID.
func (c *Client) TVDetails(ctx context.Context, showID int64) (*Details, error) {
	if showID <= 0 {
		return nil, errors.New("show id must be positive")
	}
	var payload Details
	if err := c.get(ctx, fmt.Sprintf("/tv/%d", showID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Keywords returns the keyword names attached to a show.
func (c *Client) Keywords(ctx context.Context, showID int64) ([]string, error) {
	if showID <= 0 {
		return nil, errors.New("show id must be positive")
	}
	var payload struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	}
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/keywords", showID), nil, &payload); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(payload.Results))
	for _, kw := range payload.Results {
		if name := strings.TrimSpace(kw.Name); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Credits returns the cast in billing order.
func (c *Client) Credits(ctx context.Context, showID int64) ([]CastMember, error) {
	if showID <= 0 {
		return nil, errors.New("show id must be positive")
	}
	var payload struct {
		Cast []CastMember `json:"cast"`
	}
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/credits", showID), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Cast, nil
}

// ExternalIDs returns the IMDb and TVDB ids of a show.
func (c *Client) ExternalIDs(ctx context.Context, showID int64) (*ExternalIDs, error) {
	if showID <= 0 {
		return nil, errors.New("show id must be positive")
	}
	var payload ExternalIDs
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/external_ids", showID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
