// Package tautulli reads per-user episode watch history from Tautulli.
package tautulli

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

// PageSize is the largest history page Tautulli serves.
const PageSize = 1000

// AllUsers selects every Tautulli user.
const AllUsers = "all"

// User is a Tautulli account.
type User struct {
	ID       int64  `json:"user_id"`
	Username string `json:"username"`
}

// Client talks to the Tautulli v2 API.
type Client struct {
	api *apiclient.Client
}

// Options configures a Client.
type Options struct {
	Timeout time.Duration
	Retry   retry.Policy
	HTTP    apiclient.HTTPDoer
}

// New builds a Client.
func New(baseURL, apiKey string, opts Options) *Client {
	apiOpts := []apiclient.Option{
		apiclient.WithQuery("apikey", apiKey),
		apiclient.WithRetry(opts.Retry),
		apiclient.WithTimeout(opts.Timeout),
	}
	if opts.HTTP != nil {
		apiOpts = append(apiOpts, apiclient.WithHTTPClient(opts.HTTP))
	}
	return &Client{api: apiclient.New("tautulli", baseURL, apiOpts...)}
}

type envelope struct {
	Response struct {
		Result  string          `json:"result"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"response"`
}

func (c *Client) call(ctx context.Context, cmd string, params url.Values) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("cmd", cmd)
	for k, v := range params {
		query[k] = v
	}
	var env envelope
	if err := c.api.Get(ctx, "/api/v2", query, &env); err != nil {
		return nil, classify(cmd, err)
	}
	if r := env.Response.Result; r != "" && r != "success" {
		return nil, services.Wrap(services.ErrUpstream, "tautulli", cmd, env.Response.Message, nil)
	}
	return env.Response.Data, nil
}

// Users lists every Tautulli user.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	data, err := c.call(ctx, "get_users", nil)
	if err != nil {
		return nil, err
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, services.Wrap(services.ErrUpstream, "tautulli", "get_users", "decode users", err)
	}
	return users, nil
}

// ResolveUsers maps configured names to accounts. Matching ignores case; the
// single name "all" selects every user. Unknown names are a configuration
// error listing the available usernames.
func (c *Client) ResolveUsers(ctx context.Context, names []string) ([]User, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 1 && strings.EqualFold(strings.TrimSpace(names[0]), AllUsers) {
		return users, nil
	}
	var (
		resolved []User
		missing  []string
	)
	for _, name := range names {
		idx := slices.IndexFunc(users, func(u User) bool { return strings.EqualFold(u.Username, strings.TrimSpace(name)) })
		if idx < 0 {
			missing = append(missing, name)
			continue
		}
		resolved = append(resolved, users[idx])
	}
	if len(missing) > 0 {
		available := make([]string, len(users))
		for i, u := range users {
			available[i] = u.Username
		}
		slices.Sort(available)
		return nil, services.Wrap(services.ErrConfiguration, "tautulli", "resolve users",
			fmt.Sprintf("unknown users %s (available: %s)", strings.Join(missing, ", "), strings.Join(available, ", ")), nil)
	}
	return resolved, nil
}

// ratingKey accepts the number, numeric string and empty string forms
// Tautulli emits for rating keys.
type ratingKey int64

func (k *ratingKey) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*k = 0
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("rating key %q: %w", raw, err)
	}
	*k = ratingKey(n)
	return nil
}

type historyItem struct {
	GrandparentRatingKey ratingKey `json:"grandparent_rating_key"`
}

type historyPage struct {
	Data            []historyItem `json:"data"`
	RecordsFiltered int           `json:"recordsFiltered"`
}

// decodeHistory accepts both the paged object form and the bare list form.
func decodeHistory(data json.RawMessage) ([]historyItem, int, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var items []historyItem
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, 0, err
		}
		return items, len(items), nil
	}
	var page historyPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, 0, err
	}
	return page.Data, page.RecordsFiltered, nil
}

// WatchedShowKeys returns the distinct show rating keys in a user's episode
// history, walking every page.
func (c *Client) WatchedShowKeys(ctx context.Context, userID int64) ([]int64, error) {
	seen := map[int64]struct{}{}
	start := 0
	for {
		params := url.Values{}
		params.Set("media_type", "episode")
		params.Set("user_id", strconv.FormatInt(userID, 10))
		params.Set("length", strconv.Itoa(PageSize))
		params.Set("start", strconv.Itoa(start))
		data, err := c.call(ctx, "get_history", params)
		if err != nil {
			return nil, err
		}
		items, total, err := decodeHistory(data)
		if err != nil {
			return nil, services.Wrap(services.ErrUpstream, "tautulli", "get_history", "decode history", err)
		}
		for _, item := range items {
			if key := int64(item.GrandparentRatingKey); key > 0 {
				seen[key] = struct{}{}
			}
		}
		if len(items) == 0 || start+len(items) >= total {
			break
		}
		start += len(items)
	}
	keys := make([]int64, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

func classify(op string, err error) error {
	switch code := retry.StatusCode(err); {
	case code == 401 || code == 403:
		return services.Wrap(services.ErrConfiguration, "tautulli", op, "api key rejected", err)
	case retry.Retryable(err):
		return services.Wrap(services.ErrTransient, "tautulli", op, "", err)
	}
	return services.Wrap(services.ErrUpstream, "tautulli", op, "", err)
}
