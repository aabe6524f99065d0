package recommend

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"tvrecs/internal/config"
	"tvrecs/internal/identification/tmdb"
	"tvrecs/internal/media"
	"tvrecs/internal/notifications"
	"tvrecs/internal/retry"
	"tvrecs/internal/services/plex"
	"tvrecs/internal/services/sonarr"
	"tvrecs/internal/services/tautulli"
	"tvrecs/internal/services/trakt"
)

// LibrarySource enumerates the library and reads the per-show metadata a
// listing omits: audio language and cast.
type LibrarySource interface {
	Shows(ctx context.Context) ([]media.Show, error)
	AudioLanguage(ctx context.Context, show media.Show) (string, error)
	Cast(ctx context.Context, show media.Show) ([]string, error)
}

// PlexHistory reads one Plex user's watch state.
type PlexHistory interface {
	WatchedShowKeys(ctx context.Context) ([]int64, error)
	WatchedEpisodes(ctx context.Context) ([]plex.Episode, error)
}

// TautulliHistory reads per-user history from Tautulli.
type TautulliHistory interface {
	ResolveUsers(ctx context.Context, names []string) ([]tautulli.User, error)
	WatchedShowKeys(ctx context.Context, userID int64) ([]int64, error)
}

// SuggestionSource is the Trakt surface the run uses.
type SuggestionSource interface {
	HasHistory(ctx context.Context) (bool, error)
	Recommendations(ctx context.Context, limit int) ([]media.Show, error)
	FindShow(ctx context.Context, title string, year int) (trakt.Show, bool, error)
	SyncHistory(ctx context.Context, watches []trakt.Watch) (trakt.SyncResult, error)
	ClearHistory(ctx context.Context) (int, error)
}

// Deps are the collaborators of a Runner. Nil optional members disable the
// corresponding feature.
type Deps struct {
	Library LibrarySource
	// History returns the history reader for a Plex user; "" is the token owner.
	History  func(user string) PlexHistory
	Tautulli TautulliHistory
	TMDB     tmdb.Searcher
	Trakt    SuggestionSource
	Sonarr   *sonarr.Client
	Notifier notifications.Service
	Rand     *rand.Rand
	Progress ProgressFactory
	Now      func() time.Time
}

// RetryPolicy converts the retry section into a policy.
func RetryPolicy(cfg *config.Config) retry.Policy {
	return retry.New(cfg.Retry.MaxAttempts, time.Duration(cfg.Retry.BackoffSeconds*float64(time.Second)))
}

// Wire builds production dependencies from configuration.
func Wire(cfg *config.Config, logger *slog.Logger) (Deps, error) {
	policy := RetryPolicy(cfg)
	plexOpts := plex.Options{
		Timeout: time.Duration(cfg.Plex.TimeoutSeconds) * time.Second,
		Retry:   policy,
	}
	admin := plex.New(cfg.Plex.URL, cfg.Plex.Token, cfg.Plex.Library, plexOpts)
	deps := Deps{
		Library: admin,
		History: func(user string) PlexHistory {
			if user == "" {
				return admin
			}
			return plex.New(cfg.Plex.URL, cfg.PlexTokenFor(user), cfg.Plex.Library, plexOpts)
		},
		Notifier: notifications.NewService(cfg),
	}
	if cfg.TautulliEnabled() {
		deps.Tautulli = tautulli.New(cfg.Tautulli.URL, cfg.Tautulli.APIKey, tautulli.Options{
			Timeout: plexOpts.Timeout,
			Retry:   policy,
		})
	}
	if cfg.TMDB.APIKey != "" {
		client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
			tmdb.WithRetry(policy),
			tmdb.WithRateLimit(cfg.TMDB.RequestsPerSecond),
		)
		if err != nil {
			return Deps{}, err
		}
		deps.TMDB = client
	}
	if cfg.TraktEnabled() {
		deps.Trakt = trakt.New(trakt.Options{
			BaseURL:           cfg.Trakt.BaseURL,
			ClientID:          cfg.Trakt.ClientID,
			AccessToken:       cfg.Trakt.AccessToken,
			RequestsPerSecond: cfg.Trakt.RequestsPerSecond,
			Retry:             policy,
		})
	}
	if cfg.Sonarr.Enabled {
		deps.Sonarr = sonarr.New(cfg.Sonarr.URL, cfg.Sonarr.APIKey, sonarr.Options{Retry: policy})
	}
	if logger != nil {
		logger.Debug("dependencies wired",
			slog.Bool("tautulli", deps.Tautulli != nil),
			slog.Bool("tmdb", deps.TMDB != nil),
			slog.Bool("trakt", deps.Trakt != nil),
			slog.Bool("sonarr", deps.Sonarr != nil),
		)
	}
	return deps, nil
}
