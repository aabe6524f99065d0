package preflight

import (
	"context"
	"time"

	"tvrecs/internal/config"
	"tvrecs/internal/identification/tmdb"
	"tvrecs/internal/retry"
	"tvrecs/internal/services/plex"
	"tvrecs/internal/services/sonarr"
	"tvrecs/internal/services/tautulli"
	"tvrecs/internal/services/trakt"
)

// probeTimeout bounds each service check; checks make a single attempt.
const probeTimeout = 10 * time.Second

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Probe is a named reachability check against one service.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// RunAll checks the cache and log directories, then every probe.
func RunAll(ctx context.Context, cfg *config.Config, probes []Probe) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	for _, probe := range probes {
		results = append(results, CheckService(ctx, probe))
	}
	return results
}

// ServiceProbes builds probes for Plex and every enabled integration.
func ServiceProbes(cfg *config.Config) []Probe {
	timeout := probeTimeout
	single := retry.None()

	probes := []Probe{{
		Name: "Plex",
		Check: func(ctx context.Context) error {
			client := plex.New(cfg.Plex.URL, cfg.Plex.Token, cfg.Plex.Library, plex.Options{Timeout: timeout, Retry: single})
			_, err := client.SectionKey(ctx)
			return err
		},
	}}

	if cfg.TautulliEnabled() {
		probes = append(probes, Probe{
			Name: "Tautulli",
			Check: func(ctx context.Context) error {
				_, err := tautulli.New(cfg.Tautulli.URL, cfg.Tautulli.APIKey, tautulli.Options{Timeout: timeout, Retry: single}).
					ResolveUsers(ctx, cfg.Tautulli.Users)
				return err
			},
		})
	}

	if cfg.TMDB.APIKey != "" {
		probes = append(probes, Probe{
			Name: "TMDB",
			Check: func(ctx context.Context) error {
				client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language, tmdb.WithRetry(single))
				if err != nil {
					return err
				}
				_, err = client.SearchTV(ctx, "Doctor Who", tmdb.SearchOptions{})
				return err
			},
		})
	}

	if cfg.TraktEnabled() {
		probes = append(probes, Probe{
			Name: "Trakt",
			Check: func(ctx context.Context) error {
				_, err := trakt.New(trakt.Options{
					BaseURL:     cfg.Trakt.BaseURL,
					ClientID:    cfg.Trakt.ClientID,
					AccessToken: cfg.Trakt.AccessToken,
					Timeout:     timeout,
					Retry:       single,
				}).HasHistory(ctx)
				return err
			},
		})
	}

	if cfg.Sonarr.Enabled {
		probes = append(probes, Probe{
			Name: "Sonarr",
			Check: func(ctx context.Context) error {
				return sonarr.New(cfg.Sonarr.URL, cfg.Sonarr.APIKey, sonarr.Options{Timeout: timeout, Retry: single}).Status(ctx)
			},
		})
	}
	return probes
}
