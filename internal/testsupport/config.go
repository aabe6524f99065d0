// Package testsupport builds isolated configurations and stores for tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"tvrecs/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Plex points at an unroutable address until WithPlex overrides it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Plex.URL = "http://127.0.0.1:1"
	cfgVal.Plex.Token = "test"
	cfgVal.Retry.MaxAttempts = 1
	cfgVal.Retry.BackoffSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithPlex points the Plex section at url.
func WithPlex(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Plex.URL = url
	}
}

// WithTautulli enables Tautulli history for users.
func WithTautulli(url string, users ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Tautulli.URL = url
		b.cfg.Tautulli.APIKey = "test"
		b.cfg.Tautulli.Users = users
	}
}

// WithTMDB sets the TMDB base URL and a test key.
func WithTMDB(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMDB.BaseURL = url
		b.cfg.TMDB.APIKey = "test"
	}
}

// WithTrakt enables Trakt against url.
func WithTrakt(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Trakt.BaseURL = url
		b.cfg.Trakt.ClientID = "test"
		b.cfg.Trakt.AccessToken = "test"
		b.cfg.Trakt.RequestsPerSecond = 1000
	}
}

// WithSonarr enables Sonarr against url.
func WithSonarr(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sonarr.Enabled = true
		b.cfg.Sonarr.URL = url
		b.cfg.Sonarr.APIKey = "test"
		b.cfg.Sonarr.RootFolder = "/tv"
		b.cfg.Sonarr.QualityProfile = "Any"
	}
}

// WithHistoryStrategy selects merged or per-user contexts.
func WithHistoryStrategy(strategy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Strategy = strategy
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
