package config_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tvrecs/internal/config"
)

func setRequiredEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("PLEX_URL", "http://plex.local:32400/")
	t.Setenv("PLEX_TOKEN", "plex-token")
	return home
}

func TestLoadDefaultConfigUsesEnvAndExpandsPaths(t *testing.T) {
	home := setRequiredEnv(t)
	t.Setenv("TMDB_API_KEY", "env-tmdb")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(home, ".cache", "tvrecs"); cfg.Paths.CacheDir != want {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Paths.CacheDir, want)
	}
	if cfg.Plex.URL != "http://plex.local:32400" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Plex.URL)
	}
	if cfg.Plex.Token != "plex-token" {
		t.Fatalf("expected plex token from env, got %q", cfg.Plex.Token)
	}
	if cfg.TMDB.APIKey != "env-tmdb" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if !cfg.KeywordsEnabled() {
		t.Fatal("expected keywords enabled with API key present")
	}
	if cfg.Weights != config.DefaultWeights() {
		t.Fatalf("unexpected weights: %+v", cfg.Weights)
	}
	if cfg.WeightWarning() != "" {
		t.Fatalf("expected default weights to sum to 1.0, got warning %q", cfg.WeightWarning())
	}
	if cfg.Recommend.PoolFraction != 0.3 {
		t.Fatalf("unexpected pool fraction: %v", cfg.Recommend.PoolFraction)
	}
	if cfg.Cache.Fingerprint != config.FingerprintCardinality {
		t.Fatalf("unexpected fingerprint strategy: %q", cfg.Cache.Fingerprint)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestKeywordsDisabledWithoutAPIKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TMDB_API_KEY", "")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.KeywordsEnabled() {
		t.Fatal("expected keywords disabled without TMDB key")
	}
}

func writeConfig(t *testing.T, v any) string {
	t.Helper()
	data, err := toml.Marshal(v)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "tvrecs.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}
	return path
}

func TestLoadCustomPathNormalizesOptions(t *testing.T) {
	setRequiredEnv(t)

	type payload struct {
		Tautulli struct {
			URL    string   `toml:"url"`
			APIKey string   `toml:"api_key"`
			Users  []string `toml:"users"`
		} `toml:"tautulli"`
		History struct {
			Strategy string `toml:"strategy"`
		} `toml:"history"`
		Recommend struct {
			ExcludeGenres []string `toml:"exclude_genres"`
			PoolFraction  float64  `toml:"pool_fraction"`
		} `toml:"recommend"`
		Sonarr struct {
			MonitorOption string `toml:"monitor_option"`
		} `toml:"sonarr"`
	}
	custom := payload{}
	custom.Tautulli.URL = "http://tautulli:8181/"
	custom.Tautulli.APIKey = "abc"
	custom.Tautulli.Users = []string{" Alice ", "alice", "Bob"}
	custom.History.Strategy = "PER_USER"
	custom.Recommend.ExcludeGenres = []string{"Reality", " reality", "Talk Show"}
	custom.Recommend.PoolFraction = 0.2
	custom.Sonarr.MonitorOption = "FIRSTSEASON"
	path := writeConfig(t, custom)

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if got := strings.Join(cfg.Tautulli.Users, ","); got != "Alice,Bob" {
		t.Fatalf("unexpected tautulli users: %q", got)
	}
	if cfg.Tautulli.URL != "http://tautulli:8181" {
		t.Fatalf("unexpected tautulli url: %q", cfg.Tautulli.URL)
	}
	if cfg.History.Strategy != config.HistoryPerUser {
		t.Fatalf("unexpected strategy: %q", cfg.History.Strategy)
	}
	if got := strings.Join(cfg.Recommend.ExcludeGenres, ","); got != "reality,talk show" {
		t.Fatalf("unexpected excluded genres: %q", got)
	}
	if cfg.Sonarr.MonitorOption != "firstSeason" {
		t.Fatalf("unexpected monitor option: %q", cfg.Sonarr.MonitorOption)
	}
	if !cfg.TautulliEnabled() {
		t.Fatal("expected tautulli enabled")
	}
}

func TestTautulliNoneDisablesSource(t *testing.T) {
	setRequiredEnv(t)
	type payload struct {
		Tautulli struct {
			Users []string `toml:"users"`
		} `toml:"tautulli"`
	}
	custom := payload{}
	custom.Tautulli.Users = []string{"None"}

	cfg, _, _, err := config.Load(writeConfig(t, custom))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TautulliEnabled() {
		t.Fatalf("expected tautulli disabled, users=%v", cfg.Tautulli.Users)
	}
}

func TestValidateRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "missing plex url",
			mutate:  func(c *config.Config) { c.Plex.URL = "" },
			wantErr: "plex.url is required",
		},
		{
			name:    "pool fraction out of range",
			mutate:  func(c *config.Config) { c.Recommend.PoolFraction = 0.5 },
			wantErr: "recommend.pool_fraction",
		},
		{
			name:    "negative weight",
			mutate:  func(c *config.Config) { c.Weights.Studio = -0.1 },
			wantErr: "weights.studio",
		},
		{
			name:    "unknown fingerprint",
			mutate:  func(c *config.Config) { c.Cache.Fingerprint = "mtime" },
			wantErr: "cache.fingerprint",
		},
		{
			name: "sonarr missing fields",
			mutate: func(c *config.Config) {
				c.Sonarr.Enabled = true
				c.Sonarr.URL = "http://sonarr"
			},
			wantErr: "sonarr.api_key, sonarr.quality_profile, sonarr.root_folder must be set",
		},
		{
			name:    "unknown history strategy without tautulli",
			mutate:  func(c *config.Config) { c.History.Strategy = "peruser" },
			wantErr: "history.strategy",
		},
		{
			name: "several invalid weights report the first category",
			mutate: func(c *config.Config) {
				c.Weights.Keyword = -1
				c.Weights.Actor = math.NaN()
				c.Weights.Genre = math.Inf(1)
			},
			wantErr: "weights.genre must be",
		},
		{
			name: "tautulli without credentials",
			mutate: func(c *config.Config) {
				c.Tautulli.Users = []string{"all"}
			},
			wantErr: "tautulli.url and tautulli.api_key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Plex.URL = "http://plex"
			cfg.Plex.Token = "token"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("unexpected error: got %q want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWeightWarningOnlyWarns(t *testing.T) {
	cfg := config.Default()
	cfg.Plex.URL = "http://plex"
	cfg.Plex.Token = "token"
	cfg.Weights.Genre = 0.5
	if err := cfg.Validate(); err != nil {
		t.Fatalf("weight mismatch must not fail validation: %v", err)
	}
	if cfg.WeightWarning() == "" {
		t.Fatal("expected weight warning")
	}
}

func TestPlexTokenForFallsBackToServerToken(t *testing.T) {
	cfg := config.Default()
	cfg.Plex.Token = "admin"
	cfg.Plex.UserTokens = map[string]string{"Alice": "alice-token", "Bob": " "}

	if got := cfg.PlexTokenFor("alice"); got != "alice-token" {
		t.Fatalf("expected case-insensitive user token, got %q", got)
	}
	if got := cfg.PlexTokenFor("bob"); got != "admin" {
		t.Fatalf("expected blank token to fall back, got %q", got)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Plex.Library != "TV Shows" {
		t.Fatalf("unexpected library: %q", cfg.Plex.Library)
	}
}
