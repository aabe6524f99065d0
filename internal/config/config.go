package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"tvrecs/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains cache and log directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
}

// Plex contains connection settings for the Plex Media Server.
type Plex struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	Library        string `toml:"library"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// ManagedUsers lists Plex home users whose watch history is read with their
	// own token. An empty list means the token owner.
	ManagedUsers []string `toml:"managed_users"`
	// UserTokens maps a managed user name to that user's Plex token.
	UserTokens map[string]string `toml:"user_tokens"`
}

// Tautulli contains settings for reading watch history from Tautulli.
type Tautulli struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
	// Users lists Tautulli user names. "all" selects every user and "none"
	// disables Tautulli as a history source.
	Users []string `toml:"users"`
}

// History selects how configured users are grouped into profiles.
type History struct {
	Strategy string `toml:"strategy"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Language          string  `toml:"language"`
	UseKeywords       bool    `toml:"use_keywords"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Trakt contains configuration for external suggestions and history sync.
type Trakt struct {
	ClientID          string  `toml:"client_id"`
	AccessToken       string  `toml:"access_token"`
	BaseURL           string  `toml:"base_url"`
	SyncWatchHistory  bool    `toml:"sync_watch_history"`
	ClearWatchHistory bool    `toml:"clear_watch_history"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Sonarr contains configuration for forwarding suggestions to Sonarr.
type Sonarr struct {
	Enabled        bool              `toml:"enabled"`
	URL            string            `toml:"url"`
	APIKey         string            `toml:"api_key"`
	RootFolder     string            `toml:"root_folder"`
	QualityProfile string            `toml:"quality_profile"`
	MonitorOption  string            `toml:"monitor_option"`
	SearchMissing  bool              `toml:"search_missing"`
	Tag            string            `toml:"tag"`
	PathMappings   map[string]string `toml:"path_mappings"`
	Platform       string            `toml:"platform"`
}

// Recommend contains selection pipeline settings.
type Recommend struct {
	LimitPlex         int      `toml:"limit_plex_results"`
	LimitTrakt        int      `toml:"limit_trakt_results"`
	ExcludeGenres     []string `toml:"exclude_genres"`
	PlexOnly          bool     `toml:"plex_only"`
	SqrtNormalization bool     `toml:"sqrt_normalization"`
	PoolFraction      float64  `toml:"pool_fraction"`
}

// Weights holds the per-category contribution to the similarity score.
type Weights struct {
	Genre    float64 `toml:"genre"`
	Studio   float64 `toml:"studio"`
	Actor    float64 `toml:"actor"`
	Language float64 `toml:"language"`
	Keyword  float64 `toml:"keyword"`
}

// Sum returns the total of all category weights.
func (w Weights) Sum() float64 {
	return w.Genre + w.Studio + w.Actor + w.Language + w.Keyword
}

// Output controls how recommendations are rendered.
type Output struct {
	ShowSummary       bool `toml:"show_summary"`
	ShowCast          bool `toml:"show_cast"`
	ShowLanguage      bool `toml:"show_language"`
	ShowRating        bool `toml:"show_rating"`
	ShowIMDbLink      bool `toml:"show_imdb_link"`
	ConfirmOperations bool `toml:"confirm_operations"`
}

// Cache contains snapshot invalidation settings.
type Cache struct {
	Fingerprint string `toml:"fingerprint"`
}

// Retry contains the retry policy applied to external HTTP calls.
type Retry struct {
	MaxAttempts    int     `toml:"max_attempts"`
	BackoffSeconds float64 `toml:"backoff_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic"`
	RequestTimeout  int    `toml:"request_timeout"`
	Recommendations bool   `toml:"recommendations"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
	KeepLogs      int    `toml:"keep_logs"`
}

// Config encapsulates all configuration values for tvrecs.
//
// Configuration sections by subsystem:
//   - Paths: cache and log directories
//   - Plex, Tautulli, History: watch history sources and user grouping
//   - TMDB: show identification and keywords
//   - Trakt: external suggestions and watch history sync
//   - Sonarr: forwarding picked suggestions
//   - Recommend, Weights: selection pipeline and scoring
//   - Output: rendering flags
//   - Cache, Retry: snapshot invalidation and HTTP retries
//   - Notifications, Logging
type Config struct {
	Paths         Paths         `toml:"paths"`
	Plex          Plex          `toml:"plex"`
	Tautulli      Tautulli      `toml:"tautulli"`
	History       History       `toml:"history"`
	TMDB          TMDB          `toml:"tmdb"`
	Trakt         Trakt         `toml:"trakt"`
	Sonarr        Sonarr        `toml:"sonarr"`
	Recommend     Recommend     `toml:"recommend"`
	Weights       Weights       `toml:"weights"`
	Output        Output        `toml:"output"`
	Cache         Cache         `toml:"cache"`
	Retry         Retry         `toml:"retry"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tvrecs/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("tvrecs.toml")
	if err != nil {
		return "", false, err
	}

	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// PlexTokenFor returns the Plex token to use when reading the named user's
// history. Users without a dedicated token fall back to the server token.
func (c *Config) PlexTokenFor(user string) string {
	for name, token := range c.Plex.UserTokens {
		if strings.EqualFold(name, user) && strings.TrimSpace(token) != "" {
			return token
		}
	}
	return c.Plex.Token
}

// TautulliEnabled reports whether Tautulli is the watch history source.
func (c *Config) TautulliEnabled() bool {
	return len(c.Tautulli.Users) > 0
}

// KeywordsEnabled reports whether TMDB keywords take part in profiling. The
// setting is ignored without an API key.
func (c *Config) KeywordsEnabled() bool {
	return c.TMDB.UseKeywords && c.TMDB.APIKey != ""
}

// TraktEnabled reports whether Trakt credentials are configured.
func (c *Config) TraktEnabled() bool {
	return c.Trakt.ClientID != "" && c.Trakt.AccessToken != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		switch {
		case pathValue == "~":
			pathValue = home
		case len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\'):
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
