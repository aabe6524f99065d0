package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlex()
	c.normalizeTautulli()
	c.normalizeTMDB()
	c.normalizeTrakt()
	c.normalizeSonarr()
	c.normalizeRecommend()
	c.normalizeCache()
	c.normalizeRetry()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func envFallback(current string, keys ...string) string {
	current = strings.TrimSpace(current)
	if current != "" {
		return current
	}
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (c *Config) normalizePlex() {
	c.Plex.URL = strings.TrimRight(envFallback(c.Plex.URL, "PLEX_URL"), "/")
	c.Plex.Token = envFallback(c.Plex.Token, "PLEX_TOKEN")
	c.Plex.Library = strings.TrimSpace(c.Plex.Library)
	if c.Plex.Library == "" {
		c.Plex.Library = defaultPlexLibrary
	}
	if c.Plex.TimeoutSeconds <= 0 {
		c.Plex.TimeoutSeconds = defaultPlexTimeoutSeconds
	}
	c.Plex.ManagedUsers = dedupeFold(c.Plex.ManagedUsers)
}

func (c *Config) normalizeTautulli() {
	c.Tautulli.URL = strings.TrimRight(strings.TrimSpace(c.Tautulli.URL), "/")
	c.Tautulli.APIKey = envFallback(c.Tautulli.APIKey, "TAUTULLI_API_KEY")
	users := dedupeFold(c.Tautulli.Users)
	if len(users) > 0 && strings.EqualFold(users[0], "none") {
		users = nil
	}
	c.Tautulli.Users = users

	c.History.Strategy = strings.ToLower(strings.TrimSpace(c.History.Strategy))
	if c.History.Strategy == "" {
		c.History.Strategy = HistoryMerged
	}
}

func (c *Config) normalizeTMDB() {
	c.TMDB.APIKey = envFallback(c.TMDB.APIKey, "TMDB_API_KEY")
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		c.TMDB.RequestsPerSecond = defaultTMDBRequestsPerSec
	}
}

func (c *Config) normalizeTrakt() {
	c.Trakt.ClientID = envFallback(c.Trakt.ClientID, "TRAKT_CLIENT_ID")
	c.Trakt.AccessToken = envFallback(c.Trakt.AccessToken, "TRAKT_ACCESS_TOKEN")
	c.Trakt.BaseURL = strings.TrimRight(strings.TrimSpace(c.Trakt.BaseURL), "/")
	if c.Trakt.BaseURL == "" {
		c.Trakt.BaseURL = defaultTraktBaseURL
	}
	if c.Trakt.RequestsPerSecond <= 0 {
		c.Trakt.RequestsPerSecond = defaultTraktRequestsPerSec
	}
}

func (c *Config) normalizeSonarr() {
	c.Sonarr.URL = strings.TrimRight(strings.TrimSpace(c.Sonarr.URL), "/")
	c.Sonarr.APIKey = envFallback(c.Sonarr.APIKey, "SONARR_API_KEY")
	c.Sonarr.RootFolder = strings.TrimRight(strings.TrimSpace(c.Sonarr.RootFolder), `/\`)
	c.Sonarr.QualityProfile = strings.TrimSpace(c.Sonarr.QualityProfile)
	c.Sonarr.Tag = strings.TrimSpace(c.Sonarr.Tag)
	c.Sonarr.Platform = strings.ToLower(strings.TrimSpace(c.Sonarr.Platform))
	switch strings.ToLower(strings.TrimSpace(c.Sonarr.MonitorOption)) {
	case "", "all":
		c.Sonarr.MonitorOption = "all"
	case "none":
		c.Sonarr.MonitorOption = "none"
	case "firstseason":
		c.Sonarr.MonitorOption = "firstSeason"
	}
}

func (c *Config) normalizeRecommend() {
	if c.Recommend.LimitPlex <= 0 {
		c.Recommend.LimitPlex = defaultLimitResults
	}
	if c.Recommend.LimitTrakt <= 0 {
		c.Recommend.LimitTrakt = defaultLimitResults
	}
	if c.Recommend.PoolFraction == 0 {
		c.Recommend.PoolFraction = defaultPoolFraction
	}
	genres := make([]string, 0, len(c.Recommend.ExcludeGenres))
	for _, genre := range dedupeFold(c.Recommend.ExcludeGenres) {
		genres = append(genres, strings.ToLower(genre))
	}
	c.Recommend.ExcludeGenres = genres
}

func (c *Config) normalizeCache() {
	c.Cache.Fingerprint = strings.ToLower(strings.TrimSpace(c.Cache.Fingerprint))
	if c.Cache.Fingerprint == "" {
		c.Cache.Fingerprint = FingerprintCardinality
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 1
	}
	if c.Retry.BackoffSeconds < 0 {
		c.Retry.BackoffSeconds = 0
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.Logging.KeepLogs < 0 {
		c.Logging.KeepLogs = 0
	}
}

// dedupeFold trims entries and drops empties and case-insensitive duplicates,
// keeping the first spelling seen.
func dedupeFold(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
