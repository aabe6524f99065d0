package config

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// weightSumTolerance bounds how far the category weights may drift from 1.0
// before WeightWarning reports it.
const weightSumTolerance = 1e-6

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePlex(); err != nil {
		return err
	}
	if err := c.validateHistory(); err != nil {
		return err
	}
	if err := c.validateTautulli(); err != nil {
		return err
	}
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateSonarr(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateWeights(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePlex() error {
	if c.Plex.URL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/tvrecs/config.toml"
		}
		return fmt.Errorf("plex.url is required. Set PLEX_URL env var or edit %s (create with 'tvrecs config init')", defaultPath)
	}
	if c.Plex.Token == "" {
		return errors.New("plex.token is required (or set PLEX_TOKEN)")
	}
	if c.Plex.Library == "" {
		return errors.New("plex.library must be set")
	}
	return nil
}

func (c *Config) validateTautulli() error {
	if !c.TautulliEnabled() {
		return nil
	}
	if c.Tautulli.URL == "" || c.Tautulli.APIKey == "" {
		return errors.New("tautulli.url and tautulli.api_key must be set when tautulli.users is configured")
	}
	return nil
}

// validateHistory applies to Plex managed users as well as Tautulli.
func (c *Config) validateHistory() error {
	switch c.History.Strategy {
	case HistoryMerged, HistoryPerUser:
		return nil
	default:
		return fmt.Errorf("history.strategy must be %q or %q (got %q)", HistoryMerged, HistoryPerUser, c.History.Strategy)
	}
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		return nil
	}
	if !strings.HasPrefix(c.TMDB.BaseURL, "http://") && !strings.HasPrefix(c.TMDB.BaseURL, "https://") {
		return errors.New("tmdb.base_url must be an http(s) URL")
	}
	return nil
}

func (c *Config) validateSonarr() error {
	if !c.Sonarr.Enabled {
		return nil
	}
	missing := make([]string, 0, 4)
	for key, value := range map[string]string{
		"sonarr.url":             c.Sonarr.URL,
		"sonarr.api_key":         c.Sonarr.APIKey,
		"sonarr.root_folder":     c.Sonarr.RootFolder,
		"sonarr.quality_profile": c.Sonarr.QualityProfile,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s must be set when sonarr.enabled is true", strings.Join(sortedCopy(missing), ", "))
	}
	switch c.Sonarr.MonitorOption {
	case "all", "none", "firstSeason":
	default:
		return fmt.Errorf("sonarr.monitor_option must be one of all, none, firstSeason (got %q)", c.Sonarr.MonitorOption)
	}
	if c.Sonarr.Platform != "" && c.Sonarr.Platform != "windows" && c.Sonarr.Platform != "linux" {
		return errors.New("sonarr.platform must be windows or linux")
	}
	if c.TMDB.APIKey == "" {
		return errors.New("tmdb.api_key is required when sonarr.enabled is true")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if err := ensurePositiveMap(map[string]int{
		"recommend.limit_plex_results":  c.Recommend.LimitPlex,
		"recommend.limit_trakt_results": c.Recommend.LimitTrakt,
		"retry.max_attempts":            c.Retry.MaxAttempts,
		"plex.timeout_seconds":          c.Plex.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Recommend.PoolFraction < 0.1 || c.Recommend.PoolFraction > 0.3 {
		return errors.New("recommend.pool_fraction must be between 0.1 and 0.3")
	}
	return nil
}

func (c *Config) validateWeights() error {
	weights := []struct {
		key   string
		value float64
	}{
		{"weights.genre", c.Weights.Genre},
		{"weights.studio", c.Weights.Studio},
		{"weights.actor", c.Weights.Actor},
		{"weights.language", c.Weights.Language},
		{"weights.keyword", c.Weights.Keyword},
	}
	for _, w := range weights {
		key, value := w.key, w.value
		if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%s must be a non-negative number", key)
		}
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Fingerprint {
	case FingerprintCardinality, FingerprintContentHash:
		return nil
	default:
		return fmt.Errorf("cache.fingerprint must be %q or %q", FingerprintCardinality, FingerprintContentHash)
	}
}

// WeightWarning returns a non-empty message when the category weights do not
// sum to 1.0. A mismatch is tolerated; callers log it and continue.
func (c *Config) WeightWarning() string {
	sum := c.Weights.Sum()
	if math.Abs(sum-1.0) <= weightSumTolerance {
		return ""
	}
	return fmt.Sprintf("category weights sum to %.4f instead of 1.0", sum)
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	for _, key := range sortedCopy(keys) {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func sortedCopy(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return out
}
