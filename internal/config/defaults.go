package config

const (
	defaultCacheDir            = "~/.cache/tvrecs"
	defaultLogDir              = "~/.local/share/tvrecs/logs"
	defaultLogRetentionDays    = 30
	defaultKeepLogs            = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultPlexLibrary         = "TV Shows"
	defaultPlexTimeoutSeconds  = 30
	defaultTMDBBaseURL         = "https://api.themoviedb.org/3"
	defaultTMDBLanguage        = "en-US"
	defaultTMDBRequestsPerSec  = 20
	defaultTraktBaseURL        = "https://api.trakt.tv"
	defaultTraktRequestsPerSec = 3
	defaultLimitResults        = 10
	defaultPoolFraction        = 0.3
	defaultMonitorOption       = "all"
	defaultRetryMaxAttempts    = 3
	defaultRetryBackoffSeconds = 1.0
	defaultNotifyTimeout       = 10

	// HistoryMerged aggregates every configured user into one profile.
	HistoryMerged = "merged"
	// HistoryPerUser builds one profile per configured user.
	HistoryPerUser = "per_user"

	// FingerprintCardinality compares the number of distinct watched shows.
	FingerprintCardinality = "cardinality"
	// FingerprintContentHash compares a digest of the watched show identities.
	FingerprintContentHash = "content_hash"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: defaultCacheDir,
			LogDir:   defaultLogDir,
		},
		Plex: Plex{
			Library:        defaultPlexLibrary,
			TimeoutSeconds: defaultPlexTimeoutSeconds,
		},
		History: History{Strategy: HistoryMerged},
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			Language:          defaultTMDBLanguage,
			UseKeywords:       true,
			RequestsPerSecond: defaultTMDBRequestsPerSec,
		},
		Trakt: Trakt{
			BaseURL:           defaultTraktBaseURL,
			RequestsPerSecond: defaultTraktRequestsPerSec,
		},
		Sonarr: Sonarr{
			MonitorOption: defaultMonitorOption,
		},
		Recommend: Recommend{
			LimitPlex:         defaultLimitResults,
			LimitTrakt:        defaultLimitResults,
			SqrtNormalization: true,
			PoolFraction:      defaultPoolFraction,
		},
		Weights: DefaultWeights(),
		Output: Output{
			ShowSummary:  true,
			ShowRating:   true,
			ShowLanguage: true,
		},
		Cache: Cache{Fingerprint: FingerprintCardinality},
		Retry: Retry{
			MaxAttempts:    defaultRetryMaxAttempts,
			BackoffSeconds: defaultRetryBackoffSeconds,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyTimeout,
			Recommendations: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			KeepLogs:      defaultKeepLogs,
		},
	}
}

// DefaultWeights returns the stock category weights.
func DefaultWeights() Weights {
	return Weights{
		Genre:    0.25,
		Studio:   0.20,
		Actor:    0.20,
		Language: 0.10,
		Keyword:  0.25,
	}
}
