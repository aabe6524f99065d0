package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"tvrecs/internal/logging"
	"tvrecs/internal/profile"
)

// lockRetryDelay is how often a blocked Open polls the context lock.
const lockRetryDelay = 250 * time.Millisecond

// ErrLocked is returned when another invocation holds the context lock and the
// caller's context expires first.
var ErrLocked = errors.New("cache context is locked by another process")

// Builder re-extracts features for every watched id and returns the fresh
// profile together with the per-item records it was built from.
type Builder func(ctx context.Context, watchedIDs []string) (profile.Profile, map[string]Item, error)

// Outcome describes how Profile satisfied a request.
type Outcome struct {
	Hit      bool
	Reason   string
	Previous string
	Current  string
}

// Manager reads and writes the snapshot of one user context.
type Manager struct {
	path     string
	strategy string
	features string
	logger   *slog.Logger
	lock     *flock.Flock
	now      func() time.Time

	mu   sync.Mutex
	snap Snapshot
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithFeatureSources names the extractor configuration records are built
// with. Records stored under other sources are not reused.
func WithFeatureSources(sources string) Option {
	return func(m *Manager) { m.features = sources }
}

// Open acquires the lock for contextKey and loads its snapshot. A corrupt
// snapshot is discarded with a warning.
func Open(ctx context.Context, dir, contextKey, strategy string, logger *slog.Logger, opts ...Option) (*Manager, error) {
	if contextKey == "" {
		return nil, errors.New("cache context key is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	m := &Manager{
		path:     SnapshotPath(dir, contextKey),
		strategy: strategy,
		logger:   logging.NewComponentLogger(logger, "cache").With(logging.String(logging.FieldUserContext, contextKey)),
		lock:     flock.New(filepath.Join(dir, contextKey+lockExt)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	locked, err := m.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrLocked, contextKey)
		}
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, contextKey)
	}

	snap, ok, err := readSnapshot(m.path)
	if err != nil {
		logging.WarnWithContext(m.logger, "cache snapshot unreadable; starting empty", "cache_load_failed",
			logging.String("path", m.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run 'tvrecs cache clear' if this persists"),
			logging.String(logging.FieldImpact, "profile and lookups will be rebuilt"),
		)
	}
	if !ok {
		snap = newSnapshot(contextKey)
	}
	m.snap = snap
	m.logger.Debug("cache opened",
		logging.String("path", m.path),
		logging.Bool("existing", ok),
		logging.Int("items", len(snap.Items)),
		logging.Int("external_ids", len(snap.ExternalIDs)),
	)
	return m, nil
}

// Close releases the context lock.
func (m *Manager) Close() error {
	if m == nil || m.lock == nil {
		return nil
	}
	return m.lock.Unlock()
}

// Path returns the snapshot file path.
func (m *Manager) Path() string { return m.path }

// Snapshot returns a shallow copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Profile returns the stored profile when the fingerprint of watched matches
// the stored one. Otherwise it calls build, stores the result and persists the
// snapshot before returning.
func (m *Manager) Profile(ctx context.Context, watched WatchedSet, build Builder) (profile.Profile, Outcome, error) {
	current := Fingerprint(m.strategy, watched)

	m.mu.Lock()
	stored := m.snap.Fingerprint
	strategy := m.snap.Strategy
	sources := m.snap.Features
	cached := m.snap.Profile
	complete := len(m.snap.WatchedIDs) == len(watched)
	m.mu.Unlock()

	outcome := Outcome{Previous: stored, Current: current}
	switch {
	case stored == "":
		outcome.Reason = "no snapshot"
	case strategy != m.strategy:
		outcome.Reason = "fingerprint strategy changed"
	case sources != m.features:
		outcome.Reason = "feature sources changed"
	case stored != current:
		outcome.Reason = "watched set changed"
	case !complete:
		outcome.Reason = "snapshot watched ids incomplete"
	default:
		outcome.Hit = true
		outcome.Reason = "fingerprint match"
		m.logger.Info("profile loaded from cache",
			logging.String("fingerprint", current),
			logging.String(logging.FieldDecisionType, "profile_cache"),
			logging.String("decision_result", "hit"),
		)
		return cached, outcome, nil
	}

	m.logger.Info("profile rebuild required",
		logging.String("previous", stored),
		logging.String("current", current),
		logging.String(logging.FieldDecisionType, "profile_cache"),
		logging.String("decision_result", "rebuild"),
		logging.String("decision_reason", outcome.Reason),
	)

	ids := watched.Sorted()
	p, items, err := build(ctx, ids)
	if err != nil {
		return profile.Profile{}, outcome, fmt.Errorf("rebuild profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.Features != m.features {
		m.snap.Candidates = nil
	}
	m.snap.Fingerprint = current
	m.snap.Strategy = m.strategy
	m.snap.Features = m.features
	m.snap.WatchedIDs = ids
	m.snap.Profile = p
	m.snap.Items = maps.Clone(items)
	if m.snap.Items == nil {
		m.snap.Items = map[string]Item{}
	}
	if err := m.saveLocked(); err != nil {
		return p, outcome, err
	}
	return p, outcome, nil
}

// Item returns the cached record of a watched show built with the same
// feature sources.
func (m *Manager) Item(id string) (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.Features != m.features {
		return Item{}, false
	}
	item, ok := m.snap.Items[id]
	return item, ok
}

// Candidates returns the cached library candidate records when they were
// stored for the same library size and feature sources.
func (m *Manager) Candidates(libraryCount int) (map[string]Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.Candidates == nil || m.snap.LibraryCount != libraryCount || m.snap.Features != m.features {
		return nil, false
	}
	return maps.Clone(m.snap.Candidates), true
}

// StoreCandidates replaces the candidate records and persists the snapshot.
func (m *Manager) StoreCandidates(libraryCount int, items map[string]Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap.Features != m.features {
		// Watched records were built with other sources; force a rebuild.
		m.snap.Fingerprint = ""
		m.snap.Items = map[string]Item{}
		m.snap.Features = m.features
	}
	m.snap.LibraryCount = libraryCount
	m.snap.Candidates = maps.Clone(items)
	return m.saveLocked()
}

// ExternalID returns a cached id resolution, including negative results.
func (m *Manager) ExternalID(key string) (ExternalID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.snap.ExternalIDs[key]
	return id, ok
}

// StoreExternalID records a resolution and persists immediately.
func (m *Manager) StoreExternalID(key string, id ExternalID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id.ResolvedAt.IsZero() {
		id.ResolvedAt = m.now().UTC()
	}
	m.snap.ExternalIDs[key] = id
	return m.saveLocked()
}

// Keywords returns cached keywords for a TMDB id. An empty slice is a cached
// negative result.
func (m *Manager) Keywords(tmdbID int64) ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kw, ok := m.snap.Keywords[strconv.FormatInt(tmdbID, 10)]
	return kw, ok
}

// StoreKeywords records keywords for a TMDB id and persists immediately.
func (m *Manager) StoreKeywords(tmdbID int64, keywords []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if keywords == nil {
		keywords = []string{}
	}
	m.snap.Keywords[strconv.FormatInt(tmdbID, 10)] = keywords
	return m.saveLocked()
}

// Save persists the current state.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	m.snap.UpdatedAt = m.now().UTC()
	if err := writeSnapshot(m.path, m.snap); err != nil {
		return fmt.Errorf("persist cache snapshot: %w", err)
	}
	return nil
}
