package cache

import (
	"time"

	"tvrecs/internal/features"
	"tvrecs/internal/media"
	"tvrecs/internal/profile"
)

// snapshotVersion is bumped when the document layout changes; older documents
// are discarded.
const snapshotVersion = 2

// Item is the cached metadata and feature record of one show.
type Item struct {
	Show     media.Show      `json:"show"`
	Features features.Record `json:"features"`
}

// ExternalID is a resolved (or known unresolvable) metadata-service identity.
// A zero TMDBID records a negative lookup.
type ExternalID struct {
	TMDBID     int64     `json:"tmdb_id"`
	IMDbID     string    `json:"imdb_id,omitempty"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Found reports whether the lookup produced an id.
func (e ExternalID) Found() bool { return e.TMDBID > 0 }

// Snapshot is the persisted state of one user context. Features names the
// extractor sources that produced Items and Candidates.
type Snapshot struct {
	Version      int                   `json:"version"`
	Context      string                `json:"context"`
	Fingerprint  string                `json:"fingerprint"`
	Strategy     string                `json:"fingerprint_strategy"`
	Features     string                `json:"feature_sources"`
	WatchedIDs   []string              `json:"watched_ids"`
	Profile      profile.Profile       `json:"profile"`
	Items        map[string]Item       `json:"items"`
	LibraryCount int                   `json:"library_count"`
	Candidates   map[string]Item       `json:"candidates,omitempty"`
	ExternalIDs  map[string]ExternalID `json:"external_ids"`
	Keywords     map[string][]string   `json:"keywords"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

func newSnapshot(contextKey string) Snapshot {
	return Snapshot{
		Version:     snapshotVersion,
		Context:     contextKey,
		Profile:     profile.New(),
		Items:       map[string]Item{},
		ExternalIDs: map[string]ExternalID{},
		Keywords:    map[string][]string{},
	}
}

// fill allocates nil maps left by an older or partial document.
func (s *Snapshot) fill() {
	if s.Items == nil {
		s.Items = map[string]Item{}
	}
	if s.ExternalIDs == nil {
		s.ExternalIDs = map[string]ExternalID{}
	}
	if s.Keywords == nil {
		s.Keywords = map[string][]string{}
	}
	p := &s.Profile
	for _, c := range []*profile.Counter{&p.Genres, &p.Studios, &p.Actors, &p.Languages, &p.Keywords} {
		if *c == nil {
			*c = profile.Counter{}
		}
	}
}
