package cache_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"tvrecs/internal/cache"
	"tvrecs/internal/config"
	"tvrecs/internal/features"
	"tvrecs/internal/media"
	"tvrecs/internal/profile"
)

// countingBuilder records which ids it was asked to extract.
type countingBuilder struct {
	calls     int
	extracted []string
}

func (b *countingBuilder) build(_ context.Context, ids []string) (profile.Profile, map[string]cache.Item, error) {
	b.calls++
	items := make(map[string]cache.Item, len(ids))
	var agg []profile.Item
	for _, id := range ids {
		b.extracted = append(b.extracted, id)
		rec := features.Record{Genres: []string{"drama"}, Language: features.NotAvailable}
		items[id] = cache.Item{Show: media.Show{Title: "Show " + id}, Features: rec}
		agg = append(agg, profile.Item{Key: id, Features: rec})
	}
	return profile.Aggregate(agg), items, nil
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d", 1000+i)
	}
	return out
}

func open(t *testing.T, dir, strategy string) *cache.Manager {
	t.Helper()
	m, err := cache.Open(context.Background(), dir, "plex_alice", strategy, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestProfileShortCircuitsOnUnchangedCardinality(t *testing.T) {
	dir := t.TempDir()
	watched := cache.NewWatchedSet(ids(40)...)

	first := open(t, dir, config.FingerprintCardinality)
	builder := &countingBuilder{}
	p1, outcome, err := first.Profile(context.Background(), watched, builder.build)
	if err != nil {
		t.Fatalf("first Profile: %v", err)
	}
	if outcome.Hit || builder.calls != 1 {
		t.Fatalf("expected rebuild on empty cache, outcome=%+v calls=%d", outcome, builder.calls)
	}
	_ = first.Close()

	second := open(t, dir, config.FingerprintCardinality)
	again := &countingBuilder{}
	p2, outcome, err := second.Profile(context.Background(), watched, again.build)
	if err != nil {
		t.Fatalf("second Profile: %v", err)
	}
	if !outcome.Hit {
		t.Fatalf("expected cache hit, got %+v", outcome)
	}
	if again.calls != 0 || len(again.extracted) != 0 {
		t.Fatalf("extractor re-invoked for %v", again.extracted)
	}
	if !reflect.DeepEqual(p1, p2) {
		t.Fatalf("cached profile differs:\n%+v\n%+v", p1, p2)
	}
}

func TestProfileRebuildsWhenCardinalityChanges(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir, config.FingerprintCardinality)
	builder := &countingBuilder{}
	if _, _, err := m.Profile(context.Background(), cache.NewWatchedSet(ids(40)...), builder.build); err != nil {
		t.Fatalf("Profile: %v", err)
	}

	_, outcome, err := m.Profile(context.Background(), cache.NewWatchedSet(ids(41)...), builder.build)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if outcome.Hit || outcome.Previous != "40" || outcome.Current != "41" {
		t.Fatalf("expected 40 -> 41 rebuild, got %+v", outcome)
	}
	if builder.calls != 2 {
		t.Fatalf("expected full re-aggregation, calls=%d", builder.calls)
	}
	if got := m.Snapshot().Profile.Genres["drama"]; got != 41*profile.RatingWeight(profile.NeutralRating) {
		t.Fatalf("drama weight = %v", got)
	}
}

func TestCardinalityMissesSameSizeSwapButContentHashDoesNot(t *testing.T) {
	before := cache.NewWatchedSet("1", "2", "3")
	after := cache.NewWatchedSet("1", "2", "4")

	if cache.Fingerprint(config.FingerprintCardinality, before) != cache.Fingerprint(config.FingerprintCardinality, after) {
		t.Fatal("cardinality fingerprint should not see a same-size swap")
	}
	if cache.Fingerprint(config.FingerprintContentHash, before) == cache.Fingerprint(config.FingerprintContentHash, after) {
		t.Fatal("content hash should change on membership change")
	}
	if !strings.HasPrefix(cache.Fingerprint(config.FingerprintContentHash, before), "sha256:") {
		t.Fatal("content hash fingerprint should be prefixed")
	}
}

func TestStrategyChangeForcesRebuild(t *testing.T) {
	dir := t.TempDir()
	watched := cache.NewWatchedSet(ids(3)...)
	builder := &countingBuilder{}

	m := open(t, dir, config.FingerprintCardinality)
	if _, _, err := m.Profile(context.Background(), watched, builder.build); err != nil {
		t.Fatalf("Profile: %v", err)
	}
	_ = m.Close()

	m = open(t, dir, config.FingerprintContentHash)
	_, outcome, err := m.Profile(context.Background(), watched, builder.build)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if outcome.Hit || builder.calls != 2 {
		t.Fatalf("expected rebuild after strategy change, outcome=%+v", outcome)
	}
}

func TestFeatureSourceChangeInvalidatesRecords(t *testing.T) {
	dir := t.TempDir()
	watched := cache.NewWatchedSet(ids(3)...)
	builder := &countingBuilder{}

	openWith := func(sources string) *cache.Manager {
		m, err := cache.Open(context.Background(), dir, "plex_alice", config.FingerprintCardinality, nil,
			cache.WithFeatureSources(sources))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		return m
	}

	m := openWith("base+language")
	if _, _, err := m.Profile(context.Background(), watched, builder.build); err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if err := m.StoreCandidates(10, map[string]cache.Item{"7": {Show: media.Show{Title: "Dark"}}}); err != nil {
		t.Fatalf("StoreCandidates: %v", err)
	}
	_ = m.Close()

	m = openWith("base+language+keywords")
	t.Cleanup(func() { _ = m.Close() })
	if _, ok := m.Item(ids(1)[0]); ok {
		t.Fatal("records built with other sources must not be reused")
	}
	if _, ok := m.Candidates(10); ok {
		t.Fatal("candidates built with other sources must not be reused")
	}
	_, outcome, err := m.Profile(context.Background(), watched, builder.build)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if outcome.Hit || outcome.Reason != "feature sources changed" || builder.calls != 2 {
		t.Fatalf("expected rebuild after source change, outcome=%+v calls=%d", outcome, builder.calls)
	}
	if _, ok := m.Item(ids(1)[0]); !ok {
		t.Fatal("rebuilt records should be readable under the new sources")
	}
	if _, ok := m.Candidates(10); ok {
		t.Fatal("stale candidates should be dropped by the rebuild")
	}
}

func TestProfileHitsWhenNoWatchedShowIsInLibrary(t *testing.T) {
	dir := t.TempDir()
	watched := cache.NewWatchedSet("404", "405")
	calls := 0
	build := func(context.Context, []string) (profile.Profile, map[string]cache.Item, error) {
		calls++
		return profile.New(), nil, nil
	}

	m := open(t, dir, config.FingerprintCardinality)
	if _, _, err := m.Profile(context.Background(), watched, build); err != nil {
		t.Fatalf("Profile: %v", err)
	}
	_ = m.Close()

	m = open(t, dir, config.FingerprintCardinality)
	_, outcome, err := m.Profile(context.Background(), watched, build)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !outcome.Hit || calls != 1 {
		t.Fatalf("expected cache hit with zero stored items, outcome=%+v calls=%d", outcome, calls)
	}
}

func TestBuilderErrorLeavesSnapshotUntouched(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir, config.FingerprintCardinality)
	_, _, err := m.Profile(context.Background(), cache.NewWatchedSet("1"), func(context.Context, []string) (profile.Profile, map[string]cache.Item, error) {
		return profile.Profile{}, nil, errors.New("plex down")
	})
	if err == nil {
		t.Fatal("expected builder error")
	}
	if _, statErr := os.Stat(m.Path()); !os.IsNotExist(statErr) {
		t.Fatalf("snapshot should not be written on failure, stat err=%v", statErr)
	}
}

func TestSubCachesPersistImmediately(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir, config.FingerprintCardinality)

	if err := m.StoreExternalID("the wire|2002", cache.ExternalID{TMDBID: 1438}); err != nil {
		t.Fatalf("StoreExternalID: %v", err)
	}
	if err := m.StoreExternalID("unknown show|0", cache.ExternalID{}); err != nil {
		t.Fatalf("StoreExternalID negative: %v", err)
	}
	if err := m.StoreKeywords(1438, []string{"baltimore"}); err != nil {
		t.Fatalf("StoreKeywords: %v", err)
	}
	if err := m.StoreKeywords(99, nil); err != nil {
		t.Fatalf("StoreKeywords negative: %v", err)
	}
	_ = m.Close()

	reopened := open(t, dir, config.FingerprintCardinality)
	if id, ok := reopened.ExternalID("the wire|2002"); !ok || id.TMDBID != 1438 || id.ResolvedAt.IsZero() {
		t.Fatalf("external id not persisted: %+v ok=%v", id, ok)
	}
	if id, ok := reopened.ExternalID("unknown show|0"); !ok || id.Found() {
		t.Fatalf("negative lookup not persisted: %+v ok=%v", id, ok)
	}
	if kw, ok := reopened.Keywords(1438); !ok || !reflect.DeepEqual(kw, []string{"baltimore"}) {
		t.Fatalf("keywords not persisted: %v ok=%v", kw, ok)
	}
	if kw, ok := reopened.Keywords(99); !ok || len(kw) != 0 {
		t.Fatalf("negative keywords not persisted: %v ok=%v", kw, ok)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestCandidatesKeyedByLibraryCount(t *testing.T) {
	m := open(t, t.TempDir(), config.FingerprintCardinality)
	items := map[string]cache.Item{"7": {Show: media.Show{Title: "Dark"}}}
	if err := m.StoreCandidates(120, items); err != nil {
		t.Fatalf("StoreCandidates: %v", err)
	}
	if got, ok := m.Candidates(120); !ok || got["7"].Show.Title != "Dark" {
		t.Fatalf("expected candidate hit, got %v ok=%v", got, ok)
	}
	if _, ok := m.Candidates(121); ok {
		t.Fatal("library size change must invalidate candidates")
	}
}

func TestCorruptSnapshotStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(cache.SnapshotPath(dir, "plex_alice"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := open(t, dir, config.FingerprintCardinality)
	if snap := m.Snapshot(); snap.Fingerprint != "" || snap.Items == nil {
		t.Fatalf("expected fresh snapshot, got %+v", snap)
	}
}

func TestOpenFailsWhileLocked(t *testing.T) {
	dir := t.TempDir()
	_ = open(t, dir, config.FingerprintCardinality)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := cache.Open(ctx, dir, "plex_alice", config.FingerprintCardinality, nil)
	if !errors.Is(err, cache.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestListAndRemove(t *testing.T) {
	dir := t.TempDir()
	for _, key := range []string{"plex_bob", "tautulli_alice"} {
		m, err := cache.Open(context.Background(), dir, key, config.FingerprintCardinality, nil)
		if err != nil {
			t.Fatalf("Open %s: %v", key, err)
		}
		builder := &countingBuilder{}
		if _, _, err := m.Profile(context.Background(), cache.NewWatchedSet(ids(2)...), builder.build); err != nil {
			t.Fatalf("Profile: %v", err)
		}
		_ = m.Close()
	}

	summaries, err := cache.List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 || summaries[0].Context != "plex_bob" || summaries[1].WatchedCount != 2 {
		t.Fatalf("unexpected summaries %+v", summaries)
	}

	removed, err := cache.Remove(dir, "plex_bob", "missing")
	if err != nil || len(removed) != 1 {
		t.Fatalf("Remove returned %v, %v", removed, err)
	}
	removed, err = cache.Remove(dir)
	if err != nil || len(removed) != 1 {
		t.Fatalf("Remove all returned %v, %v", removed, err)
	}
	if summaries, _ := cache.List(dir); len(summaries) != 0 {
		t.Fatalf("expected empty cache dir, got %+v", summaries)
	}
}
