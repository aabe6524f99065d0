package selection_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"tvrecs/internal/cache"
	"tvrecs/internal/config"
	"tvrecs/internal/features"
	"tvrecs/internal/library"
	"tvrecs/internal/media"
	"tvrecs/internal/profile"
	"tvrecs/internal/selection"
	"tvrecs/internal/similarity"
)

func newPipeline(opts selection.Options, seed uint64) *selection.Pipeline {
	scorer := similarity.NewScorer(config.DefaultWeights(), true, nil)
	return selection.New(scorer, opts, rand.New(rand.NewPCG(seed, seed)), nil)
}

func testProfile() profile.Profile {
	p := profile.New()
	p.Genres["drama"] = 8
	p.Genres["comedy"] = 2
	p.Genres["reality"] = 20
	return p
}

func candidates(n int) []selection.Candidate {
	genres := [][]string{{"drama"}, {"comedy"}, {"reality"}, {"drama", "reality"}, {"documentary"}}
	out := make([]selection.Candidate, n)
	for i := range out {
		out[i] = selection.Candidate{
			Key:      fmt.Sprintf("%03d", i),
			Show:     media.Show{Title: fmt.Sprintf("Show %d", i), AudienceRating: float64(i%10) + 0.5},
			Features: features.Record{Genres: genres[i%len(genres)]},
		}
	}
	return out
}

func TestLibraryNeverReturnsExcludedOrWatched(t *testing.T) {
	watched := cache.NewWatchedSet("000", "001", "002")
	for seed := uint64(1); seed <= 20; seed++ {
		p := newPipeline(selection.Options{Limit: 5, PoolFraction: 0.3, ExcludeGenres: []string{"Reality"}}, seed)
		selected, stats := p.Library(testProfile(), candidates(60), watched)
		if len(selected) != 5 {
			t.Fatalf("seed %d: selected %d, want 5", seed, len(selected))
		}
		for _, c := range selected {
			if c.Features.HasGenre([]string{"reality"}) {
				t.Fatalf("seed %d: excluded genre selected: %+v", seed, c)
			}
			if watched.Contains(c.Key) {
				t.Fatalf("seed %d: watched show selected: %s", seed, c.Key)
			}
		}
		if stats.Watched != 3 || stats.Excluded == 0 {
			t.Fatalf("seed %d: unexpected stats %+v", seed, stats)
		}
	}
}

func TestLibraryPoolSizes(t *testing.T) {
	p := newPipeline(selection.Options{Limit: 4, PoolFraction: 0.3}, 7)
	_, stats := p.Library(testProfile(), candidates(100), nil)
	if stats.PopularityPool != 50 {
		t.Fatalf("popularity pool = %d, want 50", stats.PopularityPool)
	}
	if stats.SimilarityPool != 15 {
		t.Fatalf("similarity pool = %d, want 15", stats.SimilarityPool)
	}

	// The configured limit is a floor for both tiers.
	p = newPipeline(selection.Options{Limit: 12, PoolFraction: 0.1}, 7)
	_, stats = p.Library(testProfile(), candidates(20), nil)
	if stats.PopularityPool != 12 || stats.SimilarityPool != 12 || stats.Selected != 12 {
		t.Fatalf("unexpected pools %+v", stats)
	}
}

func TestLibrarySamplesFromTopPool(t *testing.T) {
	p := newPipeline(selection.Options{Limit: 3, PoolFraction: 0.3}, 3)
	selected, _ := p.Library(testProfile(), candidates(50), nil)
	seen := map[string]bool{}
	for _, c := range selected {
		if seen[c.Key] {
			t.Fatalf("duplicate selection %s", c.Key)
		}
		seen[c.Key] = true
		if c.Result.Score == 0 {
			t.Fatalf("zero-similarity candidate %s escaped the similarity tier", c.Key)
		}
	}
}

func TestLibraryIsDeterministicForSeed(t *testing.T) {
	run := func() []string {
		p := newPipeline(selection.Options{Limit: 5}, 42)
		selected, _ := p.Library(testProfile(), candidates(40), nil)
		keys := make([]string, len(selected))
		for i, c := range selected {
			keys[i] = c.Key
		}
		return keys
	}
	a, b := run(), run()
	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Fatalf("same seed produced %v and %v", a, b)
	}
}

func TestLibraryHandlesSmallInputs(t *testing.T) {
	p := newPipeline(selection.Options{Limit: 10}, 1)
	if got, _ := p.Library(testProfile(), nil, nil); len(got) != 0 {
		t.Fatalf("expected nothing, got %v", got)
	}
	if got, _ := p.Library(testProfile(), candidates(3), nil); len(got) != 3 {
		t.Fatalf("expected all three, got %d", len(got))
	}
	p = newPipeline(selection.Options{Limit: 0}, 1)
	if got, _ := p.Library(testProfile(), candidates(10), nil); len(got) != 0 {
		t.Fatalf("zero limit should select nothing, got %d", len(got))
	}
}

func TestSuggestionsFilterAndJitter(t *testing.T) {
	owned := library.NewIndex([]media.Show{{Title: "Dark", Year: 2017}})
	suggestions := []selection.Candidate{
		{Show: media.Show{Title: "Dark", Year: 2017, AudienceRating: 9.9}},
		{Show: media.Show{Title: "Love Island", AudienceRating: 9.0}, Features: features.Record{Genres: []string{"reality"}}},
		{Show: media.Show{Title: "Severance", AudienceRating: 8.7}},
		{Show: media.Show{Title: "Slow Horses", AudienceRating: 8.0}},
		{Show: media.Show{Title: "Low Rated", AudienceRating: 5.0}},
		{Show: media.Show{Title: ""}},
	}
	p := newPipeline(selection.Options{Limit: 2, ExcludeGenres: []string{"reality"}}, 9)
	got, stats := p.Suggestions(suggestions, owned)
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Show.Title != "Severance" || got[1].Show.Title != "Slow Horses" {
		t.Fatalf("unexpected order %q, %q", got[0].Show.Title, got[1].Show.Title)
	}
	for _, c := range got {
		if d := c.Jittered - c.Show.AudienceRating; d < 0 || d >= selection.MaxJitter {
			t.Fatalf("jitter %v out of range for %s", d, c.Show.Title)
		}
	}
	if stats.Owned != 2 || stats.Excluded != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
