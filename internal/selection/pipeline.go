package selection

import (
	"cmp"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"

	"tvrecs/internal/features"
	"tvrecs/internal/logging"
	"tvrecs/internal/media"
	"tvrecs/internal/profile"
	"tvrecs/internal/similarity"
)

const (
	// popularityShare is the fraction of candidates kept by the popularity tier.
	popularityShare = 0.5
	// MaxJitter bounds the noise added to suggestion ratings.
	MaxJitter = 0.5

	DefaultPoolFraction = 0.3
)

// Candidate is a show under consideration.
type Candidate struct {
	Key      string
	Show     media.Show
	Features features.Record
	Result   similarity.Result
	// Jittered is the sort key used for suggestions.
	Jittered float64 `json:"-"`
}

// Options controls pool sizes and exclusions.
type Options struct {
	Limit         int
	PoolFraction  float64
	ExcludeGenres []string
}

// Stats counts what each stage kept or dropped.
type Stats struct {
	Input          int
	Watched        int
	Owned          int
	Excluded       int
	Failed         int
	PopularityPool int
	SimilarityPool int
	Selected       int
}

// Pipeline applies Options to candidate lists.
type Pipeline struct {
	scorer  *similarity.Scorer
	opts    Options
	rng     *rand.Rand
	logger  *slog.Logger
	exclude []string
}

// New builds a Pipeline. A nil rng uses a randomly seeded source.
func New(scorer *similarity.Scorer, opts Options, rng *rand.Rand, logger *slog.Logger) *Pipeline {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.PoolFraction <= 0 {
		opts.PoolFraction = DefaultPoolFraction
	}
	exclude := make([]string, 0, len(opts.ExcludeGenres))
	for _, g := range opts.ExcludeGenres {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			exclude = append(exclude, g)
		}
	}
	return &Pipeline{
		scorer:  scorer,
		opts:    opts,
		rng:     rng,
		logger:  logging.NewComponentLogger(logger, "selection"),
		exclude: exclude,
	}
}

// Watched reports whether a library key was watched.
type Watched interface {
	Contains(key string) bool
}

// Owner reports whether a suggestion is already in the library.
type Owner interface {
	Owns(show media.Show) bool
}

// Library filters, scores, ranks and samples library candidates.
func (p *Pipeline) Library(prof profile.Profile, candidates []Candidate, watched Watched) ([]Candidate, Stats) {
	stats := Stats{Input: len(candidates)}
	pool := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if watched != nil && watched.Contains(c.Key) {
			stats.Watched++
			continue
		}
		if c.Features.HasGenre(p.exclude) {
			stats.Excluded++
			continue
		}
		pool = append(pool, c)
	}

	targets := make([]similarity.Target, len(pool))
	for i, c := range pool {
		targets[i] = similarity.Target{Label: c.Show.Label(), Features: c.Features}
	}
	results, batch := p.scorer.ScoreAll(prof, targets)
	stats.Failed = batch.Failed
	for i := range pool {
		pool[i].Result = results[i]
	}

	limit := max(p.opts.Limit, 0)

	slices.SortStableFunc(pool, func(a, b Candidate) int {
		if d := cmp.Compare(b.Show.AudienceRating, a.Show.AudienceRating); d != 0 {
			return d
		}
		if d := cmp.Compare(b.Result.Score, a.Result.Score); d != 0 {
			return d
		}
		return cmp.Compare(a.Key, b.Key)
	})
	pool = pool[:min(len(pool), max(int(float64(len(pool))*popularityShare), limit))]
	stats.PopularityPool = len(pool)

	slices.SortStableFunc(pool, func(a, b Candidate) int {
		if d := cmp.Compare(b.Result.Score, a.Result.Score); d != 0 {
			return d
		}
		return cmp.Compare(a.Key, b.Key)
	})
	pool = pool[:min(len(pool), max(int(float64(len(pool))*p.opts.PoolFraction), limit))]
	stats.SimilarityPool = len(pool)

	selected := p.sample(pool, min(limit, len(pool)))
	stats.Selected = len(selected)

	p.logger.Info("library selection complete",
		logging.Int("candidates", stats.Input),
		logging.Int("watched", stats.Watched),
		logging.Int("excluded", stats.Excluded),
		logging.Int("score_failures", stats.Failed),
		logging.Int("popularity_pool", stats.PopularityPool),
		logging.Int("similarity_pool", stats.SimilarityPool),
		logging.Int("selected", stats.Selected),
	)
	return selected, stats
}

// sample draws n items without replacement using a partial Fisher-Yates shuffle.
func (p *Pipeline) sample(pool []Candidate, n int) []Candidate {
	if n <= 0 {
		return nil
	}
	picked := slices.Clone(pool)
	for i := range n {
		j := i + p.rng.IntN(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked[:n]
}

// Suggestions filters external suggestions and returns at most Limit of them
// ordered by jittered rating.
func (p *Pipeline) Suggestions(suggestions []Candidate, owner Owner) ([]Candidate, Stats) {
	stats := Stats{Input: len(suggestions)}
	kept := make([]Candidate, 0, len(suggestions))
	for _, c := range suggestions {
		if strings.TrimSpace(c.Show.Title) == "" || (owner != nil && owner.Owns(c.Show)) {
			stats.Owned++
			continue
		}
		if c.Features.HasGenre(p.exclude) {
			stats.Excluded++
			continue
		}
		c.Jittered = c.Show.AudienceRating + p.rng.Float64()*MaxJitter
		kept = append(kept, c)
	}
	slices.SortStableFunc(kept, func(a, b Candidate) int { return cmp.Compare(b.Jittered, a.Jittered) })
	if limit := max(p.opts.Limit, 0); len(kept) > limit {
		kept = kept[:limit]
	}
	stats.Selected = len(kept)

	p.logger.Info("suggestion selection complete",
		logging.Int("suggestions", stats.Input),
		logging.Int("owned", stats.Owned),
		logging.Int("excluded", stats.Excluded),
		logging.Int("selected", stats.Selected),
	)
	return kept, stats
}
