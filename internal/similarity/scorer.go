package similarity

import (
	"fmt"
	"log/slog"
	"math"

	"tvrecs/internal/config"
	"tvrecs/internal/features"
	"tvrecs/internal/logging"
	"tvrecs/internal/profile"
)

// Category names a feature category.
type Category string

const (
	Genre    Category = "genre"
	Studio   Category = "studio"
	Actor    Category = "actor"
	Language Category = "language"
	Keyword  Category = "keyword"
)

// Categories lists every category in breakdown order.
var Categories = []Category{Genre, Studio, Actor, Language, Keyword}

// actorDampenAbove is the match count beyond which the actor average shrinks.
const actorDampenAbove = 3

// CategoryScore is the contribution of one category. Score is already
// multiplied by the category weight.
type CategoryScore struct {
	Score   float64 `json:"score"`
	Matched int     `json:"matched"`
	// Absent marks a candidate without any feature in this category.
	Absent bool `json:"absent,omitempty"`
}

// Result is a bounded similarity score and its per-category breakdown.
type Result struct {
	Score     float64                    `json:"score"`
	Breakdown map[Category]CategoryScore `json:"breakdown"`
}

// Scorer compares records with a profile.
type Scorer struct {
	weights config.Weights
	sqrt    bool
	logger  *slog.Logger
}

// NewScorer builds a Scorer. sqrt selects square-root normalization; otherwise
// normalization is linear.
func NewScorer(weights config.Weights, sqrt bool, logger *slog.Logger) *Scorer {
	return &Scorer{
		weights: weights,
		sqrt:    sqrt,
		logger:  logging.NewComponentLogger(logger, "similarity"),
	}
}

func (s *Scorer) weight(category Category) float64 {
	switch category {
	case Genre:
		return s.weights.Genre
	case Studio:
		return s.weights.Studio
	case Actor:
		return s.weights.Actor
	case Language:
		return s.weights.Language
	case Keyword:
		return s.weights.Keyword
	}
	return 0
}

// Score computes the similarity of record to p. It returns an error when an
// intermediate value is not finite.
func (s *Scorer) Score(p profile.Profile, record features.Record) (Result, error) {
	result := Result{Breakdown: make(map[Category]CategoryScore, len(Categories))}
	var total float64
	for _, category := range Categories {
		values, counter := candidateValues(category, record), counterFor(category, p)
		cs := s.scoreCategory(category, values, counter)
		if math.IsNaN(cs.Score) || math.IsInf(cs.Score, 0) {
			return Result{}, fmt.Errorf("%s score is not finite", category)
		}
		result.Breakdown[category] = cs
		total += cs.Score
	}
	result.Score = math.Max(0, math.Min(total, 1.0))
	return result, nil
}

func (s *Scorer) scoreCategory(category Category, values []string, counter profile.Counter) CategoryScore {
	if len(values) == 0 {
		return CategoryScore{Absent: true}
	}
	maxWeight := counter.Max()
	if len(counter) == 0 || maxWeight <= 0 {
		return CategoryScore{}
	}
	var sum float64
	matched := 0
	for _, value := range values {
		w, ok := counter[value]
		if !ok {
			continue
		}
		sum += s.normalize(w, maxWeight)
		matched++
	}
	if matched == 0 {
		return CategoryScore{}
	}
	avg := sum / float64(matched)
	if category == Actor && matched > actorDampenAbove {
		avg *= float64(actorDampenAbove) / float64(matched)
	}
	return CategoryScore{Score: avg * s.weight(category), Matched: matched}
}

func (s *Scorer) normalize(weight, maxWeight float64) float64 {
	ratio := weight / maxWeight
	if s.sqrt {
		return math.Sqrt(ratio)
	}
	return math.Min(ratio, 1.0)
}

func candidateValues(category Category, record features.Record) []string {
	switch category {
	case Genre:
		return record.Genres
	case Studio:
		if record.Studio == "" {
			return nil
		}
		return []string{record.Studio}
	case Actor:
		return record.Cast
	case Language:
		if lang, ok := record.ScoredLanguage(); ok {
			return []string{lang}
		}
		return nil
	case Keyword:
		return record.Keywords
	}
	return nil
}

func counterFor(category Category, p profile.Profile) profile.Counter {
	switch category {
	case Genre:
		return p.Genres
	case Studio:
		return p.Studios
	case Actor:
		return p.Actors
	case Language:
		return p.Languages
	case Keyword:
		return p.Keywords
	}
	return nil
}
