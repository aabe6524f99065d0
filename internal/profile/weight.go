package profile

import (
	"math"

	"tvrecs/internal/media"
)

// NeutralRating is used when a show has neither a user nor an audience rating.
const NeutralRating = 5.0

var ratingWeights = [11]float64{0.1, 0.2, 0.4, 0.6, 0.8, 1.0, 1.2, 1.4, 1.6, 1.8, 2.0}

// RatingWeight maps a 0-10 rating to its profile multiplier. The rating is
// rounded half away from zero and clamped to [0, 10]; non-finite input is
// treated as neutral.
func RatingWeight(rating float64) float64 {
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		rating = NeutralRating
	}
	idx := math.Round(rating)
	switch {
	case idx < 0:
		idx = 0
	case idx > 10:
		idx = 10
	}
	return ratingWeights[int(idx)]
}

// EffectiveRating picks the rating that drives a show's weight: the personal
// rating, then the audience rating, then NeutralRating. Zero means unrated.
func EffectiveRating(show media.Show) float64 {
	if show.UserRating > 0 {
		return show.UserRating
	}
	if show.AudienceRating > 0 {
		return show.AudienceRating
	}
	return NeutralRating
}
