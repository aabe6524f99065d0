package similarity

import (
	"fmt"

	"tvrecs/internal/features"
	"tvrecs/internal/logging"
	"tvrecs/internal/profile"
)

// Target is one candidate handed to ScoreAll.
type Target struct {
	Label    string
	Features features.Record
}

// BatchStats summarizes a ScoreAll call.
type BatchStats struct {
	Scored int
	Failed int
}

// ScoreAll scores every target. A target whose scoring panics or produces a
// non-finite value gets a zero Result and a warning; the batch continues.
func (s *Scorer) ScoreAll(p profile.Profile, targets []Target) ([]Result, BatchStats) {
	results := make([]Result, len(targets))
	var stats BatchStats
	for i, target := range targets {
		res, err := s.safeScore(p, target.Features)
		if err != nil {
			stats.Failed++
			logging.WarnWithContext(s.logger, "candidate scoring failed; scored as zero", "score_failed",
				logging.String("title", target.Label),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the cached features of this show"),
				logging.String(logging.FieldImpact, "candidate ranked last"),
			)
			results[i] = zeroResult()
			continue
		}
		stats.Scored++
		results[i] = res
	}
	s.logger.Debug("scoring complete",
		logging.Int("scored", stats.Scored),
		logging.Int("failed", stats.Failed),
	)
	return results, stats
}

func (s *Scorer) safeScore(p profile.Profile, record features.Record) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scoring: %v", r)
		}
	}()
	return s.Score(p, record)
}

func zeroResult() Result {
	breakdown := make(map[Category]CategoryScore, len(Categories))
	for _, c := range Categories {
		breakdown[c] = CategoryScore{}
	}
	return Result{Breakdown: breakdown}
}
