package identification

import (
	"log/slog"
	"strings"
	"unicode"

	"tvrecs/internal/identification/tmdb"
	"tvrecs/internal/logging"
)

// selectBestResult prefers an exact title and year match, then an exact title
// match, then TMDB's own ranking.
func selectBestResult(logger *slog.Logger, title string, year int, response *tmdb.Response) *tmdb.Result {
	if response == nil || len(response.Results) == 0 {
		return nil
	}
	query := normalizeForComparison(title)
	var titleOnly *tmdb.Result
	for idx := range response.Results {
		res := &response.Results[idx]
		if normalizeForComparison(res.Name) != query && normalizeForComparison(res.OriginalName) != query {
			continue
		}
		if year > 0 && res.Year() == year {
			logger.Debug("tmdb match selected",
				logging.Int64("tmdb_id", res.ID),
				logging.String("match_type", "exact_title_year"))
			return res
		}
		if titleOnly == nil {
			titleOnly = res
		}
	}
	if titleOnly != nil {
		logger.Debug("tmdb match selected",
			logging.Int64("tmdb_id", titleOnly.ID),
			logging.String("match_type", "exact_title"))
		return titleOnly
	}
	best := &response.Results[0]
	logger.Debug("tmdb match selected",
		logging.Int64("tmdb_id", best.ID),
		logging.String("match_type", "first_result"),
		logging.String("tmdb_title", best.Name))
	return best
}

func normalizeForComparison(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	normalized := strings.ToLower(input)
	normalized = strings.ReplaceAll(normalized, "&", "and")
	normalized = strings.ReplaceAll(normalized, "+", "and")

	var builder strings.Builder
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
