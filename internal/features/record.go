package features

import (
	"slices"
	"strings"
)

// NotAvailable marks a missing language. It is never counted or matched.
const NotAvailable = "N/A"

// MaxCast is the number of billed cast members that describe a show.
const MaxCast = 3

// Record is the normalized feature set of one show. Values are lower-cased
// except Language, which is a display name.
type Record struct {
	Genres   []string `json:"genres,omitempty"`
	Studio   string   `json:"studio,omitempty"`
	Cast     []string `json:"cast,omitempty"`
	Language string   `json:"language"`
	Keywords []string `json:"keywords,omitempty"`
}

// ScoredLanguage returns the language when it takes part in scoring.
func (r Record) ScoredLanguage() (string, bool) {
	if r.Language == "" || r.Language == NotAvailable {
		return "", false
	}
	return r.Language, true
}

// HasGenre reports whether the record carries any of the given lower-case genres.
func (r Record) HasGenre(genres []string) bool {
	for _, genre := range r.Genres {
		if slices.Contains(genres, genre) {
			return true
		}
	}
	return false
}

// normalizeSet lower-cases, trims, deduplicates and sorts values.
func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		if v := strings.ToLower(strings.TrimSpace(value)); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeCast keeps billing order and returns at most MaxCast distinct names.
func normalizeCast(values []string) []string {
	out := make([]string, 0, MaxCast)
	for _, value := range values {
		v := strings.ToLower(strings.TrimSpace(value))
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
		if len(out) == MaxCast {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
