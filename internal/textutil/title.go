package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var embeddedYearPattern = regexp.MustCompile(`\s*\((\d{4})\)$`)

// NormalizeTitle lower-cases a title and collapses surrounding whitespace.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// SplitEmbeddedYear strips a trailing "(YYYY)" from title. It reports the
// remaining title, the year, and whether a year was found.
func SplitEmbeddedYear(title string) (string, int, bool) {
	match := embeddedYearPattern.FindStringSubmatchIndex(title)
	if match == nil {
		return title, 0, false
	}
	year, err := strconv.Atoi(title[match[2]:match[3]])
	if err != nil {
		return title, 0, false
	}
	return strings.TrimSpace(title[:match[0]]), year, true
}
