package textutil

import (
	"regexp"
	"strings"
)

var nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// ContextKey joins a source prefix and user names into a filesystem-safe key,
// for example ContextKey("tautulli", "Alice", "Bob") == "tautulli_Alice_Bob".
// Characters other than letters, digits and underscores are dropped.
func ContextKey(source string, users ...string) string {
	parts := make([]string, 0, len(users)+1)
	parts = append(parts, strings.TrimSpace(source))
	for _, user := range users {
		parts = append(parts, strings.TrimSpace(user))
	}
	key := nonWordPattern.ReplaceAllString(strings.Join(parts, "_"), "")
	if key == "" {
		return "unknown"
	}
	return key
}
