package media

import (
	"strconv"
	"strings"
)

// Show is a television series as seen by the library or an external
// suggestion source. Zero values mean "unknown".
type Show struct {
	// RatingKey is the Plex library identity. External suggestions have none.
	RatingKey int64    `json:"rating_key,omitempty"`
	Title     string   `json:"title"`
	Year      int      `json:"year,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Studio    string   `json:"studio,omitempty"`
	Genres    []string `json:"genres,omitempty"`
	// Cast is in billing order.
	Cast []string `json:"cast,omitempty"`
	// UserRating is the viewer's own 0-10 rating; 0 means unrated.
	UserRating float64 `json:"user_rating,omitempty"`
	// AudienceRating is the public 0-10 popularity rating.
	AudienceRating float64 `json:"audience_rating,omitempty"`
	Votes          int     `json:"votes,omitempty"`
	// Language is a display name, set for external suggestions only.
	Language string `json:"language,omitempty"`
	IMDbID   string `json:"imdb_id,omitempty"`
	TMDBID   int64  `json:"tmdb_id,omitempty"`
	TVDBID   int64  `json:"tvdb_id,omitempty"`
	TraktID  int64  `json:"trakt_id,omitempty"`
}

// Label renders "Title (Year)" for logs and prompts.
func (s Show) Label() string {
	if s.Year > 0 {
		return s.Title + " (" + strconv.Itoa(s.Year) + ")"
	}
	return s.Title
}

// IMDbLink returns the IMDb title page, or "" without an IMDb id.
func (s Show) IMDbLink() string {
	if s.IMDbID == "" {
		return ""
	}
	return "https://www.imdb.com/title/" + s.IMDbID + "/"
}

// ApplyGUIDs fills external ids from Plex agent GUIDs such as "imdb://tt0903747",
// "tmdb://1396" or "tvdb://81189". Existing ids are kept.
func (s *Show) ApplyGUIDs(guids []string) {
	for _, guid := range guids {
		scheme, value, ok := strings.Cut(strings.TrimSpace(guid), "://")
		if !ok || value == "" {
			continue
		}
		value, _, _ = strings.Cut(value, "?")
		switch strings.ToLower(scheme) {
		case "imdb":
			if s.IMDbID == "" {
				s.IMDbID = value
			}
		case "tmdb", "themoviedb":
			if s.TMDBID == 0 {
				s.TMDBID = parsePositive(value)
			}
		case "tvdb", "thetvdb":
			if s.TVDBID == 0 {
				s.TVDBID = parsePositive(value)
			}
		}
	}
}

func parsePositive(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
