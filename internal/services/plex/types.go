package plex

import (
	"strconv"
	"strings"
	"time"

	"tvrecs/internal/media"
)

type container[T any] struct {
	MediaContainer T `json:"MediaContainer"`
}

type sectionList struct {
	Directory []struct {
		Key   string `json:"key"`
		Title string `json:"title"`
		Type  string `json:"type"`
	} `json:"Directory"`
}

type metadataList struct {
	Size      int        `json:"size"`
	TotalSize int        `json:"totalSize"`
	Metadata  []metadata `json:"Metadata"`
}

type tag struct {
	Tag string `json:"tag"`
}

type guid struct {
	ID string `json:"id"`
}

type rating struct {
	Image string  `json:"image"`
	Value float64 `json:"value"`
	Type  string  `json:"type"`
}

type stream struct {
	StreamType   int    `json:"streamType"`
	LanguageTag  string `json:"languageTag"`
	LanguageCode string `json:"languageCode"`
}

type part struct {
	Stream []stream `json:"Stream"`
}

type mediaItem struct {
	Part []part `json:"Part"`
}

type metadata struct {
	RatingKey            string      `json:"ratingKey"`
	GrandparentRatingKey string      `json:"grandparentRatingKey"`
	GrandparentTitle     string      `json:"grandparentTitle"`
	Type                 string      `json:"type"`
	Title                string      `json:"title"`
	Year                 int         `json:"year"`
	Summary              string      `json:"summary"`
	Studio               string      `json:"studio"`
	UserRating           float64     `json:"userRating"`
	AudienceRating       float64     `json:"audienceRating"`
	GUID                 string      `json:"guid"`
	ParentIndex          int         `json:"parentIndex"`
	Index                int         `json:"index"`
	LastViewedAt         int64       `json:"lastViewedAt"`
	ViewCount            int         `json:"viewCount"`
	Genre                []tag       `json:"Genre"`
	Role                 []tag       `json:"Role"`
	Guid                 []guid      `json:"Guid"`
	Rating               []rating    `json:"Rating"`
	Media                []mediaItem `json:"Media"`
}

func parseKey(value string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func (m metadata) guids() []string {
	out := make([]string, 0, len(m.Guid)+1)
	for _, g := range m.Guid {
		out = append(out, g.ID)
	}
	if m.GUID != "" {
		out = append(out, m.GUID)
	}
	return out
}

// imdbAudienceRating prefers the IMDb audience rating entry, as Plex agents
// attach several rating sources.
func (m metadata) imdbAudienceRating() float64 {
	for _, r := range m.Rating {
		if r.Image == "imdb://image.rating" && r.Type == "audience" && r.Value > 0 {
			return r.Value
		}
	}
	return m.AudienceRating
}

func (m metadata) toShow() media.Show {
	show := media.Show{
		RatingKey:      parseKey(m.RatingKey),
		Title:          strings.TrimSpace(m.Title),
		Year:           m.Year,
		Summary:        strings.TrimSpace(m.Summary),
		Studio:         strings.TrimSpace(m.Studio),
		UserRating:     m.UserRating,
		AudienceRating: m.imdbAudienceRating(),
	}
	for _, g := range m.Genre {
		show.Genres = append(show.Genres, g.Tag)
	}
	for _, r := range m.Role {
		show.Cast = append(show.Cast, r.Tag)
	}
	show.ApplyGUIDs(m.guids())
	return show
}

// audioLanguage returns the language of the first audio stream.
func (m metadata) audioLanguage() string {
	for _, mi := range m.Media {
		for _, p := range mi.Part {
			for _, s := range p.Stream {
				if s.StreamType != 2 {
					continue
				}
				if s.LanguageTag != "" {
					return s.LanguageTag
				}
				return s.LanguageCode
			}
		}
	}
	return ""
}

// Episode is a watched episode with the identity Trakt accepts.
type Episode struct {
	ShowKey   int64
	ShowTitle string
	Season    int
	Number    int
	TVDBID    int64
	WatchedAt time.Time
}

func (m metadata) toEpisode() Episode {
	var ids media.Show
	ids.ApplyGUIDs(m.guids())
	ep := Episode{
		ShowKey:   parseKey(m.GrandparentRatingKey),
		ShowTitle: m.GrandparentTitle,
		Season:    m.ParentIndex,
		Number:    m.Index,
		TVDBID:    ids.TVDBID,
	}
	if m.LastViewedAt > 0 {
		ep.WatchedAt = time.Unix(m.LastViewedAt, 0).UTC()
	}
	return ep
}
