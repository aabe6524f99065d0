// Package library answers whether an externally suggested show is already
// present in the Plex library.
package library

import (
	"fmt"
	"strings"

	"tvrecs/internal/media"
	"tvrecs/internal/textutil"
)

type titleYear struct {
	title string
	year  int
}

// Index matches shows by normalized title, title and year, or IMDb id.
type Index struct {
	pairs  map[titleYear]struct{}
	titles map[string]struct{}
	imdb   map[string]struct{}
}

// NewIndex indexes the library shows. Titles carrying a trailing "(YYYY)" are
// also indexed under the stripped title and embedded year.
func NewIndex(shows []media.Show) *Index {
	idx := &Index{
		pairs:  make(map[titleYear]struct{}, len(shows)),
		titles: make(map[string]struct{}, len(shows)),
		imdb:   make(map[string]struct{}),
	}
	for _, show := range shows {
		idx.Add(show)
	}
	return idx
}

// Add indexes one show.
func (i *Index) Add(show media.Show) {
	title := textutil.NormalizeTitle(show.Title)
	if title != "" {
		i.pairs[titleYear{title, show.Year}] = struct{}{}
		i.titles[title] = struct{}{}
		if clean, year, ok := textutil.SplitEmbeddedYear(title); ok {
			i.pairs[titleYear{clean, year}] = struct{}{}
		}
	}
	if id := strings.ToLower(strings.TrimSpace(show.IMDbID)); id != "" {
		i.imdb[id] = struct{}{}
	}
}

// Len returns the number of distinct indexed titles.
func (i *Index) Len() int { return len(i.titles) }

// Owns reports whether show is already in the library.
func (i *Index) Owns(show media.Show) bool {
	if id := strings.ToLower(strings.TrimSpace(show.IMDbID)); id != "" {
		if _, ok := i.imdb[id]; ok {
			return true
		}
	}
	title := textutil.NormalizeTitle(show.Title)
	if title == "" {
		return false
	}
	if clean, year, ok := textutil.SplitEmbeddedYear(title); ok {
		if _, found := i.pairs[titleYear{clean, year}]; found {
			return true
		}
	}
	if _, ok := i.pairs[titleYear{title, show.Year}]; ok {
		return true
	}
	if _, ok := i.titles[title]; ok {
		return true
	}
	if show.Year > 0 {
		if _, ok := i.titles[fmt.Sprintf("%s (%d)", title, show.Year)]; ok {
			return true
		}
	}
	return false
}
