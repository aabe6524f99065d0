package profile

import (
	"cmp"
	"slices"

	"tvrecs/internal/features"
	"tvrecs/internal/media"
)

// Counter maps a feature value to its accumulated weight. Entries are always
// positive.
type Counter map[string]float64

// Add accumulates weight for value. Empty values and non-positive weights are
// ignored.
func (c Counter) Add(value string, weight float64) {
	if value == "" || !(weight > 0) {
		return
	}
	c[value] += weight
}

// Max returns the largest weight in the counter, or 0 when empty.
func (c Counter) Max() float64 {
	var highest float64
	for _, w := range c {
		if w > highest {
			highest = w
		}
	}
	return highest
}

// Top returns up to n values ordered by weight descending, ties by name.
func (c Counter) Top(n int) []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if d := cmp.Compare(c[b], c[a]); d != 0 {
			return d
		}
		return cmp.Compare(a, b)
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// Profile is the aggregated preference of one user context.
type Profile struct {
	Genres    Counter `json:"genres"`
	Studios   Counter `json:"studio"`
	Actors    Counter `json:"actors"`
	Languages Counter `json:"languages"`
	Keywords  Counter `json:"keywords"`
	// Shows is the number of watched shows folded into the counters.
	Shows int `json:"shows"`
}

// New returns an empty profile with allocated counters.
func New() Profile {
	return Profile{
		Genres:    Counter{},
		Studios:   Counter{},
		Actors:    Counter{},
		Languages: Counter{},
		Keywords:  Counter{},
	}
}

// Empty reports whether nothing has been aggregated.
func (p Profile) Empty() bool {
	return len(p.Genres) == 0 && len(p.Studios) == 0 && len(p.Actors) == 0 &&
		len(p.Languages) == 0 && len(p.Keywords) == 0
}

// Item is one watched show with its extracted features.
type Item struct {
	Key      string
	Show     media.Show
	Features features.Record
}

// Aggregate folds items into a fresh Profile. Items are visited in Key order;
// duplicate keys count once.
func Aggregate(items []Item) Profile {
	ordered := slices.Clone(items)
	slices.SortStableFunc(ordered, func(a, b Item) int { return cmp.Compare(a.Key, b.Key) })
	ordered = slices.CompactFunc(ordered, func(a, b Item) bool { return a.Key == b.Key })

	p := New()
	for _, item := range ordered {
		p.add(item.Features, RatingWeight(EffectiveRating(item.Show)))
	}
	return p
}

func (p *Profile) add(record features.Record, weight float64) {
	for _, genre := range record.Genres {
		p.Genres.Add(genre, weight)
	}
	p.Studios.Add(record.Studio, weight)
	for i, actor := range record.Cast {
		if i == features.MaxCast {
			break
		}
		p.Actors.Add(actor, weight)
	}
	if lang, ok := record.ScoredLanguage(); ok {
		p.Languages.Add(lang, weight)
	}
	for _, keyword := range record.Keywords {
		p.Keywords.Add(keyword, weight)
	}
	p.Shows++
}
