package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"

	"tvrecs/internal/config"
)

// WatchedSet holds the distinct identities of watched shows.
type WatchedSet map[string]struct{}

// NewWatchedSet builds a set from ids, ignoring blanks.
func NewWatchedSet(ids ...string) WatchedSet {
	w := make(WatchedSet, len(ids))
	for _, id := range ids {
		w.Add(id)
	}
	return w
}

func (w WatchedSet) Add(id string) {
	if id = strings.TrimSpace(id); id != "" {
		w[id] = struct{}{}
	}
}

func (w WatchedSet) Contains(id string) bool {
	_, ok := w[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (w WatchedSet) Sorted() []string {
	ids := make([]string, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Fingerprint summarizes w under the given strategy. Unknown strategies fall
// back to cardinality.
func Fingerprint(strategy string, w WatchedSet) string {
	if strategy == config.FingerprintContentHash {
		h := sha256.New()
		for _, id := range w.Sorted() {
			h.Write([]byte(id))
			h.Write([]byte{0})
		}
		return "sha256:" + hex.EncodeToString(h.Sum(nil))
	}
	return strconv.Itoa(len(w))
}
