package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"tvrecs/internal/fileutil"
)

const (
	snapshotExt = ".json"
	lockExt     = ".lock"
)

// SnapshotPath returns the snapshot file for contextKey inside dir.
func SnapshotPath(dir, contextKey string) string {
	return filepath.Join(dir, contextKey+snapshotExt)
}

func readSnapshot(path string) (Snapshot, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return Snapshot{}, false, nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return Snapshot{}, false, nil
	}
	snap.fill()
	return snap, true, nil
}

// writeSnapshot replaces path atomically.
func writeSnapshot(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}

// Summary describes one stored snapshot without loading it under lock.
type Summary struct {
	Context      string
	Path         string
	Fingerprint  string
	Strategy     string
	WatchedCount int
	ItemCount    int
	LibraryCount int
	ExternalIDs  int
	Keywords     int
	SizeBytes    int64
	UpdatedAt    time.Time
	// Err is set when the file exists but cannot be decoded.
	Err error
}

// List summarizes every snapshot in dir, sorted by context.
func List(dir string) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache directory: %w", err)
	}
	var out []Summary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		path := filepath.Join(dir, name)
		summary := Summary{Context: strings.TrimSuffix(name, snapshotExt), Path: path}
		if info, err := entry.Info(); err == nil {
			summary.SizeBytes = info.Size()
		}
		snap, ok, err := readSnapshot(path)
		switch {
		case err != nil:
			summary.Err = err
		case !ok:
			summary.Err = errors.New("unsupported snapshot version")
		default:
			summary.Fingerprint = snap.Fingerprint
			summary.Strategy = snap.Strategy
			summary.WatchedCount = len(snap.WatchedIDs)
			summary.ItemCount = len(snap.Items)
			summary.LibraryCount = snap.LibraryCount
			summary.ExternalIDs = len(snap.ExternalIDs)
			summary.Keywords = len(snap.Keywords)
			summary.UpdatedAt = snap.UpdatedAt
		}
		out = append(out, summary)
	}
	slices.SortFunc(out, func(a, b Summary) int { return strings.Compare(a.Context, b.Context) })
	return out, nil
}

// Remove deletes the snapshots of the given contexts, or every snapshot in dir
// when none are named. It returns the removed paths.
func Remove(dir string, contexts ...string) ([]string, error) {
	var targets []string
	if len(contexts) == 0 {
		summaries, err := List(dir)
		if err != nil {
			return nil, err
		}
		for _, s := range summaries {
			targets = append(targets, s.Path)
		}
	} else {
		for _, c := range contexts {
			targets = append(targets, SnapshotPath(dir, c))
		}
	}
	var removed []string
	for _, path := range targets {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
