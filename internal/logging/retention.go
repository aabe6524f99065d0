package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// RetentionTarget specifies a directory and filename pattern to prune.
type RetentionTarget struct {
	Dir     string
	Pattern string
	// Exclude lists paths that are never removed (for example the active log).
	Exclude []string
}

// RetentionPolicy bounds how many log files survive and for how long. Zero
// values disable the corresponding limit.
type RetentionPolicy struct {
	MaxAgeDays int
	KeepFiles  int
}

type logFile struct {
	path    string
	modTime time.Time
}

// CleanupOldLogs removes files matching the targets that are older than
// MaxAgeDays, then trims each target to its newest KeepFiles entries.
func CleanupOldLogs(logger *slog.Logger, policy RetentionPolicy, now time.Time, targets ...RetentionTarget) {
	if policy.MaxAgeDays <= 0 && policy.KeepFiles <= 0 {
		return
	}
	for _, target := range targets {
		files := listTarget(target)
		// newest first
		slices.SortFunc(files, func(a, b logFile) int { return b.modTime.Compare(a.modTime) })

		cutoff := now.AddDate(0, 0, -policy.MaxAgeDays)
		kept := 0
		for _, f := range files {
			expired := policy.MaxAgeDays > 0 && f.modTime.Before(cutoff)
			overflow := policy.KeepFiles > 0 && kept >= policy.KeepFiles
			if !expired && !overflow {
				kept++
				continue
			}
			removeLog(logger, f.path)
		}
	}
}

func listTarget(target RetentionTarget) []logFile {
	dir := strings.TrimSpace(target.Dir)
	if dir == "" {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	excluded := make(map[string]struct{}, len(target.Exclude))
	for _, path := range target.Exclude {
		if abs, err := filepath.Abs(strings.TrimSpace(path)); err == nil {
			excluded[abs] = struct{}{}
		}
	}

	files := make([]logFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if pat := strings.TrimSpace(target.Pattern); pat != "" {
			if matched, err := filepath.Match(pat, entry.Name()); err != nil || !matched {
				continue
			}
		}
		fullPath := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(fullPath); err == nil {
			fullPath = abs
		}
		if _, skip := excluded[fullPath]; skip {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{path: fullPath, modTime: info.ModTime()})
	}
	return files
}

func removeLog(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil {
		WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
			String("path", path),
			Error(err),
			String(FieldErrorHint, "check file permissions and log_dir ownership"),
			String(FieldImpact, "old log file remains on disk"),
		)
		return
	}
	if logger != nil {
		logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
	}
}
