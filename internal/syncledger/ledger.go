package syncledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the ledger's file name inside the cache directory.
const FileName = "sync.db"

// SinkTrakt names the Trakt history sink.
const SinkTrakt = "trakt"

// Entry is one watched episode.
type Entry struct {
	TVDBID    int64
	WatchedAt time.Time
}

// Record is a stored ledger row.
type Record struct {
	Sink      string
	TVDBID    int64
	WatchedAt time.Time
	SyncedAt  time.Time
}

// Ledger is the SQLite-backed sync record.
type Ledger struct {
	db   *sql.DB
	path string
}

// Path returns the default ledger location for a cache directory.
func Path(cacheDir string) string {
	return filepath.Join(cacheDir, FileName)
}

// Open creates or opens the ledger at path.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps pragmas and transactions on one handle.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	ledger := &Ledger{db: db, path: path}
	if err := ledger.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return ledger, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Pending filters entries down to the episodes not yet recorded for sink,
// dropping entries without a TVDB id and duplicates. Input order is kept.
func (l *Ledger) Pending(ctx context.Context, sink string, entries []Entry) ([]Entry, error) {
	synced, err := l.syncedIDs(ctx, sink)
	if err != nil {
		return nil, err
	}
	pending := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.TVDBID <= 0 {
			continue
		}
		if _, done := synced[e.TVDBID]; done {
			continue
		}
		synced[e.TVDBID] = struct{}{}
		pending = append(pending, e)
	}
	return pending, nil
}

func (l *Ledger) syncedIDs(ctx context.Context, sink string) (map[int64]struct{}, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT tvdb_id FROM synced_episodes WHERE sink = ?", sink)
	if err != nil {
		return nil, fmt.Errorf("query synced episodes: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan synced episode: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate synced episodes: %w", err)
	}
	return ids, nil
}

// MarkSynced records ids as forwarded to sink at syncedAt. watched supplies
// the watch time per id when known.
func (l *Ledger) MarkSynced(ctx context.Context, sink string, ids []int64, watched map[int64]time.Time, syncedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO synced_episodes (sink, tvdb_id, watched_at, synced_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(sink, tvdb_id) DO UPDATE SET watched_at = excluded.watched_at, synced_at = excluded.synced_at`)
	if err != nil {
		return fmt.Errorf("prepare ledger insert: %w", err)
	}
	defer stmt.Close()

	stamp := syncedAt.UTC().Format(time.RFC3339Nano)
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, sink, id, nullableTime(watched[id]), stamp); err != nil {
			return fmt.Errorf("record episode %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger: %w", err)
	}
	return nil
}

// Clear forgets every row of sink and returns how many were removed.
func (l *Ledger) Clear(ctx context.Context, sink string) (int64, error) {
	res, err := l.db.ExecContext(ctx, "DELETE FROM synced_episodes WHERE sink = ?", sink)
	if err != nil {
		return 0, fmt.Errorf("clear ledger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Stats summarises one sink.
type Stats struct {
	Episodes int
	LastSync time.Time
}

// Stats reports the row count and most recent sync time of sink.
func (l *Ledger) Stats(ctx context.Context, sink string) (Stats, error) {
	var (
		stats Stats
		last  sql.NullString
	)
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(1), MAX(synced_at) FROM synced_episodes WHERE sink = ?", sink,
	).Scan(&stats.Episodes, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("ledger stats: %w", err)
	}
	stats.LastSync = parseTime(last)
	return stats, nil
}

// Records lists the rows of sink ordered by TVDB id.
func (l *Ledger) Records(ctx context.Context, sink string) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT sink, tvdb_id, watched_at, synced_at FROM synced_episodes WHERE sink = ? ORDER BY tvdb_id", sink)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec      Record
			watched  sql.NullString
			syncedAt sql.NullString
		)
		if err := rows.Scan(&rec.Sink, &rec.TVDBID, &watched, &syncedAt); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		rec.WatchedAt = parseTime(watched)
		rec.SyncedAt = parseTime(syncedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	return slices.Clip(records), nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value sql.NullString) time.Time {
	if !value.Valid || value.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
