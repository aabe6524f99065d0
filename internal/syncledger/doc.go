// Package syncledger records which watched episodes were already forwarded to
// an external history sink such as Trakt, so repeated runs only send new
// watches.
//
// The ledger is a small SQLite database (sync.db in the cache directory)
// opened through the pure-Go modernc.org/sqlite driver. Rows are keyed by
// sink and TVDB episode id. Clearing a sink's remote history must also clear
// its rows so the next sync re-sends everything.
package syncledger
