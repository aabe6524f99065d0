// Package cache owns the persisted recommendation state of one user context.
//
// A snapshot is a single JSON document holding the watched-set fingerprint,
// the aggregated profile, per-item feature records, the library candidate
// records, and the external-id and keyword sub-caches. The profile is only
// rebuilt when the live fingerprint differs from the stored one. Sub-caches
// are written through on every new lookup. Every write replaces the document
// atomically (temp file then rename), and an advisory file lock keeps two
// invocations for the same context from interleaving.
//
// The default fingerprint is the cardinality of the watched set. It cannot see
// a membership change of unchanged size; the content_hash strategy closes that
// window at the cost of a full rebuild whenever any watched id changes.
package cache
