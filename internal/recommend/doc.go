// Package recommend runs one recommendation invocation end to end.
//
// A Runner resolves the configured watch-history contexts (Tautulli users or
// Plex users, merged or one per user), then for each context:
//
//   - opens the context's cache snapshot and lock
//   - returns the cached taste profile when the watched-set fingerprint is
//     unchanged, or rebuilds it from freshly extracted feature records
//   - extracts (or reuses cached) records for every library show and runs the
//     library branch of the selection pipeline
//   - filters Trakt suggestions through the suggestion branch and enriches the
//     picks with TMDB language and cast
//
// Trakt history sync, history clearing and Sonarr forwarding are exposed as
// separate Runner methods so the CLI can call them on their own.
package recommend
