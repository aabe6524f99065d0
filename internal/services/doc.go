// Package services defines shared utilities consumed by the pipeline and the
// external service clients.
//
// Key responsibilities:
//   - Context helpers that stamp the run id, user context, and pipeline phase
//     for logging.
//   - Structured error markers plus the Wrap helper so callers can tell fatal
//     configuration problems from per-item failures that are skipped.
//
// The client packages for Plex, Tautulli, Trakt and Sonarr live below this
// directory.
package services
