// Package config loads, normalizes, and validates tvrecs configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PLEX_TOKEN and TMDB_API_KEY. The Config type centralizes every knob the CLI
// needs: watch history sources, scoring weights, selection limits, and the
// credentials of the external services.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical option spellings, and clear validation errors.
package config
