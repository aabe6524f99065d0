// Package language maps the language codes reported by Plex audio streams and
// TMDB to human-readable names.
package language
