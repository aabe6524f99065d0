// Package identification resolves library and suggested shows to TMDB ids and
// looks up their keywords.
//
// The Resolver tries, in order, an id already carried by the show (from a
// Plex tmdb:// GUID), a TMDB TV search preferring an exact title and year
// match, and an IMDb id lookup. Every outcome, including "not found", is
// written through the cache so later runs skip the network. Transport errors
// are not cached.
package identification
