// Package tmdb provides the minimal TMDB API client used to resolve show
// identities and enrich feature records.
//
// It exposes TV search with an optional first-air-date year, IMDb id lookup,
// show details (seasons and original language), keywords, credits and
// external ids. Requests are throttled, retried on transient failures, and
// guarded by a circuit breaker so a TMDB outage degrades to missing keywords
// instead of a long stall. Options let tests supply their own HTTP client.
package tmdb
