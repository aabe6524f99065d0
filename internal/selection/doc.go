// Package selection turns scored candidates into a short, varied
// recommendation list.
//
// Library candidates pass through exclusion (watched shows and excluded
// genres), a popularity tier, a similarity tier, and a uniform sample without
// replacement. External suggestions drop owned and excluded shows, then sort
// by their popularity rating plus a small random jitter and are truncated.
// The random source is injected so tests are deterministic.
package selection
