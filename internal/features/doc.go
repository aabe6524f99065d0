// Package features turns a show into the normalized feature record consumed by
// the profile aggregator and the similarity scorer.
//
// Genres, studio and cast come straight from library metadata. The language
// is the display name of the primary audio stream of the first episode, or the
// NotAvailable sentinel when no audio metadata exists. Keywords are optional
// and come from a KeywordSource (TMDB through the cache manager). A failure in
// any sub-field is logged and leaves that field empty; extraction never fails.
package features
