// Package profile converts ratings into weights and folds watched shows into a
// weighted preference profile.
//
// A Profile is five counters (genres, studio, actors, languages, keywords)
// mapping a feature value to the sum of the rating weights of every watched
// show carrying it. Aggregation visits shows in key order so re-running it on
// the same input produces bit-identical counters.
package profile
