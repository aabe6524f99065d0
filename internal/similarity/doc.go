// Package similarity scores a candidate's feature record against a preference
// profile.
//
// Each of the five categories contributes its configured weight times the
// mean normalized profile weight of the candidate values it matches. The
// total is clamped to [0, 1]. Scoring one candidate can never fail a batch:
// ScoreAll recovers panics and non-finite results and records 0.0.
package similarity
