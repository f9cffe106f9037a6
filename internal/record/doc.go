// Package record turns free-text Speedhive announcements into structured
// track and class records.
//
// Announcements arrive as human-typed strings such as
//
//	New Track Record (1:17.870) for IT7 by Bob Cross in Chevrolet C5 Corvette
//
// and come in several layouts. Parse runs the text through a normalizer, a
// detection gate and an ordered cascade of pattern shapes, the first match
// winning, then cleans the captured fields into a Candidate. Validate decides
// whether a Candidate is complete enough to be kept, and Screen combines both
// steps with the caller-level policies (missing-prefix routing and the
// missing-class exception).
//
// Everything in this package is pure: compiled patterns are package-level and
// read-only, so all functions are safe for concurrent use.
package record
