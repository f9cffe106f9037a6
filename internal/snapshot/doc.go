// Package snapshot tracks accepted track records across runs.
//
// Each record gets a deterministic SHA1-based ID derived from its session and
// announcement text, so the same announcement seen twice maps to the same
// entry. A stable key of track and class follows the record holder for a
// class even as the holder changes, which lets a later run report that a
// record was broken rather than only that a new announcement appeared.
package snapshot
