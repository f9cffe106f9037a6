package record

import (
	"regexp"
	"strings"
)

var (
	announcementPattern = regexp.MustCompile(`(?i)\bnew\s+(?:track|class)\s+record\b|\btrack\s+record\b`)
	newRecordPrefix     = regexp.MustCompile(`(?i)\bnew\s+(?:track|class)\s+record\b`)
	forByClause         = regexp.MustCompile(`(?i)\bfor\s+` + classToken + `\s+by\s+\S`)
	anyLapTime          = regexp.MustCompile(lapTimeToken + `|\(\s*\d{1,4}\.\d{1,3}\s*\)`)
)

// negations disqualify an announcement even when a positive keyword is
// present.
var negations = []string{
	"not counted",
	"unofficial",
	"exhibition",
	"not recognized",
	"to be confirmed",
	"not a track record",
	"not a class record",
}

// IsRecordAnnouncement reports whether text announces a track or class
// record. A negating phrase always wins over the positive keywords.
func IsRecordAnnouncement(text string) bool {
	return isRecordNormalized(NormalizeText(text))
}

// isRecordNormalized is IsRecordAnnouncement for text that has already been
// through NormalizeText. Normalizing twice would decode entities twice.
func isRecordNormalized(text string) bool {
	if text == "" || isNegated(text) {
		return false
	}
	return announcementPattern.MatchString(text)
}

// LooksLikeRecordWithoutPrefix reports whether text carries the lap time,
// class and driver of a record but lacks the "New Track Record" or
// "New Class Record" prefix. Callers use it to tell malformed announcements
// apart from unrelated chatter.
func LooksLikeRecordWithoutPrefix(text string) bool {
	return looksLikeRecordNormalized(NormalizeText(text))
}

func looksLikeRecordNormalized(text string) bool {
	if text == "" || isNegated(text) || newRecordPrefix.MatchString(text) {
		return false
	}
	if !anyLapTime.MatchString(text) {
		return false
	}
	if forByClause.MatchString(text) {
		return true
	}

	m, ok := matchFallback(text)
	return ok && m.Class != "" && m.Driver != ""
}

func isNegated(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range negations {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
