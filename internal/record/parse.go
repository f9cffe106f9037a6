package record

import "strings"

// Status is the disposition of a screened announcement.
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusMalformed Status = "malformed"
	StatusIgnored   Status = "ignored"
)

// Reasons for malformed announcements that never produced a candidate.
const (
	ReasonMissingPrefix = `Missing "New Track/Class Record" prefix`
	ReasonUnrecognized  = "Unrecognized record format"
)

// ScreenOptions holds the caller-level policies applied by Screen.
type ScreenOptions struct {
	// AllowMissingClass accepts candidates whose only defect is an empty
	// class abbreviation.
	AllowMissingClass bool
}

// Outcome is the result of screening one announcement.
type Outcome struct {
	Status    Status     `json:"status"`
	Candidate *Candidate `json:"record,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Failure   Failure    `json:"failure"`
}

// Parse extracts a record candidate from announcement text. It returns nil
// when the text is not a record announcement or no shape matches.
// Validation is a separate step.
func Parse(text string, meta Metadata) *Candidate {
	return ParseAnnouncement(Announcement{Text: text, Metadata: meta})
}

// ParseAnnouncement is Parse for a full announcement row, carrying the
// timestamp into the candidate.
func ParseAnnouncement(a Announcement) *Candidate {
	normalized := NormalizeText(a.Text)
	if !isRecordNormalized(normalized) {
		return nil
	}
	return parseNormalized(normalized, a)
}

func parseNormalized(normalized string, a Announcement) *Candidate {
	m, ok := Cascade(normalized)
	if !ok {
		return nil
	}

	c := &Candidate{
		DriverName:        CleanDriverName(m.Driver),
		LapTime:           NormalizeLapTime(m.LapTime),
		RawLapTime:        m.LapTime,
		ClassAbbreviation: strings.TrimSpace(m.Class),
		Vehicle:           stringPtr(cleanMarque(m.Marque)),
		Date:              resolveCandidateDate(a, m.Date),
		TrackName:         stringPtr(strings.TrimSpace(a.Metadata.TrackName)),
		Shape:             m.Shape,
		Text:              a.Text,
		Timestamp:         a.Timestamp,
		Metadata:          a.Metadata,
	}
	if secs, ok := LapTimeSeconds(c.LapTime); ok {
		c.LapTimeSeconds = secs
	}
	return c
}

// Screen parses and validates one announcement and applies the caller-level
// policies. Announcements that are not about records are ignored unless they
// look like a record missing its prefix, in which case they are malformed.
func Screen(a Announcement, opts ScreenOptions) Outcome {
	normalized := NormalizeText(a.Text)
	if normalized == "" {
		return Outcome{Status: StatusIgnored}
	}

	if !isRecordNormalized(normalized) {
		if looksLikeRecordNormalized(normalized) {
			return Outcome{Status: StatusMalformed, Reason: ReasonMissingPrefix}
		}
		return Outcome{Status: StatusIgnored}
	}

	c := parseNormalized(normalized, a)
	if c == nil {
		if looksLikeRecordNormalized(normalized) {
			return Outcome{Status: StatusMalformed, Reason: ReasonMissingPrefix}
		}
		return Outcome{Status: StatusMalformed, Reason: ReasonUnrecognized}
	}

	v := Validate(c)
	if v.Valid {
		return Outcome{Status: StatusAccepted, Candidate: c}
	}
	if opts.AllowMissingClass {
		if accepted, ok := AcceptMissingClass(c); ok {
			return Outcome{Status: StatusAccepted, Candidate: accepted}
		}
	}
	return Outcome{Status: StatusMalformed, Candidate: c, Reason: v.Reason, Failure: v.Failure}
}

// resolveCandidateDate applies ResolveDate and, when neither the metadata nor
// the text carries a date, falls back to the date of the announcement
// timestamp.
func resolveCandidateDate(a Announcement, textDate string) *string {
	if d := ResolveDate(a.Metadata.EventDate, textDate); d != nil {
		return d
	}
	if d, ok := parseMetadataDate(a.Timestamp); ok {
		return &d
	}
	return nil
}
