package record

import (
	"fmt"
	"strings"
)

// Failure identifies which validation check rejected a candidate.
type Failure int

const (
	FailureNone Failure = iota
	FailureNilCandidate
	FailureLapTime
	FailureDriver
	FailureTrack
	FailureClass
	FailureMarqueLapTime
)

// Reasons reported by Validate. They are stable and appear in the malformed
// announcement log.
const (
	ReasonNilCandidate   = "Missing record"
	ReasonInvalidLapTime = "Invalid lapTime"
	ReasonMissingDriver  = "Missing driverName"
	ReasonMissingTrack   = "Missing trackName"
	ReasonMissingClass   = "Missing classAbbreviation"
	ReasonMarqueLapTime  = "Marque equals lapTime (malformed text)"
)

var failureNames = map[Failure]string{
	FailureNone:          "none",
	FailureNilCandidate:  "nil_candidate",
	FailureLapTime:       "invalid_lap_time",
	FailureDriver:        "missing_driver",
	FailureTrack:         "missing_track",
	FailureClass:         "missing_class",
	FailureMarqueLapTime: "marque_equals_lap_time",
}

func (f Failure) String() string {
	if name, ok := failureNames[f]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the failure by name.
func (f Failure) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText decodes a failure name written by MarshalText.
func (f *Failure) UnmarshalText(text []byte) error {
	for failure, name := range failureNames {
		if name == string(text) {
			*f = failure
			return nil
		}
	}
	return fmt.Errorf("unknown validation failure %q", text)
}

// Validation is the result of checking a candidate.
type Validation struct {
	Valid   bool    `json:"valid"`
	Reason  string  `json:"reason,omitempty"`
	Failure Failure `json:"failure"`
}

type check struct {
	failure Failure
	reason  string
	ok      func(*Candidate) bool
}

// checks run in order and stop at the first failure.
var checks = []check{
	{FailureLapTime, ReasonInvalidLapTime, func(c *Candidate) bool {
		return canonicalLapTime.MatchString(c.LapTime)
	}},
	{FailureDriver, ReasonMissingDriver, func(c *Candidate) bool {
		return strings.TrimSpace(c.DriverName) != ""
	}},
	{FailureTrack, ReasonMissingTrack, func(c *Candidate) bool {
		return strings.TrimSpace(c.Track()) != ""
	}},
	{FailureClass, ReasonMissingClass, func(c *Candidate) bool {
		return strings.TrimSpace(c.ClassAbbreviation) != ""
	}},
	{FailureMarqueLapTime, ReasonMarqueLapTime, func(c *Candidate) bool {
		return c.Vehicle == nil || strings.TrimSpace(*c.Vehicle) != c.LapTime
	}},
}

// Validate decides whether a candidate is complete enough to keep. The
// result depends only on the candidate.
func Validate(c *Candidate) Validation {
	return validate(c, FailureNone)
}

func validate(c *Candidate, skip Failure) Validation {
	if c == nil {
		return Validation{Reason: ReasonNilCandidate, Failure: FailureNilCandidate}
	}
	for _, chk := range checks {
		if chk.failure == skip {
			continue
		}
		if !chk.ok(c) {
			return Validation{Reason: chk.reason, Failure: chk.failure}
		}
	}
	return Validation{Valid: true}
}

// AcceptMissingClass applies the missing-class exception. When the only
// failing check is the class check it returns a copy of c with an empty
// ClassAbbreviation and true. Otherwise it returns nil and false.
func AcceptMissingClass(c *Candidate) (*Candidate, bool) {
	if Validate(c).Failure != FailureClass {
		return nil, false
	}
	if !validate(c, FailureClass).Valid {
		return nil, false
	}
	accepted := *c
	accepted.ClassAbbreviation = ""
	return &accepted, true
}
