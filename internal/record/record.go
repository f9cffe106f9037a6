package record

// Metadata is the context attached to an announcement by the caller. Zero
// values mean the field is absent.
type Metadata struct {
	EventID     int64  `json:"eventId,omitempty"`
	EventName   string `json:"eventName,omitempty"`
	EventDate   string `json:"eventDate,omitempty"`
	TrackName   string `json:"trackName,omitempty"`
	SessionID   int64  `json:"sessionId,omitempty"`
	SessionName string `json:"sessionName,omitempty"`
}

// Announcement is one raw announcement row together with its metadata.
type Announcement struct {
	Text      string   `json:"text"`
	Timestamp string   `json:"timestamp,omitempty"`
	Metadata  Metadata `json:"metadata"`
}

// Shape identifies which cascade variant produced a match.
type Shape string

const (
	ShapeParenMarque Shape = "paren_marque"
	ShapeParen       Shape = "paren"
	ShapeBare        Shape = "bare"
	ShapeSeparated   Shape = "separated"
	ShapeDriverFirst Shape = "driver_first"
	ShapeFallback    Shape = "fallback"
)

// Match holds the raw strings captured by a cascade shape, before cleaning.
type Match struct {
	Shape   Shape
	LapTime string
	Class   string
	Driver  string
	Marque  string
	Date    string
}

// Candidate is a parsed record. LapTime is always in canonical M:SS.mmm form
// when it could be normalized; RawLapTime keeps the text as written.
type Candidate struct {
	DriverName        string   `json:"driverName"`
	LapTime           string   `json:"lapTime"`
	RawLapTime        string   `json:"rawLapTime,omitempty"`
	LapTimeSeconds    float64  `json:"lapTimeSeconds,omitempty"`
	ClassAbbreviation string   `json:"classAbbreviation"`
	Vehicle           *string  `json:"marque"`
	Date              *string  `json:"date"`
	TrackName         *string  `json:"trackName"`
	Shape             Shape    `json:"shape,omitempty"`
	Text              string   `json:"text,omitempty"`
	Timestamp         string   `json:"timestamp,omitempty"`
	Metadata          Metadata `json:"metadata"`
}

// Marque returns the vehicle description or an empty string.
func (c *Candidate) Marque() string {
	if c == nil || c.Vehicle == nil {
		return ""
	}
	return *c.Vehicle
}

// DateString returns the ISO date or an empty string.
func (c *Candidate) DateString() string {
	if c == nil || c.Date == nil {
		return ""
	}
	return *c.Date
}

// Track returns the track name or an empty string.
func (c *Candidate) Track() string {
	if c == nil || c.TrackName == nil {
		return ""
	}
	return *c.TrackName
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
