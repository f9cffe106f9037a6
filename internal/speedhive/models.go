package speedhive

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexString decodes a JSON string, number or boolean into its text form.
// The API is inconsistent about quoting some fields.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(data)
	return nil
}

// Country is an organization's country.
type Country struct {
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Alpha2 string `json:"alpha2,omitempty"`
}

// Location is the venue of an event.
type Location struct {
	ID          int64    `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	LengthLabel string   `json:"lengthLabel,omitempty"`
	Country     *Country `json:"country,omitempty"`
}

// Organization is a club or series running events.
type Organization struct {
	ID             int64    `json:"id,omitempty"`
	OrganizationID int64    `json:"organizationId,omitempty"`
	Name           string   `json:"name,omitempty"`
	ShortName      string   `json:"shortName,omitempty"`
	Country        *Country `json:"country,omitempty"`
	Website        string   `json:"website,omitempty"`
	LogoURL        string   `json:"logoUrl,omitempty"`
}

// ResolvedID returns whichever id field the payload filled in.
func (o Organization) ResolvedID() int64 {
	if o.OrganizationID != 0 {
		return o.OrganizationID
	}
	return o.ID
}

// Session is one timed run within an event.
type Session struct {
	ID        int64  `json:"id,omitempty"`
	SessionID int64  `json:"sessionId,omitempty"`
	Name      string `json:"name,omitempty"`
	Type      string `json:"type,omitempty"`
	ClassName string `json:"className,omitempty"`
	GroupName string `json:"groupName,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
	EventID   int64  `json:"eventId,omitempty"`
	Status    string `json:"status,omitempty"`
}

// ResolvedID returns whichever id field the payload filled in.
func (s Session) ResolvedID() int64 {
	if s.SessionID != 0 {
		return s.SessionID
	}
	return s.ID
}

// SessionGroup is a named group of sessions, possibly nested.
type SessionGroup struct {
	ID        int64          `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Sessions  []Session      `json:"sessions,omitempty"`
	SubGroups []SessionGroup `json:"subGroups,omitempty"`
}

// SessionGrouping is the session tree attached to an event.
type SessionGrouping struct {
	Sessions []Session      `json:"sessions,omitempty"`
	Groups   []SessionGroup `json:"groups,omitempty"`
}

// UnmarshalJSON accepts both the grouping object and a bare session list.
func (g *SessionGrouping) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &g.Sessions)
	}
	type plain SessionGrouping
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*g = SessionGrouping(p)
	return nil
}

// All returns every session in the tree: top-level sessions first, then
// each group's sessions followed by its subgroups, depth first.
func (g *SessionGrouping) All() []Session {
	if g == nil {
		return nil
	}
	all := append([]Session(nil), g.Sessions...)
	var walk func(groups []SessionGroup)
	walk = func(groups []SessionGroup) {
		for _, group := range groups {
			all = append(all, group.Sessions...)
			walk(group.SubGroups)
		}
	}
	walk(g.Groups)
	return all
}

// Event is a race meeting.
type Event struct {
	ID            int64            `json:"id,omitempty"`
	EventID       int64            `json:"eventId,omitempty"`
	Name          string           `json:"name,omitempty"`
	EventName     string           `json:"eventName,omitempty"`
	Location      *Location        `json:"location,omitempty"`
	TrackName     string           `json:"trackName,omitempty"`
	StartDate     string           `json:"startDate,omitempty"`
	EndDate       string           `json:"endDate,omitempty"`
	Sport         string           `json:"sport,omitempty"`
	SportCategory string           `json:"sportCategory,omitempty"`
	Status        string           `json:"status,omitempty"`
	Organization  *Organization    `json:"organization,omitempty"`
	Sessions      *SessionGrouping `json:"sessions,omitempty"`
}

// ResolvedID returns whichever id field the payload filled in.
func (e Event) ResolvedID() int64 {
	if e.EventID != 0 {
		return e.EventID
	}
	return e.ID
}

// DisplayName returns the event name.
func (e Event) DisplayName() string {
	if e.EventName != "" {
		return e.EventName
	}
	return e.Name
}

// Track returns the track name, falling back to the location name.
func (e Event) Track() string {
	if name := strings.TrimSpace(e.TrackName); name != "" {
		return name
	}
	if e.Location != nil {
		return strings.TrimSpace(e.Location.Name)
	}
	return ""
}

// Announcement is one row of a session's announcement feed.
type Announcement struct {
	Timestamp FlexString `json:"timestamp"`
	Text      string     `json:"text"`
}

// LapRow is one lap of one competitor.
type LapRow struct {
	LapNumber   int        `json:"lapNumber,omitempty"`
	LapTime     string     `json:"lapTime,omitempty"`
	Position    int        `json:"position,omitempty"`
	DiffPrevLap string     `json:"diffPrevLap,omitempty"`
	Speed       FlexString `json:"speed,omitempty"`
	Status      string     `json:"status,omitempty"`
	Sector1     string     `json:"sector1,omitempty"`
	Sector2     string     `json:"sector2,omitempty"`
	Sector3     string     `json:"sector3,omitempty"`
}

// ClassificationRow is one competitor's result in a session.
type ClassificationRow struct {
	Position    int        `json:"position,omitempty"`
	StartNumber FlexString `json:"startNumber,omitempty"`
	Name        string     `json:"name,omitempty"`
	ResultClass string     `json:"resultClass,omitempty"`
	Laps        int        `json:"numberOfLaps,omitempty"`
	BestLap     int        `json:"bestLap,omitempty"`
	BestLapTime string     `json:"bestTime,omitempty"`
	TotalTime   string     `json:"totalTime,omitempty"`
	Difference  string     `json:"difference,omitempty"`
	Status      string     `json:"status,omitempty"`
}

// decodeList decodes either a bare JSON array or an object wrapping the
// array under the first present key.
func decodeList[T any](data []byte, keys ...string) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var items []T
	if data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range keys {
		raw, ok := wrapper[key]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	return nil, nil
}
