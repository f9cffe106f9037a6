package record

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

var (
	gridMarker       = regexp.MustCompile(`^\s*\[\s*\d+\s*\]\s*`)
	canonicalLapTime = regexp.MustCompile(`^` + lapTimeToken + `$`)
	leadingISODate   = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)
)

// driverCutset is trimmed from both ends of a driver name.
const driverCutset = " .,;:!|-–—•"

// textDateLayouts are tried in order by ParseTextDate.
var textDateLayouts = []string{
	isoDate,
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan. 2, 2006",
	"01/02/2006",
	"1/2/2006",
}

// metadataDateLayouts cover the timestamps the results API puts on events.
var metadataDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
}

// CleanDriverName strips a leading grid marker such as "[2] ", stray
// punctuation around the name and repeated whitespace. It is idempotent.
func CleanDriverName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	for {
		cleaned := gridMarker.ReplaceAllString(name, "")
		cleaned = strings.Trim(cleaned, driverCutset)
		if cleaned == name {
			return name
		}
		name = cleaned
	}
}

// cleanMarque trims whitespace, a trailing period and wrapping parentheses.
func cleanMarque(marque string) string {
	marque = strings.Join(strings.Fields(marque), " ")
	marque = strings.TrimRight(marque, ".")
	if strings.HasPrefix(marque, "(") && strings.HasSuffix(marque, ")") {
		marque = marque[1 : len(marque)-1]
	}
	return strings.TrimSpace(marque)
}

// NormalizeLapTime converts a lap time to canonical M:SS.mmm form.
//
// Canonical input is returned unchanged. Seconds-only input ("63.004"),
// short fractions ("1:17.87") and hour forms ("1:02:03.456") are converted.
// Anything that cannot be expressed with at most two minute digits is
// returned as given so the validator can reject it.
func NormalizeLapTime(raw string) string {
	s := strings.TrimSpace(raw)
	if canonicalLapTime.MatchString(s) {
		return s
	}
	secs, ok := LapTimeSeconds(s)
	if !ok {
		return s
	}
	if formatted := FormatLapTime(secs); formatted != "" {
		return formatted
	}
	return s
}

// LapTimeSeconds parses H:MM:SS.sss, M:SS.sss or SS.sss into seconds.
func LapTimeSeconds(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, false
	}
	if len(parts) > 1 && seconds >= 60 {
		return 0, false
	}

	multiplier := 60.0
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, false
		}
		if i > 0 && n >= 60 {
			return 0, false
		}
		seconds += float64(n) * multiplier
		multiplier *= 60
	}

	return seconds, true
}

// FormatLapTime renders seconds as M:SS.mmm. It returns an empty string for
// negative values or times of 100 minutes or more.
func FormatLapTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return ""
	}
	ms := int64(math.Round(seconds * 1000))
	minutes := ms / 60000
	if minutes >= 100 {
		return ""
	}
	rem := ms % 60000
	return fmt.Sprintf("%d:%02d.%03d", minutes, rem/1000, rem%1000)
}

// ResolveDate picks the record date. Event metadata always wins; the date
// found in the announcement text is used only when metadata has none.
func ResolveDate(eventDate, textDate string) *string {
	if d, ok := parseMetadataDate(eventDate); ok {
		return &d
	}
	if d, ok := ParseTextDate(textDate); ok {
		return &d
	}
	return nil
}

// ParseTextDate parses a date token as it appears in announcement text and
// returns it as YYYY-MM-DD.
func ParseTextDate(s string) (string, bool) {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", false
	}
	s = strings.Replace(s, ",", ", ", 1)
	s = strings.Join(strings.Fields(s), " ")
	if strings.HasPrefix(strings.ToLower(s), "sept ") {
		s = "Sep " + s[5:]
	}

	for _, layout := range textDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), true
		}
	}
	return "", false
}

func parseMetadataDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range metadataDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), true
		}
	}
	if sub := leadingISODate.FindStringSubmatch(s); sub != nil {
		if _, err := time.Parse(isoDate, sub[1]); err == nil {
			return sub[1], true
		}
	}
	return ParseTextDate(s)
}
