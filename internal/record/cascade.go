package record

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token definitions shared by every shape.
const (
	lapTimeToken = `\d{1,2}:\d{2}\.\d{3}`
	classToken   = `[A-Za-z0-9]{1,4}(?:-[A-Za-z0-9]{1,3})?`
	monthToken   = `(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.?`
	dateToken    = `\d{4}-\d{2}-\d{2}|` + monthToken + `\s+\d{1,2},\s*\d{4}|\d{1,2}/\d{1,2}/\d{4}`

	// Structured shapes also capture seconds-only and short-fraction times
	// so they can be normalized afterwards.
	timeCapture = `(?P<time>\d{1,2}:\d{2}:\d{2}\.\d{1,3}|\d{1,2}:\d{2}\.\d{1,3}|\d{1,4}\.\d{1,3})`
	classGroup  = `(?P<class>` + classToken + `)`
	dateGroup   = `(?P<date>` + dateToken + `)`

	prefix = `new\s+(?:track|class)\s+record`

	// A bare hyphen only separates when surrounded by whitespace, which keeps
	// class names like T4-2, ISO dates and hyphenated surnames intact.
	sep     = `(?:\s*[\x{2013}\x{2014}\x{2022}|]\s*|\s+-\s+)`
	segment = `[^\x{2013}\x{2014}\x{2022}|]+?`
)

type shape struct {
	name Shape
	re   *regexp.Regexp
	post func(*Match)
}

// cascade is tried in order; the first shape that matches wins.
var cascade = []shape{
	{
		name: ShapeParenMarque,
		re: regexp.MustCompile(`(?i)` + prefix + `\s*\(\s*` + timeCapture + `\s*\)\s*for\s+` + classGroup +
			`\s+by\s+(?P<driver>.+?)\s+in\s+(?P<marque>.+?)\.?$`),
	},
	{
		name: ShapeParen,
		re: regexp.MustCompile(`(?i)` + prefix + `\s*\(\s*` + timeCapture + `\s*\)\s*for\s+` + classGroup +
			`\s+by\s+(?P<driver>.+?)\.?$`),
		post: func(m *Match) {
			m.Driver, m.Marque = splitParenMarque(m.Driver)
		},
	},
	{
		name: ShapeBare,
		re: regexp.MustCompile(`(?i)` + prefix + `\s*[:\x{2013}\x{2014}-]?\s*` + timeCapture + `\s+for\s+` + classGroup +
			`\s+by\s+(?P<driver>.+?)(?:\s+in\s+(?P<marque>.+?))?\.?$`),
	},
	{
		name: ShapeSeparated,
		re: regexp.MustCompile(`(?i)` + prefix + `\s*:?` + sep + classGroup + sep + timeCapture + sep +
			`(?P<driver>` + segment + `)(?:` + sep + `(?P<marque>` + segment + `))?(?:` + sep + dateGroup + `)?\s*\.?$`),
		post: func(m *Match) {
			if m.Date == "" && dateOnly.MatchString(m.Marque) {
				m.Date, m.Marque = m.Marque, ""
			}
			if m.Marque == "" {
				m.Driver, m.Marque = splitParenMarque(m.Driver)
			}
		},
	},
	{
		name: ShapeDriverFirst,
		re: regexp.MustCompile(`(?i)` + prefix + `\s*:?` + sep + `(?P<driver>[^\x{2013}\x{2014}\x{2022}|()]+?)(?:\s*\((?P<marque>[^()]+)\))?` +
			sep + timeCapture + sep + classGroup + `(?:` + sep + dateGroup + `)?\s*\.?$`),
	},
}

var (
	lapTimePattern = regexp.MustCompile(lapTimeToken)
	lapTimeOnly    = regexp.MustCompile(`^(?:` + lapTimeToken + `|\d{1,4}\.\d{1,3})$`)
	separatorSplit = regexp.MustCompile(`\s*[\x{2013}\x{2014}\x{2022}|]\s*|\s+-\s+`)
	classOnly      = regexp.MustCompile(`^` + classToken + `$`)
	dateOnly       = regexp.MustCompile(`(?i)^(?:` + dateToken + `)$`)
	datePattern    = regexp.MustCompile(`(?i)` + dateToken)
	parenPattern   = regexp.MustCompile(`\(([^()]*)\)`)
	trailingParen  = regexp.MustCompile(`^(.*?)\s*\(([^()]+)\)$`)
	recordMention  = regexp.MustCompile(`(?i)\b(?:new\s+)?(?:track|class)\s+record\b`)
)

// Cascade runs the ordered pattern shapes against already normalized text
// and returns the raw captures of the first shape that matches.
func Cascade(text string) (*Match, bool) {
	for _, s := range cascade {
		if m, ok := s.match(text); ok {
			return m, true
		}
	}
	return matchFallback(text)
}

func (s shape) match(text string) (*Match, bool) {
	sub := s.re.FindStringSubmatch(text)
	if sub == nil {
		return nil, false
	}

	m := &Match{Shape: s.name}
	for i, name := range s.re.SubexpNames() {
		value := strings.TrimSpace(sub[i])
		switch name {
		case "time":
			m.LapTime = value
		case "class":
			m.Class = value
		case "driver":
			m.Driver = value
		case "marque":
			m.Marque = value
		case "date":
			m.Date = value
		}
	}
	if s.post != nil {
		s.post(m)
	}
	return m, true
}

// matchFallback is the last resort for free-form layouts. It anchors on a
// canonical lap time anywhere in the text and picks the remaining fields out
// of the separator-delimited tokens.
func matchFallback(text string) (*Match, bool) {
	lap := lapTimePattern.FindString(text)
	if lap == "" {
		return nil, false
	}
	m := &Match{Shape: ShapeFallback, LapTime: lap}

	for _, p := range parenPattern.FindAllStringSubmatch(text, -1) {
		inner := strings.TrimSpace(p[1])
		if inner == "" || lapTimeOnly.MatchString(inner) {
			continue
		}
		m.Marque = inner
		break
	}

	m.Date = datePattern.FindString(text)

	var tokens []string
	for _, tok := range separatorSplit.Split(text, -1) {
		tok = strings.Trim(strings.TrimSpace(tok), ".,;:")
		switch {
		case tok == "":
			continue
		case strings.Contains(tok, lap):
			continue
		case dateOnly.MatchString(tok):
			continue
		case strings.HasPrefix(tok, "(") && strings.HasSuffix(tok, ")"):
			continue
		case recordMention.MatchString(tok):
			continue
		}
		tokens = append(tokens, tok)
	}

	classAt := pickClass(tokens)
	if classAt >= 0 {
		m.Class = tokens[classAt]
	}

	for i, tok := range tokens {
		if i == classAt {
			continue
		}
		tok = strings.TrimSpace(parenPattern.ReplaceAllString(tok, ""))
		if !hasLetter(tok) {
			continue
		}
		if utf8.RuneCountInString(tok) > utf8.RuneCountInString(m.Driver) {
			m.Driver = tok
		}
	}

	if m.Class == "" && m.Driver == "" && m.Marque == "" && m.Date == "" {
		return nil, false
	}
	return m, true
}

// pickClass returns the index of the token most likely to be the class, or
// -1. Short first names also fit the class token, so a token with a digit
// wins over an all upper-case one, which wins over the first fit.
func pickClass(tokens []string) int {
	first, upper := -1, -1
	for i, tok := range tokens {
		if !classOnly.MatchString(tok) {
			continue
		}
		if strings.ContainsAny(tok, "0123456789") {
			return i
		}
		if upper < 0 && hasLetter(tok) && tok == strings.ToUpper(tok) {
			upper = i
		}
		if first < 0 {
			first = i
		}
	}
	if upper >= 0 {
		return upper
	}
	return first
}

// splitParenMarque splits "Bob Cross (Corvette)" into driver and marque.
func splitParenMarque(driver string) (string, string) {
	sub := trailingParen.FindStringSubmatch(driver)
	if sub == nil {
		return driver, ""
	}
	return strings.TrimSpace(sub[1]), strings.TrimSpace(sub[2])
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
