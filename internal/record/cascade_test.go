package record

import "testing"

func TestCascadePriority(t *testing.T) {
	// Each of these also contains a canonical lap time, so the fallback
	// would match too; the structured shape must win.
	tests := []struct {
		text string
		want Shape
	}{
		{"New Track Record (1:17.870) for IT7 by Bob Cross in Corvette", ShapeParenMarque},
		{"New Track Record (1:17.870) for IT7 by Bob Cross", ShapeParen},
		{"New Track Record 1:17.870 for IT7 by Bob Cross", ShapeBare},
		{"New Track Record – FA – 1:01.861 – Bob Cross", ShapeSeparated},
		{"New Track Record | Bob Cross | 1:01.861 | FA", ShapeDriverFirst},
		{"Track Record • 1:17.870 • IT7 • Bob Cross", ShapeFallback},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			m, ok := Cascade(tt.text)
			if !ok {
				t.Fatalf("Cascade(%q) found no match", tt.text)
			}
			if m.Shape != tt.want {
				t.Errorf("Cascade(%q) shape = %q, expected %q", tt.text, m.Shape, tt.want)
			}
		})
	}
}

func TestCascadeHyphenatedTokens(t *testing.T) {
	m, ok := Cascade("New Track Record - T4-2 - 1:45.002 - Mary-Ann Smith - Ford Mustang")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.Shape != ShapeSeparated {
		t.Errorf("shape = %q, expected %q", m.Shape, ShapeSeparated)
	}
	if m.Class != "T4-2" {
		t.Errorf("class = %q, expected T4-2", m.Class)
	}
	if m.Driver != "Mary-Ann Smith" {
		t.Errorf("driver = %q, expected Mary-Ann Smith", m.Driver)
	}
	if m.Marque != "Ford Mustang" {
		t.Errorf("marque = %q, expected Ford Mustang", m.Marque)
	}
}

func TestMatchFallback(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantOK     bool
		wantClass  string
		wantDriver string
		wantMarque string
		wantDate   string
	}{
		{
			name:   "no lap time",
			text:   "Track Record • GT2 • Maria Lopez",
			wantOK: false,
		},
		{
			name:   "lap time only",
			text:   "Track Record (1:17.870)",
			wantOK: false,
		},
		{
			name:     "date only is enough",
			text:     "Track Record 1:17.870 | 2009-05-10",
			wantOK:   true,
			wantDate: "2009-05-10",
		},
		{
			name:       "longest token is the driver",
			text:       "1:17.870 • SM • Al • Christopher Smith",
			wantOK:     true,
			wantClass:  "SM",
			wantDriver: "Christopher Smith",
		},
		{
			name:       "token with a digit beats a short name",
			text:       "Track Record – Bob – 1:17.870 – IT7",
			wantOK:     true,
			wantClass:  "IT7",
			wantDriver: "Bob",
		},
		{
			name:       "upper-case token beats a short name",
			text:       "Track Record – Jane – 1:17.870 – SM",
			wantOK:     true,
			wantClass:  "SM",
			wantDriver: "Jane",
		},
		{
			name:       "parenthesized marque",
			text:       "Track Record 1:17.870 • (Mazda MX-5) • 06/05/2021",
			wantOK:     true,
			wantMarque: "Mazda MX-5",
			wantDate:   "06/05/2021",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := matchFallback(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("matchFallback(%q) ok = %v, expected %v", tt.text, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if m.Class != tt.wantClass {
				t.Errorf("class = %q, expected %q", m.Class, tt.wantClass)
			}
			if m.Driver != tt.wantDriver {
				t.Errorf("driver = %q, expected %q", m.Driver, tt.wantDriver)
			}
			if m.Marque != tt.wantMarque {
				t.Errorf("marque = %q, expected %q", m.Marque, tt.wantMarque)
			}
			if m.Date != tt.wantDate {
				t.Errorf("date = %q, expected %q", m.Date, tt.wantDate)
			}
		})
	}
}
