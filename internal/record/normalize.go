package record

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

var (
	zeroWidth = strings.NewReplacer(
		"\u200b", "",
		"\u200c", "",
		"\u200d", "",
		"\ufeff", "",
	)

	markupPattern = regexp.MustCompile(`<[A-Za-z/!][^>]*>|&[A-Za-z]+;|&#[0-9]+;|&#x[0-9A-Fa-f]+;`)
)

// NormalizeText prepares raw announcement text for matching. It removes
// zero-width characters, flattens any HTML markup, applies NFC composition
// and collapses every run of whitespace to a single space. The result is
// trimmed.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	text = zeroWidth.Replace(text)
	text = StripMarkup(text)
	text = norm.NFC.String(text)
	return strings.Join(strings.Fields(text), " ")
}

// StripMarkup returns the visible text of s when it contains HTML tags or
// entities. Line breaks and block elements become spaces. Plain text is
// returned unchanged.
func StripMarkup(s string) string {
	if !markupPattern.MatchString(s) {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}

	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("p, div, li, tr, td, span").Each(func(i int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	doc.Find("script, style").Remove()

	return doc.Text()
}
