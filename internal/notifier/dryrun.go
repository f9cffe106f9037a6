package notifier

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

// DryRunNotifier prints what would be posted without actually posting
type DryRunNotifier struct {
	w io.Writer
}

// NewDryRunNotifier creates a new dry-run notifier writing to w
func NewDryRunNotifier(w io.Writer) *DryRunNotifier {
	return &DryRunNotifier{w: w}
}

// Notify prints the posts that would be made
func (n *DryRunNotifier) Notify(records []record.Candidate) error {
	for i := range records {
		tweet := FormatTweet(&records[i])
		if _, err := fmt.Fprintf(n.w, "--- Tweet %d/%d ---\n%s\n\n(Length: %d characters)\n\n",
			i+1, len(records), tweet, utf8.RuneCountInString(tweet)); err != nil {
			return err
		}
	}
	return nil
}
