package notifier

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

// MaxTweetLength is the Twitter character limit.
const MaxTweetLength = 280

// TwitterNotifier posts records to Twitter
type TwitterNotifier struct {
	client *twitter.Client
	delay  time.Duration
}

// NewTwitterNotifier creates a new Twitter notifier using environment variables
// Required environment variables:
// - TWITTER_API_KEY
// - TWITTER_API_SECRET
// - TWITTER_ACCESS_TOKEN
// - TWITTER_ACCESS_SECRET
func NewTwitterNotifier() (*TwitterNotifier, error) {
	apiKey := os.Getenv("TWITTER_API_KEY")
	apiSecret := os.Getenv("TWITTER_API_SECRET")
	accessToken := os.Getenv("TWITTER_ACCESS_TOKEN")
	accessSecret := os.Getenv("TWITTER_ACCESS_SECRET")

	if apiKey == "" || apiSecret == "" || accessToken == "" || accessSecret == "" {
		return nil, fmt.Errorf("missing required Twitter credentials in environment variables")
	}

	config := oauth1.NewConfig(apiKey, apiSecret)
	token := oauth1.NewToken(accessToken, accessSecret)
	httpClient := config.Client(oauth1.NoContext, token)

	return &TwitterNotifier{client: twitter.NewClient(httpClient), delay: 2 * time.Second}, nil
}

// Notify posts one tweet per record
func (n *TwitterNotifier) Notify(records []record.Candidate) error {
	for i := range records {
		tweet := FormatTweet(&records[i])

		if _, _, err := n.client.Statuses.Update(tweet, nil); err != nil {
			return fmt.Errorf("failed to post tweet for %s record by %s: %w",
				records[i].ClassAbbreviation, records[i].DriverName, err)
		}

		// Rate limiting: wait between tweets
		if i < len(records)-1 {
			time.Sleep(n.delay)
		}
	}

	return nil
}

// FormatTweet formats a record as a post of at most MaxTweetLength characters
func FormatTweet(c *record.Candidate) string {
	var b strings.Builder
	b.WriteString("🏁 New Track Record!\n\n")

	if track := c.Track(); track != "" {
		fmt.Fprintf(&b, "📍 %s\n", track)
	}
	if c.ClassAbbreviation != "" {
		fmt.Fprintf(&b, "🏎️ %s: %s\n", c.ClassAbbreviation, c.LapTime)
	} else {
		fmt.Fprintf(&b, "⏱️ %s\n", c.LapTime)
	}

	driver := c.DriverName
	if marque := c.Marque(); marque != "" {
		driver += " (" + marque + ")"
	}
	fmt.Fprintf(&b, "👤 %s\n", driver)

	if date := c.DateString(); date != "" {
		fmt.Fprintf(&b, "📅 %s\n", date)
	}
	if c.Metadata.EventName != "" {
		fmt.Fprintf(&b, "🏆 %s\n", c.Metadata.EventName)
	}

	b.WriteString("\n#TrackRecord #Motorsport")

	return truncate(b.String(), MaxTweetLength)
}

// truncate shortens s to max characters, ending with an ellipsis.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}
