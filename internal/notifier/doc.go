// Package notifier posts new track record announcements.
//
// The notifier package supports posting to Twitter with OAuth1 credentials
// and to a Telegram chat through the Bot API, both configured from the
// environment, plus a dry-run mode that writes the formatted posts to an
// io.Writer. Posts are spaced out to respect rate limits, and tweets are
// truncated to the 280 character limit.
package notifier
