package notifier

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dghubble/sling"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

const (
	telegramAPIBaseURL = "https://api.telegram.org/bot"
	telegramTimeout    = 10 * time.Second
)

// TelegramNotifier sends records to a Telegram chat through the Bot API
type TelegramNotifier struct {
	base   *sling.Sling
	chatID string
	delay  time.Duration
}

type telegramMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramNotifier creates a new Telegram notifier using environment variables
// Required environment variables:
// - TELEGRAM_BOT_TOKEN
// - TELEGRAM_CHAT_ID
func NewTelegramNotifier() (*TelegramNotifier, error) {
	return newTelegramNotifier(telegramAPIBaseURL, os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"))
}

func newTelegramNotifier(baseURL, botToken, chatID string) (*TelegramNotifier, error) {
	if botToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("chat ID is required")
	}

	base := sling.New().
		Client(&http.Client{Timeout: telegramTimeout}).
		Base(baseURL + botToken + "/")

	return &TelegramNotifier{base: base, chatID: chatID, delay: time.Second}, nil
}

// Notify sends one message per record
func (n *TelegramNotifier) Notify(records []record.Candidate) error {
	for i := range records {
		if err := n.send(FormatTelegram(&records[i])); err != nil {
			return fmt.Errorf("failed to send message for %s record by %s: %w",
				records[i].ClassAbbreviation, records[i].DriverName, err)
		}

		if i < len(records)-1 {
			time.Sleep(n.delay)
		}
	}
	return nil
}

func (n *TelegramNotifier) send(text string) error {
	msg := telegramMessage{
		ChatID:                n.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	}

	var result telegramResponse
	resp, err := n.base.New().Post("sendMessage").BodyJSON(msg).Receive(&result, &result)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !result.OK {
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, result.Description)
	}
	return nil
}

// FormatTelegram formats a record as an HTML Telegram message
func FormatTelegram(c *record.Candidate) string {
	var msg strings.Builder

	msg.WriteString("🏁 <b>New Track Record!</b>\n\n")

	if track := c.Track(); track != "" {
		fmt.Fprintf(&msg, "📍 <b>%s</b>\n", html.EscapeString(track))
	}
	if c.ClassAbbreviation != "" {
		fmt.Fprintf(&msg, "🏎️ %s: <b>%s</b>\n", html.EscapeString(c.ClassAbbreviation), c.LapTime)
	} else {
		fmt.Fprintf(&msg, "⏱️ <b>%s</b>\n", c.LapTime)
	}

	driver := html.EscapeString(c.DriverName)
	if marque := c.Marque(); marque != "" {
		driver += " <i>(" + html.EscapeString(marque) + ")</i>"
	}
	fmt.Fprintf(&msg, "👤 %s\n", driver)

	if date := c.DateString(); date != "" {
		fmt.Fprintf(&msg, "📅 %s\n", date)
	}
	if c.Metadata.EventName != "" {
		fmt.Fprintf(&msg, "🏆 %s\n", html.EscapeString(c.Metadata.EventName))
	}

	msg.WriteString("\n#TrackRecord #Motorsport")
	return msg.String()
}
