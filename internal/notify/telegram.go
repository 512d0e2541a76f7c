package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TelegramSender posts engine alerts to a Telegram chat through the Bot API
// sendMessage endpoint. Alerts use HTML parse mode with a bold title line;
// HTML is the only Telegram mode where escaping plain detail text is
// tractable (three entities instead of MarkdownV2's eighteen).
type TelegramSender struct {
	endpoint string
	chatID   string
	client   *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and chat
// ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		endpoint: "https://api.telegram.org/bot" + token + "/sendMessage",
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

var telegramEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Send posts one alert to the configured chat.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	form := url.Values{
		"chat_id":    {t.chatID},
		"parse_mode": {"HTML"},
		"text":       {"<b>" + telegramEscaper.Replace(title) + "</b>\n" + telegramEscaper.Replace(message)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram: api status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}

// Name identifies the channel.
func (t *TelegramSender) Name() string {
	return "telegram"
}
