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

const telegramBaseURL = "https://api.telegram.org"

// Telegram sends messages through the Bot API's sendMessage endpoint.
type Telegram struct {
	// BaseURL overrides the API host. Tests point it at a local server.
	BaseURL string

	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegram builds a Telegram notifier for one bot and chat.
func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BaseURL:  telegramBaseURL,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Send posts the message as a form-encoded sendMessage call. Any non-200
// response is an error.
func (t *Telegram) Send(ctx context.Context, message string) error {
	form := url.Values{
		"chat_id":    {t.chatID},
		"text":       {message},
		"parse_mode": {"HTML"},
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
