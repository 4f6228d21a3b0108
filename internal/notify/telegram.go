package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TelegramSender implements Sender over the Telegram Bot API's sendMessage
// call, the same surface the Ingest component receives webhooks from.
type TelegramSender struct {
	botToken string
	client   *http.Client
}

func NewTelegramSender(botToken string) *TelegramSender {
	return &TelegramSender{botToken: botToken, client: &http.Client{Timeout: 10 * time.Second}}
}

type sendMessageReq struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (s *TelegramSender) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(sendMessageReq{ChatID: n.ChatID, Text: n.Text})
	if err != nil {
		return fmt.Errorf("notify: marshal telegram request: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: telegram responded %d", resp.StatusCode)
	}
	return nil
}
