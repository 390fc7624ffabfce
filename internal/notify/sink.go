package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"recuerdito/internal/logger"
)

// LogSink writes alerts to the log. With Disabled set it behaves like a
// device where the user never granted notification permission.
type LogSink struct {
	Log      logger.Logger
	Disabled bool
}

func (s LogSink) Deliver(_ context.Context, jobID uint64, title, body string) error {
	if s.Disabled {
		return ErrPermissionDenied
	}
	log := s.Log
	if log == nil {
		log = logger.Nop{}
	}
	log.Info("🔔 #%d %s: %s", jobID, title, body)
	return nil
}

const telegramAPI = "https://api.telegram.org"

// TelegramSink sends alerts through the Telegram Bot API.
type TelegramSink struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

func NewTelegramSink(botToken, chatID string) *TelegramSink {
	return &TelegramSink{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPI,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type telegramSendRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// Deliver posts "<b>title</b>\nbody" to the configured chat. An
// unauthorized bot or a chat that blocked it yields ErrPermissionDenied.
func (t *TelegramSink) Deliver(ctx context.Context, _ uint64, title, body string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)

	payload := telegramSendRequest{
		ChatID:    t.chatID,
		Text:      fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(title), html.EscapeString(body)),
		ParseMode: "HTML",
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: telegram status %d", ErrPermissionDenied, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read telegram response: %w", err)
	}
	var tg telegramResponse
	if err := json.Unmarshal(respBody, &tg); err != nil {
		return fmt.Errorf("parse telegram response: %w", err)
	}
	if !tg.OK {
		return fmt.Errorf("telegram API error %d: %s", tg.ErrorCode, tg.Description)
	}
	return nil
}
