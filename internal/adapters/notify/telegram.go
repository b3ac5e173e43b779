package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/bft-labs/rfbridge/internal/ports"
)

// DefaultTelegramAPI is the Telegram Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

// DefaultAppName is used as the message title when none is configured.
const DefaultAppName = "MultiRFLinkTCPBridge"

// Sender delivers a single message synchronously.
type Sender interface {
	Send(ctx context.Context, message string) error
}

// TelegramConfig contains the bot credentials and message formatting.
type TelegramConfig struct {
	BotKey  string
	ChatID  string
	AppName string
	// BaseURL overrides DefaultTelegramAPI, mainly for tests.
	BaseURL string
}

// Telegram sends messages with the sendMessage Bot API method.
type Telegram struct {
	cfg    TelegramConfig
	client ports.HTTPClient
}

// NewTelegram creates a Telegram sender using client for requests.
func NewTelegram(cfg TelegramConfig, client ports.HTTPClient) *Telegram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTelegramAPI
	}
	if cfg.AppName == "" {
		cfg.AppName = DefaultAppName
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Telegram{cfg: cfg, client: client}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Format renders message the way it appears in the chat: the app name in
// bold followed by the message in italics.
func (t *Telegram) Format(message string) string {
	return fmt.Sprintf("<b>%s</b>\n<i>%s</i>", html.EscapeString(t.cfg.AppName), html.EscapeString(message))
}

// Send posts message to the configured chat.
func (t *Telegram) Send(ctx context.Context, message string) error {
	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    t.cfg.ChatID,
		Text:      t.Format(message),
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := t.cfg.BaseURL + "/bot" + t.cfg.BotKey + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		// the url embeds the bot key; keep it out of the error
		return fmt.Errorf("send request: %w", unwrapURLError(err))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, describe(body))
	}
	return nil
}

func describe(body []byte) string {
	var r sendMessageResponse
	if err := json.Unmarshal(body, &r); err == nil && r.Description != "" {
		return r.Description
	}
	return string(body)
}
