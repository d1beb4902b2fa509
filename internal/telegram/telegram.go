// Package telegram is a minimal Telegram Bot API client for sendMessage.
//
// Each staff member brings their own bot token, so the token is passed per
// call instead of being bound to the client.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIBase is the public Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// maxBodyBytes caps how much of an error response is kept for diagnostics.
const maxBodyBytes = 64 << 10

// Message is one outbound chat message.
type Message struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Sender delivers a message through the bot identified by token.
type Sender interface {
	Send(ctx context.Context, token string, msg Message) error
}

// APIError is returned when the Bot API answers with a non-2xx status.
// Body holds the raw response text.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: status %d: %s", e.StatusCode, e.Body)
}

// Client calls the Bot API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client against baseURL (DefaultAPIBase when empty).
// timeout bounds every request; zero falls back to 10 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Send posts msg to /bot{token}/sendMessage. A response with a non-2xx
// status yields *APIError; transport failures are returned wrapped.
func (c *Client) Send(ctx context.Context, token string, msg Message) error {
	if token == "" {
		return fmt.Errorf("telegram: token is required")
	}
	if msg.ChatID == "" {
		return fmt.Errorf("telegram: chat id is required")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("telegram: encode: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// The URL embeds the bot token; keep it out of errors and logs.
		return fmt.Errorf("telegram: send: %w", redact(err, token))
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	return &redactedError{
		msg: strings.ReplaceAll(err.Error(), token, "<token>"),
		err: err,
	}
}
