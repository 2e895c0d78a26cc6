// Package maxbot is a minimal client for the MAX Bot HTTP API: long-polling for
// updates and sending messages with inline keyboards. Only the endpoints the
// chatbot needs are implemented.
package maxbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Constants for MAX Bot API client configuration
const (
	// DefaultBaseURL is the production MAX Bot API endpoint
	DefaultBaseURL = "https://botapi.max.ru"
	// DefaultLongPollTimeout is the server-side wait passed to /updates
	DefaultLongPollTimeout = 30 * time.Second
)

// Client talks to the MAX Bot API on behalf of one bot token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Opts holds configuration options for the client.
type Opts struct {
	BaseURL string
	Token   string
}

// Option defines a configuration option for the client.
type Option func(*Opts)

// WithBaseURL overrides the API endpoint, used in tests and self-hosted setups.
func WithBaseURL(u string) Option {
	return func(o *Opts) { o.BaseURL = u }
}

// WithToken sets the bot access token.
func WithToken(t string) Option {
	return func(o *Opts) { o.Token = t }
}

// NewClient creates a MAX Bot API client. The token is required.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("bot token not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		// Client timeout must exceed the long-poll wait.
		http: &http.Client{Timeout: DefaultLongPollTimeout + 15*time.Second},
	}, nil
}

// User is the wire representation of a platform user.
type User struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
}

// MessageBody carries the text of an inbound message.
type MessageBody struct {
	Text string `json:"text"`
}

// InboundMessage is the wire representation of a received message.
type InboundMessage struct {
	Sender    User        `json:"sender"`
	Body      MessageBody `json:"body"`
	Timestamp int64       `json:"timestamp"`
}

// Callback is the wire representation of a pressed inline button.
type Callback struct {
	Payload   string `json:"payload"`
	User      User   `json:"user"`
	Timestamp int64  `json:"timestamp"`
}

// Update is one long-poll event. UpdateType discriminates which fields are set.
type Update struct {
	UpdateType string          `json:"update_type"`
	Timestamp  int64           `json:"timestamp"`
	Message    *InboundMessage `json:"message,omitempty"`
	Callback   *Callback       `json:"callback,omitempty"`
}

// Update types emitted by the platform.
const (
	UpdateTypeMessageCreated  = "message_created"
	UpdateTypeMessageCallback = "message_callback"
	UpdateTypeBotStarted      = "bot_started"
)

// UpdatesPage is the /updates response: a batch plus the marker to resume from.
type UpdatesPage struct {
	Updates []Update `json:"updates"`
	Marker  int64    `json:"marker"`
}

// KeyboardButton is one inline keyboard button in the outbound payload.
type KeyboardButton struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Payload string `json:"payload,omitempty"`
}

// keyboardPayload wraps button rows for the inline_keyboard attachment.
type keyboardPayload struct {
	Buttons [][]KeyboardButton `json:"buttons"`
}

// Attachment is an outbound message attachment.
type Attachment struct {
	Type    string          `json:"type"`
	Payload keyboardPayload `json:"payload"`
}

// OutboundMessage is the /messages request body.
type OutboundMessage struct {
	Text        string       `json:"text"`
	Format      string       `json:"format,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// InlineKeyboard builds an inline_keyboard attachment from button rows.
func InlineKeyboard(rows [][]KeyboardButton) Attachment {
	return Attachment{Type: "inline_keyboard", Payload: keyboardPayload{Buttons: rows}}
}

// CallbackButton builds a callback button.
func CallbackButton(text, payload string) KeyboardButton {
	return KeyboardButton{Type: "callback", Text: text, Payload: payload}
}

func (c *Client) endpoint(path string, query url.Values) string {
	query.Set("access_token", c.token)
	return c.baseURL + path + "?" + query.Encode()
}

// GetUpdates long-polls for updates after the given marker. Pass marker 0 on the
// first call; subsequent calls must pass the marker from the previous page.
func (c *Client) GetUpdates(ctx context.Context, marker int64) (*UpdatesPage, error) {
	query := url.Values{}
	query.Set("timeout", strconv.Itoa(int(DefaultLongPollTimeout.Seconds())))
	if marker > 0 {
		query.Set("marker", strconv.FormatInt(marker, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/updates", query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build updates request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("updates request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("updates request returned status %d: %s", resp.StatusCode, body)
	}

	var page UpdatesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode updates response: %w", err)
	}
	slog.Debug("maxbot.GetUpdates: received updates", "count", len(page.Updates), "marker", page.Marker)
	return &page, nil
}

// SendMessage sends a message to a user.
func (c *Client) SendMessage(ctx context.Context, userID int64, msg OutboundMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	query := url.Values{}
	query.Set("user_id", strconv.FormatInt(userID, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/messages", query), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send request returned status %d: %s", resp.StatusCode, respBody)
	}
	slog.Debug("maxbot.SendMessage: message sent", "user_id", userID)
	return nil
}
