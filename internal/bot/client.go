// Telegram Bot API client for making raw HTTP requests
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spotgram/spotgram/internal/shared"
)

const telegramAPIBase = "https://api.telegram.org"

// pollTimeout is the long-poll window requested from getUpdates.
const pollTimeout = 50 * time.Second

// Update represents one incoming Telegram update.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message represents an incoming or outgoing chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

// User represents a Telegram user.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// Chat represents a Telegram chat.
type Chat struct {
	ID int64 `json:"id"`
}

// Identity returns the chat-user identity key: the sender's id as an opaque
// string, shared with the token store and the OAuth state parameter.
func (m *Message) Identity() string {
	if m.From != nil {
		return strconv.FormatInt(m.From.ID, 10)
	}
	return strconv.FormatInt(m.Chat.ID, 10)
}

// ReplyKeyboardMarkup is a custom reply keyboard shown under the input field.
type ReplyKeyboardMarkup struct {
	Keyboard       [][]KeyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

// KeyboardButton is one button of a reply keyboard.
type KeyboardButton struct {
	Text string `json:"text"`
}

// Outgoing is a sendMessage request.
type Outgoing struct {
	ChatID                string               `json:"chat_id"`
	Text                  string               `json:"text"`
	ParseMode             string               `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                 `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *ReplyKeyboardMarkup `json:"reply_markup,omitempty"`
}

// OutgoingPhoto is a sendPhoto request with the photo referenced by URL.
type OutgoingPhoto struct {
	ChatID    string `json:"chat_id"`
	Photo     string `json:"photo"`
	Caption   string `json:"caption,omitempty"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// API is the slice of the Bot API the dispatcher uses.
type API interface {
	GetUpdates(ctx context.Context, offset int64) ([]Update, error)
	SendMessage(ctx context.Context, msg Outgoing) error
	SendPhoto(ctx context.Context, photo OutgoingPhoto) error
}

// Client talks to the Telegram Bot API over plain HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Bot API client for the given bot token.
//
// The HTTP timeout leaves headroom over the long-poll window so getUpdates
// calls are bounded but not cut short.
func NewClient(token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: pollTimeout + 10*time.Second}
	}

	return &Client{
		baseURL:    fmt.Sprintf("%s/bot%s", telegramAPIBase, token),
		httpClient: httpClient,
	}
}

// apiEnvelope is the Bot API response wrapper.
type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// call POSTs a JSON payload to a Bot API method and decodes the result.
func (c *Client) call(ctx context.Context, method string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !envelope.OK {
		return fmt.Errorf("%w: %s: %s", shared.ErrAPIRequest, method, envelope.Description)
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}

	return nil
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	q := url.Values{
		"offset":  {strconv.FormatInt(offset, 10)},
		"timeout": {strconv.Itoa(int(pollTimeout.Seconds()))},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/getUpdates?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("%w: getUpdates: %s", shared.ErrAPIRequest, envelope.Description)
	}

	var updates []Update
	if err := json.Unmarshal(envelope.Result, &updates); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}

	return updates, nil
}

// SendMessage delivers a text message.
func (c *Client) SendMessage(ctx context.Context, msg Outgoing) error {
	return c.call(ctx, "sendMessage", msg, nil)
}

// SendPhoto delivers a photo by URL with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, photo OutgoingPhoto) error {
	return c.call(ctx, "sendPhoto", photo, nil)
}
