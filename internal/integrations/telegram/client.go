package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"mediation-bot/internal/domain"
)

// apiResponse is the Bot API envelope wrapping every method result.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// sentMessage is the minimal message shape returned by send methods.
type sentMessage struct {
	MessageID int64 `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type sendPhotoRequest struct {
	ChatID      int64                 `json:"chat_id"`
	Photo       string                `json:"photo"`
	Caption     string                `json:"caption"`
	ReplyMarkup *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type inputMediaPhoto struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption"`
}

type editMessageMediaRequest struct {
	ChatID      int64                 `json:"chat_id"`
	MessageID   int64                 `json:"message_id"`
	Media       inputMediaPhoto       `json:"media"`
	ReplyMarkup *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

type answerCallbackRequest struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// HTTPStatusError captures non-2xx Bot API responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("telegram: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client is a focused Telegram Bot API client covering the methods the flow
// engine needs. It implements the usecase Notifier contract.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	getter      Getter
	paramPrefix string

	tokenOnce sync.Once
	token     string
	tokenErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client backed by the given paramstore.Getter for bot
// token retrieval. The token is fetched from SSM on the first send and reused
// for the lifetime of the process.
func NewClient(ps Getter, paramPrefix string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("telegram: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("telegram: parameter prefix must not be empty")
	}
	c := &Client{
		baseURL:     "https://api.telegram.org",
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		getter:      ps,
		paramPrefix: paramPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveToken(ctx context.Context) (string, error) {
	c.tokenOnce.Do(func() {
		c.token, c.tokenErr = fetchBotToken(ctx, c.getter, c.tokenParameterName())
	})
	return c.token, c.tokenErr
}

func (c *Client) tokenParameterName() string {
	return c.paramPrefix + "/bot-token"
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// methodURL builds the Bot API endpoint for a method name.
func methodURL(baseURL, token, method string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	return base + "/bot" + token + "/" + method
}

// SendText delivers a plain text message to a party.
func (c *Client) SendText(ctx context.Context, partyID int64, text string) error {
	_, err := c.call(ctx, "sendMessage", sendMessageRequest{ChatID: partyID, Text: text})
	return err
}

// SendImageWithActions delivers a photo with an inline decision keyboard and
// returns the handle of the created message for later in-place edits.
func (c *Client) SendImageWithActions(ctx context.Context, partyID int64, imageRef, caption string, actions []domain.Action) (domain.MessageHandle, error) {
	raw, err := c.call(ctx, "sendPhoto", sendPhotoRequest{
		ChatID:      partyID,
		Photo:       imageRef,
		Caption:     caption,
		ReplyMarkup: keyboard(actions),
	})
	if err != nil {
		return domain.MessageHandle{}, err
	}

	var msg sentMessage
	if decErr := json.Unmarshal(raw, &msg); decErr != nil {
		return domain.MessageHandle{}, fmt.Errorf("telegram: decode sendPhoto result: %w", decErr)
	}
	if msg.MessageID == 0 {
		return domain.MessageHandle{}, errors.New("telegram: sendPhoto result missing message id")
	}
	return domain.MessageHandle{ChatID: msg.Chat.ID, MessageID: msg.MessageID}, nil
}

// EditImageMessage replaces a previously sent photo message in place with a
// new image, caption and keyboard.
func (c *Client) EditImageMessage(ctx context.Context, handle domain.MessageHandle, imageRef, caption string, actions []domain.Action) error {
	if handle.IsZero() {
		return errors.New("telegram: message handle must not be zero")
	}
	_, err := c.call(ctx, "editMessageMedia", editMessageMediaRequest{
		ChatID:    handle.ChatID,
		MessageID: handle.MessageID,
		Media: inputMediaPhoto{
			Type:    "photo",
			Media:   imageRef,
			Caption: caption,
		},
		ReplyMarkup: keyboard(actions),
	})
	return err
}

// AnswerAction acknowledges a decision button press, optionally with a short
// notice shown to the mediator.
func (c *Client) AnswerAction(ctx context.Context, callbackID, text string) error {
	if callbackID == "" {
		return errors.New("telegram: callback id must not be empty")
	}
	_, err := c.call(ctx, "answerCallbackQuery", answerCallbackRequest{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	return err
}

func keyboard(actions []domain.Action) *inlineKeyboardMarkup {
	if len(actions) == 0 {
		return nil
	}
	row := make([]inlineKeyboardButton, 0, len(actions))
	for _, a := range actions {
		row = append(row, inlineKeyboardButton{Text: a.Label, CallbackData: a.Payload})
	}
	return &inlineKeyboardMarkup{InlineKeyboard: [][]inlineKeyboardButton{row}}
}

// call posts one Bot API method and returns the raw result payload.
func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	token, err := c.resolveToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s request: %w", method, err)
	}

	url := methodURL(c.baseURL, token, method)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return nil, fmt.Errorf("telegram: create %s request: %w", method, reqErr)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
	}

	var envelope apiResponse
	if decErr := json.Unmarshal(raw, &envelope); decErr != nil {
		return nil, fmt.Errorf("telegram: decode %s response: %w", method, decErr)
	}
	if !envelope.OK {
		return nil, fmt.Errorf("telegram: %s rejected: %s", method, envelope.Description)
	}
	return envelope.Result, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func fetchBotToken(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", errors.New("telegram: paramstore getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("telegram: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("telegram: fetch token from paramstore: %w", err)
	}
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", errors.New("telegram: bot token is empty")
	}
	return token, nil
}
