package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-briefing/pkg/httpclient"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	parseMarkdown  = "Markdown"

	// Longer flood-control waits are returned to the caller instead.
	maxRetryAfter = 30 * time.Second
)

var (
	// ErrNotModified is returned by Telegram when an edit carries identical text.
	ErrNotModified = errors.New("telegram: message is not modified")
	// ErrBadMarkup means Telegram could not parse the Markdown entities.
	ErrBadMarkup = errors.New("telegram: can't parse entities")
)

// APIError is a Bot API error answer.
type APIError struct {
	Method      string
	Code        int
	Description string
	// RetryAfter is set when Telegram asks the caller to slow down (429).
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Client talks to the Telegram Bot API over HTTPS.
type Client struct {
	base   string
	client *resty.Client
	log    Logger
}

// NewClient builds a Bot API client for token. apiBase may be empty to use
// the public endpoint.
func NewClient(token, apiBase string, timeout time.Duration, log Logger) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		base:   apiBase + "/bot" + token,
		client: httpclient.NewRestyHTTPClient(timeout),
		log:    ensureLogger(log),
	}, nil
}

// Send delivers text to chatID, splitting it into several messages when it
// exceeds the Bot API limit. The returned ref points at the first message.
func (c *Client) Send(ctx context.Context, chatID int64, text string) (MessageRef, error) {
	var first MessageRef
	for i, chunk := range SplitText(text, MaxMessageRunes) {
		msg, err := c.sendMessage(ctx, chatID, chunk)
		if err != nil {
			return first, err
		}
		if i == 0 {
			first = MessageRef{ChatID: chatID, MessageID: msg.MessageID}
		}
	}
	return first, nil
}

// Edit replaces the text of ref. Overflow beyond the Bot API limit is sent
// as follow-up messages to the same chat.
func (c *Client) Edit(ctx context.Context, ref MessageRef, text string) error {
	chunks := SplitText(text, MaxMessageRunes)
	if len(chunks) == 0 {
		return errors.New("telegram: empty text")
	}
	if err := c.editMessageText(ctx, ref, chunks[0]); err != nil && !errors.Is(err, ErrNotModified) {
		return err
	}
	for _, chunk := range chunks[1:] {
		if _, err := c.sendMessage(ctx, ref.ChatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

// GetUpdates long-polls for updates after offset, waiting up to timeout.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout / time.Second),
		"allowed_updates": []string{"message"},
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (c *Client) sendMessage(ctx context.Context, chatID int64, text string) (Message, error) {
	var msg Message
	err := c.callWithMarkdown(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	}, &msg)
	return msg, err
}

func (c *Client) editMessageText(ctx context.Context, ref MessageRef, text string) error {
	var raw json.RawMessage
	return c.callWithMarkdown(ctx, "editMessageText", map[string]any{
		"chat_id":    ref.ChatID,
		"message_id": ref.MessageID,
		"text":       text,
	}, &raw)
}

// callWithMarkdown tries Markdown first and retries once as plain text when
// Telegram rejects the entities.
func (c *Client) callWithMarkdown(ctx context.Context, method string, payload map[string]any, out any) error {
	payload["parse_mode"] = parseMarkdown
	err := c.call(ctx, method, payload, out)
	if !errors.Is(err, ErrBadMarkup) {
		return err
	}

	c.log.WarnObj("markdown rejected, retrying as plain text", "telegram_meta", map[string]any{
		"method": method,
		"error":  err.Error(),
	})
	delete(payload, "parse_mode")
	return c.call(ctx, method, payload, out)
}

// call performs one Bot API request. A flood-control answer with a short
// retry_after is waited out and retried once.
func (c *Client) call(ctx context.Context, method string, payload any, out any) error {
	err := c.do(ctx, method, payload, out)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.RetryAfter <= 0 || apiErr.RetryAfter > maxRetryAfter {
		return err
	}

	c.log.WarnObj("telegram rate limited, retrying", "telegram_meta", map[string]any{
		"method":      method,
		"retry_after": apiErr.RetryAfter.String(),
	})
	timer := time.NewTimer(apiErr.RetryAfter)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return err
	case <-timer.C:
	}
	return c.do(ctx, method, payload, out)
}

func (c *Client) do(ctx context.Context, method string, payload any, out any) error {
	var envelope apiResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(&envelope).
		SetError(&envelope).
		ForceContentType("application/json").
		Post(c.base + "/" + method)
	if err != nil {
		return fmt.Errorf("telegram %s request: %w", method, err)
	}

	if !envelope.OK {
		apiErr := &APIError{Method: method, Code: resp.StatusCode(), Description: envelope.Description}
		if envelope.ErrorCode != 0 {
			apiErr.Code = envelope.ErrorCode
		}
		if envelope.Parameters != nil && envelope.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
		}
		if apiErr.Description == "" {
			apiErr.Description = readBodySnippet(resp.Body())
		}
		return classify(apiErr)
	}

	if out == nil || len(envelope.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("telegram %s decode result: %w", method, err)
	}
	return nil
}

func classify(apiErr *APIError) error {
	desc := strings.ToLower(apiErr.Description)
	switch {
	case strings.Contains(desc, "can't parse entities"):
		return fmt.Errorf("%w: %w", ErrBadMarkup, apiErr)
	case strings.Contains(desc, "message is not modified"):
		return fmt.Errorf("%w: %w", ErrNotModified, apiErr)
	default:
		return apiErr
	}
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
