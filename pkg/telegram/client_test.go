package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// botAPI records Bot API calls and answers them through respond.
type botAPI struct {
	mu      sync.Mutex
	calls   []recordedCall
	respond func(method string, body map[string]any) (int, string)
}

type recordedCall struct {
	method string
	body   map[string]any
}

func (b *botAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/bottest-token/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		method := strings.TrimPrefix(r.URL.Path, "/bottest-token/")
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		b.mu.Lock()
		b.calls = append(b.calls, recordedCall{method: method, body: body})
		b.mu.Unlock()

		status, resp := b.respond(method, body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp))
	})
}

func (b *botAPI) recorded() []recordedCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedCall(nil), b.calls...)
}

func newTestClient(t *testing.T, api *botAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient("test-token", srv.URL, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestSendUsesMarkdown(t *testing.T) {
	api := &botAPI{respond: func(string, map[string]any) (int, string) {
		return http.StatusOK, `{"ok":true,"result":{"message_id":42,"chat":{"id":7}}}`
	}}
	c := newTestClient(t, api)

	ref, err := c.Send(context.Background(), 7, "*hello*")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ref.ChatID != 7 || ref.MessageID != 42 {
		t.Fatalf("unexpected ref %+v", ref)
	}
	calls := api.recorded()
	if len(calls) != 1 || calls[0].method != "sendMessage" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if calls[0].body["parse_mode"] != "Markdown" || calls[0].body["text"] != "*hello*" {
		t.Fatalf("unexpected body %+v", calls[0].body)
	}
}

func TestSendFallsBackToPlainText(t *testing.T) {
	api := &botAPI{respond: func(_ string, body map[string]any) (int, string) {
		if _, ok := body["parse_mode"]; ok {
			return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities: Can't find end of the entity"}`
		}
		return http.StatusOK, `{"ok":true,"result":{"message_id":5,"chat":{"id":7}}}`
	}}
	c := newTestClient(t, api)

	ref, err := c.Send(context.Background(), 7, "broken *markdown")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ref.MessageID != 5 {
		t.Fatalf("unexpected ref %+v", ref)
	}
	calls := api.recorded()
	if len(calls) != 2 {
		t.Fatalf("expected markdown attempt and plain retry, got %d calls", len(calls))
	}
	if _, ok := calls[1].body["parse_mode"]; ok {
		t.Fatalf("retry must drop parse_mode")
	}
}

func TestSendReturnsAPIError(t *testing.T) {
	api := &botAPI{respond: func(string, map[string]any) (int, string) {
		return http.StatusForbidden, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`
	}}
	c := newTestClient(t, api)

	_, err := c.Send(context.Background(), 7, "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 403 || apiErr.Method != "sendMessage" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if len(api.recorded()) != 1 {
		t.Fatalf("non-markup errors must not be retried")
	}
}

func TestSendWaitsOutShortFloodControl(t *testing.T) {
	var calls int
	api := &botAPI{respond: func(string, map[string]any) (int, string) {
		calls++
		if calls == 1 {
			return http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 1","parameters":{"retry_after":1}}`
		}
		return http.StatusOK, `{"ok":true,"result":{"message_id":9,"chat":{"id":7}}}`
	}}
	c := newTestClient(t, api)

	start := time.Now()
	ref, err := c.Send(context.Background(), 7, "hi")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ref.MessageID != 9 {
		t.Fatalf("unexpected ref %+v", ref)
	}
	if len(api.recorded()) != 2 {
		t.Fatalf("expected one retry, got %d calls", len(api.recorded()))
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("retry_after not honored, retried after %v", elapsed)
	}
}

func TestSendReturnsLongFloodControl(t *testing.T) {
	api := &botAPI{respond: func(string, map[string]any) (int, string) {
		return http.StatusTooManyRequests, `{"ok":false,"error_code":429,"description":"Too Many Requests: retry after 120","parameters":{"retry_after":120}}`
	}}
	c := newTestClient(t, api)

	_, err := c.Send(context.Background(), 7, "hi")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != http.StatusTooManyRequests || apiErr.RetryAfter != 120*time.Second {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if len(api.recorded()) != 1 {
		t.Fatalf("long waits must not be retried in place")
	}
}

func TestSendDecodesResponseWithoutJSONContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":5,"chat":{"id":7}}}`))
	}))
	defer srv.Close()

	c, err := NewClient("test-token", srv.URL, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ref, err := c.Send(context.Background(), 7, "hi")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ref.MessageID != 5 {
		t.Fatalf("unexpected ref %+v", ref)
	}
}

func TestSendSplitsLongText(t *testing.T) {
	var next int64
	api := &botAPI{respond: func(string, map[string]any) (int, string) {
		next++
		return http.StatusOK, `{"ok":true,"result":{"message_id":` + strconv.FormatInt(next, 10) + `,"chat":{"id":7}}}`
	}}
	c := newTestClient(t, api)

	text := strings.Repeat("line of the daily briefing\n", 400)
	ref, err := c.Send(context.Background(), 7, text)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if ref.MessageID != 1 {
		t.Fatalf("expected ref of first chunk, got %+v", ref)
	}
	if got := len(api.recorded()); got != len(SplitText(text, MaxMessageRunes)) {
		t.Fatalf("unexpected number of sends %d", got)
	}
}

func TestEditOverflowAndNotModified(t *testing.T) {
	api := &botAPI{respond: func(method string, _ map[string]any) (int, string) {
		if method == "editMessageText" {
			return http.StatusBadRequest, `{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`
		}
		return http.StatusOK, `{"ok":true,"result":{"message_id":9,"chat":{"id":7}}}`
	}}
	c := newTestClient(t, api)

	text := strings.Repeat("x", MaxMessageRunes) + "\n" + "tail"
	if err := c.Edit(context.Background(), MessageRef{ChatID: 7, MessageID: 3}, text); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	calls := api.recorded()
	if len(calls) != 2 || calls[0].method != "editMessageText" || calls[1].method != "sendMessage" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if calls[0].body["message_id"] != float64(3) || calls[1].body["text"] != "tail" {
		t.Fatalf("unexpected bodies %+v", calls)
	}
}

func TestGetUpdatesDecodesMessages(t *testing.T) {
	api := &botAPI{respond: func(_ string, body map[string]any) (int, string) {
		if body["offset"] != float64(10) || body["timeout"] != float64(1) {
			t.Errorf("unexpected getUpdates body %+v", body)
		}
		return http.StatusOK, `{"ok":true,"result":[{"update_id":10,"message":{"message_id":1,"from":{"id":5,"first_name":"Asha"},"chat":{"id":-100},"text":"/news"}}]}`
	}}
	c := newTestClient(t, api)

	updates, err := c.GetUpdates(context.Background(), 10, time.Second)
	if err != nil {
		t.Fatalf("GetUpdates: %v", err)
	}
	if len(updates) != 1 || updates[0].Message == nil {
		t.Fatalf("unexpected updates %+v", updates)
	}
	msg := updates[0].Message
	if msg.Chat.ID != -100 || msg.Text != "/news" || msg.From.FirstName != "Asha" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(" ", "", time.Second, nil); err == nil {
		t.Fatalf("expected error for empty token")
	}
}
