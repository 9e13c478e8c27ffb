package telegram_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"

	"goalbot/internal/dialog"
	"goalbot/internal/telegram"
)

// apiStub is a fake Bot API server. It serves canned getUpdates results and
// records every outbound call.
type apiStub struct {
	t *testing.T

	updates    string
	updatesErr string

	pollQueries []url.Values
	answered    []string
	sent        []map[string]string
}

func (s *apiStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			s.pollQueries = append(s.pollQueries, r.URL.Query())
			if s.updatesErr != "" {
				fmt.Fprintf(w, `{"ok":false,"description":%q}`, s.updatesErr)
				return
			}
			fmt.Fprintf(w, `{"ok":true,"result":%s}`, s.updates)

		case strings.HasSuffix(r.URL.Path, "/answerCallbackQuery"):
			params := flattenParams(s.t, r)
			s.answered = append(s.answered, params["callback_query_id"])
			fmt.Fprint(w, `{"ok":true,"result":true}`)

		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			s.sent = append(s.sent, flattenParams(s.t, r))
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":1,"chat":{"id":10,"type":"private"}}}`)

		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"goalbot"}}`)

		default:
			s.t.Errorf("unexpected Bot API call: %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}
}

// flattenParams reads request parameters regardless of whether the caller
// encoded them as JSON or as a form, as string values keyed by field name.
func flattenParams(t *testing.T, r *http.Request) map[string]string {
	t.Helper()

	params := map[string]string{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		for key, raw := range body {
			var str string
			if json.Unmarshal(raw, &str) == nil {
				params[key] = str
			} else {
				params[key] = string(raw)
			}
		}
		return params
	}

	if err := r.ParseMultipartForm(1 << 20); err != nil {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse request form: %v", err)
		}
	}
	for key, values := range r.Form {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	if r.MultipartForm != nil {
		for key, values := range r.MultipartForm.Value {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
	}
	return params
}

func newTestClient(t *testing.T, stub *apiStub) *telegram.Client {
	t.Helper()

	stub.t = t
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	client, err := telegram.NewClient("test-token", time.Second, nil,
		telegram.WithAPIServer(srv.URL))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestPollMapsUpdatesToEvents(t *testing.T) {
	t.Parallel()

	stub := &apiStub{updates: `[
		{"update_id":7,"message":{"message_id":1,"date":1,"chat":{"id":10,"type":"private"},"text":"hi"}},
		{"update_id":8,"callback_query":{"id":"cb-1","from":{"id":1,"is_bot":false,"first_name":"a"},"chat_instance":"ci","data":"Books","message":{"message_id":2,"date":1,"chat":{"id":11,"type":"private"}}}},
		{"update_id":9,"edited_message":{"message_id":3,"date":1,"chat":{"id":12,"type":"private"},"text":"edited"}},
		{"update_id":10,"callback_query":{"id":"cb-2","from":{"id":1,"is_bot":false,"first_name":"a"},"chat_instance":"ci","data":"/cancel","message":{"message_id":4,"date":0,"chat":{"id":13,"type":"private"}}}}
	]`}
	client := newTestClient(t, stub)

	events, next, err := client.Poll(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The edited message is skipped but still advances the cursor.
	if next != 11 {
		t.Errorf("next cursor = %d, want 11", next)
	}
	if len(events) != 3 {
		t.Fatalf("mapped %d events, want 3: %+v", len(events), events)
	}

	msg, ok := events[0].(dialog.MessageEvent)
	if !ok || msg.ChatID != 10 || msg.Text != "hi" {
		t.Errorf("event 0 = %+v, want message \"hi\" from chat 10", events[0])
	}
	cb, ok := events[1].(dialog.CallbackEvent)
	if !ok || cb.ChatID != 11 || cb.Token != "Books" {
		t.Errorf("event 1 = %+v, want callback Books from chat 11", events[1])
	}

	// The inaccessible message still carries the chat for routing.
	cb, ok = events[2].(dialog.CallbackEvent)
	if !ok || cb.ChatID != 13 || cb.Token != "/cancel" {
		t.Errorf("event 2 = %+v, want callback /cancel from chat 13", events[2])
	}

	// Every button press must be acknowledged.
	if len(stub.answered) != 2 || stub.answered[0] != "cb-1" || stub.answered[1] != "cb-2" {
		t.Errorf("answered callback queries = %v, want [cb-1 cb-2]", stub.answered)
	}
}

func TestPollSendsCursorAndTimeout(t *testing.T) {
	t.Parallel()

	stub := &apiStub{updates: `[]`}
	client := newTestClient(t, stub)
	ctx := context.Background()

	if _, _, err := client.Poll(ctx, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := client.Poll(ctx, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stub.pollQueries) != 2 {
		t.Fatalf("made %d poll requests, want 2", len(stub.pollQueries))
	}
	if got := stub.pollQueries[0].Get("offset"); got != "" {
		t.Errorf("initial poll offset = %q, want none", got)
	}
	if got := stub.pollQueries[1].Get("offset"); got != "5" {
		t.Errorf("poll offset = %q, want 5", got)
	}
	if got := stub.pollQueries[1].Get("timeout"); got != "1" {
		t.Errorf("poll timeout = %q, want 1", got)
	}
}

func TestPollKeepsCursorWithoutNewUpdates(t *testing.T) {
	t.Parallel()

	stub := &apiStub{updates: `[]`}
	client := newTestClient(t, stub)

	events, next, err := client.Poll(context.Background(), 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("mapped %d events, want none", len(events))
	}
	if next != 42 {
		t.Errorf("next cursor = %d, want 42 unchanged", next)
	}
}

func TestPollSurfacesAPIError(t *testing.T) {
	t.Parallel()

	stub := &apiStub{updatesErr: "flood control"}
	client := newTestClient(t, stub)

	_, next, err := client.Poll(context.Background(), 7)
	if err == nil {
		t.Fatal("expected an error from the rejected poll")
	}
	if !strings.Contains(err.Error(), "flood control") {
		t.Errorf("error %q does not carry the API description", err)
	}
	if next != 7 {
		t.Errorf("next cursor = %d, want 7 unchanged on failure", next)
	}
}

func TestSendBuildsInlineKeyboard(t *testing.T) {
	t.Parallel()

	stub := &apiStub{updates: `[]`}
	client := newTestClient(t, stub)

	keyboard := [][]dialog.Button{
		{{Text: "Books", CallbackData: "Books"}},
		{{Text: "View goal", URL: "http://site.test/boards/1/goals"}},
	}
	if err := client.Send(context.Background(), 10, "pick one", keyboard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(stub.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(stub.sent))
	}
	got := stub.sent[0]
	if got["chat_id"] != "10" {
		t.Errorf("chat_id = %q, want 10", got["chat_id"])
	}
	if got["text"] != "pick one" {
		t.Errorf("text = %q, want pick one", got["text"])
	}

	var markup models.InlineKeyboardMarkup
	if err := json.Unmarshal([]byte(got["reply_markup"]), &markup); err != nil {
		t.Fatalf("failed to decode reply markup %q: %v", got["reply_markup"], err)
	}
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("markup has %d rows, want 2", len(markup.InlineKeyboard))
	}
	if btn := markup.InlineKeyboard[0][0]; btn.Text != "Books" || btn.CallbackData != "Books" {
		t.Errorf("row 0 button = %+v, want the Books callback button", btn)
	}
	if btn := markup.InlineKeyboard[1][0]; btn.Text != "View goal" || btn.URL == "" {
		t.Errorf("row 1 button = %+v, want the URL button", btn)
	}
}

func TestSendWithoutKeyboard(t *testing.T) {
	t.Parallel()

	stub := &apiStub{updates: `[]`}
	client := newTestClient(t, stub)

	if err := client.Send(context.Background(), 11, "plain", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := stub.sent[0]
	if got["text"] != "plain" {
		t.Errorf("text = %q, want plain", got["text"])
	}
	if markup, ok := got["reply_markup"]; ok && markup != "" && markup != "null" {
		t.Errorf("reply_markup = %q, want none", markup)
	}
}
