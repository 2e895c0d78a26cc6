package maxbot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	c, err := NewClient(WithBaseURL(ts.URL), WithToken("test-token"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatal("NewClient accepted an empty token")
	}
}

func TestGetUpdates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/updates" {
			t.Errorf("path = %q, want /updates", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("access_token") != "test-token" {
			t.Errorf("access_token = %q", q.Get("access_token"))
		}
		if q.Get("marker") != "41" {
			t.Errorf("marker = %q, want 41", q.Get("marker"))
		}
		if q.Get("timeout") == "" {
			t.Error("timeout query parameter missing")
		}
		json.NewEncoder(w).Encode(UpdatesPage{
			Marker: 42,
			Updates: []Update{{
				UpdateType: UpdateTypeMessageCreated,
				Message: &InboundMessage{
					Sender: User{UserID: 7, Name: "Иван"},
					Body:   MessageBody{Text: "привет"},
				},
			}},
		})
	})

	page, err := c.GetUpdates(context.Background(), 41)
	if err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
	if page.Marker != 42 || len(page.Updates) != 1 {
		t.Fatalf("page = %+v", page)
	}
	u := page.Updates[0]
	if u.UpdateType != UpdateTypeMessageCreated || u.Message == nil || u.Message.Body.Text != "привет" {
		t.Errorf("update = %+v", u)
	}
}

func TestGetUpdatesOmitsZeroMarker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["marker"]; ok {
			t.Error("marker sent on first poll")
		}
		json.NewEncoder(w).Encode(UpdatesPage{})
	})
	if _, err := c.GetUpdates(context.Background(), 0); err != nil {
		t.Fatalf("GetUpdates failed: %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages" {
			t.Errorf("request = %s %s, want POST /messages", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("user_id") != "7" {
			t.Errorf("user_id = %q, want 7", r.URL.Query().Get("user_id"))
		}
		var msg OutboundMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if msg.Text != "Добро пожаловать!" || msg.Format != "markdown" {
			t.Errorf("message = %+v", msg)
		}
		if len(msg.Attachments) != 1 || msg.Attachments[0].Type != "inline_keyboard" {
			t.Fatalf("attachments = %+v", msg.Attachments)
		}
		buttons := msg.Attachments[0].Payload.Buttons
		if len(buttons) != 1 || buttons[0][0].Type != "callback" || buttons[0][0].Payload != "Мой профиль" {
			t.Errorf("buttons = %+v", buttons)
		}
		w.WriteHeader(http.StatusOK)
	})

	msg := OutboundMessage{
		Text:   "Добро пожаловать!",
		Format: "markdown",
		Attachments: []Attachment{InlineKeyboard([][]KeyboardButton{
			{CallbackButton("👤 Мой профиль", "Мой профиль")},
		})},
	}
	if err := c.SendMessage(context.Background(), 7, msg); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
}

func TestSendMessageNonOKStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"verify.token"}`, http.StatusUnauthorized)
	})
	if err := c.SendMessage(context.Background(), 7, OutboundMessage{Text: "x"}); err == nil {
		t.Fatal("SendMessage swallowed a non-200 response")
	}
}
