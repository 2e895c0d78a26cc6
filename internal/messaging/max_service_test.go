package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BTreeMap/UniDesk/internal/maxbot"
	"github.com/BTreeMap/UniDesk/internal/models"
)

func TestConvertUpdateMessage(t *testing.T) {
	upd, ok := convertUpdate(maxbot.Update{
		UpdateType: maxbot.UpdateTypeMessageCreated,
		Message: &maxbot.InboundMessage{
			Sender:    maxbot.User{UserID: 7, Name: "Иван"},
			Body:      maxbot.MessageBody{Text: "привет"},
			Timestamp: 1700000000,
		},
	})
	if !ok {
		t.Fatal("message update dropped")
	}
	if upd.UserID != 7 || upd.Text != "привет" || upd.Callback {
		t.Errorf("update = %+v", upd)
	}
}

func TestConvertUpdateCallback(t *testing.T) {
	upd, ok := convertUpdate(maxbot.Update{
		UpdateType: maxbot.UpdateTypeMessageCallback,
		Callback: &maxbot.Callback{
			Payload: "Мой профиль",
			User:    maxbot.User{UserID: 7, Name: "Иван"},
		},
	})
	if !ok {
		t.Fatal("callback update dropped")
	}
	if !upd.Callback || upd.Text != "Мой профиль" {
		t.Errorf("update = %+v", upd)
	}
}

func TestConvertUpdateBotStartedGreets(t *testing.T) {
	upd, ok := convertUpdate(maxbot.Update{
		UpdateType: maxbot.UpdateTypeBotStarted,
		Message: &maxbot.InboundMessage{
			Sender: maxbot.User{UserID: 7, Name: "Иван"},
		},
	})
	if !ok {
		t.Fatal("bot_started update dropped")
	}
	if upd.Text != "привет" || upd.Callback {
		t.Errorf("update = %+v, want synthesized greeting", upd)
	}
}

func TestConvertUpdateIgnoresUnknownTypes(t *testing.T) {
	if _, ok := convertUpdate(maxbot.Update{UpdateType: "message_edited"}); ok {
		t.Error("unknown update type not ignored")
	}
	if _, ok := convertUpdate(maxbot.Update{UpdateType: maxbot.UpdateTypeMessageCreated}); ok {
		t.Error("message update without a body not ignored")
	}
}

func TestSendMessageWireFormat(t *testing.T) {
	var got maxbot.OutboundMessage
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := maxbot.NewClient(maxbot.WithBaseURL(ts.URL), maxbot.WithToken("test-token"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	svc := NewMaxService(client)

	msg := models.Message{
		Text:     "Выберите действие:",
		Markdown: true,
		Keyboard: [][]models.Button{{{Label: "👤 Мой профиль", Payload: "Мой профиль"}}},
	}
	if err := svc.SendMessage(context.Background(), 7, msg); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if got.Format != "markdown" {
		t.Errorf("format = %q, want markdown", got.Format)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Type != "inline_keyboard" {
		t.Fatalf("attachments = %+v", got.Attachments)
	}
	button := got.Attachments[0].Payload.Buttons[0][0]
	if button.Text != "👤 Мой профиль" || button.Payload != "Мой профиль" {
		t.Errorf("button = %+v", button)
	}
}

func TestSendMessagePlainTextOmitsExtras(t *testing.T) {
	var got maxbot.OutboundMessage
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := maxbot.NewClient(maxbot.WithBaseURL(ts.URL), maxbot.WithToken("test-token"))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	svc := NewMaxService(client)

	if err := svc.SendMessage(context.Background(), 7, models.Message{Text: "Ок"}); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if got.Format != "" || len(got.Attachments) != 0 {
		t.Errorf("plain message carried extras: %+v", got)
	}
}
