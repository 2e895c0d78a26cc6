package bot

import (
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/UniDesk/internal/models"
)

func TestBuildKeyboardRowSize(t *testing.T) {
	rows := BuildKeyboard([]string{"a", "b", "c", "d", "e"})
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if len(rows[0]) != 3 || len(rows[1]) != 2 {
		t.Errorf("row sizes = %d,%d, want 3,2", len(rows[0]), len(rows[1]))
	}
	for _, row := range rows {
		for _, b := range row {
			if b.Label != b.Payload {
				t.Errorf("suggestion button label %q != payload %q", b.Label, b.Payload)
			}
		}
	}
}

func TestBuildKeyboardEmpty(t *testing.T) {
	if rows := BuildKeyboard(nil); rows != nil {
		t.Errorf("BuildKeyboard(nil) = %v, want nil", rows)
	}
}

func TestFormatApplicationTypesCapsButtons(t *testing.T) {
	types := []models.ApplicationType{
		{ID: "a", Name: "Первый", Description: "d1"},
		{ID: "b", Name: "Второй", Description: "d2"},
		{ID: "c", Name: "Третий", Description: "d3"},
		{ID: "d", Name: "Четвёртый", Description: "d4"},
	}
	text, keyboard := FormatApplicationTypes(types)
	if !strings.Contains(text, "Четвёртый") {
		t.Error("text omits a catalog entry")
	}
	if len(keyboard) != 1 || len(keyboard[0]) != 3 {
		t.Fatalf("keyboard = %v, want one row of 3 quick-submit buttons", keyboard)
	}
	if keyboard[0][0].Payload != "Подать Первый" {
		t.Errorf("payload = %q, want %q", keyboard[0][0].Payload, "Подать Первый")
	}
}

func TestMskDateAppliesOffset(t *testing.T) {
	// 22:30 UTC is already the next day in Moscow.
	utc := time.Date(2025, 12, 1, 22, 30, 0, 0, time.UTC)
	if got := mskDate(utc); got != "02 декабря" {
		t.Errorf("mskDate = %q, want %q", got, "02 декабря")
	}
}

func TestFormatEventsMoscowTime(t *testing.T) {
	events := []models.Event{{
		Title:       "День открытых дверей",
		Description: "описание",
		Date:        time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		Time:        "10:00",
		Location:    "Главный корпус",
	}}
	text := FormatEvents(events)
	if !strings.Contains(text, "01 декабря в 10:00 (МСК)") {
		t.Errorf("events text missing Moscow-time line: %q", text)
	}
	if !strings.Contains(text, "1. 📌 **День открытых дверей**") {
		t.Errorf("events text missing numbered title: %q", text)
	}
}

func TestFormatApplicationStatusLabels(t *testing.T) {
	app := models.Application{
		ID:          12,
		TypeName:    "Справка об обучении",
		StudentName: "Иванов Иван",
		StudentID:   "ИВТ-101",
		Status:      models.ApplicationStatusApproved,
		CreatedAt:   time.Date(2025, 11, 30, 21, 5, 0, 0, time.UTC),
	}
	text := FormatApplication(app)
	if !strings.Contains(text, "Заявление №12") {
		t.Errorf("missing id line: %q", text)
	}
	if !strings.Contains(text, "✅ Одобрено") {
		t.Errorf("missing status label: %q", text)
	}
	if !strings.Contains(text, "01.12.2025, 00:05:00") {
		t.Errorf("created timestamp not in Moscow time: %q", text)
	}
}

func TestFormatApplicationListEmoji(t *testing.T) {
	list := []models.Application{
		{ID: 1, TypeName: "Справка", Status: models.ApplicationStatusPending},
		{ID: 2, TypeName: "Выписка", Status: models.ApplicationStatusRejected},
		{ID: 3, TypeName: "Стипендия", Status: "weird"},
	}
	text := FormatApplicationList(list)
	for _, want := range []string{"🕐 №1: Справка", "❌ №2: Выписка", "📋 №3: Стипендия"} {
		if !strings.Contains(text, want) {
			t.Errorf("list text missing %q:\n%s", want, text)
		}
	}
}

func TestRenderChatResponseTextFirst(t *testing.T) {
	resp := models.ChatResponse{
		Text:        "Какое заявление вы хотите подать?",
		Suggestions: []string{"Справка"},
		ApplicationTypes: []models.ApplicationType{
			{ID: "certificate", Name: "Справка", Description: "..."},
		},
	}
	msgs := RenderChatResponse(resp)
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
	if msgs[0].Text != resp.Text {
		t.Errorf("first message = %q, want the response text", msgs[0].Text)
	}
	if len(msgs[0].Keyboard) == 0 {
		t.Error("first message missing suggestion keyboard")
	}
	if !msgs[1].Markdown {
		t.Error("catalog message should be markdown")
	}
}
