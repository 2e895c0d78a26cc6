package bot

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/UniDesk/internal/auth"
	"github.com/BTreeMap/UniDesk/internal/config"
	"github.com/BTreeMap/UniDesk/internal/messaging"
	"github.com/BTreeMap/UniDesk/internal/models"
	"github.com/BTreeMap/UniDesk/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *messaging.MockService, *store.InMemoryStore, *InMemorySessionStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	authSvc, err := auth.NewService(st, "test-secret", 0)
	if err != nil {
		t.Fatalf("auth.NewService failed: %v", err)
	}
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default failed: %v", err)
	}
	sessions := NewInMemorySessionStore()
	mock := messaging.NewMockService()
	return NewEngine(sessions, st, authSvc, cfg, mock), mock, st, sessions
}

func seedGroup(st *store.InMemoryStore) models.Group {
	return st.AddGroup(models.Group{
		ID:            1,
		Name:          "ИВТ-101",
		Course:        1,
		DirectionID:   1,
		DirectionName: "Информатика и вычислительная техника",
		InstituteID:   1,
		InstituteName: "Институт информационных технологий",
	})
}

func lastSent(t *testing.T, mock *messaging.MockService) messaging.SentMessage {
	t.Helper()
	sent := mock.Sent()
	if len(sent) == 0 {
		t.Fatal("no messages sent")
	}
	return sent[len(sent)-1]
}

func handle(e *Engine, userID int64, text string) {
	e.HandleUpdate(context.Background(), models.Update{UserID: userID, UserName: "Тест Тестов", Text: text})
}

func handleCallback(e *Engine, userID int64, payload string) {
	e.HandleUpdate(context.Background(), models.Update{UserID: userID, UserName: "Тест Тестов", Text: payload, Callback: true})
}

func TestGreetingWithoutSession(t *testing.T) {
	e, mock, _, sessions := newTestEngine(t)
	handle(e, 42, "Привет")

	msg := lastSent(t, mock)
	if msg.Message.Text != e.cfg.WelcomeMessage {
		t.Errorf("greeting text = %q, want welcome message", msg.Message.Text)
	}
	if len(msg.Message.Keyboard) == 0 {
		t.Error("greeting missing suggestion keyboard")
	}
	if _, ok := sessions.Get(42); ok {
		t.Error("greeting must not create a session")
	}
}

func TestStartCommand(t *testing.T) {
	e, mock, _, sessions := newTestEngine(t)
	sessions.Set(models.Session{UserID: 42, Mode: models.SessionModeStatus, Step: models.StepAskID})

	handle(e, 42, "/start")

	msg := lastSent(t, mock)
	if msg.Message.Text != WelcomeText {
		t.Errorf("/start text = %q, want welcome", msg.Message.Text)
	}
	if len(msg.Message.Keyboard) != 2 {
		t.Errorf("main keyboard rows = %d, want 2", len(msg.Message.Keyboard))
	}
	if _, ok := sessions.Get(42); ok {
		t.Error("/start must abandon the active session")
	}
}

func TestDirectStatusShortcut(t *testing.T) {
	e, mock, st, sessions := newTestEngine(t)
	app, err := st.CreateApplication(models.Application{
		Type: "certificate", TypeName: "Справка об обучении",
		StudentName: "Иванов", StudentID: "ИВТ-101", Email: "a@b.co",
	})
	if err != nil {
		t.Fatalf("CreateApplication failed: %v", err)
	}

	handle(e, 42, "Статус заявления 1")

	msg := lastSent(t, mock)
	if !strings.Contains(msg.Message.Text, "Заявление №1") {
		t.Errorf("status reply = %q, want detail for #%d", msg.Message.Text, app.ID)
	}
	if _, ok := sessions.Get(42); ok {
		t.Error("direct shortcut must not create a session")
	}
}

func TestStatusFlowNumericGuard(t *testing.T) {
	e, mock, st, sessions := newTestEngine(t)
	if _, err := st.CreateApplication(models.Application{
		Type: "certificate", TypeName: "Справка об обучении",
		StudentName: "Иванов", StudentID: "ИВТ-101", Email: "a@b.co",
	}); err != nil {
		t.Fatalf("CreateApplication failed: %v", err)
	}

	handle(e, 42, "статус заявления")
	sess, ok := sessions.Get(42)
	if !ok || sess.Mode != models.SessionModeStatus || sess.Step != models.StepAskID {
		t.Fatalf("session = %+v, want status/askId", sess)
	}

	handle(e, 42, "двенадцать")
	if !strings.Contains(lastSent(t, mock).Message.Text, "числовой ID") {
		t.Error("non-numeric input did not re-prompt")
	}
	if sess, ok := sessions.Get(42); !ok || sess.Step != models.StepAskID {
		t.Fatal("session must survive an invalid reply unchanged")
	}

	handle(e, 42, "1")
	if !strings.Contains(lastSent(t, mock).Message.Text, "Заявление №1") {
		t.Error("valid id did not resolve the application")
	}
	if _, ok := sessions.Get(42); ok {
		t.Error("session must be cleared after a valid reply")
	}
}

func TestMyApplicationsTextFlow(t *testing.T) {
	e, mock, st, sessions := newTestEngine(t)
	if _, err := st.CreateApplication(models.Application{
		Type: "certificate", TypeName: "Справка об обучении",
		StudentName: "Иванов", StudentID: "20221234", Email: "a@b.co",
	}); err != nil {
		t.Fatalf("CreateApplication failed: %v", err)
	}

	handle(e, 42, "Мои заявления")
	sess, ok := sessions.Get(42)
	if !ok || sess.Step != models.StepAskStudentID {
		t.Fatalf("session = %+v, want status/askStudentId", sess)
	}

	handle(e, 42, "20221234")
	var found bool
	for _, s := range mock.Sent() {
		if strings.Contains(s.Message.Text, "Ваши заявления") && strings.Contains(s.Message.Text, "№1") {
			found = true
		}
	}
	if !found {
		t.Error("student id lookup did not return the formatted list")
	}
	if _, ok := sessions.Get(42); ok {
		t.Error("session must be cleared after the lookup")
	}
}

func TestMyApplicationsCallbackListsOwn(t *testing.T) {
	e, mock, _, sessions := newTestEngine(t)
	handleCallback(e, 42, "Мои заявления")

	if !strings.Contains(lastSent(t, mock).Message.Text, "У вас пока нет заявлений") {
		t.Errorf("empty list reply = %q", lastSent(t, mock).Message.Text)
	}
	if _, ok := sessions.Get(42); ok {
		t.Error("menu button must not create a session")
	}
}

func TestFullApplicationRoundTrip(t *testing.T) {
	e, mock, st, sessions := newTestEngine(t)

	handleCallback(e, 42, "Подать Справка об обучении")
	sess, ok := sessions.Get(42)
	if !ok || sess.Mode != models.SessionModeApplication || sess.Step != models.StepStudentName {
		t.Fatalf("session = %+v, want application/studentName", sess)
	}

	handle(e, 42, "Иванов Иван Иванович")
	handle(e, 42, "20221234")
	handle(e, 42, "Институт информационных технологий")

	// Bad email re-prompts without advancing.
	handle(e, 42, "ivanov@mail")
	if sess, _ := sessions.Get(42); sess.Step != models.StepEmail {
		t.Fatalf("step after bad email = %q, want email", sess.Step)
	}

	handle(e, 42, "ivanov@mail.ru")
	handle(e, 42, "Нужна справка для военкомата")

	if _, ok := sessions.Get(42); ok {
		t.Error("session must be cleared after creation")
	}

	apps, err := st.ListApplications()
	if err != nil {
		t.Fatalf("ListApplications failed: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("applications = %d, want exactly 1", len(apps))
	}
	a := apps[0]
	if a.Type != "certificate" || a.StudentName != "Иванов Иван Иванович" ||
		a.StudentID != "20221234" || a.Email != "ivanov@mail.ru" ||
		a.Description != "Нужна справка для военкомата" {
		t.Errorf("stored application = %+v, does not match accumulated data", a)
	}
	if a.Status != models.ApplicationStatusPending {
		t.Errorf("status = %q, want pending", a.Status)
	}

	var confirmed bool
	for _, s := range mock.Sent() {
		if strings.Contains(s.Message.Text, "Заявление №1 создано") {
			confirmed = true
		}
	}
	if !confirmed {
		t.Error("confirmation with the new id was not sent")
	}
}

func TestProfileFlowAndPrefilledApplication(t *testing.T) {
	e, mock, st, sessions := newTestEngine(t)
	seedGroup(st)

	handleCallback(e, 42, "Редактировать профиль")
	if sess, _ := sessions.Get(42); sess.Step != models.StepName {
		t.Fatalf("step = %q, want name", sess.Step)
	}

	handle(e, 42, "Петров Пётр")
	if !strings.Contains(lastSent(t, mock).Message.Text, "1. ИВТ-101") {
		t.Fatalf("group list not shown: %q", lastSent(t, mock).Message.Text)
	}

	// Out-of-range index re-prompts, session stays on the group step.
	handle(e, 42, "5")
	if !strings.Contains(lastSent(t, mock).Message.Text, "Некорректный номер") {
		t.Error("out-of-range index did not re-prompt")
	}
	if sess, ok := sessions.Get(42); !ok || sess.Step != models.StepGroup {
		t.Fatal("session must stay on the group step after a bad index")
	}

	handle(e, 42, "1")
	if _, ok := sessions.Get(42); ok {
		t.Error("session must be cleared after profile upsert")
	}

	user, err := st.GetUserByMessengerID(42)
	if err != nil || user == nil {
		t.Fatalf("messenger user not created: %v", err)
	}
	if user.Name != "Петров Пётр" {
		t.Errorf("user name = %q, want the name from the flow", user.Name)
	}
	profile, err := st.GetStudentProfile(user.ID)
	if err != nil || profile == nil {
		t.Fatalf("profile not stored: %v", err)
	}
	if profile.GroupID != 1 || profile.Course != 1 {
		t.Errorf("profile = %+v, want group 1 course 1", profile)
	}

	// With a complete profile the application flow collapses to one step.
	handleCallback(e, 42, "Подать Справка об обучении")
	sess, ok := sessions.Get(42)
	if !ok || sess.Step != models.StepDescription {
		t.Fatalf("session = %+v, want application/description", sess)
	}

	handle(e, 42, "-")
	apps, err := st.ListApplicationsByUserID(user.ID)
	if err != nil {
		t.Fatalf("ListApplicationsByUserID failed: %v", err)
	}
	if len(apps) != 1 {
		t.Fatalf("applications = %d, want 1", len(apps))
	}
	a := apps[0]
	if a.StudentID != "ИВТ-101" {
		t.Errorf("studentId = %q, want the group name", a.StudentID)
	}
	if a.Department != "Институт информационных технологий" {
		t.Errorf("department = %q, want the institute name", a.Department)
	}
	if a.Description != "" {
		t.Errorf("description = %q, want empty for the skip marker", a.Description)
	}
}

func TestUnknownTypeReopensCatalog(t *testing.T) {
	e, mock, _, sessions := newTestEngine(t)
	handleCallback(e, 42, "Подать Несуществующее")

	sent := mock.Sent()
	if len(sent) < 2 {
		t.Fatalf("messages = %d, want rejection plus catalog", len(sent))
	}
	if !strings.Contains(sent[len(sent)-2].Message.Text, "Тип не распознан") {
		t.Errorf("rejection text = %q", sent[len(sent)-2].Message.Text)
	}
	if _, ok := sessions.Get(42); ok {
		t.Error("unknown type must not open a session")
	}
}

func TestProfileCardMissingProfile(t *testing.T) {
	e, mock, _, _ := newTestEngine(t)
	handleCallback(e, 42, "Мой профиль")

	msg := lastSent(t, mock)
	if !strings.Contains(msg.Message.Text, "Профиль студента не заполнен") {
		t.Errorf("profile card = %q", msg.Message.Text)
	}
	if len(msg.Message.Keyboard) != 1 || msg.Message.Keyboard[0][0].Payload != "Редактировать профиль" {
		t.Error("missing-profile card must offer the edit button")
	}
}
