// Dialog engine: routes inbound messenger updates to guided flows, standing
// shortcuts and the intent classifier.
package bot

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/BTreeMap/UniDesk/internal/auth"
	"github.com/BTreeMap/UniDesk/internal/chat"
	"github.com/BTreeMap/UniDesk/internal/config"
	"github.com/BTreeMap/UniDesk/internal/models"
	"github.com/BTreeMap/UniDesk/internal/store"
)

// defaultUpcomingEvents caps the events digest sent by the bot.
const defaultUpcomingEvents = 5

// errorReplyText is the generic failure message shown when a backend call fails.
const errorReplyText = "Ошибка обработки сообщения."

// statusShortcutRe matches the standing "статус заявления <id>" text shortcut.
var statusShortcutRe = regexp.MustCompile(`^статус\s+заявления\s*(\d+)`)

// Sender delivers outbound messages to the chat transport.
type Sender interface {
	SendMessage(ctx context.Context, userID int64, msg models.Message) error
}

// Engine is the chatbot update router. Sessions are keyed by the messenger user
// id; the linked account is resolved lazily when a flow needs it.
type Engine struct {
	sessions SessionStore
	store    store.Store
	auth     *auth.Service
	cfg      *config.Config
	sender   Sender
}

// NewEngine creates a dialog engine.
func NewEngine(sessions SessionStore, st store.Store, authSvc *auth.Service, cfg *config.Config, sender Sender) *Engine {
	return &Engine{sessions: sessions, store: st, auth: authSvc, cfg: cfg, sender: sender}
}

// Run consumes updates until the context is cancelled. Each update is handled
// synchronously; transport and store failures never stop the loop.
func (e *Engine) Run(ctx context.Context, updates <-chan models.Update) {
	slog.Info("Engine.Run: dialog engine started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("Engine.Run: dialog engine stopped")
			return
		case u, ok := <-updates:
			if !ok {
				slog.Info("Engine.Run: update channel closed")
				return
			}
			e.HandleUpdate(ctx, u)
		}
	}
}

// HandleUpdate routes one inbound update. Precedence: command prefix, active
// session, standing status shortcuts, button payloads, intent classifier.
func (e *Engine) HandleUpdate(ctx context.Context, u models.Update) {
	text := strings.TrimSpace(u.Text)
	slog.Debug("Engine.HandleUpdate: received update", "user_id", u.UserID, "callback", u.Callback)

	if strings.HasPrefix(text, "/") {
		e.handleCommand(ctx, u, text)
		return
	}

	if sess, ok := e.sessions.Get(u.UserID); ok {
		switch sess.Mode {
		case models.SessionModeApplication:
			e.handleApplicationFlow(ctx, u, sess, text)
		case models.SessionModeStatus:
			e.handleStatusFlow(ctx, u, sess, text)
		case models.SessionModeProfile:
			e.handleProfileFlow(ctx, u, sess, text)
		default:
			e.sessions.Delete(u.UserID)
		}
		return
	}

	lower := strings.ToLower(text)

	if m := statusShortcutRe.FindStringSubmatch(lower); m != nil {
		id, _ := strconv.ParseInt(m[1], 10, 64)
		e.replyWithApplicationStatus(ctx, u.UserID, id)
		return
	}

	if lower == "статус заявления" {
		e.sessions.Set(models.Session{UserID: u.UserID, Mode: models.SessionModeStatus, Step: models.StepAskID})
		e.send(ctx, u.UserID, models.Message{Text: "Укажите номер заявления (например: 12)"})
		return
	}

	if lower == "мои заявления" {
		if u.Callback {
			// The menu button lists the pressing user's own applications directly.
			e.listOwnApplications(ctx, u)
			return
		}
		e.sessions.Set(models.Session{UserID: u.UserID, Mode: models.SessionModeStatus, Step: models.StepAskStudentID})
		e.send(ctx, u.UserID, models.Message{Text: "Введите номер студенческого (или табельный):"})
		return
	}

	if e.handlePayload(ctx, u, text) {
		return
	}

	e.respondWithClassifier(ctx, u.UserID, text)
}

func (e *Engine) handleCommand(ctx context.Context, u models.Update, text string) {
	cmd := strings.Fields(text)[0]
	if cmd != "/start" {
		slog.Debug("Engine.handleCommand: ignoring unknown command", "command", cmd, "user_id", u.UserID)
		return
	}
	// A fresh /start abandons any dialog in progress.
	e.sessions.Delete(u.UserID)
	e.send(ctx, u.UserID, models.Message{Text: WelcomeText, Markdown: true, Keyboard: MainKeyboard()})
}

// handlePayload dispatches menu button payloads. Suggestion buttons re-submit
// their label as text, so exact text matches route here too.
func (e *Engine) handlePayload(ctx context.Context, u models.Update, text string) bool {
	switch text {
	case "Мой профиль":
		e.showProfile(ctx, u)
		return true
	case "Редактировать профиль", "Заполнить профиль":
		e.sessions.Set(models.Session{UserID: u.UserID, Mode: models.SessionModeProfile, Step: models.StepName})
		e.send(ctx, u.UserID, models.Message{Text: "Введите ваше полное ФИО:"})
		return true
	case "Статус заявления":
		e.sessions.Set(models.Session{UserID: u.UserID, Mode: models.SessionModeStatus, Step: models.StepAskID})
		e.send(ctx, u.UserID, models.Message{Text: "Укажите номер заявления (например: 12)"})
		return true
	case "Подать заявление":
		e.sendApplicationTypes(ctx, u.UserID)
		return true
	}

	if name, ok := strings.CutPrefix(text, "Подать "); ok {
		e.startApplicationFlow(ctx, u, strings.TrimSpace(name))
		return true
	}
	return false
}

func (e *Engine) respondWithClassifier(ctx context.Context, userID int64, text string) {
	resp := chat.Respond(e.cfg, text)
	if resp.Action == "events" {
		events, err := e.store.ListUpcomingEvents(defaultUpcomingEvents)
		if err != nil {
			slog.Error("Engine.respondWithClassifier: failed to load events", "error", err)
		} else {
			resp.Events = events
		}
	}
	for _, msg := range RenderChatResponse(resp) {
		e.send(ctx, userID, msg)
	}
}

func (e *Engine) sendApplicationTypes(ctx context.Context, userID int64) {
	text, keyboard := FormatApplicationTypes(e.cfg.ApplicationTypes)
	e.send(ctx, userID, models.Message{Text: text, Markdown: true, Keyboard: keyboard})
}

// startApplicationFlow begins an application dialog for the named catalog type.
// A completed student profile collapses the flow to a single description step;
// otherwise every field is collected one turn at a time.
func (e *Engine) startApplicationFlow(ctx context.Context, u models.Update, name string) {
	typ, ok := e.cfg.ApplicationTypeByName(name)
	if !ok {
		e.send(ctx, u.UserID, models.Message{Text: "Тип не распознан, выберите из списка."})
		e.sendApplicationTypes(ctx, u.UserID)
		return
	}

	user, err := e.auth.FindOrCreateByMessengerID(u.UserID, u.UserName)
	if err != nil {
		slog.Error("Engine.startApplicationFlow: failed to resolve user", "error", err, "messenger_id", u.UserID)
		e.send(ctx, u.UserID, models.Message{Text: errorReplyText})
		return
	}

	profile, err := e.store.GetStudentProfile(user.ID)
	if err != nil {
		slog.Error("Engine.startApplicationFlow: failed to load profile", "error", err, "user_id", user.ID)
		e.send(ctx, u.UserID, models.Message{Text: errorReplyText})
		return
	}

	draft := &models.ApplicationDraft{Type: typ.ID, TypeName: typ.Name, UserID: user.ID}
	if profile.Complete() {
		draft.Prefilled = true
		draft.StudentName = user.Name
		draft.StudentID = profile.GroupName
		draft.Department = profile.InstituteName
		if draft.Department == "" {
			draft.Department = profile.DirectionName
		}
		if draft.Department == "" {
			draft.Department = "Не указано"
		}
		draft.Email = user.Email
		e.sessions.Set(models.Session{UserID: u.UserID, Mode: models.SessionModeApplication, Step: models.StepDescription, Application: draft})
		e.send(ctx, u.UserID, models.Message{Text: "Заявление «" + typ.Name + "».\n\nКратко опишите, что требуется (или отправьте «-» чтобы пропустить):"})
		return
	}

	e.sessions.Set(models.Session{UserID: u.UserID, Mode: models.SessionModeApplication, Step: models.StepStudentName, Application: draft})
	e.send(ctx, u.UserID, models.Message{Text: "Заявление «" + typ.Name + "».\n\nВведите ваше полное ФИО:"})
}

func (e *Engine) handleApplicationFlow(ctx context.Context, u models.Update, sess models.Session, text string) {
	draft := sess.Application
	if draft == nil {
		e.sessions.Delete(u.UserID)
		return
	}

	switch sess.Step {
	case models.StepStudentName:
		draft.StudentName = text
		sess.Step = models.StepStudentID
		e.sessions.Set(sess)
		e.send(ctx, u.UserID, models.Message{Text: "Укажите номер студенческого билета:"})

	case models.StepStudentID:
		draft.StudentID = text
		sess.Step = models.StepDepartment
		e.sessions.Set(sess)
		e.send(ctx, u.UserID, models.Message{Text: "Укажите ваш институт или факультет:"})

	case models.StepDepartment:
		draft.Department = text
		sess.Step = models.StepEmail
		e.sessions.Set(sess)
		e.send(ctx, u.UserID, models.Message{Text: "Укажите ваш email для уведомлений:"})

	case models.StepEmail:
		if !models.IsLikelyEmail(text) {
			// Re-prompt without advancing.
			e.send(ctx, u.UserID, models.Message{Text: "Пожалуйста, укажите корректный email (например: name@example.com)"})
			return
		}
		draft.Email = text
		sess.Step = models.StepDescription
		e.sessions.Set(sess)
		e.send(ctx, u.UserID, models.Message{Text: "Кратко опишите, что требуется (или отправьте «-» чтобы пропустить):"})

	case models.StepDescription:
		if text != "-" {
			draft.Description = text
		}
		e.completeApplication(ctx, u, draft)

	default:
		e.sessions.Delete(u.UserID)
	}
}

// completeApplication creates the application and clears the session regardless
// of outcome. A failed creation must be restarted from scratch.
func (e *Engine) completeApplication(ctx context.Context, u models.Update, draft *models.ApplicationDraft) {
	defer e.sessions.Delete(u.UserID)

	userID := draft.UserID
	app := models.Application{
		Type:        draft.Type,
		TypeName:    draft.TypeName,
		StudentName: draft.StudentName,
		StudentID:   draft.StudentID,
		Department:  draft.Department,
		Email:       draft.Email,
		Description: draft.Description,
		UserID:      &userID,
	}
	created, err := e.store.CreateApplication(app)
	if err != nil {
		slog.Error("Engine.completeApplication: creation failed", "error", err, "user_id", userID)
		e.send(ctx, u.UserID, models.Message{Text: "Не удалось создать заявление. Попробуйте позже."})
		return
	}
	slog.Info("Engine.completeApplication: application created", "id", created.ID, "type", created.Type, "user_id", userID)

	e.send(ctx, u.UserID, models.Message{Text: "✅ Заявление №" + strconv.FormatInt(created.ID, 10) + " создано!\n\n" +
		"• Тип: " + created.TypeName + "\n" +
		"• ФИО: " + created.StudentName + "\n" +
		"• Группа: " + created.StudentID + "\n" +
		"• Подразделение: " + created.Department + "\n\n" +
		"Вы получите уведомление, когда статус изменится."})
	e.send(ctx, u.UserID, models.Message{
		Text:     "Чем ещё могу помочь?",
		Keyboard: BuildKeyboard([]string{"Мои заявления", "Расписание", "Мероприятия", "Подать заявление"}),
	})
}

func (e *Engine) handleStatusFlow(ctx context.Context, u models.Update, sess models.Session, text string) {
	switch sess.Step {
	case models.StepAskID:
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			// Re-prompt without clearing the session.
			e.send(ctx, u.UserID, models.Message{Text: "Пожалуйста, введите числовой ID заявления (например: 12)."})
			return
		}
		e.replyWithApplicationStatus(ctx, u.UserID, id)
		e.sessions.Delete(u.UserID)

	case models.StepAskStudentID:
		apps, err := e.store.ListApplicationsByStudentID(text)
		if err != nil {
			slog.Error("Engine.handleStatusFlow: lookup failed", "error", err, "student_id", text)
			e.send(ctx, u.UserID, models.Message{Text: errorReplyText})
		} else if len(apps) == 0 {
			e.send(ctx, u.UserID, models.Message{Text: "Заявления не найдены. Вы можете подать новое через «Подать заявление»."})
		} else {
			e.send(ctx, u.UserID, models.Message{Text: FormatApplicationList(apps), Markdown: true})
		}
		e.sessions.Delete(u.UserID)
		e.send(ctx, u.UserID, models.Message{
			Text:     "Что дальше?",
			Keyboard: BuildKeyboard([]string{"Статус заявления", "Подать заявление", "Помощь"}),
		})

	default:
		e.sessions.Delete(u.UserID)
	}
}

func (e *Engine) replyWithApplicationStatus(ctx context.Context, userID, appID int64) {
	app, err := e.store.GetApplicationByID(appID)
	if err != nil {
		slog.Error("Engine.replyWithApplicationStatus: lookup failed", "error", err, "id", appID)
		e.send(ctx, userID, models.Message{Text: errorReplyText})
		return
	}
	if app == nil {
		e.send(ctx, userID, models.Message{Text: "Заявление не найдено. Проверьте номер и попробуйте снова."})
		return
	}
	e.send(ctx, userID, models.Message{Text: FormatApplication(*app), Markdown: true})
}

func (e *Engine) listOwnApplications(ctx context.Context, u models.Update) {
	user, err := e.auth.FindOrCreateByMessengerID(u.UserID, u.UserName)
	if err != nil {
		slog.Error("Engine.listOwnApplications: failed to resolve user", "error", err, "messenger_id", u.UserID)
		e.send(ctx, u.UserID, models.Message{Text: errorReplyText})
		return
	}
	apps, err := e.store.ListApplicationsByUserID(user.ID)
	if err != nil {
		slog.Error("Engine.listOwnApplications: lookup failed", "error", err, "user_id", user.ID)
		e.send(ctx, u.UserID, models.Message{Text: errorReplyText})
		return
	}
	if len(apps) == 0 {
		e.send(ctx, u.UserID, models.Message{Text: "У вас пока нет заявлений. Вы можете подать новое через «Подать заявление»."})
		return
	}
	e.send(ctx, u.UserID, models.Message{Text: FormatApplicationList(apps), Markdown: true})
}

func (e *Engine) showProfile(ctx context.Context, u models.Update) {
	user, err := e.auth.FindOrCreateByMessengerID(u.UserID, u.UserName)
	if err != nil {
		slog.Error("Engine.showProfile: failed to resolve user", "error", err, "messenger_id", u.UserID)
		e.send(ctx, u.UserID, models.Message{Text: errorReplyText})
		return
	}

	profile, err := e.store.GetStudentProfile(user.ID)
	if err != nil {
		slog.Error("Engine.showProfile: failed to load profile", "error", err, "user_id", user.ID)
		e.send(ctx, u.UserID, models.Message{Text: errorReplyText})
		return
	}
	if profile == nil {
		e.send(ctx, u.UserID, models.Message{
			Text:     FormatProfileMissing(user),
			Markdown: true,
			Keyboard: [][]models.Button{{{Label: "Заполнить профиль", Payload: "Редактировать профиль"}}},
		})
		return
	}

	debts, err := e.store.ListOpenDebts(user.ID)
	if err != nil {
		slog.Error("Engine.showProfile: failed to load debts", "error", err, "user_id", user.ID)
	}
	apps, err := e.store.ListApplicationsByUserID(user.ID)
	if err != nil {
		slog.Error("Engine.showProfile: failed to load applications", "error", err, "user_id", user.ID)
	}

	e.send(ctx, u.UserID, models.Message{
		Text:     FormatProfileCard(user, *profile, debts, apps),
		Markdown: true,
		Keyboard: [][]models.Button{{{Label: "Редактировать", Payload: "Редактировать профиль"}}},
	})
}

func (e *Engine) handleProfileFlow(ctx context.Context, u models.Update, sess models.Session, text string) {
	user, err := e.auth.FindOrCreateByMessengerID(u.UserID, u.UserName)
	if err != nil {
		slog.Error("Engine.handleProfileFlow: failed to resolve user", "error", err, "messenger_id", u.UserID)
		e.send(ctx, u.UserID, models.Message{Text: errorReplyText})
		e.sessions.Delete(u.UserID)
		return
	}

	switch sess.Step {
	case models.StepName:
		if err := e.store.UpdateUserName(user.ID, text); err != nil {
			slog.Error("Engine.handleProfileFlow: failed to update name", "error", err, "user_id", user.ID)
			e.send(ctx, u.UserID, models.Message{Text: errorReplyText})
			e.sessions.Delete(u.UserID)
			return
		}
		groups, err := e.store.ListGroups()
		if err != nil {
			slog.Error("Engine.handleProfileFlow: failed to list groups", "error", err)
			e.send(ctx, u.UserID, models.Message{Text: errorReplyText})
			e.sessions.Delete(u.UserID)
			return
		}
		if len(groups) == 0 {
			e.send(ctx, u.UserID, models.Message{Text: "⚠️ В системе нет групп. Обратитесь к администратору."})
			e.sessions.Delete(u.UserID)
			return
		}
		sess.Step = models.StepGroup
		sess.Profile = &models.ProfileDraft{Name: text, Groups: groups}
		e.sessions.Set(sess)
		e.send(ctx, u.UserID, models.Message{Text: FormatGroupChoices(groups)})

	case models.StepGroup:
		draft := sess.Profile
		if draft == nil {
			e.sessions.Delete(u.UserID)
			return
		}
		idx, err := strconv.Atoi(text)
		if err != nil || idx < 1 || idx > len(draft.Groups) {
			// Re-prompt without clearing the session.
			e.send(ctx, u.UserID, models.Message{Text: "Некорректный номер. Введите число от 1 до " + strconv.Itoa(len(draft.Groups))})
			return
		}
		g := draft.Groups[idx-1]
		if _, err := e.store.UpsertStudentProfile(models.StudentProfile{
			UserID:      user.ID,
			StudyType:   "BACHELOR",
			InstituteID: g.InstituteID,
			DirectionID: g.DirectionID,
			GroupID:     g.ID,
			Course:      g.Course,
		}); err != nil {
			slog.Error("Engine.handleProfileFlow: failed to upsert profile", "error", err, "user_id", user.ID)
			e.send(ctx, u.UserID, models.Message{Text: errorReplyText})
			e.sessions.Delete(u.UserID)
			return
		}
		slog.Info("Engine.handleProfileFlow: profile updated", "user_id", user.ID, "group", g.Name)
		e.sessions.Delete(u.UserID)
		e.send(ctx, u.UserID, models.Message{Text: "✅ Профиль обновлён!\n\n" +
			"Группа: " + g.Name + "\n" +
			"Направление: " + g.DirectionName + "\n" +
			"Курс: " + strconv.Itoa(g.Course)})
		e.send(ctx, u.UserID, models.Message{Text: "Теперь вы можете подавать заявления!", Keyboard: MainKeyboard()})

	default:
		e.sessions.Delete(u.UserID)
	}
}

// send delivers one message, logging and swallowing transport failures so a bad
// recipient never breaks handling for other users.
func (e *Engine) send(ctx context.Context, userID int64, msg models.Message) {
	if err := e.sender.SendMessage(ctx, userID, msg); err != nil {
		slog.Error("Engine.send: failed to deliver message", "error", err, "user_id", userID)
	}
}
