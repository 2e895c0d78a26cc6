// Message formatting helpers for the chatbot. All user-facing texts live here so
// the engine deals in flow logic only.
package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/BTreeMap/UniDesk/internal/models"
)

// Campus timezone offset applied when rendering stored UTC timestamps.
const moscowOffset = 3 * time.Hour

// WelcomeText is the /start greeting.
const WelcomeText = "👋 **Добро пожаловать в чат-бот университета!**\n\n" +
	"Я ваш персональный помощник, который поможет вам с:\n\n" +
	"📅 **Расписанием занятий** — узнайте когда и где проходят пары\n" +
	"🎯 **Мероприятиями** — не пропустите важные события\n" +
	"📝 **Заявлениями** — быстрая подача и отслеживание статуса\n" +
	"👤 **Профилем** — сохраните данные для упрощённой работы\n" +
	"❓ **Помощью** — получите ответы на вопросы\n\n" +
	"💡 Все даты и время указаны в московском часовом поясе (МСК, UTC+3)\n\n" +
	"✨ Выберите действие на клавиатуре ниже:"

// keyboardRowSize caps how many suggestion buttons go on one keyboard row.
const keyboardRowSize = 3

// BuildKeyboard lays out suggestion buttons three per row. Label and payload are
// identical, so pressing a button is equivalent to typing its text.
func BuildKeyboard(suggestions []string) [][]models.Button {
	var rows [][]models.Button
	for i := 0; i < len(suggestions); i += keyboardRowSize {
		end := i + keyboardRowSize
		if end > len(suggestions) {
			end = len(suggestions)
		}
		row := make([]models.Button, 0, end-i)
		for _, s := range suggestions[i:end] {
			row = append(row, models.Button{Label: s, Payload: s})
		}
		rows = append(rows, row)
	}
	return rows
}

// MainKeyboard is the persistent menu attached to the /start greeting.
func MainKeyboard() [][]models.Button {
	return [][]models.Button{
		{
			{Label: "📅 Расписание", Payload: "Расписание"},
			{Label: "🎯 Мероприятия", Payload: "Мероприятия"},
			{Label: "📝 Заявления", Payload: "Подать заявление"},
		},
		{
			{Label: "👤 Мой профиль", Payload: "Мой профиль"},
			{Label: "❓ Помощь", Payload: "Помощь"},
		},
	}
}

var statusLabels = map[models.ApplicationStatus]string{
	models.ApplicationStatusPending:    "🕐 В обработке",
	models.ApplicationStatusApproved:   "✅ Одобрено",
	models.ApplicationStatusRejected:   "❌ Отклонено",
	models.ApplicationStatusProcessing: "⚙️ В работе",
}

var statusEmoji = map[models.ApplicationStatus]string{
	models.ApplicationStatusPending:    "🕐",
	models.ApplicationStatusApproved:   "✅",
	models.ApplicationStatusRejected:   "❌",
	models.ApplicationStatusProcessing: "⚙️",
}

func statusLabel(s models.ApplicationStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

var ruMonths = []string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// mskDate renders a stored UTC date as "02 января" in campus time.
func mskDate(t time.Time) string {
	local := t.UTC().Add(moscowOffset)
	return fmt.Sprintf("%02d %s", local.Day(), ruMonths[local.Month()-1])
}

// mskDateTime renders a stored UTC timestamp as "02.01.2006, 15:04:05" in campus time.
func mskDateTime(t time.Time) string {
	return t.UTC().Add(moscowOffset).Format("02.01.2006, 15:04:05")
}

// FormatEvents renders the upcoming events digest.
func FormatEvents(events []models.Event) string {
	var b strings.Builder
	b.WriteString("🎯 *Предстоящие мероприятия:*\n")
	for i, e := range events {
		fmt.Fprintf(&b, "\n%d. 📌 **%s**", i+1, e.Title)
		fmt.Fprintf(&b, "\n   📝 %s", e.Description)
		fmt.Fprintf(&b, "\n   📍 %s", e.Location)
		fmt.Fprintf(&b, "\n   🕐 %s в %s (МСК)", mskDate(e.Date), e.Time)
	}
	return b.String()
}

// FormatApplicationTypes renders the application type catalog together with
// quick-submit buttons for the first three types.
func FormatApplicationTypes(types []models.ApplicationType) (string, [][]models.Button) {
	var b strings.Builder
	b.WriteString("📄 *Доступные типы заявлений:*\n\n")
	for i, t := range types {
		fmt.Fprintf(&b, "%d. **%s**\n   %s\n\n", i+1, t.Name, t.Description)
	}

	n := len(types)
	if n > keyboardRowSize {
		n = keyboardRowSize
	}
	row := make([]models.Button, 0, n)
	for _, t := range types[:n] {
		row = append(row, models.Button{Label: t.Name, Payload: "Подать " + t.Name})
	}
	return b.String(), [][]models.Button{row}
}

// FormatCommands renders the chatbot help menu.
func FormatCommands(commands []models.ChatCommand) string {
	var b strings.Builder
	b.WriteString("📋 *Доступные команды:*\n\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "**%s** — %s\n", c.Command, c.Description)
	}
	return b.String()
}

// FormatApplication renders the detail card of a single application.
func FormatApplication(a models.Application) string {
	lines := []string{
		fmt.Sprintf("📝 *Заявление №%d*\n", a.ID),
		"Статус: " + statusLabel(a.Status),
		"Тип: " + a.TypeName,
		"ФИО: " + a.StudentName,
		"Группа: " + a.StudentID,
	}
	if a.Department != "" {
		lines = append(lines, "Подразделение: "+a.Department)
	}
	if a.Description != "" {
		lines = append(lines, "\n💬 Описание: "+a.Description)
	}
	lines = append(lines, "\n📅 Создано: "+mskDateTime(a.CreatedAt))
	return strings.Join(lines, "\n")
}

// FormatApplicationList renders a compact list with per-status emoji.
func FormatApplicationList(list []models.Application) string {
	var b strings.Builder
	b.WriteString("📄 *Ваши заявления:*\n")
	for _, a := range list {
		emoji, ok := statusEmoji[a.Status]
		if !ok {
			emoji = "📋"
		}
		fmt.Fprintf(&b, "\n%s №%d: %s", emoji, a.ID, a.TypeName)
	}
	b.WriteString("\n\n💡 Для подробностей: Статус заявления <ID>\n(например: Статус заявления 12)")
	return b.String()
}

// FormatGroupChoices renders the numbered group list presented during profile
// editing. The group step resolves a 1-based index against this exact list.
func FormatGroupChoices(groups []models.Group) string {
	var b strings.Builder
	b.WriteString("📚 Выберите вашу группу:\n\n")
	for i, g := range groups {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, g.Name, g.DirectionName)
	}
	b.WriteString("\nВведите номер группы (например: 1)")
	return b.String()
}

// FormatProfileCard renders the full profile view with academic info, open debts
// and application statistics.
func FormatProfileCard(user models.User, profile models.StudentProfile, debts []models.AcademicDebt, apps []models.Application) string {
	orDefault := func(s, def string) string {
		if s == "" {
			return def
		}
		return s
	}

	lines := []string{
		"👤 *Ваш профиль*\n",
		"ФИО: " + user.Name,
		"Email: " + user.Email,
		"\n🎓 *Учебная информация:*",
		"Институт: " + orDefault(profile.InstituteName, "не указан"),
		"Направление: " + orDefault(profile.DirectionName, "не указано"),
		"Группа: " + orDefault(profile.GroupName, "не указана"),
	}
	if profile.Course > 0 {
		lines = append(lines, fmt.Sprintf("Курс: %d", profile.Course))
	} else {
		lines = append(lines, "Курс: не указан")
	}

	if len(debts) > 0 {
		lines = append(lines, "\n⚠️ *Академические долги:*")
		for _, d := range debts {
			line := "• " + d.Subject
			if d.Description != "" {
				line += " — " + d.Description
			}
			lines = append(lines, line)
		}
	}

	if len(apps) > 0 {
		var pending, approved, rejected int
		for _, a := range apps {
			switch a.Status {
			case models.ApplicationStatusPending:
				pending++
			case models.ApplicationStatusApproved:
				approved++
			case models.ApplicationStatusRejected:
				rejected++
			}
		}
		lines = append(lines, "\n📊 *Статистика заявлений:*", fmt.Sprintf("Всего: %d", len(apps)))
		if pending > 0 {
			lines = append(lines, fmt.Sprintf("🕐 В обработке: %d", pending))
		}
		if approved > 0 {
			lines = append(lines, fmt.Sprintf("✅ Одобрено: %d", approved))
		}
		if rejected > 0 {
			lines = append(lines, fmt.Sprintf("❌ Отклонено: %d", rejected))
		}
	}
	return strings.Join(lines, "\n")
}

// FormatProfileMissing renders the profile view for accounts without a completed
// student profile.
func FormatProfileMissing(user models.User) string {
	return "👤 *Ваш профиль*\n\n" +
		"ФИО: " + user.Name + "\n" +
		"Email: " + user.Email + "\n\n" +
		"⚠️ Профиль студента не заполнен.\nЗаполните его для упрощённой подачи заявлений."
}

// RenderChatResponse turns a classifier response into transport messages:
// the text with its suggestion keyboard first, then any structured payloads.
func RenderChatResponse(resp models.ChatResponse) []models.Message {
	var out []models.Message
	if resp.Text != "" {
		msg := models.Message{Text: resp.Text}
		if len(resp.Suggestions) > 0 {
			msg.Keyboard = BuildKeyboard(resp.Suggestions)
		}
		out = append(out, msg)
	}
	if resp.Action == "events" && len(resp.Events) > 0 {
		out = append(out, models.Message{Text: FormatEvents(resp.Events), Markdown: true})
	}
	if len(resp.ApplicationTypes) > 0 {
		text, keyboard := FormatApplicationTypes(resp.ApplicationTypes)
		out = append(out, models.Message{Text: text, Markdown: true, Keyboard: keyboard})
	}
	if len(resp.Commands) > 0 {
		out = append(out, models.Message{Text: FormatCommands(resp.Commands), Markdown: true})
	}
	return out
}
