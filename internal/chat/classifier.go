// Package chat implements the rule-based intent classifier of the university
// chatbot. Classification is a pure function of the incoming text and the static
// university catalog: ordered, first-match-wins substring matching over fixed
// keyword sets.
package chat

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/UniDesk/internal/config"
	"github.com/BTreeMap/UniDesk/internal/models"
)

// Intent is a classified category of free-form user input.
type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentHelp        Intent = "help"
	IntentSchedule    Intent = "schedule"
	IntentEvents      Intent = "events"
	IntentApplication Intent = "application"
	IntentContact     Intent = "contact"
	IntentUnknown     Intent = "unknown"
)

var greetingKeywords = []string{"привет", "здравствуй", "добрый день", "добрый вечер", "доброе утро", "hi", "hello"}

// DefaultSuggestions is the standard suggestion menu attached to most canned
// responses.
var DefaultSuggestions = []string{"Расписание", "Мероприятия", "Подать заявление", "Помощь"}

// Classify maps free-form text to an intent. Matching is case-insensitive and
// ordered; empty or whitespace-only text falls through to IntentUnknown.
func Classify(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))

	for _, g := range greetingKeywords {
		if strings.Contains(lower, g) {
			return IntentGreeting
		}
	}
	switch {
	case containsAny(lower, "помощь", "help"):
		return IntentHelp
	case strings.Contains(lower, "расписание"):
		return IntentSchedule
	case containsAny(lower, "мероприятия", "события"):
		return IntentEvents
	case containsAny(lower, "заявление", "заявка"):
		return IntentApplication
	case containsAny(lower, "контакт", "связь", "поддержка"):
		return IntentContact
	default:
		return IntentUnknown
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// Respond produces the canned response for a message. It has no side effects;
// intents that need live data (events) only tag the response with an action for
// the caller to fulfil.
func Respond(cfg *config.Config, text string) models.ChatResponse {
	switch Classify(text) {
	case IntentGreeting:
		return models.ChatResponse{
			Text:        cfg.WelcomeMessage,
			Suggestions: DefaultSuggestions,
		}
	case IntentHelp:
		return models.ChatResponse{
			Text:        "Доступные команды:",
			Commands:    cfg.ChatCommands,
			Suggestions: DefaultSuggestions,
		}
	case IntentSchedule:
		return models.ChatResponse{
			Text:        "Для получения расписания, пожалуйста, укажите:\n- Группу или курс\n- День недели (или \"на неделю\")",
			Action:      "schedule",
			Suggestions: []string{"Расписание на неделю", "Расписание на завтра"},
		}
	case IntentEvents:
		return models.ChatResponse{
			Text:        "Показываю предстоящие мероприятия...",
			Action:      "events",
			Suggestions: []string{"Все мероприятия", "Мероприятия на этой неделе"},
		}
	case IntentApplication:
		suggestions := make([]string, 0, len(cfg.ApplicationTypes))
		for _, t := range cfg.ApplicationTypes {
			suggestions = append(suggestions, t.Name)
		}
		return models.ChatResponse{
			Text:             "Какое заявление вы хотите подать?",
			Action:           "applications",
			ApplicationTypes: cfg.ApplicationTypes,
			Suggestions:      suggestions,
		}
	case IntentContact:
		return models.ChatResponse{
			Text:        fmt.Sprintf("Контактная информация:\n📧 Email: %s\n📞 Телефон: %s", cfg.SupportEmail, cfg.SupportPhone),
			Suggestions: DefaultSuggestions,
		}
	default:
		return models.ChatResponse{
			Text:        "Извините, я не совсем понял ваш вопрос. Попробуйте использовать одну из предложенных команд или напишите \"помощь\".",
			Suggestions: DefaultSuggestions,
		}
	}
}
