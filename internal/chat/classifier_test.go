package chat

import (
	"testing"

	"github.com/BTreeMap/UniDesk/internal/config"
)

func TestClassifyOrdering(t *testing.T) {
	cases := []struct {
		text string
		want Intent
	}{
		{"Привет", IntentGreeting},
		{"добрый день!", IntentGreeting},
		{"hello there", IntentGreeting},
		{"помощь", IntentHelp},
		{"мне нужна помощь", IntentHelp},
		{"расписание на завтра", IntentSchedule},
		{"какие мероприятия будут?", IntentEvents},
		{"события недели", IntentEvents},
		{"хочу подать заявление", IntentApplication},
		{"заявка на справку", IntentApplication},
		{"контакт деканата", IntentContact},
		{"как с вами выйти на связь", IntentContact},
		{"что-то непонятное", IntentUnknown},
		{"", IntentUnknown},
		{"   ", IntentUnknown},
	}
	for _, c := range cases {
		if got := Classify(c.text); got != c.want {
			t.Errorf("Classify(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

// Greeting keywords win over later categories when both appear.
func TestClassifyGreetingPrecedence(t *testing.T) {
	if got := Classify("привет, покажи расписание"); got != IntentGreeting {
		t.Errorf("Classify = %v, want %v", got, IntentGreeting)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	first := Classify("расписание и мероприятия")
	for i := 0; i < 100; i++ {
		if got := Classify("расписание и мероприятия"); got != first {
			t.Fatalf("Classify not deterministic: got %v, want %v", got, first)
		}
	}
}

func TestRespondGreeting(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default failed: %v", err)
	}
	resp := Respond(cfg, "Привет")
	if resp.Text != cfg.WelcomeMessage {
		t.Errorf("greeting text = %q, want welcome message", resp.Text)
	}
	want := []string{"Расписание", "Мероприятия", "Подать заявление", "Помощь"}
	if len(resp.Suggestions) != len(want) {
		t.Fatalf("suggestions = %v, want %v", resp.Suggestions, want)
	}
	for i := range want {
		if resp.Suggestions[i] != want[i] {
			t.Errorf("suggestion[%d] = %q, want %q", i, resp.Suggestions[i], want[i])
		}
	}
}

func TestRespondUnknownNeverErrors(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default failed: %v", err)
	}
	resp := Respond(cfg, "абракадабра")
	if resp.Text == "" {
		t.Error("unknown intent produced empty response")
	}
	if len(resp.Suggestions) == 0 {
		t.Error("unknown intent response missing suggestion menu")
	}
}

func TestRespondApplicationCatalog(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default failed: %v", err)
	}
	resp := Respond(cfg, "подать заявление")
	if len(resp.ApplicationTypes) != len(cfg.ApplicationTypes) {
		t.Errorf("application types = %d, want %d", len(resp.ApplicationTypes), len(cfg.ApplicationTypes))
	}
	if len(resp.Suggestions) != len(cfg.ApplicationTypes) {
		t.Errorf("suggestions = %d, want one per type", len(resp.Suggestions))
	}
}

func TestRespondEventsTagsAction(t *testing.T) {
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("config.Default failed: %v", err)
	}
	resp := Respond(cfg, "мероприятия")
	if resp.Action != "events" {
		t.Errorf("action = %q, want %q", resp.Action, "events")
	}
	if len(resp.Events) != 0 {
		t.Error("classifier must not fetch events itself")
	}
}
