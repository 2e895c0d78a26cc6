package util

import (
	"testing"
	"time"
)

func TestParseBoolEnv(t *testing.T) {
	cases := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"", false, false},
		{"true", false, true},
		{"YES", false, true},
		{"1", false, true},
		{"off", true, false},
		{"0", true, false},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, c := range cases {
		t.Setenv("UNIDESK_TEST_BOOL", c.value)
		if got := ParseBoolEnv("UNIDESK_TEST_BOOL", c.def); got != c.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", c.value, c.def, got, c.want)
		}
	}
}

func TestParseDurationEnv(t *testing.T) {
	cases := []struct {
		value string
		want  time.Duration
	}{
		{"", 30 * time.Minute},
		{"45m", 45 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"soon", 30 * time.Minute},
		{"15", 30 * time.Minute},
	}
	for _, c := range cases {
		t.Setenv("UNIDESK_TEST_DURATION", c.value)
		if got := ParseDurationEnv("UNIDESK_TEST_DURATION", 30*time.Minute); got != c.want {
			t.Errorf("ParseDurationEnv(%q) = %v, want %v", c.value, got, c.want)
		}
	}
}
