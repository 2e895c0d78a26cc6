package models

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	cases := []struct {
		in   string
		want Role
	}{
		{"ADMIN", RoleAdmin},
		{"admin", RoleAdmin},
		{" staff ", RoleStaff},
		{"TEACHER", RoleTeacher},
		{"", RoleStudent},
		{"WIZARD", RoleStudent},
	}
	for _, c := range cases {
		if got := ParseRole(c.in); got != c.want {
			t.Errorf("ParseRole(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsLikelyEmail(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"ivanov@mail.ru", true},
		{"a@b.co", true},
		{"name@sub.domain.org", true},
		{"ivanov@mail", false},
		{"ivanov@mail.", false},
		{"@mail.ru", false},
		{"ivanov.mail.ru", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsLikelyEmail(c.in); got != c.want {
			t.Errorf("IsLikelyEmail(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestApplicationValidate(t *testing.T) {
	catalog := []ApplicationType{{ID: "certificate", Name: "Справка"}}

	valid := Application{Type: "certificate", StudentName: "Иванов", StudentID: "20221234", Email: "a@b.co"}
	if err := valid.Validate(catalog); err != nil {
		t.Errorf("valid application rejected: %v", err)
	}

	missing := Application{Type: "certificate", Email: "a@b.co"}
	if err := missing.Validate(catalog); !errors.Is(err, ErrMissingRequiredFields) {
		t.Errorf("missing fields = %v, want ErrMissingRequiredFields", err)
	}

	badEmail := valid
	badEmail.Email = "a@b"
	if err := badEmail.Validate(catalog); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("bad email = %v, want ErrInvalidEmail", err)
	}

	badType := valid
	badType.Type = "vanished"
	if err := badType.Validate(catalog); !errors.Is(err, ErrInvalidApplicationType) {
		t.Errorf("unknown type = %v, want ErrInvalidApplicationType", err)
	}
}

func TestProfileComplete(t *testing.T) {
	var nilProfile *StudentProfile
	if nilProfile.Complete() {
		t.Error("nil profile reported complete")
	}
	if (&StudentProfile{UserID: 1}).Complete() {
		t.Error("profile without a group reported complete")
	}
	if !(&StudentProfile{UserID: 1, GroupID: 7}).Complete() {
		t.Error("profile with a group reported incomplete")
	}
}
