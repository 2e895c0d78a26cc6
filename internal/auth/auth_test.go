package auth

import (
	"errors"
	"testing"

	"github.com/BTreeMap/UniDesk/internal/models"
	"github.com/BTreeMap/UniDesk/internal/store"
)

func newService(t *testing.T) (*Service, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	svc, err := NewService(st, "test-secret", 0)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc, st
}

func TestNewServiceRequiresSecret(t *testing.T) {
	if _, err := NewService(store.NewInMemoryStore(), "", 0); err == nil {
		t.Fatal("NewService accepted an empty secret")
	}
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	svc, _ := newService(t)

	user, err := svc.Register("ivanov@mail.ru", "secret123", "Иванов", models.RoleStudent)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.PasswordHash == "secret123" {
		t.Error("password stored in plain text")
	}

	if _, err := svc.Register("ivanov@mail.ru", "other", "Двойник", models.RoleStudent); !errors.Is(err, models.ErrUserExists) {
		t.Errorf("duplicate register = %v, want ErrUserExists", err)
	}

	logged, err := svc.Login("ivanov@mail.ru", "secret123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if logged.ID != user.ID {
		t.Errorf("login user id = %d, want %d", logged.ID, user.ID)
	}

	if _, err := svc.Login("ivanov@mail.ru", "wrong"); !errors.Is(err, models.ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login("nobody@mail.ru", "secret123"); !errors.Is(err, models.ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterUnknownRoleDefaultsToStudent(t *testing.T) {
	svc, _ := newService(t)
	user, err := svc.Register("a@b.co", "pw", "A", models.Role("WIZARD"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Role != models.RoleStudent {
		t.Errorf("role = %q, want STUDENT", user.Role)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc, _ := newService(t)
	user, err := svc.Register("admin@uni.ru", "pw", "Admin", models.RoleAdmin)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	token, err := svc.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email || claims.Role != models.RoleAdmin {
		t.Errorf("claims = %+v, do not match user", claims)
	}

	if _, err := svc.VerifyToken(token + "x"); err == nil {
		t.Error("tampered token accepted")
	}

	other, err := NewService(store.NewInMemoryStore(), "different-secret", 0)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if _, err := other.VerifyToken(token); err == nil {
		t.Error("token signed with another secret accepted")
	}
}

func TestFindOrCreateByMessengerID(t *testing.T) {
	svc, st := newService(t)

	first, err := svc.FindOrCreateByMessengerID(42, "Тест")
	if err != nil {
		t.Fatalf("FindOrCreateByMessengerID failed: %v", err)
	}
	if first.MessengerID == nil || *first.MessengerID != 42 {
		t.Errorf("messenger id = %v, want 42", first.MessengerID)
	}
	if first.Role != models.RoleStudent {
		t.Errorf("role = %q, want STUDENT", first.Role)
	}

	second, err := svc.FindOrCreateByMessengerID(42, "Другое имя")
	if err != nil {
		t.Fatalf("second FindOrCreateByMessengerID failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("repeat call created a new account: %d vs %d", second.ID, first.ID)
	}

	users, err := st.ListUsers()
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("users = %d, want 1", len(users))
	}
}
