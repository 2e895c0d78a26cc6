// Package auth implements account registration, login and JWT token handling
// for the UniDesk API and messenger bot.
package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/BTreeMap/UniDesk/internal/models"
	"github.com/BTreeMap/UniDesk/internal/store"
)

// Constants for auth service configuration
const (
	// DefaultTokenTTL is the default lifetime of issued JWT tokens
	DefaultTokenTTL = 7 * 24 * time.Hour
	// bcryptCost is the work factor used when hashing passwords
	bcryptCost = 10
)

// Claims is the JWT payload carried by issued tokens.
type Claims struct {
	UserID      int64       `json:"id"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	MessengerID *int64      `json:"messengerId,omitempty"`
	jwt.RegisteredClaims
}

// Service provides account and token operations on top of a Store.
type Service struct {
	store    store.Store
	secret   []byte
	tokenTTL time.Duration
}

// NewService creates an auth service. The secret signs and verifies tokens and
// must not be empty.
func NewService(st store.Store, secret string, tokenTTL time.Duration) (*Service, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret not set")
	}
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Service{store: st, secret: []byte(secret), tokenTTL: tokenTTL}, nil
}

// Register creates a new account with a hashed password. The role defaults to
// STUDENT when unknown.
func (s *Service) Register(email, password, name string, role models.Role) (models.User, error) {
	existing, err := s.store.GetUserByEmail(email)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		slog.Debug("Auth.Register: email already taken", "email", email)
		return models.User{}, models.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	if !models.IsValidRole(role) {
		role = models.RoleStudent
	}

	user, err := s.store.CreateUser(models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	slog.Info("Auth.Register: account created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login checks credentials and returns the matching user.
// Wrong email and wrong password are indistinguishable to the caller.
func (s *Service) Login(email, password string) (models.User, error) {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return models.User{}, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Debug("Auth.Login: password mismatch", "user_id", user.ID)
		return models.User{}, models.ErrInvalidCredentials
	}
	return *user, nil
}

// GenerateToken issues a signed HS256 token for the user.
func (s *Service) GenerateToken(user models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		MessengerID: user.MessengerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			Subject:   fmt.Sprintf("%d", user.ID),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a token string and returns its claims.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// GetUserByID loads a user by id, returning ErrNotFound when missing.
func (s *Service) GetUserByID(id int64) (models.User, error) {
	user, err := s.store.GetUserByID(id)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return models.User{}, models.ErrNotFound
	}
	return *user, nil
}

// FindOrCreateByMessengerID resolves the account linked to a messenger user,
// creating a placeholder student account on first contact. The placeholder
// email is synthesized from the messenger id and carries no usable password.
func (s *Service) FindOrCreateByMessengerID(messengerID int64, displayName string) (models.User, error) {
	user, err := s.store.GetUserByMessengerID(messengerID)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to look up messenger user: %w", err)
	}
	if user != nil {
		return *user, nil
	}

	if displayName == "" {
		displayName = fmt.Sprintf("Пользователь %d", messengerID)
	}
	created, err := s.store.CreateUser(models.User{
		Email:        fmt.Sprintf("messenger-%d@bot.local", messengerID),
		Name:         displayName,
		PasswordHash: "!", // no password login for bot-created accounts
		Role:         models.RoleStudent,
		MessengerID:  &messengerID,
	})
	if err != nil {
		return models.User{}, fmt.Errorf("failed to create messenger user: %w", err)
	}
	slog.Info("Auth.FindOrCreateByMessengerID: account created from messenger", "user_id", created.ID, "messenger_id", messengerID)
	return created, nil
}

// LinkMessengerID attaches a messenger id to an existing account.
func (s *Service) LinkMessengerID(userID, messengerID int64) (models.User, error) {
	user, err := s.store.LinkMessengerID(userID, messengerID)
	if err != nil {
		return models.User{}, err
	}
	return *user, nil
}
