// Authentication endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/UniDesk/internal/models"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResult is the payload returned by register and login.
type authResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON body"))
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("email, password and name are required"))
		return
	}
	if !models.IsLikelyEmail(req.Email) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid email"))
		return
	}

	user, err := s.auth.Register(req.Email, req.Password, req.Name, models.ParseRole(req.Role))
	if err != nil {
		if errors.Is(err, models.ErrUserExists) {
			writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
			return
		}
		slog.Error("Server.registerHandler: registration failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to register"))
		return
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		slog.Error("Server.registerHandler: token generation failed", "error", err, "user_id", user.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to issue token"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(authResult{Token: token, User: user}))
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON body"))
		return
	}

	user, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			writeJSONResponse(w, http.StatusUnauthorized, models.Error(err.Error()))
			return
		}
		slog.Error("Server.loginHandler: login failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to log in"))
		return
	}

	token, err := s.auth.GenerateToken(user)
	if err != nil {
		slog.Error("Server.loginHandler: token generation failed", "error", err, "user_id", user.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to issue token"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(authResult{Token: token, User: user}))
}

type linkMaxRequest struct {
	MessengerID int64 `json:"messengerId"`
}

// linkMaxHandler attaches a messenger id to the authenticated account so the bot
// and the web profile resolve to the same user.
func (s *Server) linkMaxHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Authorization token required"))
		return
	}

	var req linkMaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON body"))
		return
	}
	if req.MessengerID == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("messengerId is required"))
		return
	}

	user, err := s.auth.LinkMessengerID(claims.UserID, req.MessengerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Account not found"))
			return
		}
		slog.Error("Server.linkMaxHandler: link failed", "error", err, "user_id", claims.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to link messenger account"))
		return
	}
	slog.Info("Server.linkMaxHandler: messenger linked", "user_id", user.ID, "messenger_id", req.MessengerID)
	writeJSONResponse(w, http.StatusOK, models.Success(user))
}

// meHandler returns the authenticated account together with its student profile
// when one exists.
func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Authorization token required"))
		return
	}

	user, err := s.auth.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Account not found"))
			return
		}
		slog.Error("Server.meHandler: lookup failed", "error", err, "user_id", claims.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load account"))
		return
	}

	profile, err := s.store.GetStudentProfile(user.ID)
	if err != nil {
		slog.Error("Server.meHandler: profile lookup failed", "error", err, "user_id", user.ID)
	}

	writeJSONResponse(w, http.StatusOK, models.Success(struct {
		User    models.User            `json:"user"`
		Profile *models.StudentProfile `json:"profile,omitempty"`
	}{User: user, Profile: profile}))
}
