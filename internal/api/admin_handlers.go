// Staff and admin endpoints: account listings and the analytics dashboard.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/BTreeMap/UniDesk/internal/models"
)

// createUserHandler lets staff create accounts directly, e.g. for colleagues who
// never self-register. Unlike register it returns no token.
func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
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
		slog.Error("Server.createUserHandler: creation failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create user"))
		return
	}
	slog.Info("Server.createUserHandler: user created", "user_id", user.ID, "role", user.Role)
	writeJSONResponse(w, http.StatusCreated, models.Success(user))
}

func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers()
	if err != nil {
		slog.Error("Server.listUsersHandler: query failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list users"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(users))
}

func (s *Server) listStudentsHandler(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.store.ListStudentProfiles()
	if err != nil {
		slog.Error("Server.listStudentsHandler: query failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list students"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profiles))
}

// dashboardStats is the analytics dashboard payload.
type dashboardStats struct {
	Users              int                  `json:"users"`
	Students           int                  `json:"students"`
	Events             int                  `json:"events"`
	Applications       map[string]int       `json:"applications"`
	ApplicationsByType map[string]int       `json:"applicationsByType"`
	RecentApplications []models.Application `json:"recentApplications"`
	GroupSizes         map[string]int       `json:"groupSizes"`
}

// recentApplicationsLimit caps the dashboard's latest-submissions list.
const recentApplicationsLimit = 5

// dashboardHandler aggregates counters over the store. At the scale of a single
// university the lists are small enough to aggregate in memory.
func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers()
	if err != nil {
		slog.Error("Server.dashboardHandler: users query failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to build dashboard"))
		return
	}
	profiles, err := s.store.ListStudentProfiles()
	if err != nil {
		slog.Error("Server.dashboardHandler: profiles query failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to build dashboard"))
		return
	}
	events, err := s.store.ListEvents()
	if err != nil {
		slog.Error("Server.dashboardHandler: events query failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to build dashboard"))
		return
	}
	apps, err := s.store.ListApplications()
	if err != nil {
		slog.Error("Server.dashboardHandler: applications query failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to build dashboard"))
		return
	}

	appStats := map[string]int{"total": len(apps)}
	byType := make(map[string]int)
	for _, a := range apps {
		appStats[string(a.Status)]++
		byType[a.Type]++
	}

	recent := make([]models.Application, len(apps))
	copy(recent, apps)
	sort.Slice(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	if len(recent) > recentApplicationsLimit {
		recent = recent[:recentApplicationsLimit]
	}

	groupSizes := make(map[string]int)
	for _, p := range profiles {
		if p.GroupName != "" {
			groupSizes[p.GroupName]++
		}
	}

	writeJSONResponse(w, http.StatusOK, models.Success(dashboardStats{
		Users:              len(users),
		Students:           len(profiles),
		Events:             len(events),
		Applications:       appStats,
		ApplicationsByType: byType,
		RecentApplications: recent,
		GroupSizes:         groupSizes,
	}))
}
