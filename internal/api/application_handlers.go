// Application endpoints: submission, lookup and staff status updates.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BTreeMap/UniDesk/internal/models"
)

type createApplicationRequest struct {
	Type        string `json:"type"`
	StudentName string `json:"studentName"`
	StudentID   string `json:"studentId"`
	Department  string `json:"department"`
	Email       string `json:"email"`
	Description string `json:"description,omitempty"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) applicationTypesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(s.cfg.ApplicationTypes))
}

// createApplicationHandler accepts a web-form submission. When the request
// carries a valid token, the created application is attributed to that account.
func (s *Server) createApplicationHandler(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON body"))
		return
	}

	app := models.Application{
		Type:        req.Type,
		StudentName: req.StudentName,
		StudentID:   req.StudentID,
		Department:  req.Department,
		Email:       req.Email,
		Description: req.Description,
	}
	if err := app.Validate(s.cfg.ApplicationTypes); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if typ, ok := s.cfg.ApplicationType(app.Type); ok {
		app.TypeName = typ.Name
	}
	if claims, ok := claimsFromContext(r.Context()); ok {
		userID := claims.UserID
		app.UserID = &userID
	}

	created, err := s.store.CreateApplication(app)
	if err != nil {
		slog.Error("Server.createApplicationHandler: creation failed", "error", err, "type", app.Type)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create application"))
		return
	}
	slog.Info("Server.createApplicationHandler: application created", "id", created.ID, "type", created.Type)
	writeJSONResponse(w, http.StatusCreated, models.Success(created))
}

func (s *Server) listApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	// Optional filter by the student identifier used in the messenger flow.
	if studentID := r.URL.Query().Get("studentId"); studentID != "" {
		apps, err := s.store.ListApplicationsByStudentID(studentID)
		if err != nil {
			slog.Error("Server.listApplicationsHandler: filtered query failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list applications"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(apps))
		return
	}

	apps, err := s.store.ListApplications()
	if err != nil {
		slog.Error("Server.listApplicationsHandler: query failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list applications"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(apps))
}

// applicationsByStudentHandler lists applications for one student identifier,
// the lookup staff use when a student calls in with their group or card number.
func (s *Server) applicationsByStudentHandler(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("studentId")
	apps, err := s.store.ListApplicationsByStudentID(studentID)
	if err != nil {
		slog.Error("Server.applicationsByStudentHandler: query failed", "error", err, "student_id", studentID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list applications"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(apps))
}

func (s *Server) myApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Authorization token required"))
		return
	}
	apps, err := s.store.ListApplicationsByUserID(claims.UserID)
	if err != nil {
		slog.Error("Server.myApplicationsHandler: query failed", "error", err, "user_id", claims.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list applications"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(apps))
}

func (s *Server) getApplicationHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid application id"))
		return
	}
	app, err := s.store.GetApplicationByID(id)
	if err != nil {
		slog.Error("Server.getApplicationHandler: query failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load application"))
		return
	}
	if app == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Application not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(app))
}

func (s *Server) updateApplicationStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid application id"))
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON body"))
		return
	}
	status := models.ApplicationStatus(req.Status)
	if !models.IsValidApplicationStatus(status) {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unknown status"))
		return
	}

	updated, err := s.store.UpdateApplicationStatus(id, status)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Application not found"))
			return
		}
		slog.Error("Server.updateApplicationStatusHandler: update failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update status"))
		return
	}
	if updated == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Application not found"))
		return
	}
	slog.Info("Server.updateApplicationStatusHandler: status updated", "id", id, "status", status)
	writeJSONResponse(w, http.StatusOK, models.Success(updated))
}
