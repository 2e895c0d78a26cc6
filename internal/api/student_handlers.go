// Student profile endpoints for the web account area.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/UniDesk/internal/models"
)

type updateProfileRequest struct {
	Name        string `json:"name,omitempty"`
	StudyType   string `json:"studyType,omitempty"`
	InstituteID int64  `json:"instituteId,omitempty"`
	DirectionID int64  `json:"directionId,omitempty"`
	GroupID     int64  `json:"groupId,omitempty"`
	Course      int    `json:"course,omitempty"`
	Paid        bool   `json:"paid,omitempty"`
}

func (s *Server) myProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Authorization token required"))
		return
	}
	profile, err := s.store.GetStudentProfile(claims.UserID)
	if err != nil {
		slog.Error("Server.myProfileHandler: lookup failed", "error", err, "user_id", claims.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load profile"))
		return
	}
	if profile == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Profile not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}

// updateMyProfileHandler upserts the caller's student profile. A name field also
// renames the account, mirroring the bot's profile flow.
func (s *Server) updateMyProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeJSONResponse(w, http.StatusUnauthorized, models.Error("Authorization token required"))
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON body"))
		return
	}

	if req.Name != "" {
		if err := s.store.UpdateUserName(claims.UserID, req.Name); err != nil {
			slog.Error("Server.updateMyProfileHandler: rename failed", "error", err, "user_id", claims.UserID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update profile"))
			return
		}
	}

	profile, err := s.store.UpsertStudentProfile(models.StudentProfile{
		UserID:      claims.UserID,
		StudyType:   req.StudyType,
		InstituteID: req.InstituteID,
		DirectionID: req.DirectionID,
		GroupID:     req.GroupID,
		Course:      req.Course,
		Paid:        req.Paid,
	})
	if err != nil {
		slog.Error("Server.updateMyProfileHandler: upsert failed", "error", err, "user_id", claims.UserID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update profile"))
		return
	}
	slog.Info("Server.updateMyProfileHandler: profile updated", "user_id", claims.UserID, "group_id", profile.GroupID)
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}
