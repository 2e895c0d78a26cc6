// Read-mostly data endpoints: schedule, events and the chat classifier.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BTreeMap/UniDesk/internal/chat"
	"github.com/BTreeMap/UniDesk/internal/models"
)

// defaultChatEvents caps how many events the chat endpoint attaches to an
// events-intent response.
const defaultChatEvents = 5

func (s *Server) scheduleHandler(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	if group == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("group query parameter is required"))
		return
	}
	day := r.URL.Query().Get("day")

	schedule, err := s.store.GetSchedule(group, day)
	if err != nil {
		slog.Error("Server.scheduleHandler: query failed", "error", err, "group", group)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load schedule"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(schedule))
}

func (s *Server) scheduleGroupsHandler(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListScheduleGroups()
	if err != nil {
		slog.Error("Server.scheduleGroupsHandler: query failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load schedule groups"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(groups))
}

func (s *Server) listEventsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if category := query.Get("category"); category != "" {
		events, err := s.store.ListEventsByCategory(category)
		if err != nil {
			slog.Error("Server.listEventsHandler: category query failed", "error", err, "category", category)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load events"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(events))
		return
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid limit"))
			return
		}
		events, err := s.store.ListUpcomingEvents(limit)
		if err != nil {
			slog.Error("Server.listEventsHandler: upcoming query failed", "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load events"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(events))
		return
	}

	events, err := s.store.ListEvents()
	if err != nil {
		slog.Error("Server.listEventsHandler: query failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load events"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(events))
}

func (s *Server) getEventHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid event id"))
		return
	}
	event, err := s.store.GetEventByID(id)
	if err != nil {
		slog.Error("Server.getEventHandler: query failed", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load event"))
		return
	}
	if event == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Event not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(event))
}

type chatRequest struct {
	Message string `json:"message"`
}

// chatInfoHandler exposes the static chat metadata the web widget renders before
// the first message: commands, application types and support contacts.
func (s *Server) chatInfoHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(struct {
		UniversityName   string                   `json:"universityName"`
		SupportEmail     string                   `json:"supportEmail"`
		SupportPhone     string                   `json:"supportPhone"`
		Commands         []models.ChatCommand     `json:"commands"`
		ApplicationTypes []models.ApplicationType `json:"applicationTypes"`
	}{
		UniversityName:   s.cfg.UniversityName,
		SupportEmail:     s.cfg.SupportEmail,
		SupportPhone:     s.cfg.SupportPhone,
		Commands:         s.cfg.ChatCommands,
		ApplicationTypes: s.cfg.ApplicationTypes,
	}))
}

// chatHandler classifies a message and returns the canned response, fulfilling
// the events action inline so web clients get the same digest as the bot.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON body"))
		return
	}

	resp := chat.Respond(s.cfg, req.Message)
	if resp.Action == "events" {
		events, err := s.store.ListUpcomingEvents(defaultChatEvents)
		if err != nil {
			slog.Error("Server.chatHandler: failed to load events", "error", err)
		} else {
			resp.Events = events
		}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}
