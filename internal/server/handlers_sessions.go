package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/314clay/claude-dashboard/internal/model"
)

// handleSessions serves GET /api/sessions.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	since, err := s.windowStart(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = parsePositiveInt(raw, "limit"); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	sessions, err := s.store.Sessions(r.Context(), since, limit)
	if err != nil {
		s.internalError(w, "list sessions", err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// handleSessionMessages serves GET /api/sessions/{sessionID}/messages.
func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := s.store.SessionMessages(r.Context(), sessionID)
	if err != nil {
		s.internalError(w, "session messages", err)
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
		"count":      len(messages),
	})
}

// handleMetrics serves GET /api/metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	since, err := s.windowStart(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	metrics, err := s.store.OverviewMetrics(r.Context(), since)
	if err != nil {
		s.internalError(w, "overview metrics", err)
		return
	}
	s.respondJSON(w, http.StatusOK, metrics)
}

// handleTools serves GET /api/tools.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	since, err := s.windowStart(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.store.ToolUsageStats(r.Context(), since)
	if err != nil {
		s.internalError(w, "tool usage stats", err)
		return
	}
	if stats == nil {
		stats = []model.ToolStat{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tools": stats,
		"count": len(stats),
	})
}
