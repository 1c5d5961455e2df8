package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/314clay/claude-dashboard/internal/model"
	"github.com/314clay/claude-dashboard/internal/rules"
)

// handleListFilters serves GET /api/filters.
func (s *Server) handleListFilters(w http.ResponseWriter, r *http.Request) {
	filters, err := s.store.Filters(r.Context())
	if err != nil {
		s.internalError(w, "list filters", err)
		return
	}
	if filters == nil {
		filters = []model.Filter{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"filters": filters,
		"count":   len(filters),
	})
}

type createFilterRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	QueryText string `json:"query_text" validate:"required,max=2000"`
}

// handleCreateFilter serves POST /api/filters.
func (s *Server) handleCreateFilter(w http.ResponseWriter, r *http.Request) {
	var req createFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "validation error: "+err.Error())
		return
	}

	filter, err := s.store.CreateFilter(r.Context(), req.Name, req.QueryText)
	if err != nil {
		s.respondError(w, http.StatusConflict, "filter name already exists")
		return
	}
	s.respondJSON(w, http.StatusCreated, filter)
}

// handleDeleteFilter serves DELETE /api/filters/{filterID}.
func (s *Server) handleDeleteFilter(w http.ResponseWriter, r *http.Request) {
	id, ok := s.filterID(w, r)
	if !ok {
		return
	}
	deleted, err := s.store.DeleteFilter(r.Context(), id)
	if err != nil {
		s.internalError(w, "delete filter", err)
		return
	}
	if !deleted {
		s.respondError(w, http.StatusNotFound, "filter not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// handleFilterStatus serves GET /api/filters/{filterID}/status.
func (s *Server) handleFilterStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.filterID(w, r)
	if !ok {
		return
	}
	status, err := s.store.FilterStatus(r.Context(), id)
	if err != nil {
		s.internalError(w, "filter status", err)
		return
	}
	if status == nil {
		s.respondError(w, http.StatusNotFound, "filter not found")
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

// handleScoreFilter serves POST /api/filters/{filterID}/score: run the
// rule scorer over every unscored message.
func (s *Server) handleScoreFilter(w http.ResponseWriter, r *http.Request) {
	id, ok := s.filterID(w, r)
	if !ok {
		return
	}
	filter, err := s.store.FilterStatus(r.Context(), id)
	if err != nil {
		s.internalError(w, "load filter", err)
		return
	}
	if filter == nil {
		s.respondError(w, http.StatusNotFound, "filter not found")
		return
	}

	result, err := rules.Score(r.Context(), s.store, id, filter.QueryText)
	if err != nil {
		s.internalError(w, "score filter", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) filterID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "filterID"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid filter id")
		return 0, false
	}
	return id, true
}
