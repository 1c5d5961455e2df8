package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/314clay/claude-dashboard/internal/graph"
	"github.com/314clay/claude-dashboard/internal/model"
)

// handleGraph serves GET /api/graph: nodes and structural links for a
// time window, optionally scoped to one session.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	since, err := s.windowStart(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sessionID := r.URL.Query().Get("session_id")

	nodes, links, err := s.store.GraphData(r.Context(), since, sessionID)
	if err != nil {
		s.internalError(w, "load graph data", err)
		return
	}
	if nodes == nil {
		nodes = []model.GraphNode{}
	}
	if links == nil {
		links = []model.GraphLink{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"nodes": nodes,
		"links": links,
	})
}

// visibilityRequest maps filter ids (as JSON object keys) to modes.
type visibilityRequest struct {
	Filters map[string]string `json:"filters"`
	Hours   int               `json:"hours" validate:"gte=0"`
}

// handleVisibility serves POST /api/graph/visibility.
func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "validation error: "+err.Error())
		return
	}

	modes := make(map[int64]model.FilterMode, len(req.Filters))
	for rawID, rawMode := range req.Filters {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid filter id "+rawID)
			return
		}
		mode := model.FilterMode(rawMode)
		if !mode.Valid() {
			s.respondError(w, http.StatusBadRequest, "unknown filter mode "+rawMode)
			return
		}
		modes[id] = mode
	}

	hours := req.Hours
	if hours <= 0 {
		hours = s.cfg.Graph.WindowHours
	}
	since := windowSince(hours)

	visible, err := s.engine.ComputeVisibleSet(r.Context(), modes, since)
	if err != nil {
		s.internalError(w, "compute visible set", err)
		return
	}
	s.respondJSON(w, http.StatusOK, visible)
}

// handleProximity serves GET /api/graph/proximity: score every embedded
// message against the query and link score-adjacent nodes.
func (s *Server) handleProximity(w http.ResponseWriter, r *http.Request) {
	if s.scorer == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no embedding provider configured")
		return
	}

	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	params := graph.ProximityParams{
		Delta:    s.cfg.Graph.ProximityDelta,
		MaxEdges: s.cfg.Graph.ProximityMaxEdges,
	}
	var err error
	if raw := q.Get("delta"); raw != "" {
		if params.Delta, err = parseNonNegativeFloat(raw, "delta"); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if raw := q.Get("max_edges"); raw != "" {
		if params.MaxEdges, err = parseNonNegativeInt(raw, "max_edges"); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if raw := q.Get("max_neighbors"); raw != "" {
		if params.MaxNeighbors, err = parseNonNegativeInt(raw, "max_neighbors"); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	scores, err := s.scorer.ScoreByQuery(r.Context(), query)
	if err != nil {
		s.internalError(w, "score query", err)
		return
	}

	edges, err := graph.ComputeProximityEdges(scores, params)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, model.ProximityResult{
		Edges:  edges,
		Scores: scores,
		Count:  len(edges),
	})
}
