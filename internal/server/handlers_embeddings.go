package server

import (
	"encoding/json"
	"net/http"

	"github.com/314clay/claude-dashboard/internal/embedding"
)

type generateEmbeddingsRequest struct {
	BatchSize   int     `json:"batch_size" validate:"gte=0"`
	MaxMessages int     `json:"max_messages" validate:"gte=0"`
	MessageIDs  []int64 `json:"message_ids"`
}

// handleGenerateEmbeddings serves POST /api/embeddings/generate.
func (s *Server) handleGenerateEmbeddings(w http.ResponseWriter, r *http.Request) {
	if s.embedGen == nil {
		s.respondError(w, http.StatusServiceUnavailable, "no embedding provider configured")
		return
	}

	var req generateEmbeddingsRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
		if err := s.validate.Struct(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "validation error: "+err.Error())
			return
		}
	}

	result, err := s.embedGen.Generate(r.Context(), embedding.GenerateParams{
		BatchSize:   req.BatchSize,
		MaxMessages: req.MaxMessages,
		MessageIDs:  req.MessageIDs,
	})
	if err != nil {
		s.internalError(w, "generate embeddings", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleEmbeddingStats serves GET /api/embeddings/stats.
func (s *Server) handleEmbeddingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.EmbeddingStats(r.Context())
	if err != nil {
		s.internalError(w, "embedding stats", err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}
