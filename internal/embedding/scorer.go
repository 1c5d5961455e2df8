package embedding

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/314clay/claude-dashboard/internal/store"
)

// Normalization names a strategy for mapping raw cosine similarity
// (roughly 0.3–0.9 for text embeddings) into [0,1].
type Normalization string

const (
	// NormalizeMinMax stretches each query's raw similarities to the
	// full [0,1] range. Relative order is preserved; absolute values
	// are query-dependent.
	NormalizeMinMax Normalization = "minmax"
	// NormalizeLinear maps cosine similarity with (cos+1)/2. Absolute
	// values are comparable across queries but cluster mid-range.
	NormalizeLinear Normalization = "linear"
)

// Valid reports whether n names a known strategy.
func (n Normalization) Valid() bool {
	return n == NormalizeMinMax || n == NormalizeLinear
}

// VectorSource supplies the stored embedding rows, ordered by message id.
type VectorSource interface {
	AllEmbeddings(ctx context.Context) ([]store.EmbeddingRow, error)
}

// Scorer computes per-message relevance scores for a query text
// against an in-memory, L2-normalized embedding matrix. The matrix is
// loaded lazily and guarded by a read-write lock; Invalidate must be
// called whenever the underlying vectors change.
type Scorer struct {
	source   VectorSource
	embedder Embedder
	norm     Normalization

	mu    sync.RWMutex
	cache *matrix
}

type matrix struct {
	ids  []int64
	rows [][]float32 // unit vectors
}

// NewScorer creates a scorer. An invalid normalization falls back to
// minmax.
func NewScorer(source VectorSource, embedder Embedder, norm Normalization) *Scorer {
	if !norm.Valid() {
		norm = NormalizeMinMax
	}
	return &Scorer{source: source, embedder: embedder, norm: norm}
}

// Invalidate drops the cached matrix; the next query rebuilds it.
func (s *Scorer) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

// ScoreByQuery embeds the query and returns a score in [0,1] for every
// embedded message. An empty corpus yields an empty map, not an error.
func (s *Scorer) ScoreByQuery(ctx context.Context, query string) (map[int64]float64, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVec) == 0 {
		return map[int64]float64{}, nil
	}
	normalize(queryVec)

	m, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(m.ids) == 0 {
		return map[int64]float64{}, nil
	}

	sims := make([]float64, len(m.ids))
	for i, row := range m.rows {
		if len(row) != len(queryVec) {
			return nil, fmt.Errorf("embedding dimension mismatch: stored %d, query %d", len(row), len(queryVec))
		}
		sims[i] = dot(row, queryVec)
	}

	scores := make(map[int64]float64, len(m.ids))
	switch s.norm {
	case NormalizeLinear:
		for i, id := range m.ids {
			scores[id] = clamp01((sims[i] + 1) / 2)
		}
	default: // minmax
		lo, hi := sims[0], sims[0]
		for _, v := range sims[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		spread := hi - lo
		for i, id := range m.ids {
			if spread > 0 {
				scores[id] = (sims[i] - lo) / spread
			} else {
				scores[id] = 0.5
			}
		}
	}
	return scores, nil
}

// load returns the cached matrix, rebuilding it if invalidated.
func (s *Scorer) load(ctx context.Context) (*matrix, error) {
	s.mu.RLock()
	m := s.cache
	s.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		return s.cache, nil
	}

	rows, err := s.source.AllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	m = &matrix{
		ids:  make([]int64, len(rows)),
		rows: make([][]float32, len(rows)),
	}
	for i, r := range rows {
		m.ids[i] = r.MessageID
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		normalize(vec)
		m.rows[i] = vec
	}

	s.cache = m
	return m, nil
}

// normalize scales vec to unit length in place. Zero vectors are left
// untouched.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
