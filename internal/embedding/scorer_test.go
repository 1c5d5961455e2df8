package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/314clay/claude-dashboard/internal/store"
)

// fakeEmbedder returns a fixed vector for every text.
type fakeEmbedder struct {
	vec   Vector
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	f.calls++
	cp := make(Vector, len(f.vec))
	copy(cp, f.vec)
	return cp, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	for i := range texts {
		v, _ := f.Embed(ctx, texts[i])
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Model() string { return "fake" }
func (f *fakeEmbedder) Dims() int     { return len(f.vec) }

// fakeSource serves fixed rows and counts loads.
type fakeSource struct {
	rows  []store.EmbeddingRow
	loads int
}

func (f *fakeSource) AllEmbeddings(ctx context.Context) ([]store.EmbeddingRow, error) {
	f.loads++
	return f.rows, nil
}

func TestScoreByQueryMinMaxStretchesToFullRange(t *testing.T) {
	source := &fakeSource{rows: []store.EmbeddingRow{
		{MessageID: 1, Vector: []float32{1, 0}},  // aligned with query
		{MessageID: 2, Vector: []float32{0, 1}},  // orthogonal
		{MessageID: 3, Vector: []float32{-1, 0}}, // opposite
	}}
	s := NewScorer(source, &fakeEmbedder{vec: Vector{1, 0}}, NormalizeMinMax)

	scores, err := s.ScoreByQuery(context.Background(), "q")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, scores[1], 1e-9)
	assert.InDelta(t, 0.5, scores[2], 1e-9)
	assert.InDelta(t, 0.0, scores[3], 1e-9)
}

func TestScoreByQueryLinearMapsCosine(t *testing.T) {
	source := &fakeSource{rows: []store.EmbeddingRow{
		{MessageID: 1, Vector: []float32{1, 0}},
		{MessageID: 2, Vector: []float32{0, 1}},
		{MessageID: 3, Vector: []float32{-1, 0}},
	}}
	s := NewScorer(source, &fakeEmbedder{vec: Vector{1, 0}}, NormalizeLinear)

	scores, err := s.ScoreByQuery(context.Background(), "q")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, scores[1], 1e-6)
	assert.InDelta(t, 0.5, scores[2], 1e-6)
	assert.InDelta(t, 0.0, scores[3], 1e-6)
}

func TestScoreByQueryIdenticalSimsCollapseToHalf(t *testing.T) {
	source := &fakeSource{rows: []store.EmbeddingRow{
		{MessageID: 1, Vector: []float32{1, 0}},
		{MessageID: 2, Vector: []float32{2, 0}}, // same direction, different length
	}}
	s := NewScorer(source, &fakeEmbedder{vec: Vector{1, 0}}, NormalizeMinMax)

	scores, err := s.ScoreByQuery(context.Background(), "q")
	require.NoError(t, err)

	assert.InDelta(t, 0.5, scores[1], 1e-9)
	assert.InDelta(t, 0.5, scores[2], 1e-9)
}

func TestScorerCachesUntilInvalidated(t *testing.T) {
	source := &fakeSource{rows: []store.EmbeddingRow{
		{MessageID: 1, Vector: []float32{1, 0}},
	}}
	s := NewScorer(source, &fakeEmbedder{vec: Vector{1, 0}}, NormalizeMinMax)
	ctx := context.Background()

	_, err := s.ScoreByQuery(ctx, "q")
	require.NoError(t, err)
	_, err = s.ScoreByQuery(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 1, source.loads)

	s.Invalidate()
	_, err = s.ScoreByQuery(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
}

func TestScoreByQueryEmptyCorpus(t *testing.T) {
	s := NewScorer(&fakeSource{}, &fakeEmbedder{vec: Vector{1, 0}}, NormalizeMinMax)

	scores, err := s.ScoreByQuery(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestScoreByQueryDimensionMismatch(t *testing.T) {
	source := &fakeSource{rows: []store.EmbeddingRow{
		{MessageID: 1, Vector: []float32{1, 0, 0}},
	}}
	s := NewScorer(source, &fakeEmbedder{vec: Vector{1, 0}}, NormalizeMinMax)

	_, err := s.ScoreByQuery(context.Background(), "q")
	assert.Error(t, err)
}

func TestInvalidNormalizationFallsBackToMinMax(t *testing.T) {
	s := NewScorer(&fakeSource{}, &fakeEmbedder{vec: Vector{1}}, Normalization("bogus"))
	assert.Equal(t, NormalizeMinMax, s.norm)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity(Vector{1, 0}, Vector{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity(Vector{1, 0}, Vector{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity(Vector{1, 0}, Vector{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity(Vector{1}, Vector{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity(Vector{0, 0}, Vector{1, 0}))
}
