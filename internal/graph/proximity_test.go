package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/314clay/claude-dashboard/internal/model"
)

func pairSet(edges []model.ProximityEdge) map[[2]int64]struct{} {
	pairs := make(map[[2]int64]struct{}, len(edges))
	for _, e := range edges {
		pairs[[2]int64{e.Source, e.Target}] = struct{}{}
	}
	return pairs
}

func TestProximityEqualScoresFullyConnected(t *testing.T) {
	scores := map[int64]float64{1: 0.5, 2: 0.5, 3: 0.5, 4: 0.5}

	edges, err := ComputeProximityEdges(scores, ProximityParams{Delta: 0.1})
	require.NoError(t, err)

	// 4 choose 2.
	assert.Len(t, edges, 6)
	for _, e := range edges {
		assert.InDelta(t, 1.0, e.Strength, 1e-9)
		assert.Less(t, e.Source, e.Target)
	}
}

func TestProximityClustersStayDisconnected(t *testing.T) {
	scores := map[int64]float64{
		1: 0.10, 2: 0.12,
		3: 0.80, 4: 0.82,
	}

	edges, err := ComputeProximityEdges(scores, ProximityParams{Delta: 0.05})
	require.NoError(t, err)

	pairs := pairSet(edges)
	assert.Len(t, edges, 2)
	assert.Contains(t, pairs, [2]int64{1, 2})
	assert.Contains(t, pairs, [2]int64{3, 4})
}

func TestProximityStrengthAtDeltaBoundary(t *testing.T) {
	scores := map[int64]float64{1: 0.5, 2: 0.6}

	edges, err := ComputeProximityEdges(scores, ProximityParams{Delta: 0.1})
	require.NoError(t, err)

	require.Len(t, edges, 1)
	assert.InDelta(t, 0.0, edges[0].Strength, 1e-9)
}

func TestProximityStrengthScalesWithDistance(t *testing.T) {
	scores := map[int64]float64{1: 0.50, 2: 0.55}

	edges, err := ComputeProximityEdges(scores, ProximityParams{Delta: 0.1})
	require.NoError(t, err)

	require.Len(t, edges, 1)
	assert.InDelta(t, 0.5, edges[0].Strength, 1e-9)
}

func TestProximityZeroDeltaLinksExactTiesOnly(t *testing.T) {
	scores := map[int64]float64{1: 0.5, 2: 0.5, 3: 0.6}

	edges, err := ComputeProximityEdges(scores, ProximityParams{Delta: 0})
	require.NoError(t, err)

	require.Len(t, edges, 1)
	assert.Equal(t, int64(1), edges[0].Source)
	assert.Equal(t, int64(2), edges[0].Target)
	assert.Equal(t, 1.0, edges[0].Strength)
}

func TestProximityLargerDeltaIsSuperset(t *testing.T) {
	scores := map[int64]float64{
		1: 0.1, 2: 0.18, 3: 0.3, 4: 0.55, 5: 0.61, 6: 0.9,
	}

	small, err := ComputeProximityEdges(scores, ProximityParams{Delta: 0.08})
	require.NoError(t, err)
	large, err := ComputeProximityEdges(scores, ProximityParams{Delta: 0.3})
	require.NoError(t, err)

	largePairs := pairSet(large)
	for pair := range pairSet(small) {
		assert.Contains(t, largePairs, pair)
	}
	assert.GreaterOrEqual(t, len(large), len(small))
}

func TestProximityMaxEdgesHardCap(t *testing.T) {
	scores := map[int64]float64{1: 0.5, 2: 0.5, 3: 0.5, 4: 0.5, 5: 0.5}

	edges, err := ComputeProximityEdges(scores, ProximityParams{Delta: 0.1, MaxEdges: 3})
	require.NoError(t, err)

	assert.Len(t, edges, 3)
}

func TestProximityMaxNeighborsCapsDegree(t *testing.T) {
	scores := map[int64]float64{1: 0.5, 2: 0.5, 3: 0.5, 4: 0.5, 5: 0.5}

	edges, err := ComputeProximityEdges(scores, ProximityParams{Delta: 0.1, MaxNeighbors: 2})
	require.NoError(t, err)

	degree := make(map[int64]int)
	for _, e := range edges {
		degree[e.Source]++
		degree[e.Target]++
	}
	for id, d := range degree {
		assert.LessOrEqual(t, d, 2, "node %d over degree cap", id)
	}
}

func TestProximityNoDuplicatePairs(t *testing.T) {
	scores := map[int64]float64{1: 0.1, 2: 0.15, 3: 0.2, 4: 0.25}

	edges, err := ComputeProximityEdges(scores, ProximityParams{Delta: 0.2})
	require.NoError(t, err)

	pairs := pairSet(edges)
	assert.Len(t, pairs, len(edges))
	for _, e := range edges {
		assert.Less(t, e.Source, e.Target)
	}
}

func TestProximityEmptyScores(t *testing.T) {
	edges, err := ComputeProximityEdges(nil, DefaultProximityParams())
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestProximityRejectsNegativeParams(t *testing.T) {
	scores := map[int64]float64{1: 0.5}

	_, err := ComputeProximityEdges(scores, ProximityParams{Delta: -0.1})
	assert.Error(t, err)

	_, err = ComputeProximityEdges(scores, ProximityParams{MaxEdges: -1})
	assert.Error(t, err)

	_, err = ComputeProximityEdges(scores, ProximityParams{MaxNeighbors: -1})
	assert.Error(t, err)
}
