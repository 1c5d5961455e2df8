package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/314clay/claude-dashboard/internal/model"
)

// fakeStore serves a fixed window of two sessions: "a" holds ids 1-5,
// "b" holds ids 6-10, each in sequence order.
type fakeStore struct {
	matches map[int64]map[int64]struct{}
}

func (f *fakeStore) NodesInWindow(ctx context.Context, since time.Time) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{})
	for id := int64(1); id <= 10; id++ {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (f *fakeStore) StructuralRows(ctx context.Context, since time.Time) ([]model.StructuralRow, error) {
	var rows []model.StructuralRow
	for i := 0; i < 5; i++ {
		rows = append(rows, model.StructuralRow{ID: int64(i + 1), SessionID: "a", SequenceNum: i})
	}
	for i := 0; i < 5; i++ {
		rows = append(rows, model.StructuralRow{ID: int64(i + 6), SessionID: "b", SequenceNum: i})
	}
	return rows, nil
}

func (f *fakeStore) FilterMatches(ctx context.Context, filterIDs []int64) (map[int64]map[int64]struct{}, error) {
	out := make(map[int64]map[int64]struct{})
	for _, id := range filterIDs {
		if m, ok := f.matches[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func idSet(ids ...int64) map[int64]struct{} {
	s := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func newTestEngine(matches map[int64]map[int64]struct{}) *Engine {
	return NewEngine(&fakeStore{matches: matches})
}

func compute(t *testing.T, e *Engine, modes map[int64]model.FilterMode) *model.VisibleSet {
	t.Helper()
	vs, err := e.ComputeVisibleSet(context.Background(), modes, time.Time{})
	require.NoError(t, err)
	return vs
}

func TestNoFiltersMeansNoFiltering(t *testing.T) {
	e := newTestEngine(nil)

	vs := compute(t, e, nil)

	assert.Nil(t, vs.VisibleMessageIDs)
	assert.Equal(t, 10, vs.TotalNodes)
	assert.Equal(t, 10, vs.VisibleCount)
}

func TestAllFiltersOffMeansNoFiltering(t *testing.T) {
	e := newTestEngine(map[int64]map[int64]struct{}{1: idSet(2, 4)})

	vs := compute(t, e, map[int64]model.FilterMode{1: model.FilterOff})

	assert.Nil(t, vs.VisibleMessageIDs)
	assert.Equal(t, 10, vs.VisibleCount)
}

func TestIncludeShowsOnlyMatches(t *testing.T) {
	e := newTestEngine(map[int64]map[int64]struct{}{1: idSet(2, 4, 7)})

	vs := compute(t, e, map[int64]model.FilterMode{1: model.FilterInclude})

	assert.Equal(t, []int64{2, 4, 7}, vs.VisibleMessageIDs)
	assert.Equal(t, 3, vs.VisibleCount)
	assert.Equal(t, 10, vs.TotalNodes)
}

func TestExcludeHidesMatches(t *testing.T) {
	e := newTestEngine(map[int64]map[int64]struct{}{1: idSet(2, 4, 7)})

	vs := compute(t, e, map[int64]model.FilterMode{1: model.FilterExclude})

	assert.Equal(t, []int64{1, 3, 5, 6, 8, 9, 10}, vs.VisibleMessageIDs)
}

func TestMultipleIncludesUnion(t *testing.T) {
	e := newTestEngine(map[int64]map[int64]struct{}{
		1: idSet(2, 4, 7),
		2: idSet(3, 8, 9),
	})

	vs := compute(t, e, map[int64]model.FilterMode{
		1: model.FilterInclude,
		2: model.FilterInclude,
	})

	assert.Equal(t, []int64{2, 3, 4, 7, 8, 9}, vs.VisibleMessageIDs)
}

func TestIncludePlusOneExpandsOneHop(t *testing.T) {
	e := newTestEngine(map[int64]map[int64]struct{}{1: idSet(3)})

	vs := compute(t, e, map[int64]model.FilterMode{1: model.FilterIncludePlus1})

	assert.Equal(t, []int64{2, 3, 4}, vs.VisibleMessageIDs)
}

func TestIncludePlusTwoExpandsTwoHops(t *testing.T) {
	e := newTestEngine(map[int64]map[int64]struct{}{1: idSet(3)})

	vs := compute(t, e, map[int64]model.FilterMode{1: model.FilterIncludePlus2})

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, vs.VisibleMessageIDs)
}

func TestExpansionStopsAtSessionBoundary(t *testing.T) {
	// Id 5 is the last message of session "a"; id 6 starts session "b".
	e := newTestEngine(map[int64]map[int64]struct{}{1: idSet(5)})

	vs := compute(t, e, map[int64]model.FilterMode{1: model.FilterIncludePlus1})

	assert.Equal(t, []int64{4, 5}, vs.VisibleMessageIDs)
}

func TestExcludeWinsOverInclude(t *testing.T) {
	e := newTestEngine(map[int64]map[int64]struct{}{
		1: idSet(2, 3),
		2: idSet(2, 5),
	})

	vs := compute(t, e, map[int64]model.FilterMode{
		1: model.FilterInclude,
		2: model.FilterExclude,
	})

	assert.Equal(t, []int64{3}, vs.VisibleMessageIDs)
}

func TestExcludeAppliesAfterExpansion(t *testing.T) {
	e := newTestEngine(map[int64]map[int64]struct{}{
		1: idSet(3),
		2: idSet(2),
	})

	vs := compute(t, e, map[int64]model.FilterMode{
		1: model.FilterIncludePlus1,
		2: model.FilterExclude,
	})

	// Expansion brings in 2; the exclude removes it again.
	assert.Equal(t, []int64{3, 4}, vs.VisibleMessageIDs)
}

func TestIncludeWithNoMatchesYieldsEmptyNotNil(t *testing.T) {
	e := newTestEngine(nil)

	vs := compute(t, e, map[int64]model.FilterMode{99: model.FilterInclude})

	assert.NotNil(t, vs.VisibleMessageIDs)
	assert.Empty(t, vs.VisibleMessageIDs)
	assert.Equal(t, 0, vs.VisibleCount)
	assert.Equal(t, 10, vs.TotalNodes)
}

func TestMatchesOutsideWindowIgnored(t *testing.T) {
	e := newTestEngine(map[int64]map[int64]struct{}{1: idSet(2, 400)})

	vs := compute(t, e, map[int64]model.FilterMode{1: model.FilterInclude})

	assert.Equal(t, []int64{2}, vs.VisibleMessageIDs)
}

func TestUnknownModeIsAnError(t *testing.T) {
	e := newTestEngine(nil)

	_, err := e.ComputeVisibleSet(context.Background(),
		map[int64]model.FilterMode{1: model.FilterMode("bogus")}, time.Time{})

	assert.Error(t, err)
}
