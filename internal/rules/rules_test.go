package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/314clay/claude-dashboard/internal/store"
)

type fakeRuleStore struct {
	unscored     []store.UnscoredMessage
	toolIDs      map[int64]struct{}
	wantToolName string
	gotToolName  string
	inserted     []store.FilterResult
	confidence   float64
}

func (f *fakeRuleStore) UnscoredMessages(ctx context.Context, filterID int64) ([]store.UnscoredMessage, error) {
	return f.unscored, nil
}

func (f *fakeRuleStore) ToolMessageIDs(ctx context.Context, messageIDs []int64, toolName string) (map[int64]struct{}, error) {
	f.gotToolName = toolName
	return f.toolIDs, nil
}

func (f *fakeRuleStore) InsertFilterResults(ctx context.Context, filterID int64, results []store.FilterResult, confidence float64) error {
	f.inserted = results
	f.confidence = confidence
	return nil
}

func matchedIDs(results []store.FilterResult) []int64 {
	var out []int64
	for _, r := range results {
		if r.Matched {
			out = append(out, r.MessageID)
		}
	}
	return out
}

func TestScoreRoleRules(t *testing.T) {
	st := &fakeRuleStore{unscored: []store.UnscoredMessage{
		{ID: 1, Role: "user", ContentLen: 50},
		{ID: 2, Role: "assistant", ContentLen: 50},
		{ID: 3, Role: "user", ContentLen: 50},
	}}

	res, err := Score(context.Background(), st, 7, "role:user")
	require.NoError(t, err)

	assert.Equal(t, int64(7), res.FilterID)
	assert.Equal(t, 3, res.Scored)
	assert.Equal(t, 2, res.Matches)
	assert.ElementsMatch(t, []int64{1, 3}, matchedIDs(st.inserted))
	assert.Equal(t, 1.0, st.confidence)
}

func TestScoreLengthRules(t *testing.T) {
	st := &fakeRuleStore{unscored: []store.UnscoredMessage{
		{ID: 1, Role: "user", ContentLen: 50},
		{ID: 2, Role: "user", ContentLen: 100},
		{ID: 3, Role: "user", ContentLen: 501},
	}}

	res, err := Score(context.Background(), st, 1, "long")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{3}, matchedIDs(st.inserted))
	assert.Equal(t, 1, res.Matches)

	res, err = Score(context.Background(), st, 1, "short")
	require.NoError(t, err)
	// 100 chars is not short: the boundary is strict.
	assert.ElementsMatch(t, []int64{1}, matchedIDs(st.inserted))
	assert.Equal(t, 1, res.Matches)
}

func TestScoreHasTools(t *testing.T) {
	st := &fakeRuleStore{
		unscored: []store.UnscoredMessage{
			{ID: 1, Role: "assistant"},
			{ID: 2, Role: "assistant"},
		},
		toolIDs: map[int64]struct{}{2: {}},
	}

	res, err := Score(context.Background(), st, 1, "has_tools")
	require.NoError(t, err)

	assert.Equal(t, "", st.gotToolName)
	assert.ElementsMatch(t, []int64{2}, matchedIDs(st.inserted))
	assert.Equal(t, 1, res.Matches)
}

func TestScoreNamedToolPreservesCase(t *testing.T) {
	st := &fakeRuleStore{
		unscored: []store.UnscoredMessage{{ID: 1, Role: "assistant"}},
		toolIDs:  map[int64]struct{}{1: {}},
	}

	_, err := Score(context.Background(), st, 1, "tool:Bash")
	require.NoError(t, err)

	assert.Equal(t, "Bash", st.gotToolName)
	assert.ElementsMatch(t, []int64{1}, matchedIDs(st.inserted))
}

func TestScoreUnknownPatternMatchesNothing(t *testing.T) {
	st := &fakeRuleStore{unscored: []store.UnscoredMessage{
		{ID: 1, Role: "user", ContentLen: 1000},
	}}

	res, err := Score(context.Background(), st, 1, "find the bug reports")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Scored)
	assert.Equal(t, 0, res.Matches)
	assert.Empty(t, matchedIDs(st.inserted))
}

func TestScoreNothingPending(t *testing.T) {
	st := &fakeRuleStore{}

	res, err := Score(context.Background(), st, 1, "role:user")
	require.NoError(t, err)

	assert.Equal(t, 0, res.Scored)
	assert.Empty(t, st.inserted)
}
