package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/314clay/claude-dashboard/internal/model"
)

// GraphStore is the narrow view of the store the visibility engine
// needs. All reads are scoped to the caller's time window; batching of
// large id lists happens behind this interface.
type GraphStore interface {
	NodesInWindow(ctx context.Context, since time.Time) (map[int64]struct{}, error)
	StructuralRows(ctx context.Context, since time.Time) ([]model.StructuralRow, error)
	FilterMatches(ctx context.Context, filterIDs []int64) (map[int64]map[int64]struct{}, error)
}

// Engine computes the visible node set for a set of filter modes. It
// holds no state between calls; concurrent use is safe.
type Engine struct {
	store GraphStore
}

// NewEngine creates a visibility engine over the given store.
func NewEngine(store GraphStore) *Engine {
	return &Engine{store: store}
}

// ComputeVisibleSet evaluates filter modes against the window starting
// at since.
//
// A nil VisibleMessageIDs in the result means no filtering was applied
// (every mode was off); that is distinct from an empty slice, which
// means every node was filtered out. Include-family filters OR their
// contributions together; exclude filters subtract afterwards and win
// on overlap. Unknown filter ids behave as filters with zero matches.
func (e *Engine) ComputeVisibleSet(ctx context.Context, modes map[int64]model.FilterMode, since time.Time) (*model.VisibleSet, error) {
	allIDs, err := e.store.NodesInWindow(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load window nodes: %w", err)
	}
	totalNodes := len(allIDs)

	active := make(map[int64]model.FilterMode)
	for id, mode := range modes {
		if !mode.Valid() {
			return nil, fmt.Errorf("unknown filter mode %q for filter %d", mode, id)
		}
		if mode != model.FilterOff {
			active[id] = mode
		}
	}

	// No active filters: no filtering applied, which is not the same
	// as an empty visible set.
	if len(active) == 0 {
		return &model.VisibleSet{
			VisibleMessageIDs: nil,
			TotalNodes:        totalNodes,
			VisibleCount:      totalNodes,
		}, nil
	}

	filterIDs := make([]int64, 0, len(active))
	for id := range active {
		filterIDs = append(filterIDs, id)
	}
	matches, err := e.store.FilterMatches(ctx, filterIDs)
	if err != nil {
		return nil, fmt.Errorf("load filter matches: %w", err)
	}

	hasIncludes := false
	needsExpansion := false
	for _, mode := range active {
		if mode.IsInclude() {
			hasIncludes = true
		}
		if mode.ExpandDepth() > 0 {
			needsExpansion = true
		}
	}

	// The structural-edge read is skipped unless some filter expands.
	var adj map[int64][]int64
	if needsExpansion {
		rows, err := e.store.StructuralRows(ctx, since)
		if err != nil {
			return nil, fmt.Errorf("load structural rows: %w", err)
		}
		adj = BuildAdjacency(rows)
	}

	includeUnion := make(map[int64]struct{})
	for id, mode := range active {
		if !mode.IsInclude() {
			continue
		}
		matching := intersect(matches[id], allIDs)
		if depth := mode.ExpandDepth(); depth > 0 {
			matching = intersect(Expand(matching, depth, adj), allIDs)
		}
		for mid := range matching {
			includeUnion[mid] = struct{}{}
		}
	}

	var visible map[int64]struct{}
	if hasIncludes {
		visible = includeUnion
	} else {
		visible = make(map[int64]struct{}, len(allIDs))
		for id := range allIDs {
			visible[id] = struct{}{}
		}
	}

	// Excludes run last and win over any include contribution.
	// Subtracting ids outside the window is a no-op.
	for id, mode := range active {
		if mode != model.FilterExclude {
			continue
		}
		for mid := range matches[id] {
			delete(visible, mid)
		}
	}

	ids := make([]int64, 0, len(visible))
	for id := range visible {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return &model.VisibleSet{
		VisibleMessageIDs: ids,
		TotalNodes:        totalNodes,
		VisibleCount:      len(ids),
	}, nil
}

func intersect(a, b map[int64]struct{}) map[int64]struct{} {
	out := make(map[int64]struct{})
	if len(a) > len(b) {
		a, b = b, a
	}
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}
