// Package graph implements the visibility engine and proximity edge
// builder that decide which nodes and edges of the message graph are
// rendered.
package graph

import "github.com/314clay/claude-dashboard/internal/model"

// BuildAdjacency builds an undirected adjacency list from structural
// edges: consecutive messages within the same session, in
// (session_id, sequence_num) order. Rows must already be sorted that
// way (the store guarantees it) and scoped to the active window.
// Sessions never link to each other, even when one session's last row
// immediately precedes another's first.
func BuildAdjacency(rows []model.StructuralRow) map[int64][]int64 {
	adj := make(map[int64][]int64)

	var prevID int64
	var prevSession string
	havePrev := false

	for _, row := range rows {
		if havePrev && row.SessionID == prevSession {
			adj[prevID] = append(adj[prevID], row.ID)
			adj[row.ID] = append(adj[row.ID], prevID)
		}
		prevID = row.ID
		prevSession = row.SessionID
		havePrev = true
	}

	return adj
}
