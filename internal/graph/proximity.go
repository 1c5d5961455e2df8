package graph

import (
	"fmt"
	"sort"

	"github.com/314clay/claude-dashboard/internal/model"
)

// ProximityParams configures the proximity edge builder. Zero caps
// mean unlimited.
type ProximityParams struct {
	// Delta is the maximum score difference for an edge.
	Delta float64
	// MaxEdges is a hard cap on the total number of edges returned.
	MaxEdges int
	// MaxNeighbors caps the degree of any single node.
	MaxNeighbors int
}

// DefaultProximityParams mirrors the API-layer defaults.
func DefaultProximityParams() ProximityParams {
	return ProximityParams{Delta: 0.1, MaxEdges: 100000, MaxNeighbors: 0}
}

// Validate rejects configurations the algorithm is undefined for.
func (p ProximityParams) Validate() error {
	if p.Delta < 0 {
		return fmt.Errorf("delta must be >= 0, got %v", p.Delta)
	}
	if p.MaxEdges < 0 {
		return fmt.Errorf("max_edges must be >= 0, got %d", p.MaxEdges)
	}
	if p.MaxNeighbors < 0 {
		return fmt.Errorf("max_neighbors must be >= 0, got %d", p.MaxNeighbors)
	}
	return nil
}

// ComputeProximityEdges links nodes whose scores are within Delta of
// each other, using an O(n log n) sort plus a sliding window.
//
// Nodes are sorted by score (ties broken by id so the output is
// deterministic). For each node the window of candidates within Delta
// is scanned nearest-score-first; under a degree cap the scan stops
// for the current node as soon as it is full, since every remaining
// candidate is farther in score. Edges are undirected, emitted once
// per pair with Source < Target, with strength 1 - diff/Delta
// (1.0 when Delta is 0) clamped to [0,1]. Hitting MaxEdges returns
// immediately with the edges collected so far.
func ComputeProximityEdges(scores map[int64]float64, p ProximityParams) ([]model.ProximityEdge, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return []model.ProximityEdge{}, nil
	}

	type scored struct {
		id    int64
		score float64
	}
	nodes := make([]scored, 0, len(scores))
	for id, sc := range scores {
		nodes = append(nodes, scored{id: id, score: sc})
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].score != nodes[j].score {
			return nodes[i].score < nodes[j].score
		}
		return nodes[i].id < nodes[j].id
	})

	edges := []model.ProximityEdge{}
	var degree map[int64]int
	if p.MaxNeighbors > 0 {
		degree = make(map[int64]int)
	}

	j := 0 // trailing window pointer
	for i := range nodes {
		for j < i && nodes[i].score-nodes[j].score > p.Delta {
			j++
		}

		if p.MaxNeighbors > 0 && degree[nodes[i].id] >= p.MaxNeighbors {
			continue
		}

		// Scan nearest-score-first so degree caps keep the closest
		// neighbors.
		for k := i - 1; k >= j; k-- {
			if p.MaxNeighbors > 0 {
				if degree[nodes[i].id] >= p.MaxNeighbors {
					break // node i full; remaining candidates are farther
				}
				if degree[nodes[k].id] >= p.MaxNeighbors {
					continue // node k full; try the next candidate
				}
			}

			diff := nodes[i].score - nodes[k].score
			if diff < 0 {
				diff = -diff
			}
			strength := 1.0
			if p.Delta > 0 {
				strength = clamp01(1.0 - diff/p.Delta)
			}

			src, tgt := nodes[k].id, nodes[i].id
			if src > tgt {
				src, tgt = tgt, src
			}
			edges = append(edges, model.ProximityEdge{Source: src, Target: tgt, Strength: strength})

			if p.MaxNeighbors > 0 {
				degree[nodes[i].id]++
				degree[nodes[k].id]++
			}

			if p.MaxEdges > 0 && len(edges) >= p.MaxEdges {
				return edges, nil
			}
		}
	}

	return edges, nil
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
