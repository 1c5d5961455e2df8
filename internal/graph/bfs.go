package graph

// Expand performs a bounded-depth breadth-first expansion of seeds
// along adj. Depth 0 returns a copy of the seeds. Ids missing from adj
// are treated as having no neighbors. Stops early once a frontier
// produces nothing new.
func Expand(seeds map[int64]struct{}, depth int, adj map[int64][]int64) map[int64]struct{} {
	visited := make(map[int64]struct{}, len(seeds))
	frontier := make([]int64, 0, len(seeds))
	for id := range seeds {
		visited[id] = struct{}{}
		frontier = append(frontier, id)
	}

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []int64
		for _, id := range frontier {
			for _, neighbor := range adj[id] {
				if _, seen := visited[neighbor]; seen {
					continue
				}
				visited[neighbor] = struct{}{}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}

	return visited
}
