package graph

// Distances returns the hop distance from center to every node reachable
// within cutoff hops. A negative cutoff means no limit.
func (g *Graph) Distances(center Node, cutoff int) map[Node]int {
	dist := map[Node]int{center: 0}
	if !g.HasNode(center) {
		return dist
	}
	frontier := []Node{center}
	for d := 1; len(frontier) > 0 && (cutoff < 0 || d <= cutoff); d++ {
		var next []Node
		for _, n := range frontier {
			for _, e := range g.adj[n] {
				m := e.Other(n)
				if _, seen := dist[m]; seen {
					continue
				}
				dist[m] = d
				next = append(next, m)
			}
		}
		frontier = next
	}
	return dist
}

// EgoGraph returns the subgraph induced by all nodes within radius hops of
// center, center included.
func (g *Graph) EgoGraph(center Node, radius int) (*Graph, error) {
	if !g.HasNode(center) {
		return nil, ErrNodeNotFound
	}
	dist := g.Distances(center, radius)
	keep := make(map[Node]struct{}, len(dist))
	for n := range dist {
		keep[n] = struct{}{}
	}
	return g.Subgraph(keep), nil
}

// ShortestPathLength returns the number of hops between a and b and false
// when no path exists.
func (g *Graph) ShortestPathLength(a, b Node) (int, bool) {
	path, ok := g.ShortestPath(a, b)
	if !ok {
		return 0, false
	}
	return len(path) - 1, true
}

// ShortestPath returns one shortest path from a to b, endpoints included.
func (g *Graph) ShortestPath(a, b Node) ([]Node, bool) {
	if !g.HasNode(a) || !g.HasNode(b) {
		return nil, false
	}
	prev := map[Node]Node{a: a}
	frontier := []Node{a}
	for len(frontier) > 0 {
		if _, ok := prev[b]; ok {
			break
		}
		var next []Node
		for _, n := range frontier {
			for _, e := range g.adj[n] {
				m := e.Other(n)
				if _, seen := prev[m]; seen {
					continue
				}
				prev[m] = n
				next = append(next, m)
			}
		}
		frontier = next
	}
	if _, ok := prev[b]; !ok {
		return nil, false
	}
	path := []Node{b}
	for n := b; n != a; {
		n = prev[n]
		path = append(path, n)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, true
}
