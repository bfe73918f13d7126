// Package rank provides the default ranking function for package fame: a
// weighted PageRank over the undirected professional graph, computed by
// gonum.
package rank

import (
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

// Params controls the iteration.
type Params struct {
	Alpha float64
	Tol   float64
}

// DefaultParams returns damping 0.85 and tolerance 1e-6.
func DefaultParams() Params {
	return Params{Alpha: 0.85, Tol: 1e-6}
}

// Func adapts a function to a ranker.
type Func func(g *graph.Graph, weight string) (map[graph.Node]float64, error)

func (f Func) Rank(g *graph.Graph, weight string) (map[graph.Node]float64, error) {
	return f(g, weight)
}

// PageRank ranks g with DefaultParams.
func PageRank(g *graph.Graph, weight string) (map[graph.Node]float64, error) {
	return PageRankWithParams(g, weight, DefaultParams()), nil
}

// PageRankWithParams ranks the nodes of g. Every edge is followed in both
// directions. When weight is non-empty the transition probability is
// proportional to that named edge weight, edges without it count as 1. Nodes
// without outgoing weight spread their score uniformly. Scores sum to 1.
func PageRankWithParams(g *graph.Graph, weight string, params Params) map[graph.Node]float64 {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return map[graph.Node]float64{}
	}

	index := make(map[graph.Node]int64, len(nodes))
	dg := simple.NewWeightedDirectedGraph(0, 0)
	for i, n := range nodes {
		index[n] = int64(i)
		dg.AddNode(simple.Node(i))
	}
	for _, e := range g.Edges() {
		w := 1.0
		if weight != "" {
			if v, ok := e.Weight(weight); ok {
				w = v
			}
		}
		p, q := simple.Node(index[e.Person]), simple.Node(index[e.Work])
		dg.SetWeightedEdge(dg.NewWeightedEdge(p, q, w))
		dg.SetWeightedEdge(dg.NewWeightedEdge(q, p, w))
	}

	ranks := network.PageRankSparse(dg, params.Alpha, params.Tol)

	sum := 0.0
	for _, r := range ranks {
		sum += r
	}
	out := make(map[graph.Node]float64, len(nodes))
	for i, n := range nodes {
		r := ranks[int64(i)]
		if sum != 0 {
			r /= sum
		}
		out[n] = r
	}
	return out
}
