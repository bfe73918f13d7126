// Package fame ranks the nodes of a professional graph and annotates its
// edges with weights.
//
// Ranking functions return pairs sorted by descending score; ties keep the
// order of the input nodes. Weighting functions write a named weight on
// edges and never change node or edge identity.
package fame

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/provider"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/rank"
)

// MurdockExponent is the attention decay of credit positions.
const MurdockExponent = -0.77

// Ranker scores every node of a graph. weight names the edge weight to use,
// empty means unweighted.
type Ranker interface {
	Rank(g *graph.Graph, weight string) (map[graph.Node]float64, error)
}

// DefaultRanker is weighted PageRank.
var DefaultRanker Ranker = rank.Func(rank.PageRank)

// Known pairs a node with the number of its neighbors.
type Known struct {
	Node  graph.Node
	Works int
}

// Ranked pairs a node with a score.
type Ranked struct {
	Node  graph.Node
	Score float64
}

func GetPeople(g *graph.Graph) []graph.Node {
	return filter(g, true)
}

func GetWorks(g *graph.Graph) []graph.Node {
	return filter(g, false)
}

func filter(g *graph.Graph, people bool) []graph.Node {
	var out []graph.Node
	for _, n := range g.Nodes() {
		if n.IsPerson == people {
			out = append(out, n)
		}
	}
	return out
}

// FameByNumberOfWorks ranks people by degree. A nil people slice ranks every
// person of g.
func FameByNumberOfWorks(g *graph.Graph, people []graph.Node) []Known {
	if people == nil {
		people = GetPeople(g)
	}
	out := make([]Known, len(people))
	for i, p := range people {
		out[i] = Known{Node: p, Works: g.Degree(p)}
	}
	slices.SortStableFunc(out, func(a, b Known) int {
		return cmp.Compare(b.Works, a.Works)
	})
	return out
}

type rankConfig struct {
	scores map[graph.Node]float64
	ranker Ranker
	weight string
}

// RankOption configures FameByPageRank and WorksByPageRank.
type RankOption func(*rankConfig)

// WithScores reuses scores computed earlier instead of ranking again.
func WithScores(scores map[graph.Node]float64) RankOption {
	return func(c *rankConfig) {
		c.scores = scores
	}
}

// WithRanker replaces DefaultRanker.
func WithRanker(r Ranker) RankOption {
	return func(c *rankConfig) {
		c.ranker = r
	}
}

// WithWeight ranks on the named edge weight.
func WithWeight(weight string) RankOption {
	return func(c *rankConfig) {
		c.weight = weight
	}
}

// FameByPageRank ranks people by their ranker score. It also returns the
// scores of all nodes so they can be passed to WorksByPageRank.
func FameByPageRank(g *graph.Graph, people []graph.Node, opts ...RankOption) ([]Ranked, map[graph.Node]float64, error) {
	if people == nil {
		people = GetPeople(g)
	}
	return byScore(g, people, opts)
}

// WorksByPageRank is the work analogue of FameByPageRank.
func WorksByPageRank(g *graph.Graph, works []graph.Node, opts ...RankOption) ([]Ranked, map[graph.Node]float64, error) {
	if works == nil {
		works = GetWorks(g)
	}
	return byScore(g, works, opts)
}

func byScore(g *graph.Graph, nodes []graph.Node, opts []RankOption) ([]Ranked, map[graph.Node]float64, error) {
	cfg := rankConfig{ranker: DefaultRanker}
	for _, opt := range opts {
		opt(&cfg)
	}
	scores := cfg.scores
	if scores == nil {
		var err error
		scores, err = cfg.ranker.Rank(g, cfg.weight)
		if err != nil {
			return nil, nil, fmt.Errorf("rank graph: %w", err)
		}
	}

	out := make([]Ranked, len(nodes))
	for i, n := range nodes {
		out[i] = Ranked{Node: n, Score: scores[n]}
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out, scores, nil
}

// NeighborFeatures maps every neighbor of node to its feature. Neighbors for
// which get reports no value are left out.
func NeighborFeatures[T any](g *graph.Graph, node graph.Node, get func(graph.Node) (T, bool)) map[graph.Node]T {
	out := make(map[graph.Node]T)
	for _, nb := range g.Neighbors(node) {
		if v, ok := get(nb); ok {
			out[nb] = v
		}
	}
	return out
}

// NormalizedExponentialDecay returns n weights exp(MurdockExponent*i)
// normalized to sum to 1.
func NormalizedExponentialDecay(n int) []float64 {
	return ExponentialDecay(n, MurdockExponent)
}

// ExponentialDecay returns n weights exp(exponent*i) normalized to sum to 1.
func ExponentialDecay(n int, exponent float64) []float64 {
	x := make([]float64, n)
	sum := 0.0
	for i := range x {
		x[i] = math.Exp(exponent * float64(i))
		sum += x[i]
	}
	for i := range x {
		x[i] /= sum
	}
	return x
}

// WeightZero sets weight to 0 on every edge.
func WeightZero(g *graph.Graph, weight string) {
	for _, e := range g.Edges() {
		e.SetWeight(weight, 0)
	}
}

// WeightByCastOrder weights the edges of every work by the billing position
// of the person in the cast listing. Edges not covered by a listing are 0.
// Listed people without an edge to the work are ignored.
func WeightByCastOrder(ctx context.Context, g *graph.Graph, cast provider.CastLister, weight string) error {
	weights := make(map[*graph.Edge]float64)
	for _, w := range GetWorks(g) {
		people, ok, err := cast.Cast(ctx, w.ID)
		if err != nil {
			return fmt.Errorf("cast of %s: %w", w, err)
		}
		if !ok {
			continue
		}
		x := NormalizedExponentialDecay(len(people))
		for i, p := range people {
			if e, ok := g.Edge(graph.PersonNode(p), w); ok {
				weights[e] = x[i]
			}
		}
	}

	WeightZero(g, weight)
	for e, x := range weights {
		e.SetWeight(weight, x)
	}
	return nil
}

// WeightByOrder sorts the neighbors of each node with sortNodes and gives the
// i-th neighbor the i-th decay weight.
func WeightByOrder(g *graph.Graph, nodes []graph.Node, sortNodes func([]graph.Node), weight string) {
	for _, n := range nodes {
		neighbors := g.Neighbors(n)
		sortNodes(neighbors)
		x := NormalizedExponentialDecay(len(neighbors))
		for i, nb := range neighbors {
			e, _ := g.Edge(n, nb)
			e.SetWeight(weight, x[i])
		}
	}
}

// WeightByFeatureOrder is WeightByOrder with neighbors sorted by descending
// feature.
func WeightByFeatureOrder[T cmp.Ordered](g *graph.Graph, nodes []graph.Node, feature func(graph.Node) T, weight string) {
	WeightByOrder(g, nodes, func(neighbors []graph.Node) {
		slices.SortStableFunc(neighbors, func(a, b graph.Node) int {
			return cmp.Compare(feature(b), feature(a))
		})
	}, weight)
}

// PersonWork returns the endpoints of an edge as (person, work).
func PersonWork(a, b graph.Node) (graph.Node, graph.Node) {
	if a.IsPerson {
		return a, b
	}
	return b, a
}

// WeightByFunction zeroes weight and sets it to f(person, work) on every edge.
func WeightByFunction(g *graph.Graph, f func(person, work graph.Node) float64, weight string) {
	WeightZero(g, weight)
	for _, e := range g.Edges() {
		p, w := PersonWork(e.Person, e.Work)
		e.SetWeight(weight, f(p, w))
	}
}
