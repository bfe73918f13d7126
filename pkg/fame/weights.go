package fame

import (
	"fmt"
	"math"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
)

// CreditOrderWeight maps a credit position to tanh((1-order)/3)+1, which is 1
// for the top billed credit.
func CreditOrderWeight(order float64) float64 {
	return math.Tanh((1-order)/3) + 1
}

// RatingWeight scales a 0 to 10 rating to 0 to 1.
func RatingWeight(rating float64) float64 {
	return rating / 10.0
}

// NormalizedActivation squashes y into (0, 1).
func NormalizedActivation(y float64) float64 {
	return 0.5 * (math.Tanh(y) + 1)
}

// NodeMeanStd returns the mean and population standard deviation of f over
// the nodes accepted by pred. Both are 0 when no node is accepted.
func NodeMeanStd(
	g *graph.Graph,
	f func(*graph.NodeAttrs) float64,
	pred func(graph.Node, *graph.NodeAttrs) bool,
) (float64, float64) {
	var xs []float64
	for _, n := range g.Nodes() {
		a := g.Attrs(n)
		if pred(n, a) {
			xs = append(xs, f(a))
		}
	}
	if len(xs) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(variance / float64(len(xs)))
}

// Votes returns the vote count of a work, 0 when unknown.
func Votes(a *graph.NodeAttrs) float64 {
	if a == nil || a.Votes == nil {
		return 0
	}
	return float64(*a.Votes)
}

// Rating returns the rating of a work, 0 when unknown.
func Rating(a *graph.NodeAttrs) float64 {
	if a == nil || a.Rating == nil {
		return 0
	}
	return *a.Rating
}

// VotesMeanStd is NodeMeanStd of Votes over the works of g.
func VotesMeanStd(g *graph.Graph) (float64, float64) {
	return NodeMeanStd(g, Votes, func(n graph.Node, _ *graph.NodeAttrs) bool {
		return !n.IsPerson
	})
}

// WeightByNormalizedVotes weights an edge by the z-score of the work's votes
// passed through NormalizedActivation. With no spread in votes every edge
// gets 0.5.
func WeightByNormalizedVotes(g *graph.Graph, weight string) {
	mu, sigma := VotesMeanStd(g)
	WeightByFunction(g, func(_, w graph.Node) float64 {
		if sigma == 0 {
			return NormalizedActivation(0)
		}
		return NormalizedActivation((Votes(g.Attrs(w)) - mu) / sigma)
	}, weight)
}

// ActedIn reports whether e records an acting credit.
func ActedIn(e *graph.Edge) bool {
	return e.Jobs.Has("actor") || e.Jobs.Has("actress") ||
		e.ContributedAs("actor") || e.ContributedAs("actress")
}

// WeightOnlyActors sets weight to 1 on acting edges and 0 elsewhere.
func WeightOnlyActors(g *graph.Graph, weight string) {
	WeightByFunction(g, func(p, w graph.Node) float64 {
		e, _ := g.Edge(p, w)
		if ActedIn(e) {
			return 1
		}
		return 0
	}, weight)
}

// WeightCreditOrder weights an edge by CreditOrderWeight of its smallest
// credit ordering. Edges without credits read as ordering 0.
func WeightCreditOrder(g *graph.Graph, weight string) {
	WeightByFunction(g, func(p, w graph.Node) float64 {
		e, _ := g.Edge(p, w)
		order, _ := e.Order()
		return CreditOrderWeight(float64(order))
	}, weight)
}

// WeightByRating weights an edge by the RatingWeight of its work.
func WeightByRating(g *graph.Graph, weight string) {
	WeightByFunction(g, func(_, w graph.Node) float64 {
		return RatingWeight(Rating(g.Attrs(w)))
	}, weight)
}

// CombineWeights stores op(weight0, weight1) on every edge under newWeight
// and returns the name used. An empty newWeight becomes "weight0_weight1".
// Missing weights read as 0.
func CombineWeights(g *graph.Graph, op func(a, b float64) float64, weight0, weight1, newWeight string) string {
	if newWeight == "" {
		newWeight = fmt.Sprintf("%s_%s", weight0, weight1)
	}
	for _, e := range g.Edges() {
		a, _ := e.Weight(weight0)
		b, _ := e.Weight(weight1)
		e.SetWeight(newWeight, op(a, b))
	}
	return newWeight
}

func SumWeights(g *graph.Graph, weight0, weight1, newWeight string) string {
	return CombineWeights(g, func(a, b float64) float64 { return a + b }, weight0, weight1, newWeight)
}

func MultiplyWeights(g *graph.Graph, weight0, weight1, newWeight string) string {
	return CombineWeights(g, func(a, b float64) float64 { return a * b }, weight0, weight1, newWeight)
}

// Strategy names a weighting that can be requested by name.
type Strategy string

const (
	StrategyNone        Strategy = ""
	StrategyCreditOrder Strategy = "credit_order"
	StrategyRating      Strategy = "rating"
	StrategyVotes       Strategy = "votes"
	StrategyActors      Strategy = "actors"
)

// Validate reports whether s names a known weighting.
func (s Strategy) Validate() error {
	switch s {
	case StrategyNone, StrategyCreditOrder, StrategyRating, StrategyVotes, StrategyActors:
		return nil
	}
	return fmt.Errorf("unknown weighting %q", string(s))
}

// Apply runs the weighting named by s and writes it under weight.
func (s Strategy) Apply(g *graph.Graph, weight string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	switch s {
	case StrategyCreditOrder:
		WeightCreditOrder(g, weight)
	case StrategyRating:
		WeightByRating(g, weight)
	case StrategyVotes:
		WeightByNormalizedVotes(g, weight)
	case StrategyActors:
		WeightOnlyActors(g, weight)
	}
	return nil
}
