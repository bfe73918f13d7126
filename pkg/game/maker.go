// Package game generates connect-two-people puzzles from a professional graph
// and validates the moves of a player solving one.
package game

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
)

var (
	// ErrCandidateNotFound means no candidate lies at the requested distance
	// from the chosen start. Another start may still work.
	ErrCandidateNotFound = errors.New("game: no candidate at this distance")
	// ErrGameNotFound means no start produced a candidate within the
	// iteration budget.
	ErrGameNotFound = errors.New("game: no game found")
	// ErrInvalidDistance is returned for distances below 1.
	ErrInvalidDistance = errors.New("game: distance must be at least 1")
)

// DefaultMaxIter is the number of starts MakeGameByIteration tries.
const DefaultMaxIter = 100

// Rand is the random source used for every selection. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Puzzle is a start and end person whose shortest path in the graph is
// PathLength edges, twice Distance.
type Puzzle struct {
	Start      graph.Node `json:"start"`
	End        graph.Node `json:"end"`
	Distance   int        `json:"distance"`
	PathLength int        `json:"path_length"`
}

// SortNodes sorts nodes by their Go-syntax representation so the order does
// not depend on where the nodes came from.
func SortNodes(nodes []graph.Node) {
	slices.SortFunc(nodes, func(a, b graph.Node) int {
		return strings.Compare(a.GoString(), b.GoString())
	})
}

// SelectRandomNodes draws size nodes with r after sorting them canonically.
// Without replacement size may not exceed the number of distinct positions.
func SelectRandomNodes(nodes []graph.Node, size int, replace bool, r Rand) ([]graph.Node, error) {
	pool := slices.Clone(nodes)
	SortNodes(pool)
	if len(pool) == 0 || (!replace && size > len(pool)) {
		return nil, fmt.Errorf("game: cannot select %d of %d nodes", size, len(pool))
	}

	out := make([]graph.Node, 0, size)
	for range size {
		i := r.IntN(len(pool))
		out = append(out, pool[i])
		if !replace {
			pool = slices.Delete(pool, i, i+1)
		}
	}
	return out, nil
}

// MakePeopleSubgraph restricts g to the given people and every work that
// touches at least one of them.
func MakePeopleSubgraph(g *graph.Graph, people []graph.Node) *graph.Graph {
	keep := make(map[graph.Node]struct{}, len(people))
	for _, p := range people {
		keep[p] = struct{}{}
	}
	for _, n := range g.Nodes() {
		if n.IsPerson {
			continue
		}
		for _, nb := range g.Neighbors(n) {
			if _, ok := keep[nb]; ok {
				keep[n] = struct{}{}
				break
			}
		}
	}
	return g.Subgraph(keep)
}

// MakeGameFromStartingNode picks an end among candidates whose shortest path
// from start is exactly 2*distance edges.
func MakeGameFromStartingNode(g *graph.Graph, start graph.Node, candidates []graph.Node, distance int, r Rand) (Puzzle, error) {
	if distance < 1 {
		return Puzzle{}, ErrInvalidDistance
	}
	radius := 2 * distance

	outer, err := g.EgoGraph(start, radius)
	if err != nil {
		return Puzzle{}, fmt.Errorf("%w: %v", ErrCandidateNotFound, err)
	}
	inner, err := outer.EgoGraph(start, radius-1)
	if err != nil {
		return Puzzle{}, fmt.Errorf("%w: %v", ErrCandidateNotFound, err)
	}

	var remaining []graph.Node
	seen := make(map[graph.Node]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if outer.HasNode(c) && !inner.HasNode(c) {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) == 0 {
		return Puzzle{}, ErrCandidateNotFound
	}

	picked, err := SelectRandomNodes(remaining, 1, false, r)
	if err != nil {
		return Puzzle{}, err
	}
	return Puzzle{
		Start:      start,
		End:        picked[0],
		Distance:   distance,
		PathLength: radius,
	}, nil
}

// MakeGameByIteration tries up to maxIter random starts from candidates.
// maxIter below 1 means DefaultMaxIter.
func MakeGameByIteration(g *graph.Graph, candidates []graph.Node, distance int, r Rand, maxIter int) (Puzzle, error) {
	if distance < 1 {
		return Puzzle{}, ErrInvalidDistance
	}
	if len(candidates) == 0 {
		return Puzzle{}, ErrGameNotFound
	}
	if maxIter < 1 {
		maxIter = DefaultMaxIter
	}

	for range maxIter {
		start, err := SelectRandomNodes(candidates, 1, true, r)
		if err != nil {
			return Puzzle{}, err
		}
		puzzle, err := MakeGameFromStartingNode(g, start[0], candidates, distance, r)
		if errors.Is(err, ErrCandidateNotFound) {
			continue
		}
		return puzzle, err
	}
	return Puzzle{}, ErrGameNotFound
}

// GameMaker generates puzzles between a fixed set of candidates.
type GameMaker struct {
	g          *graph.Graph
	candidates []graph.Node
	MaxIter    int
}

// NewGameMaker keeps only the part of g spanned by candidates and the works
// they contributed to.
func NewGameMaker(g *graph.Graph, candidates []graph.Node) *GameMaker {
	unique := make([]graph.Node, 0, len(candidates))
	seen := make(map[graph.Node]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, c)
	}
	SortNodes(unique)
	return &GameMaker{
		g:          MakePeopleSubgraph(g, unique),
		candidates: unique,
		MaxIter:    DefaultMaxIter,
	}
}

// Graph returns the restricted graph puzzles are searched in.
func (m *GameMaker) Graph() *graph.Graph {
	return m.g
}

// Candidates returns the candidate people in canonical order.
func (m *GameMaker) Candidates() []graph.Node {
	return slices.Clone(m.candidates)
}

// MakeGame returns a puzzle whose ends are distance works apart.
func (m *GameMaker) MakeGame(distance int, r Rand) (Puzzle, error) {
	return MakeGameByIteration(m.g, m.candidates, distance, r, m.MaxIter)
}
