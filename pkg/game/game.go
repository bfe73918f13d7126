package game

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/provider"
)

// ErrGameOver is returned when a move is played after the game was won.
var ErrGameOver = errors.New("game: game is already won")

// Status is the state of a game.
type Status int

const (
	NotStarted Status = iota
	InProgress
	Won
)

func (s Status) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Won:
		return "won"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Reason says why a move was rejected.
type Reason string

const (
	ReasonIncorrectStart        Reason = "incorrect start"
	ReasonIncorrectContinuation Reason = "incorrect continuation"
	ReasonPerson0NotInWork      Reason = "person0 not in work"
	ReasonPerson1NotInWork      Reason = "person1 not in work"
)

const (
	MessageKeepPlaying = "keep playing"
	MessageYouWin      = "you win"
)

// Outcome is the result of one move. A rejected move has Accepted false and
// a Reason; Message is always set.
type Outcome struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason,omitempty"`
	Message  string `json:"message"`
	Status   Status `json:"status"`
}

type idSet map[graph.ID]struct{}

func newIDSet(ids ...graph.ID) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s idSet) has(id graph.ID) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) intersect(o idSet) idSet {
	out := make(idSet)
	for id := range s {
		if o.has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// sorted orders integer ids numerically before string ids.
func (s idSet) sorted() []graph.ID {
	ids := slices.Collect(maps.Keys(s))
	slices.SortFunc(ids, func(a, b graph.ID) int {
		ai, aok := a.Int()
		bi, bok := b.Int()
		switch {
		case aok && bok:
			return cmp.Compare(ai, bi)
		case aok:
			return -1
		case bok:
			return 1
		}
		return strings.Compare(a.String(), b.String())
	})
	return ids
}

func (s idSet) marshal() ([]byte, error) {
	return json.Marshal(s.sorted())
}

func unmarshalIDSet(data []byte) (idSet, error) {
	var ids []graph.ID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return newIDSet(ids...), nil
}

// PersonIDSet is the set of person ids a name may refer to.
type PersonIDSet idSet

func NewPersonIDSet(ids ...graph.ID) PersonIDSet { return PersonIDSet(newIDSet(ids...)) }

func (s PersonIDSet) Has(id graph.ID) bool         { return idSet(s).has(id) }
func (s PersonIDSet) Sorted() []graph.ID           { return idSet(s).sorted() }
func (s PersonIDSet) Len() int                     { return len(s) }
func (s PersonIDSet) MarshalJSON() ([]byte, error) { return idSet(s).marshal() }

func (s *PersonIDSet) UnmarshalJSON(data []byte) error {
	ids, err := unmarshalIDSet(data)
	*s = PersonIDSet(ids)
	return err
}

// WorkIDSet is the set of work ids a title may refer to.
type WorkIDSet idSet

func NewWorkIDSet(ids ...graph.ID) WorkIDSet { return WorkIDSet(newIDSet(ids...)) }

func (s WorkIDSet) Has(id graph.ID) bool         { return idSet(s).has(id) }
func (s WorkIDSet) Sorted() []graph.ID           { return idSet(s).sorted() }
func (s WorkIDSet) Len() int                     { return len(s) }
func (s WorkIDSet) MarshalJSON() ([]byte, error) { return idSet(s).marshal() }

func (s *WorkIDSet) UnmarshalJSON(data []byte) error {
	ids, err := unmarshalIDSet(data)
	*s = WorkIDSet(ids)
	return err
}

// Move is one accepted step: People0 contributed to one of Works together
// with People1. Sets stay ambiguous until later moves narrow them.
type Move struct {
	People0 PersonIDSet `json:"people0"`
	People1 PersonIDSet `json:"people1"`
	Works   WorkIDSet   `json:"works"`
}

// Game validates the moves of one player. It is not safe for concurrent use.
type Game struct {
	start    graph.ID
	end      graph.ID
	resolver provider.Provider
	moves    []Move
	status   Status
}

// NewGame starts a game from start to end, resolving names with resolver.
func NewGame(start, end graph.ID, resolver provider.Provider) *Game {
	return &Game{start: start, end: end, resolver: resolver}
}

// Restore continues a game from previously accepted moves.
func Restore(start, end graph.ID, resolver provider.Provider, moves []Move) *Game {
	g := NewGame(start, end, resolver)
	g.moves = slices.Clone(moves)
	switch {
	case len(moves) == 0:
		g.status = NotStarted
	case moves[len(moves)-1].People1.Has(end):
		g.status = Won
	default:
		g.status = InProgress
	}
	return g
}

func (g *Game) Start() graph.ID { return g.start }
func (g *Game) End() graph.ID   { return g.end }
func (g *Game) Status() Status  { return g.status }

// Moves returns the accepted moves in order.
func (g *Game) Moves() []Move {
	return slices.Clone(g.moves)
}

// TakeStep checks that person0 and person1 both contributed to work and that
// person0 continues the chain. Rejections leave the game unchanged and are
// reported in the Outcome; an error means a lookup failed.
func (g *Game) TakeStep(ctx context.Context, person0, person1, work string) (Outcome, error) {
	if g.status == Won {
		return Outcome{}, ErrGameOver
	}

	named0, err := g.searchPeople(ctx, person0)
	if err != nil {
		return Outcome{}, err
	}
	var people0 idSet
	if len(g.moves) == 0 {
		if !named0.has(g.start) {
			return g.reject(ReasonIncorrectStart), nil
		}
		people0 = newIDSet(g.start)
	} else {
		people0 = named0.intersect(idSet(g.moves[len(g.moves)-1].People1))
		if len(people0) == 0 {
			return g.reject(ReasonIncorrectContinuation), nil
		}
	}

	works, err := g.resolveWorks(ctx, work, people0)
	if err != nil {
		return Outcome{}, err
	}
	if len(works) == 0 {
		return g.reject(ReasonPerson0NotInWork), nil
	}

	people1, err := g.resolvePeople(ctx, person1, works)
	if err != nil {
		return Outcome{}, err
	}
	if len(people1) == 0 {
		return g.reject(ReasonPerson1NotInWork), nil
	}

	g.moves = append(g.moves, Move{
		People0: PersonIDSet(people0),
		People1: PersonIDSet(people1),
		Works:   WorkIDSet(works),
	})
	if people1.has(g.end) {
		g.status = Won
		return Outcome{Accepted: true, Message: MessageYouWin, Status: g.status}, nil
	}
	g.status = InProgress
	return Outcome{Accepted: true, Message: MessageKeepPlaying, Status: g.status}, nil
}

func (g *Game) reject(reason Reason) Outcome {
	return Outcome{Reason: reason, Message: string(reason), Status: g.status}
}

func (g *Game) searchPeople(ctx context.Context, name string) (idSet, error) {
	ids, _, err := g.resolver.SearchPeopleByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("search people %q: %w", name, err)
	}
	return newIDSet(ids...), nil
}

// resolveWorks returns the works titled title that any of people is known for.
func (g *Game) resolveWorks(ctx context.Context, title string, people idSet) (idSet, error) {
	ids, _, err := g.resolver.SearchWorksByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("search works %q: %w", title, err)
	}
	titled := newIDSet(ids...)
	if len(titled) == 0 {
		return titled, nil
	}

	known := make(idSet)
	for _, p := range people.sorted() {
		works, _, err := g.resolver.WorksKnownFor(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("works known for %s: %w", p, err)
		}
		for _, w := range works {
			known[w] = struct{}{}
		}
	}
	return titled.intersect(known), nil
}

// resolvePeople returns the people named name that contributed to any of works.
func (g *Game) resolvePeople(ctx context.Context, name string, works idSet) (idSet, error) {
	named, err := g.searchPeople(ctx, name)
	if err != nil || len(named) == 0 {
		return named, err
	}

	contributors := make(idSet)
	for _, w := range works.sorted() {
		credits, _, err := g.resolver.PeopleContributingTo(ctx, w)
		if err != nil {
			return nil, fmt.Errorf("people contributing to %s: %w", w, err)
		}
		for _, c := range credits {
			contributors[c.Person] = struct{}{}
		}
	}
	return named.intersect(contributors), nil
}
