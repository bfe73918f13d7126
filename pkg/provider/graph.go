package provider

import (
	"context"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
)

// GraphProvider answers lookups from a populated graph. Searches match node
// names and titles case-insensitively after trimming. The name index is built
// once by NewGraphProvider; nodes added to the graph afterwards are not
// searchable.
type GraphProvider struct {
	g      *graph.Graph
	people map[string][]graph.ID
	works  map[string][]graph.ID
}

// NewGraphProvider indexes the names and titles stored on g.
func NewGraphProvider(g *graph.Graph) *GraphProvider {
	p := &GraphProvider{
		g:      g,
		people: make(map[string][]graph.ID),
		works:  make(map[string][]graph.ID),
	}
	for _, n := range g.Nodes() {
		label := normalize(g.Attrs(n).Label())
		if label == "" {
			continue
		}
		if n.IsPerson {
			p.people[label] = append(p.people[label], n.ID)
		} else {
			p.works[label] = append(p.works[label], n.ID)
		}
	}
	return p
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func (p *GraphProvider) PeopleContributingTo(_ context.Context, work graph.ID) ([]Credit, bool, error) {
	n := graph.WorkNode(work)
	if !p.g.HasNode(n) {
		return nil, false, nil
	}
	var credits []Credit
	for _, person := range p.g.Neighbors(n) {
		e, _ := p.g.Edge(n, person)
		order, _ := e.Order()
		if len(e.Jobs) == 0 {
			credits = append(credits, Credit{Person: person.ID, Order: order})
			continue
		}
		for _, job := range e.Jobs.Sorted() {
			credits = append(credits, Credit{Person: person.ID, Job: job, Order: order})
		}
	}
	return credits, true, nil
}

func (p *GraphProvider) WorksKnownFor(_ context.Context, person graph.ID) ([]graph.ID, bool, error) {
	n := graph.PersonNode(person)
	if !p.g.HasNode(n) {
		return nil, false, nil
	}
	neighbors := p.g.Neighbors(n)
	ids := make([]graph.ID, len(neighbors))
	for i, w := range neighbors {
		ids[i] = w.ID
	}
	return ids, true, nil
}

func (p *GraphProvider) SearchPeopleByName(_ context.Context, name string) ([]graph.ID, bool, error) {
	ids := p.people[normalize(name)]
	return slices.Clone(ids), len(ids) > 0, nil
}

func (p *GraphProvider) SearchWorksByTitle(_ context.Context, title string) ([]graph.ID, bool, error) {
	ids := p.works[normalize(title)]
	return slices.Clone(ids), len(ids) > 0, nil
}

// NodeAttrs returns a copy of the attributes stored on the graph.
func (p *GraphProvider) NodeAttrs(_ context.Context, n graph.Node) (*graph.NodeAttrs, bool, error) {
	a := p.g.Attrs(n)
	if a == nil {
		return nil, false, nil
	}
	cp := *a
	return &cp, true, nil
}

// Cast orders the acting credits of work by their credit ordering. Actors
// without an ordering keep graph order after the ordered ones.
func (p *GraphProvider) Cast(_ context.Context, work graph.ID) ([]graph.ID, bool, error) {
	n := graph.WorkNode(work)
	if !p.g.HasNode(n) {
		return nil, false, nil
	}
	type billed struct {
		id      graph.ID
		order   int
		ordered bool
	}
	var cast []billed
	for _, person := range p.g.Neighbors(n) {
		e, _ := p.g.Edge(n, person)
		if !e.Jobs.Has("actor") && !e.ContributedAs("actor") && !e.ContributedAs("actress") {
			continue
		}
		order, ok := e.Order()
		cast = append(cast, billed{id: person.ID, order: order, ordered: ok})
	}
	slices.SortStableFunc(cast, func(a, b billed) int {
		switch {
		case a.ordered && !b.ordered:
			return -1
		case !a.ordered && b.ordered:
			return 1
		}
		return a.order - b.order
	})
	ids := make([]graph.ID, len(cast))
	for i, c := range cast {
		ids[i] = c.id
	}
	return ids, true, nil
}
