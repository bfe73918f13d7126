package graph

import (
	"fmt"
	"strings"
)

// ProfessionalSubgraph returns the edge subgraph in which works are connected
// only through collaborators holding one of jobs. For a movie graph with
// actors, directors and writers, ProfessionalSubgraph(g, "actor") keeps the
// structure connected by acting credits.
func ProfessionalSubgraph(g *Graph, jobs ...string) *Graph {
	want := NewJobSet(jobs...)
	var edges []*Edge
	for _, e := range g.edges {
		if e.Jobs.Intersects(want) {
			edges = append(edges, e)
		}
	}
	return g.EdgeSubgraph(edges)
}

// PathDetails looks up every node of path with getPerson or getWork.
func PathDetails[T any](path []Node, getPerson, getWork func(ID) (T, error)) ([]T, error) {
	details := make([]T, 0, len(path))
	for _, n := range path {
		get := getWork
		if n.IsPerson {
			get = getPerson
		}
		d, err := get(n.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get details for %s: %w", n, err)
		}
		details = append(details, d)
	}
	return details, nil
}

// FormatPath renders path with the names and titles stored on g, e.g.
// "Kevin Bacon -> Footloose -> Lori Singer". Nodes without a label are
// rendered as "<person 42>".
func FormatPath(g *Graph, path []Node) string {
	parts := make([]string, len(path))
	for i, n := range path {
		if label := g.Attrs(n).Label(); label != "" {
			parts[i] = label
			continue
		}
		parts[i] = n.String()
	}
	return strings.Join(parts, " -> ")
}
