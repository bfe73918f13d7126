package graph

import (
	"encoding/json"
	"fmt"
	"io"
)

type snapshotNode struct {
	ID       ID         `json:"id"`
	IsPerson bool       `json:"is_person"`
	Attrs    *NodeAttrs `json:"attrs,omitempty"`
}

type snapshotEdge struct {
	Person ID `json:"person"`
	Work   ID `json:"work"`
	*Edge
}

type snapshot struct {
	Nodes []snapshotNode `json:"nodes"`
	Edges []snapshotEdge `json:"edges"`
}

// Encode writes g as JSON. Node and edge order is preserved.
func (g *Graph) Encode(w io.Writer) error {
	s := snapshot{
		Nodes: make([]snapshotNode, len(g.nodes)),
		Edges: make([]snapshotEdge, len(g.edges)),
	}
	for i, n := range g.nodes {
		s.Nodes[i] = snapshotNode{ID: n.ID, IsPerson: n.IsPerson, Attrs: g.attrs[n]}
	}
	for i, e := range g.edges {
		s.Edges[i] = snapshotEdge{Person: e.Person.ID, Work: e.Work.ID, Edge: e}
	}
	return json.NewEncoder(w).Encode(s)
}

// Decode reads a graph written by Encode.
func Decode(r io.Reader) (*Graph, error) {
	var s snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode graph snapshot: %w", err)
	}
	g := New()
	for _, n := range s.Nodes {
		g.AddNode(NewNode(n.ID, n.IsPerson), n.Attrs)
	}
	for _, se := range s.Edges {
		if se.Edge == nil {
			return nil, fmt.Errorf("edge %s-%s has no attributes", se.Person, se.Work)
		}
		e := g.ensureEdge(PersonNode(se.Person), WorkNode(se.Work))
		for j := range se.Jobs {
			e.Jobs.Add(j)
		}
		for cat, c := range se.Contributions {
			e.AddContribution(cat, c)
		}
		for name, w := range se.Weights {
			e.SetWeight(name, w)
		}
		e.CrawlDepth = se.CrawlDepth
	}
	return g, nil
}
