// Package graph implements the bipartite professional graph: people and works
// are nodes, participation is an undirected edge between a person and a work.
//
// A Graph is not safe for concurrent mutation. Callers that expand a graph
// from several goroutines must serialize writes (see package crawler).
package graph

import (
	"errors"
	"slices"
)

var (
	ErrNotBipartite = errors.New("graph: edge must connect a person and a work")
	ErrNodeNotFound = errors.New("graph: node not found")
)

// NodeAttrs holds the optional domain attributes of a node. Which fields are
// set depends on how the node was populated; consumers must tolerate absence.
type NodeAttrs struct {
	Name        string   `json:"name,omitempty"`
	Title       string   `json:"title,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	Votes       *int64   `json:"votes,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Professions []string `json:"professions,omitempty"`
	BirthYear   *int     `json:"birth_year,omitempty"`
	DeathYear   *int     `json:"death_year,omitempty"`
	StartYear   *int     `json:"start_year,omitempty"`
}

// Label returns the name of a person or the title of a work, falling back to
// the other field when the expected one is empty.
func (a *NodeAttrs) Label() string {
	if a == nil {
		return ""
	}
	if a.Name != "" {
		return a.Name
	}
	return a.Title
}

// HasProfession reports whether profession is listed for the node.
func (a *NodeAttrs) HasProfession(profession string) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.Professions, profession)
}

func (a *NodeAttrs) merge(b *NodeAttrs) {
	if b == nil {
		return
	}
	if b.Name != "" {
		a.Name = b.Name
	}
	if b.Title != "" {
		a.Title = b.Title
	}
	if b.Rating != nil {
		a.Rating = b.Rating
	}
	if b.Votes != nil {
		a.Votes = b.Votes
	}
	if b.Genres != nil {
		a.Genres = b.Genres
	}
	if b.Professions != nil {
		a.Professions = b.Professions
	}
	if b.BirthYear != nil {
		a.BirthYear = b.BirthYear
	}
	if b.DeathYear != nil {
		a.DeathYear = b.DeathYear
	}
	if b.StartYear != nil {
		a.StartYear = b.StartYear
	}
}

type edgeKey struct {
	person ID
	work   ID
}

// Graph is an undirected bipartite graph of people and works. Nodes, neighbor
// lists and edges keep insertion order so iteration is deterministic.
type Graph struct {
	attrs map[Node]*NodeAttrs
	nodes []Node
	adj   map[Node][]*Edge
	index map[edgeKey]*Edge
	edges []*Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		attrs: make(map[Node]*NodeAttrs),
		adj:   make(map[Node][]*Edge),
		index: make(map[edgeKey]*Edge),
	}
}

// AddNode adds n if it is not present yet and merges the non-empty fields of
// attrs into its attribute record. attrs may be nil.
func (g *Graph) AddNode(n Node, attrs *NodeAttrs) {
	a, ok := g.attrs[n]
	if !ok {
		a = &NodeAttrs{}
		g.attrs[n] = a
		g.nodes = append(g.nodes, n)
	}
	a.merge(attrs)
}

// HasNode reports whether n is in the graph.
func (g *Graph) HasNode(n Node) bool {
	_, ok := g.attrs[n]
	return ok
}

// Attrs returns the attribute record of n, or nil if n is not in the graph.
// The record is shared; mutating it updates the graph.
func (g *Graph) Attrs(n Node) *NodeAttrs {
	return g.attrs[n]
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	return slices.Clone(g.nodes)
}

func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

func (g *Graph) NumEdges() int {
	return len(g.edges)
}

// AddArc registers that person contributed to work with the given job. Both
// nodes and the edge are created when missing. Re-adding an existing arc only
// accumulates the job; an empty job registers the arc without a role.
func (g *Graph) AddArc(work, person ID, job string) *Edge {
	e := g.ensureEdge(PersonNode(person), WorkNode(work))
	if job != "" {
		e.Jobs.Add(job)
	}
	return e
}

// AddEdge connects a and b, given in either order. It fails with
// ErrNotBipartite when both nodes are of the same kind.
func (g *Graph) AddEdge(a, b Node) (*Edge, error) {
	if a.IsPerson == b.IsPerson {
		return nil, ErrNotBipartite
	}
	p, w := a, b
	if !p.IsPerson {
		p, w = b, a
	}
	return g.ensureEdge(p, w), nil
}

func (g *Graph) ensureEdge(person, work Node) *Edge {
	key := edgeKey{person: person.ID, work: work.ID}
	if e, ok := g.index[key]; ok {
		return e
	}
	g.AddNode(work, nil)
	g.AddNode(person, nil)
	e := &Edge{
		Person: person,
		Work:   work,
		Jobs:   JobSet{},
	}
	g.insertEdge(e)
	return e
}

func (g *Graph) insertEdge(e *Edge) {
	g.index[edgeKey{person: e.Person.ID, work: e.Work.ID}] = e
	g.edges = append(g.edges, e)
	g.adj[e.Work] = append(g.adj[e.Work], e)
	g.adj[e.Person] = append(g.adj[e.Person], e)
}

// Edge returns the edge between a and b, given in either order.
func (g *Graph) Edge(a, b Node) (*Edge, bool) {
	if a.IsPerson == b.IsPerson {
		return nil, false
	}
	if !a.IsPerson {
		a, b = b, a
	}
	e, ok := g.index[edgeKey{person: a.ID, work: b.ID}]
	return e, ok
}

// HasEdge reports whether a and b are adjacent.
func (g *Graph) HasEdge(a, b Node) bool {
	_, ok := g.Edge(a, b)
	return ok
}

// Edges returns the edges in insertion order. The edge records are shared.
func (g *Graph) Edges() []*Edge {
	return slices.Clone(g.edges)
}

// Neighbors returns the nodes adjacent to n in insertion order.
func (g *Graph) Neighbors(n Node) []Node {
	edges := g.adj[n]
	out := make([]Node, len(edges))
	for i, e := range edges {
		out[i] = e.Other(n)
	}
	return out
}

// Degree returns the number of edges touching n.
func (g *Graph) Degree(n Node) int {
	return len(g.adj[n])
}

// Subgraph returns the subgraph induced by keep. Node and edge records are
// shared with g, so annotating the subgraph annotates g as well.
func (g *Graph) Subgraph(keep map[Node]struct{}) *Graph {
	sub := New()
	for _, n := range g.nodes {
		if _, ok := keep[n]; ok {
			sub.attrs[n] = g.attrs[n]
			sub.nodes = append(sub.nodes, n)
		}
	}
	for _, e := range g.edges {
		_, okP := keep[e.Person]
		_, okW := keep[e.Work]
		if okP && okW {
			sub.insertEdge(e)
		}
	}
	return sub
}

// EdgeSubgraph returns the subgraph made of the given edges and their
// endpoints. Records are shared with g.
func (g *Graph) EdgeSubgraph(edges []*Edge) *Graph {
	keepEdges := make(map[*Edge]struct{}, len(edges))
	keepNodes := make(map[Node]struct{}, 2*len(edges))
	for _, e := range edges {
		keepEdges[e] = struct{}{}
		keepNodes[e.Person] = struct{}{}
		keepNodes[e.Work] = struct{}{}
	}
	sub := New()
	for _, n := range g.nodes {
		if _, ok := keepNodes[n]; ok {
			sub.attrs[n] = g.attrs[n]
			sub.nodes = append(sub.nodes, n)
		}
	}
	for _, e := range g.edges {
		if _, ok := keepEdges[e]; ok {
			sub.insertEdge(e)
		}
	}
	return sub
}
