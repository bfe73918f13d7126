package crawler

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/provider"
)

type fakeSource struct {
	mu       sync.Mutex
	credits  map[int64][]provider.Credit
	works    map[int64][]int64
	names    map[graph.Node]string
	failures map[int64]int
	fault    error
	calls    map[int64]int
}

func (f *fakeSource) PeopleContributingTo(_ context.Context, work graph.ID) ([]provider.Credit, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := work.Int()
	if !ok {
		return nil, false, nil
	}
	if f.calls == nil {
		f.calls = make(map[int64]int)
	}
	f.calls[n]++
	if f.failures[n] > 0 {
		f.failures[n]--
		return nil, false, f.fault
	}
	credits, ok := f.credits[n]
	return credits, ok, nil
}

func (f *fakeSource) WorksKnownFor(_ context.Context, person graph.ID) ([]graph.ID, bool, error) {
	n, ok := person.Int()
	if !ok {
		return nil, false, nil
	}
	ws, ok := f.works[n]
	if !ok {
		return nil, false, nil
	}
	ids := make([]graph.ID, len(ws))
	for i, w := range ws {
		ids[i] = graph.IntID(w)
	}
	return ids, true, nil
}

func (f *fakeSource) callsFor(work int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[work]
}

type describedSource struct {
	*fakeSource
}

func (d describedSource) NodeAttrs(_ context.Context, n graph.Node) (*graph.NodeAttrs, bool, error) {
	name, ok := d.names[n]
	if !ok {
		return nil, false, nil
	}
	if n.IsPerson {
		return &graph.NodeAttrs{Name: name}, true, nil
	}
	return &graph.NodeAttrs{Title: name}, true, nil
}

func credit(person int64, job string, order int) provider.Credit {
	return provider.Credit{Person: graph.IntID(person), Job: job, Order: order}
}

// collaborations: w1 {p1, p2}, w2 {p1, p3}, w3 {p3, p4}
func collaborations() *fakeSource {
	return &fakeSource{
		credits: map[int64][]provider.Credit{
			1: {credit(1, "actor", 1), credit(2, "director", 2)},
			2: {credit(1, "actor", 1), credit(3, "actor", 2)},
			3: {credit(3, "writer", 1), credit(4, "actor", 2)},
		},
		works: map[int64][]int64{
			1: {1, 2},
			2: {1},
			3: {2, 3},
			4: {3},
		},
	}
}

func TestReexpandOnDeeperReach(t *testing.T) {
	src := collaborations()
	c := New(src, Params{})
	ctx := context.Background()

	if err := c.TraverseFromWork(ctx, graph.IntID(1), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Graph().HasNode(graph.WorkNode(graph.IntID(2))) {
		t.Fatal("depth 1 must not reach w2")
	}

	if err := c.TraverseFromWork(ctx, graph.IntID(1), 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := src.callsFor(1); got != 2 {
		t.Fatalf("expected w1 to be expanded twice, got %d", got)
	}
	if d, _ := c.Depth(graph.IntID(1)); d != 3 {
		t.Fatalf("expected recorded depth 3, got %d", d)
	}
	if !c.Graph().HasEdge(graph.WorkNode(graph.IntID(3)), graph.PersonNode(graph.IntID(4))) {
		t.Fatal("depth 3 should reach the w3 cast")
	}

	if err := c.TraverseFromWork(ctx, graph.IntID(1), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := src.callsFor(1); got != 2 {
		t.Fatalf("shallower reach must not re-expand, got %d calls", got)
	}
	if d, _ := c.Depth(graph.IntID(1)); d != 3 {
		t.Fatalf("recorded depth must not shrink, got %d", d)
	}
}

func TestEqualDepthDoesNotReexpand(t *testing.T) {
	src := collaborations()
	c := New(src, Params{})
	ctx := context.Background()

	for range 2 {
		if err := c.TraverseFromWork(ctx, graph.IntID(1), 2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := src.callsFor(1); got != 1 {
		t.Fatalf("expected a single expansion, got %d", got)
	}
}

func TestTraverseFromPersonKeepsDepth(t *testing.T) {
	c := New(collaborations(), Params{})
	if err := c.TraverseFromPerson(context.Background(), graph.IntID(1), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []graph.Node{
		graph.WorkNode(graph.IntID(1)),
		graph.PersonNode(graph.IntID(1)),
		graph.PersonNode(graph.IntID(2)),
		graph.WorkNode(graph.IntID(2)),
		graph.PersonNode(graph.IntID(3)),
	}
	if got := c.Graph().Nodes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("nodes = %v, want %v", got, want)
	}
	if d, _ := c.Depth(graph.IntID(2)); d != 1 {
		t.Fatalf("works of a person inherit its depth, got %d", d)
	}
}

func TestZeroDepthIsNoop(t *testing.T) {
	src := collaborations()
	c := New(src, Params{})
	stats, err := c.Traverse(context.Background(), 0, []graph.ID{graph.IntID(1)}, []graph.ID{graph.IntID(1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Graph().NumNodes() != 0 || stats != (Stats{}) {
		t.Fatalf("expected nothing to happen, got %d nodes and %+v", c.Graph().NumNodes(), stats)
	}
}

func TestArcsCarryCreditDetails(t *testing.T) {
	c := New(collaborations(), Params{})
	if err := c.TraverseFromWork(context.Background(), graph.IntID(1), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, ok := c.Graph().Edge(graph.WorkNode(graph.IntID(1)), graph.PersonNode(graph.IntID(2)))
	if !ok {
		t.Fatal("expected arc w1-p2")
	}
	if !e.Jobs.Has("director") || !e.ContributedAs("director") {
		t.Fatalf("unexpected jobs %v", e.Jobs.Sorted())
	}
	if order, _ := e.Order(); order != 2 {
		t.Fatalf("expected ordering 2, got %d", order)
	}
	if e.CrawlDepth != 2 {
		t.Fatalf("expected crawl depth 2, got %d", e.CrawlDepth)
	}
}

func TestUnknownIDsAreSkipped(t *testing.T) {
	src := collaborations()
	src.credits[5] = []provider.Credit{credit(99, "actor", 1), credit(1, "actor", 2)}
	c := New(src, Params{})

	stats, err := c.Traverse(context.Background(), 2,
		[]graph.ID{graph.IntID(5), graph.IntID(404), graph.StringID("tt-bad")},
		nil,
	)
	if err != nil {
		t.Fatalf("unknown ids must not abort the crawl: %v", err)
	}
	if stats.Skipped != 3 {
		t.Fatalf("expected 3 skipped ids (w404, tt-bad, p99), got %d", stats.Skipped)
	}
	if !c.Graph().HasEdge(graph.WorkNode(graph.IntID(5)), graph.PersonNode(graph.IntID(99))) {
		t.Fatal("the arc to an unknown person is still recorded")
	}
	if !c.Graph().HasNode(graph.WorkNode(graph.IntID(2))) {
		t.Fatal("crawl should continue past skipped ids")
	}
}

func TestProviderFaultPropagates(t *testing.T) {
	fault := errors.New("connection refused")
	src := collaborations()
	src.fault = fault
	src.failures = map[int64]int{2: 5}

	c := New(src, Params{MaxRetries: 3})
	_, err := c.Traverse(context.Background(), 2, []graph.ID{graph.IntID(1)}, nil)
	if !errors.Is(err, fault) {
		t.Fatalf("expected provider fault, got %v", err)
	}
	if got := src.callsFor(2); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestTransientFaultIsRetried(t *testing.T) {
	src := collaborations()
	src.fault = errors.New("timeout")
	src.failures = map[int64]int{1: 2}

	c := New(src, Params{MaxRetries: 3})
	if _, err := c.Traverse(context.Background(), 1, []graph.ID{graph.IntID(1)}, nil); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if c.Graph().NumEdges() != 2 {
		t.Fatalf("expected 2 edges, got %d", c.Graph().NumEdges())
	}
}

func TestParallelSeedsMatchSequential(t *testing.T) {
	seeds := []graph.ID{graph.IntID(1), graph.IntID(2), graph.IntID(3)}
	people := []graph.ID{graph.IntID(4)}

	seq := New(collaborations(), Params{})
	if _, err := seq.Traverse(context.Background(), 3, seeds, people); err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par := New(collaborations(), Params{}, WithParallelSeeds(4))
	if _, err := par.Traverse(context.Background(), 3, seeds, people); err != nil {
		t.Fatalf("parallel: %v", err)
	}

	if got, want := sortedNodes(par.Graph()), sortedNodes(seq.Graph()); !reflect.DeepEqual(got, want) {
		t.Fatalf("parallel nodes %v, sequential nodes %v", got, want)
	}
	if par.Graph().NumEdges() != seq.Graph().NumEdges() {
		t.Fatalf("parallel edges %d, sequential edges %d", par.Graph().NumEdges(), seq.Graph().NumEdges())
	}
}

func TestWithGraphContinuesExistingGraph(t *testing.T) {
	g := graph.New()
	g.AddArc(graph.IntID(100), graph.IntID(100), "actor")

	c := New(collaborations(), Params{}, WithGraph(g))
	if _, err := c.Traverse(context.Background(), 1, []graph.ID{graph.IntID(1)}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Graph() != g || g.NumEdges() != 3 {
		t.Fatalf("expected crawl to extend the given graph, got %d edges", g.NumEdges())
	}
}

func TestNodesAreDescribed(t *testing.T) {
	src := collaborations()
	src.names = map[graph.Node]string{
		graph.WorkNode(graph.IntID(1)):   "Footloose",
		graph.PersonNode(graph.IntID(1)): "Kevin Bacon",
	}
	c := New(describedSource{src}, Params{})
	if _, err := c.Traverse(context.Background(), 1, []graph.ID{graph.IntID(1)}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := c.Graph()
	if got := g.Attrs(graph.WorkNode(graph.IntID(1))).Title; got != "Footloose" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := g.Attrs(graph.PersonNode(graph.IntID(1))).Name; got != "Kevin Bacon" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := g.Attrs(graph.PersonNode(graph.IntID(2))).Label(); got != "" {
		t.Fatalf("undescribed node should have no label, got %q", got)
	}
}

func sortedNodes(g *graph.Graph) []string {
	var out []string
	for _, n := range g.Nodes() {
		out = append(out, n.GoString())
	}
	slices.Sort(out)
	return out
}
