package puzzles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/provider"
)

type loader struct {
	g     *graph.Graph
	err   error
	loads int
}

func (l *loader) Load(context.Context, string) (*graph.Graph, bool, error) {
	l.loads++
	if l.err != nil {
		return nil, false, l.err
	}
	if l.g == nil {
		return graph.New(), false, nil
	}
	return l.g, true, nil
}

// chain builds p1 -w1- p2 -w2- p3 with names.
func chain() *graph.Graph {
	g := graph.New()
	g.AddArc(graph.IntID(1), graph.IntID(1), "actor")
	g.AddArc(graph.IntID(1), graph.IntID(2), "actor")
	g.AddArc(graph.IntID(2), graph.IntID(2), "actor")
	g.AddArc(graph.IntID(2), graph.IntID(3), "actor")
	for id, name := range map[int64]string{1: "Kevin Bacon", 2: "Lori Singer", 3: "Tom Hanks"} {
		g.AddNode(graph.PersonNode(graph.IntID(id)), &graph.NodeAttrs{Name: name})
	}
	return g
}

func TestPoolMakeGame(t *testing.T) {
	for _, ranking := range []Ranking{ByWorks, ByPageRank} {
		t.Run(string(ranking), func(t *testing.T) {
			l := &loader{g: chain()}
			p := NewPool(NewPoolParams{Snapshots: l, Key: "films.json", Ranking: ranking})

			pz, err := p.MakeGame(context.Background(), 2)
			if err != nil {
				t.Fatalf("MakeGame: %v", err)
			}
			ends := map[graph.Node]bool{pz.Start: true, pz.End: true}
			if !ends[graph.PersonNode(graph.IntID(1))] || !ends[graph.PersonNode(graph.IntID(3))] {
				t.Fatalf("only p1 and p3 are two works apart, got %v -> %v", pz.Start, pz.End)
			}
			start, end := p.Label(context.Background(), pz)
			if start == "" || end == "" || start == end {
				t.Fatalf("labels = %q, %q", start, end)
			}
			if l.loads != 1 {
				t.Fatalf("snapshot loaded %d times", l.loads)
			}
		})
	}
}

func TestPoolRefresh(t *testing.T) {
	l := &loader{g: chain()}
	p := NewPool(NewPoolParams{Snapshots: l, Refresh: time.Minute})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := p.MakeGame(ctx, 1); err != nil {
		t.Fatalf("MakeGame: %v", err)
	}
	if _, err := p.MakeGame(ctx, 1); err != nil {
		t.Fatalf("MakeGame: %v", err)
	}
	if l.loads != 1 {
		t.Fatalf("expected a cached snapshot, loaded %d times", l.loads)
	}

	now = now.Add(2 * time.Minute)
	l.err = errors.New("bucket unreachable")
	if _, err := p.MakeGame(ctx, 1); err != nil {
		t.Fatalf("a failed refresh keeps the old snapshot: %v", err)
	}
	if l.loads != 2 {
		t.Fatalf("expected a refresh attempt, loaded %d times", l.loads)
	}
}

func TestPoolWithoutSnapshot(t *testing.T) {
	p := NewPool(NewPoolParams{Snapshots: &loader{}})
	if _, err := p.MakeGame(context.Background(), 1); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}

	p = NewPool(NewPoolParams{Snapshots: &loader{g: chain()}, Ranking: "loudness"})
	if _, err := p.MakeGame(context.Background(), 1); err == nil {
		t.Fatal("expected an error for an unknown ranking")
	}
}

// database knows one work the snapshot does not have.
type database struct {
	lookups int
}

func (d *database) PeopleContributingTo(_ context.Context, work graph.ID) ([]provider.Credit, bool, error) {
	d.lookups++
	if work != graph.IntID(9) {
		return nil, false, nil
	}
	return []provider.Credit{{Person: graph.IntID(3), Job: "actor"}}, true, nil
}

func (d *database) WorksKnownFor(_ context.Context, person graph.ID) ([]graph.ID, bool, error) {
	d.lookups++
	if person != graph.IntID(3) {
		return nil, false, nil
	}
	return []graph.ID{graph.IntID(9)}, true, nil
}

func (d *database) SearchPeopleByName(context.Context, string) ([]graph.ID, bool, error) {
	d.lookups++
	return nil, false, nil
}

func (d *database) SearchWorksByTitle(context.Context, string) ([]graph.ID, bool, error) {
	d.lookups++
	return nil, false, nil
}

func TestPoolResolver(t *testing.T) {
	ctx := context.Background()
	db := &database{}
	r := NewPool(NewPoolParams{Snapshots: &loader{g: chain()}}).Resolver(db)

	works, ok, err := r.WorksKnownFor(ctx, graph.IntID(2))
	if err != nil || !ok || len(works) != 2 {
		t.Fatalf("snapshot lookup = %v, %v, %v", works, ok, err)
	}
	people, ok, err := r.SearchPeopleByName(ctx, "lori singer")
	if err != nil || !ok || len(people) != 1 || people[0] != graph.IntID(2) {
		t.Fatalf("snapshot search = %v, %v, %v", people, ok, err)
	}
	if db.lookups != 0 {
		t.Fatalf("the database was asked %d times for snapshot data", db.lookups)
	}

	credits, ok, err := r.PeopleContributingTo(ctx, graph.IntID(9))
	if err != nil || !ok || len(credits) != 1 {
		t.Fatalf("database lookup = %v, %v, %v", credits, ok, err)
	}

	empty := NewPool(NewPoolParams{Snapshots: &loader{}}).Resolver(db)
	works, ok, err = empty.WorksKnownFor(ctx, graph.IntID(3))
	if err != nil || !ok || len(works) != 1 || works[0] != graph.IntID(9) {
		t.Fatalf("without a snapshot = %v, %v, %v", works, ok, err)
	}
}
