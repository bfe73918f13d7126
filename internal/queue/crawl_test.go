package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/fame"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/provider"
)

type snapshots struct {
	graphs map[string]*graph.Graph
	saves  int
}

func (s *snapshots) Load(_ context.Context, key string) (*graph.Graph, bool, error) {
	g, ok := s.graphs[key]
	if !ok {
		return graph.New(), false, nil
	}
	return g, true, nil
}

func (s *snapshots) Save(_ context.Context, key string, g *graph.Graph) error {
	s.graphs[key] = g
	s.saves++
	return nil
}

type locker struct {
	keys []string
	err  error
}

func (l *locker) WithLease(ctx context.Context, key string, _ leaselock.Options, fn func(context.Context) error) error {
	l.keys = append(l.keys, key)
	if l.err != nil {
		return l.err
	}
	return fn(ctx)
}

// catalog is the source of truth the crawler reads from.
func catalog() *provider.GraphProvider {
	g := graph.New()
	e := g.AddArc(graph.IntID(1), graph.IntID(10), "actor")
	e.AddContribution("actor", graph.Contribution{Ordering: 1})
	e = g.AddArc(graph.IntID(1), graph.IntID(11), "actor")
	e.AddContribution("actor", graph.Contribution{Ordering: 2})
	g.AddArc(graph.IntID(2), graph.IntID(11), "actor")
	g.AddArc(graph.IntID(2), graph.IntID(12), "director")
	return provider.NewGraphProvider(g)
}

func encode(t *testing.T, m QueueCrawlMsg) []byte {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}

func TestProcessCrawlMessage(t *testing.T) {
	store := &snapshots{graphs: map[string]*graph.Graph{}}
	locks := &locker{}
	deps := CrawlDeps{Source: catalog(), Snapshots: store, Locks: locks, DefaultSnapshot: "films.json", MaxRetries: 1}

	msg, err := NewCrawlMsg("", []graph.ID{graph.IntID(1)}, nil, 2, fame.StrategyCreditOrder)
	if err != nil {
		t.Fatalf("NewCrawlMsg: %v", err)
	}
	stats, err := ProcessCrawlMessage(context.Background(), deps, encode(t, msg))
	if err != nil {
		t.Fatalf("ProcessCrawlMessage: %v", err)
	}

	if len(locks.keys) != 1 || locks.keys[0] != "snapshot:films.json" {
		t.Fatalf("lock keys = %v", locks.keys)
	}
	g := store.graphs["films.json"]
	if g == nil || store.saves != 1 {
		t.Fatal("snapshot was not saved")
	}
	if !g.HasEdge(graph.WorkNode(graph.IntID(2)), graph.PersonNode(graph.IntID(12))) {
		t.Fatal("depth 2 reaches the director of work 2")
	}
	if stats.WorksExpanded != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	e, _ := g.Edge(graph.WorkNode(graph.IntID(1)), graph.PersonNode(graph.IntID(10)))
	if w, ok := e.Weight(graph.DefaultWeight); !ok || w != fame.CreditOrderWeight(1) {
		t.Fatalf("credit order weight = %v, %v", w, ok)
	}
}

func TestProcessCrawlMessageRejects(t *testing.T) {
	deps := CrawlDeps{Source: catalog(), Snapshots: &snapshots{graphs: map[string]*graph.Graph{}}, Locks: &locker{}}
	tests := []struct {
		name string
		body []byte
	}{
		{name: "not json", body: []byte("{")},
		{name: "no seeds", body: encode(t, QueueCrawlMsg{Depth: 1})},
		{name: "zero depth", body: encode(t, QueueCrawlMsg{Works: []graph.ID{graph.IntID(1)}})},
		{name: "unknown weighting", body: encode(t, QueueCrawlMsg{Works: []graph.ID{graph.IntID(1)}, Depth: 1, Weighting: "loudness"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ProcessCrawlMessage(context.Background(), deps, tt.body); !errors.Is(err, ErrInvalidMessage) {
				t.Fatalf("expected ErrInvalidMessage, got %v", err)
			}
		})
	}
}

func TestProcessCrawlMessageLockFailure(t *testing.T) {
	store := &snapshots{graphs: map[string]*graph.Graph{}}
	deps := CrawlDeps{Source: catalog(), Snapshots: store, Locks: &locker{err: leaselock.ErrBusy}}

	body := encode(t, QueueCrawlMsg{Snapshot: "s.json", Works: []graph.ID{graph.IntID(1)}, Depth: 1})
	if _, err := ProcessCrawlMessage(context.Background(), deps, body); !errors.Is(err, leaselock.ErrBusy) || errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if store.saves != 0 {
		t.Fatal("nothing may be saved without the lock")
	}
}
