// Package puzzles builds game makers from the current graph snapshot.
package puzzles

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/fame"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/game"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/provider"
)

// ErrNoSnapshot is returned before any crawl has produced a snapshot.
var ErrNoSnapshot = errors.New("no graph snapshot available")

// Ranking selects how candidates are chosen.
type Ranking string

const (
	ByWorks    Ranking = "works"
	ByPageRank Ranking = "pagerank"
)

// Loader is implemented by storage.Snapshots.
type Loader interface {
	Load(ctx context.Context, key string) (*graph.Graph, bool, error)
}

type NewPoolParams struct {
	Snapshots Loader
	Key       string

	// Candidates is the number of most famous people puzzles are drawn from.
	Candidates int
	Ranking    Ranking
	// Refresh is how long a loaded snapshot is reused. Zero loads it once.
	Refresh time.Duration
	MaxIter int
}

// Pool serves puzzles from a cached GameMaker. It is safe for concurrent use.
type Pool struct {
	params NewPoolParams
	now    func() time.Time

	mu     sync.Mutex
	snap   *snapshot
	loaded time.Time
}

// snapshot is one loaded graph with everything derived from it.
type snapshot struct {
	g        *graph.Graph
	maker    *game.GameMaker
	provider *provider.GraphProvider
}

func NewPool(params NewPoolParams) *Pool {
	if params.Candidates <= 0 {
		params.Candidates = 100
	}
	if params.Ranking == "" {
		params.Ranking = ByWorks
	}
	if params.MaxIter <= 0 {
		params.MaxIter = game.DefaultMaxIter
	}
	return &Pool{params: params, now: time.Now}
}

func (p *Pool) MakeGame(ctx context.Context, distance int) (game.Puzzle, error) {
	snap, err := p.current(ctx)
	if err != nil {
		return game.Puzzle{}, err
	}
	r := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	return snap.maker.MakeGame(distance, r)
}

// Label returns the names of the puzzle ends as recorded in the snapshot.
func (p *Pool) Label(ctx context.Context, pz game.Puzzle) (string, string) {
	snap, err := p.current(ctx)
	if err != nil {
		return "", ""
	}
	return snap.g.Attrs(pz.Start).Label(), snap.g.Attrs(pz.End).Label()
}

// Resolver answers move lookups from the current snapshot and asks db for
// anything the snapshot does not know. Without a snapshot only db is asked.
func (p *Pool) Resolver(db provider.Provider) provider.Provider {
	return &resolver{pool: p, db: db}
}

func (p *Pool) current(ctx context.Context) (*snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fresh := p.snap != nil && (p.params.Refresh <= 0 || p.now().Sub(p.loaded) < p.params.Refresh)
	if fresh {
		return p.snap, nil
	}

	g, found, err := p.params.Snapshots.Load(ctx, p.params.Key)
	if err != nil {
		if p.snap != nil {
			logger.Warn("[Puzzles] Failed to refresh snapshot, keeping the old one", "err", err)
			return p.snap, nil
		}
		return nil, err
	}
	if !found {
		return nil, ErrNoSnapshot
	}

	candidates, err := p.candidates(g)
	if err != nil {
		return nil, err
	}
	maker := game.NewGameMaker(g, candidates)
	maker.MaxIter = p.params.MaxIter

	p.snap = &snapshot{g: g, maker: maker, provider: provider.NewGraphProvider(g)}
	p.loaded = p.now()
	logger.Info("[Puzzles] Loaded snapshot",
		"key", p.params.Key,
		"nodes", g.NumNodes(),
		"candidates", len(candidates),
		"ranking", string(p.params.Ranking),
	)
	return p.snap, nil
}

// candidates returns the most famous people of g.
func (p *Pool) candidates(g *graph.Graph) ([]graph.Node, error) {
	n := p.params.Candidates
	switch p.params.Ranking {
	case ByPageRank:
		ranked, _, err := fame.FameByPageRank(g, nil, fame.WithWeight(graph.DefaultWeight))
		if err == nil {
			out := make([]graph.Node, 0, min(n, len(ranked)))
			for _, r := range ranked[:min(n, len(ranked))] {
				out = append(out, r.Node)
			}
			return out, nil
		}
		logger.Warn("[Puzzles] PageRank failed, ranking by number of works", "err", err)
	case ByWorks:
	default:
		return nil, fmt.Errorf("unknown candidate ranking %q", string(p.params.Ranking))
	}

	known := fame.FameByNumberOfWorks(g, nil)
	out := make([]graph.Node, 0, min(n, len(known)))
	for _, k := range known[:min(n, len(known))] {
		out = append(out, k.Node)
	}
	return out, nil
}

type resolver struct {
	pool *Pool
	db   provider.Provider
}

func (r *resolver) source(ctx context.Context) provider.Provider {
	snap, err := r.pool.current(ctx)
	if err != nil {
		return r.db
	}
	return &provider.Fallback{Primary: snap.provider, Secondary: r.db}
}

func (r *resolver) PeopleContributingTo(ctx context.Context, work graph.ID) ([]provider.Credit, bool, error) {
	return r.source(ctx).PeopleContributingTo(ctx, work)
}

func (r *resolver) WorksKnownFor(ctx context.Context, person graph.ID) ([]graph.ID, bool, error) {
	return r.source(ctx).WorksKnownFor(ctx, person)
}

func (r *resolver) SearchPeopleByName(ctx context.Context, name string) ([]graph.ID, bool, error) {
	return r.source(ctx).SearchPeopleByName(ctx, name)
}

func (r *resolver) SearchWorksByTitle(ctx context.Context, title string) ([]graph.ID, bool, error) {
	return r.source(ctx).SearchWorksByTitle(ctx, title)
}
