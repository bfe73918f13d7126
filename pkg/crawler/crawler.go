// Package crawler expands a bipartite professional graph outward from seed
// people and works using a work/person provider.
//
// Depth is spent when crossing from a work to its people. The crawler
// remembers, per work, the largest remaining depth it was expanded with, and
// expands a work again only when it is reached with a strictly larger budget.
package crawler

import (
	"context"
	"fmt"
	"sync"

	"github.com/OFFIS-RIT/cinegraph/backend/internal/util"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/provider"

	"golang.org/x/sync/errgroup"
)

// Source is the part of provider.Provider the crawler needs.
type Source interface {
	PeopleContributingTo(ctx context.Context, work graph.ID) ([]provider.Credit, bool, error)
	WorksKnownFor(ctx context.Context, person graph.ID) ([]graph.ID, bool, error)
}

// Stats counts what a crawl did.
type Stats struct {
	WorksExpanded  int `json:"works_expanded"`
	PeopleExpanded int `json:"people_expanded"`
	ArcsAdded      int `json:"arcs_added"`
	Skipped        int `json:"skipped"`
}

// Params configures a Crawler.
type Params struct {
	// MaxRetries is the number of attempts per provider call. Values below 1
	// mean a single attempt.
	MaxRetries int
}

// Option customizes a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.LoggerInstance) Option {
	return func(c *Crawler) {
		c.log = l
	}
}

// WithParallelSeeds expands up to n seeds concurrently.
func WithParallelSeeds(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.parallel = n
		}
	}
}

// WithGraph continues crawling into an existing graph.
func WithGraph(g *graph.Graph) Option {
	return func(c *Crawler) {
		if g != nil {
			c.g = g
		}
	}
}

// Crawler holds one crawl session: the graph being built and the depth record
// of expanded works. The depth record lives only as long as the Crawler.
type Crawler struct {
	source     Source
	attrs      provider.AttrSource
	log        logger.LoggerInstance
	parallel   int
	maxRetries int

	mu        sync.Mutex
	g         *graph.Graph
	depths    map[graph.ID]int
	described map[graph.Node]struct{}
	stats     Stats
}

// New creates a crawler reading from source. If source also implements
// provider.AttrSource, newly added nodes are annotated with its attributes.
func New(source Source, params Params, opts ...Option) *Crawler {
	c := &Crawler{
		source:     source,
		log:        logger.Nop(),
		parallel:   1,
		maxRetries: params.MaxRetries,
		g:          graph.New(),
		depths:     make(map[graph.ID]int),
		described:  make(map[graph.Node]struct{}),
	}
	if a, ok := source.(provider.AttrSource); ok {
		c.attrs = a
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Graph returns the graph being built. It must not be read while a traversal
// is running.
func (c *Crawler) Graph() *graph.Graph {
	return c.g
}

// Stats returns the counters accumulated so far.
func (c *Crawler) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Depth returns the remaining depth work was last expanded with.
func (c *Crawler) Depth(work graph.ID) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.depths[work]
	return d, ok
}

// Traverse expands every seed work and person with the given depth. Seeds are
// expanded concurrently when WithParallelSeeds was given; graph and depth
// record writes are serialized either way.
func (c *Crawler) Traverse(ctx context.Context, depth int, works, people []graph.ID) (Stats, error) {
	c.log.Info("[Crawler] Starting traversal", "depth", depth, "works", len(works), "people", len(people))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.parallel)
	for _, w := range works {
		eg.Go(func() error {
			return c.TraverseFromWork(gCtx, w, depth)
		})
	}
	for _, p := range people {
		eg.Go(func() error {
			return c.TraverseFromPerson(gCtx, p, depth)
		})
	}
	err := eg.Wait()

	stats := c.Stats()
	if err != nil {
		c.log.Error("[Crawler] Traversal failed", "err", err)
		return stats, err
	}
	c.log.Info("[Crawler] Traversal finished",
		"nodes", c.g.NumNodes(),
		"edges", c.g.NumEdges(),
		"works_expanded", stats.WorksExpanded,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

// TraverseFromWork adds the contributors of work and continues from each of
// them with depth-1.
func (c *Crawler) TraverseFromWork(ctx context.Context, work graph.ID, depth int) error {
	if depth <= 0 {
		return nil
	}
	if !c.claim(work, depth) {
		return nil
	}

	credits, ok, err := util.Retry2WithContext(ctx, c.maxRetries,
		func(ctx context.Context) ([]provider.Credit, bool, error) {
			return c.source.PeopleContributingTo(ctx, work)
		},
	)
	if err != nil {
		return fmt.Errorf("people contributing to %s: %w", work, err)
	}
	if !ok {
		c.skip(graph.WorkNode(work))
		return nil
	}

	people := c.addCredits(work, credits, depth)
	if err := c.describe(ctx, graph.WorkNode(work)); err != nil {
		return err
	}
	for _, p := range people {
		if err := c.describe(ctx, graph.PersonNode(p)); err != nil {
			return err
		}
	}
	c.log.Debug("[Crawler] Expanded work", "work", work.String(), "depth", depth, "people", len(people))

	for _, p := range people {
		if err := c.TraverseFromPerson(ctx, p, depth-1); err != nil {
			return err
		}
	}
	return nil
}

// TraverseFromPerson continues from every work person is known for with the
// same depth. People are not memoized.
func (c *Crawler) TraverseFromPerson(ctx context.Context, person graph.ID, depth int) error {
	if depth <= 0 {
		return nil
	}

	works, ok, err := util.Retry2WithContext(ctx, c.maxRetries,
		func(ctx context.Context) ([]graph.ID, bool, error) {
			return c.source.WorksKnownFor(ctx, person)
		},
	)
	if err != nil {
		return fmt.Errorf("works known for %s: %w", person, err)
	}
	if !ok {
		c.skip(graph.PersonNode(person))
		return nil
	}

	c.mu.Lock()
	c.stats.PeopleExpanded++
	c.mu.Unlock()

	for _, w := range works {
		if err := c.TraverseFromWork(ctx, w, depth); err != nil {
			return err
		}
	}
	return nil
}

// claim records depth for work and reports whether the work must be
// expanded. Check and update happen under one lock.
func (c *Crawler) claim(work graph.ID, depth int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.depths[work]; ok && depth <= prev {
		return false
	}
	c.depths[work] = depth
	c.stats.WorksExpanded++
	return true
}

// addCredits adds one arc per credit and returns the distinct people in
// credit order.
func (c *Crawler) addCredits(work graph.ID, credits []provider.Credit, depth int) []graph.ID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.g.AddNode(graph.WorkNode(work), nil)
	seen := make(map[graph.ID]struct{}, len(credits))
	people := make([]graph.ID, 0, len(credits))
	for _, cr := range credits {
		if !c.g.HasEdge(graph.WorkNode(work), graph.PersonNode(cr.Person)) {
			c.stats.ArcsAdded++
		}
		e := c.g.AddArc(work, cr.Person, cr.Job)
		if cr.Job != "" {
			e.AddContribution(cr.Job, graph.Contribution{Ordering: cr.Order})
		}
		if depth > e.CrawlDepth {
			e.CrawlDepth = depth
		}
		if _, ok := seen[cr.Person]; !ok {
			seen[cr.Person] = struct{}{}
			people = append(people, cr.Person)
		}
	}
	return people
}

// describe fetches the attributes of n once per crawl session.
func (c *Crawler) describe(ctx context.Context, n graph.Node) error {
	if c.attrs == nil {
		return nil
	}
	c.mu.Lock()
	_, done := c.described[n]
	c.described[n] = struct{}{}
	c.mu.Unlock()
	if done {
		return nil
	}

	attrs, ok, err := util.Retry2WithContext(ctx, c.maxRetries,
		func(ctx context.Context) (*graph.NodeAttrs, bool, error) {
			return c.attrs.NodeAttrs(ctx, n)
		},
	)
	if err != nil {
		return fmt.Errorf("attributes of %s: %w", n, err)
	}
	if !ok {
		return nil
	}
	c.mu.Lock()
	c.g.AddNode(n, attrs)
	c.mu.Unlock()
	return nil
}

func (c *Crawler) skip(n graph.Node) {
	c.mu.Lock()
	c.stats.Skipped++
	c.mu.Unlock()
	c.log.Warn("[Crawler] Skipping unknown id", "node", n.String())
}
