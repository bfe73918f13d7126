package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/cinegraph/backend/internal/util"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/crawler"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/fame"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// QueueCrawlMsg asks a worker to extend the snapshot Snapshot by crawling
// from the seed works and people.
type QueueCrawlMsg struct {
	Message       string        `json:"message,omitempty"`
	CorrelationID string        `json:"correlation_id"`
	Snapshot      string        `json:"snapshot,omitempty"`
	Works         []graph.ID    `json:"works,omitempty"`
	People        []graph.ID    `json:"people,omitempty"`
	Depth         int           `json:"depth"`
	Weighting     fame.Strategy `json:"weighting,omitempty"`
}

// NewCrawlMsg builds a message with a fresh correlation id.
func NewCrawlMsg(snapshot string, works, people []graph.ID, depth int, weighting fame.Strategy) (QueueCrawlMsg, error) {
	id, err := gonanoid.New()
	if err != nil {
		return QueueCrawlMsg{}, err
	}
	m := QueueCrawlMsg{
		Message:       "Crawl requested",
		CorrelationID: id,
		Snapshot:      snapshot,
		Works:         works,
		People:        people,
		Depth:         depth,
		Weighting:     weighting,
	}
	return m, m.Validate()
}

func (m QueueCrawlMsg) Validate() error {
	if len(m.Works) == 0 && len(m.People) == 0 {
		return errors.New("crawl needs at least one seed work or person")
	}
	if m.Depth < 1 {
		return fmt.Errorf("crawl depth must be positive, got %d", m.Depth)
	}
	return m.Weighting.Validate()
}

// SnapshotStore is implemented by storage.Snapshots.
type SnapshotStore interface {
	Load(ctx context.Context, key string) (*graph.Graph, bool, error)
	Save(ctx context.Context, key string, g *graph.Graph) error
}

// Locker is implemented by leaselock.Client.
type Locker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

// CrawlDeps are the collaborators of ProcessCrawlMessage.
type CrawlDeps struct {
	Source    crawler.Source
	Snapshots SnapshotStore
	Locks     Locker

	// DefaultSnapshot is used when a message names no snapshot.
	DefaultSnapshot string
	MaxRetries      int
	ParallelSeeds   int
}

// ProcessCrawlMessage loads the snapshot, crawls from the seeds, applies the
// requested weighting and saves the snapshot back. The snapshot is held
// under a lease for the whole cycle so concurrent crawls do not overwrite
// each other.
func ProcessCrawlMessage(ctx context.Context, deps CrawlDeps, msg []byte) (crawler.Stats, error) {
	var data QueueCrawlMsg
	if err := json.Unmarshal(msg, &data); err != nil {
		return crawler.Stats{}, fmt.Errorf("%w: decode crawl message: %w", ErrInvalidMessage, err)
	}
	if err := data.Validate(); err != nil {
		return crawler.Stats{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	key := data.Snapshot
	if key == "" {
		key = deps.DefaultSnapshot
	}

	logger.Debug("[Queue] Acquiring snapshot lock", "snapshot", key, "correlation_id", data.CorrelationID)
	opts := leaselock.Options{
		TTL:        10 * time.Minute,
		RenewEvery: 4 * time.Minute,
		Wait:       true,
		WaitJitter: time.Second,
	}

	var stats crawler.Stats
	err := deps.Locks.WithLease(ctx, "snapshot:"+key, opts, func(ctx context.Context) error {
		g, found, err := deps.Snapshots.Load(ctx, key)
		if err != nil {
			return err
		}
		logger.Info("[Queue] Loaded snapshot", "snapshot", key, "found", found, "nodes", g.NumNodes())

		c := crawler.New(deps.Source, crawler.Params{MaxRetries: deps.MaxRetries},
			crawler.WithGraph(g),
			crawler.WithLogger(logger.Default()),
			crawler.WithParallelSeeds(deps.ParallelSeeds),
		)
		stats, err = c.Traverse(ctx, data.Depth, data.Works, data.People)
		if err != nil {
			return err
		}
		if err := data.Weighting.Apply(g, graph.DefaultWeight); err != nil {
			return err
		}
		return util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
			return deps.Snapshots.Save(ctx, key, g)
		})
	})
	if err != nil {
		return stats, fmt.Errorf("crawl %s: %w", data.CorrelationID, err)
	}

	logger.Info("[Queue] Crawl finished",
		"correlation_id", data.CorrelationID,
		"snapshot", key,
		"works_expanded", stats.WorksExpanded,
		"arcs_added", stats.ArcsAdded,
		"skipped", stats.Skipped,
	)
	return stats, nil
}
