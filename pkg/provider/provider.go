// Package provider defines the lookup capabilities the crawler and the move
// validator consume from a work/person database, plus implementations that
// answer from a graph or chain two providers.
//
// Every lookup returns (result, found, err). found is false when the id is
// unknown or malformed, or when a search matches nothing; err is reserved for
// faults such as an unreachable database.
package provider

import (
	"context"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
)

// Credit is one contributor of a work. Job is empty when the role is unknown.
// Order is the position in the credit listing, lower is more prominent.
type Credit struct {
	Person graph.ID
	Job    string
	Order  int
}

// Provider exposes the four lookups of a work/person database.
type Provider interface {
	PeopleContributingTo(ctx context.Context, work graph.ID) ([]Credit, bool, error)
	WorksKnownFor(ctx context.Context, person graph.ID) ([]graph.ID, bool, error)
	SearchPeopleByName(ctx context.Context, name string) ([]graph.ID, bool, error)
	SearchWorksByTitle(ctx context.Context, title string) ([]graph.ID, bool, error)
}

// AttrSource is implemented by providers that can describe a node. The
// crawler uses it, when available, to annotate the nodes it adds.
type AttrSource interface {
	NodeAttrs(ctx context.Context, n graph.Node) (*graph.NodeAttrs, bool, error)
}

// CastLister is implemented by providers that know the billing order of a
// work's cast.
type CastLister interface {
	Cast(ctx context.Context, work graph.ID) ([]graph.ID, bool, error)
}

// Fallback asks Primary first and Secondary when Primary reports not found.
// Errors from Primary are returned as is.
type Fallback struct {
	Primary   Provider
	Secondary Provider
}

func (f *Fallback) PeopleContributingTo(ctx context.Context, work graph.ID) ([]Credit, bool, error) {
	return fallback(ctx, f, func(ctx context.Context, p Provider) ([]Credit, bool, error) {
		return p.PeopleContributingTo(ctx, work)
	})
}

func (f *Fallback) WorksKnownFor(ctx context.Context, person graph.ID) ([]graph.ID, bool, error) {
	return fallback(ctx, f, func(ctx context.Context, p Provider) ([]graph.ID, bool, error) {
		return p.WorksKnownFor(ctx, person)
	})
}

func (f *Fallback) SearchPeopleByName(ctx context.Context, name string) ([]graph.ID, bool, error) {
	return fallback(ctx, f, func(ctx context.Context, p Provider) ([]graph.ID, bool, error) {
		return p.SearchPeopleByName(ctx, name)
	})
}

func (f *Fallback) SearchWorksByTitle(ctx context.Context, title string) ([]graph.ID, bool, error) {
	return fallback(ctx, f, func(ctx context.Context, p Provider) ([]graph.ID, bool, error) {
		return p.SearchWorksByTitle(ctx, title)
	})
}

func fallback[T any](
	ctx context.Context,
	f *Fallback,
	lookup func(context.Context, Provider) ([]T, bool, error),
) ([]T, bool, error) {
	res, ok, err := lookup(ctx, f.Primary)
	if err != nil || ok {
		return res, ok, err
	}
	if f.Secondary == nil {
		return nil, false, nil
	}
	return lookup(ctx, f.Secondary)
}
