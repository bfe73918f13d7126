// Package pgx implements provider.Provider on top of the PostgreSQL tables
// people, works, credits and known_for.
package pgx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/provider"

	pgxv5 "github.com/jackc/pgx/v5"
)

type pgxIConn interface {
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// jobs maps credit categories to the roles recorded on the graph. Other
// categories are not part of the graph.
var jobs = map[string]string{
	"actor":    "actor",
	"actress":  "actor",
	"self":     "actor",
	"writer":   "writer",
	"director": "director",
	"producer": "producer",
}

// Provider answers lookups with SQL queries.
type Provider struct {
	conn     pgxIConn
	limit    int
	worksSQL string
}

// Option customizes a Provider.
type Option func(*Provider)

// WithSearchLimit caps the number of ids a search returns. The default is 50.
func WithSearchLimit(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithCreditedWorks makes WorksKnownFor return every work the person is
// credited on instead of their known_for titles. Move validation needs this
// so that works agree with PeopleContributingTo.
func WithCreditedWorks() Option {
	return func(p *Provider) {
		p.worksSQL = creditedWorksSQL
	}
}

// NewWithConnection creates a provider on an existing connection or pool.
func NewWithConnection(conn pgxIConn, opts ...Option) *Provider {
	p := &Provider{conn: conn, limit: 50, worksSQL: knownForSQL}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(p)
	}
	return p
}

// dbID converts a graph id to the numeric key of the tables. Numeric ids are
// used as is; dataset keys such as "nm0000102" or "tt0087277" drop their two
// letter prefix.
func dbID(id graph.ID) (int64, bool) {
	if n, ok := id.Int(); ok {
		return n, true
	}
	s := id.String()
	if len(s) > 2 && strings.IndexFunc(s[:2], func(r rune) bool { return r < 'a' || r > 'z' }) == -1 {
		s = s[2:]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (p *Provider) exists(ctx context.Context, sql string, id int64) (bool, error) {
	var ok bool
	if err := p.conn.QueryRow(ctx, sql, id).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (p *Provider) PeopleContributingTo(ctx context.Context, work graph.ID) ([]provider.Credit, bool, error) {
	id, ok := dbID(work)
	if !ok {
		return nil, false, nil
	}
	found, err := p.exists(ctx, workExistsSQL, id)
	if err != nil || !found {
		return nil, false, err
	}

	rows, err := p.conn.Query(ctx, creditsSQL, id)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var credits []provider.Credit
	for rows.Next() {
		var (
			person   int64
			category string
			ordering int
		)
		if err := rows.Scan(&person, &category, &ordering); err != nil {
			return nil, false, err
		}
		job, ok := jobs[category]
		if !ok {
			continue
		}
		credits = append(credits, provider.Credit{Person: graph.IntID(person), Job: job, Order: ordering})
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return credits, true, nil
}

func (p *Provider) WorksKnownFor(ctx context.Context, person graph.ID) ([]graph.ID, bool, error) {
	id, ok := dbID(person)
	if !ok {
		return nil, false, nil
	}
	found, err := p.exists(ctx, personExistsSQL, id)
	if err != nil || !found {
		return nil, false, err
	}
	ids, err := p.ids(ctx, p.worksSQL, id)
	if err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

func (p *Provider) SearchPeopleByName(ctx context.Context, name string) ([]graph.ID, bool, error) {
	ids, err := p.ids(ctx, searchPeopleSQL, normalize(name), p.limit)
	if err != nil {
		return nil, false, err
	}
	return ids, len(ids) > 0, nil
}

func (p *Provider) SearchWorksByTitle(ctx context.Context, title string) ([]graph.ID, bool, error) {
	ids, err := p.ids(ctx, searchWorksSQL, normalize(title), p.limit)
	if err != nil {
		return nil, false, err
	}
	return ids, len(ids) > 0, nil
}

// Cast lists the acting credits of work by ordering.
func (p *Provider) Cast(ctx context.Context, work graph.ID) ([]graph.ID, bool, error) {
	id, ok := dbID(work)
	if !ok {
		return nil, false, nil
	}
	found, err := p.exists(ctx, workExistsSQL, id)
	if err != nil || !found {
		return nil, false, err
	}
	ids, err := p.ids(ctx, castSQL, id)
	if err != nil {
		return nil, false, err
	}
	return ids, true, nil
}

// NodeAttrs reads the people or works row of n.
func (p *Provider) NodeAttrs(ctx context.Context, n graph.Node) (*graph.NodeAttrs, bool, error) {
	id, ok := dbID(n.ID)
	if !ok {
		return nil, false, nil
	}

	var (
		a   graph.NodeAttrs
		err error
	)
	if n.IsPerson {
		err = p.conn.QueryRow(ctx, personAttrsSQL, id).Scan(&a.Name, &a.BirthYear, &a.DeathYear, &a.Professions)
	} else {
		err = p.conn.QueryRow(ctx, workAttrsSQL, id).Scan(&a.Title, &a.StartYear, &a.Genres, &a.Rating, &a.Votes)
	}
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("attributes of %s: %w", n, err)
	}
	return &a, true, nil
}

func (p *Provider) ids(ctx context.Context, sql string, args ...any) ([]graph.ID, error) {
	rows, err := p.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	nums, err := pgxv5.CollectRows(rows, pgxv5.RowTo[int64])
	if err != nil {
		return nil, err
	}
	ids := make([]graph.ID, len(nums))
	for i, n := range nums {
		ids[i] = graph.IntID(n)
	}
	return ids, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

const workExistsSQL = `SELECT EXISTS (SELECT 1 FROM works WHERE id = $1)`

const personExistsSQL = `SELECT EXISTS (SELECT 1 FROM people WHERE id = $1)`

const creditsSQL = `
SELECT person_id, category, ordering
FROM credits
WHERE work_id = $1
ORDER BY ordering;
`

const castSQL = `
SELECT person_id
FROM credits
WHERE work_id = $1 AND category IN ('actor', 'actress', 'self')
ORDER BY ordering;
`

const knownForSQL = `
SELECT work_id
FROM known_for
WHERE person_id = $1
ORDER BY work_id;
`

const creditedWorksSQL = `
SELECT DISTINCT work_id
FROM credits
WHERE person_id = $1 AND category IN ('actor', 'actress', 'self', 'writer', 'director', 'producer')
ORDER BY work_id;
`

const searchPeopleSQL = `
SELECT id
FROM people
WHERE lower(name) = $1
ORDER BY id
LIMIT $2;
`

const searchWorksSQL = `
SELECT id
FROM works
WHERE lower(title) = $1
ORDER BY id
LIMIT $2;
`

const personAttrsSQL = `
SELECT name, birth_year, death_year, professions
FROM people
WHERE id = $1;
`

const workAttrsSQL = `
SELECT title, start_year, genres, rating, votes
FROM works
WHERE id = $1;
`
