package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/game"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GameplayStorage implements store.GameplayStore on the gameplays table.
// Moves are kept as JSONB.
type GameplayStorage struct {
	conn pgxIConn
	now  func() time.Time
}

type GameplayStorageOption func(*GameplayStorage)

// WithClock replaces time.Now for start times.
func WithClock(now func() time.Time) GameplayStorageOption {
	return func(s *GameplayStorage) {
		s.now = now
	}
}

func NewGameplayStorageWithConnection(conn pgxIConn, opts ...GameplayStorageOption) *GameplayStorage {
	s := &GameplayStorage{conn: conn, now: time.Now}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

var _ store.GameplayStore = (*GameplayStorage)(nil)

func (s *GameplayStorage) CreateGameplay(ctx context.Context, g *store.Gameplay) error {
	if g.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return err
		}
		g.ID = id
	}
	if g.StartTime.IsZero() {
		g.StartTime = s.now().UTC()
	}
	moves, err := encodeMoves(g.Moves)
	if err != nil {
		return err
	}
	start, err := encodeID(g.StartContributor)
	if err != nil {
		return err
	}
	end, err := encodeID(g.EndContributor)
	if err != nil {
		return err
	}

	_, err = s.conn.Exec(ctx, insertGameplaySQL,
		g.ID, g.User, start, end,
		g.ShortestPath, g.StartTime, g.EndTime, g.Solved, moves,
	)
	if err != nil {
		return fmt.Errorf("insert gameplay: %w", err)
	}
	return nil
}

func (s *GameplayStorage) GetGameplay(ctx context.Context, id string) (*store.Gameplay, error) {
	return getGameplay(ctx, s.conn, selectGameplaySQL, id)
}

func (s *GameplayStorage) UpdateGameplay(ctx context.Context, id string, fn func(*store.Gameplay) error) (*store.Gameplay, error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	g, err := getGameplay(ctx, tx, selectGameplayForUpdateSQL, id)
	if err != nil {
		return nil, err
	}
	if err := fn(g); err != nil {
		return nil, err
	}
	moves, err := encodeMoves(g.Moves)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, updateGameplaySQL, g.ID, g.EndTime, g.Solved, moves); err != nil {
		return nil, fmt.Errorf("update gameplay: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *GameplayStorage) ListGameplays(ctx context.Context, user string) ([]store.Gameplay, error) {
	rows, err := s.conn.Query(ctx, listGameplaysSQL, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Gameplay
	for rows.Next() {
		g, err := scanGameplay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

func getGameplay(ctx context.Context, q rowQuerier, sql, id string) (*store.Gameplay, error) {
	g, err := scanGameplay(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgxv5.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select gameplay %s: %w", id, err)
	}
	return g, nil
}

func scanGameplay(row pgxv5.Row) (*store.Gameplay, error) {
	var (
		g          store.Gameplay
		start, end string
		moves      []byte
	)
	err := row.Scan(&g.ID, &g.User, &start, &end, &g.ShortestPath, &g.StartTime, &g.EndTime, &g.Solved, &moves)
	if err != nil {
		return nil, err
	}
	if err := g.StartContributor.UnmarshalJSON([]byte(start)); err != nil {
		return nil, fmt.Errorf("decode start contributor: %w", err)
	}
	if err := g.EndContributor.UnmarshalJSON([]byte(end)); err != nil {
		return nil, fmt.Errorf("decode end contributor: %w", err)
	}
	if len(moves) > 0 {
		if err := json.Unmarshal(moves, &g.Moves); err != nil {
			return nil, fmt.Errorf("decode moves: %w", err)
		}
	}
	return &g, nil
}

// encodeID stores an id in its JSON form so string ids stay quoted and never
// read back as integers.
func encodeID(id graph.ID) (string, error) {
	b, err := json.Marshal(id)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeMoves(moves []game.Move) ([]byte, error) {
	if moves == nil {
		moves = []game.Move{}
	}
	return json.Marshal(moves)
}

const gameplayColumns = `id, user_id, start_contributor, end_contributor, shortest_path, start_time, end_time, is_solved, moves`

const insertGameplaySQL = `
INSERT INTO gameplays (` + gameplayColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`

const selectGameplaySQL = `SELECT ` + gameplayColumns + ` FROM gameplays WHERE id = $1;`

const selectGameplayForUpdateSQL = `SELECT ` + gameplayColumns + ` FROM gameplays WHERE id = $1 FOR UPDATE;`

const updateGameplaySQL = `
UPDATE gameplays
SET end_time = $2, is_solved = $3, moves = $4
WHERE id = $1;
`

const listGameplaysSQL = `
SELECT ` + gameplayColumns + `
FROM gameplays
WHERE user_id = $1
ORDER BY start_time DESC;
`
