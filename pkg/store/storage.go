// Package store persists played games.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/OFFIS-RIT/cinegraph/backend/pkg/game"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/provider"
)

var ErrNotFound = errors.New("gameplay not found")

// Gameplay is one puzzle handed to a user and the moves they made so far.
type Gameplay struct {
	ID               string      `json:"id"`
	User             string      `json:"user"`
	StartContributor graph.ID    `json:"start_contributor"`
	EndContributor   graph.ID    `json:"end_contributor"`
	StartTime        time.Time   `json:"start_time"`
	EndTime          *time.Time  `json:"end_time,omitempty"`
	ShortestPath     int         `json:"shortest_path"`
	Solved           bool        `json:"is_solved"`
	Moves            []game.Move `json:"moves"`
}

// Game restores the validator state of g.
func (g *Gameplay) Game(resolver provider.Provider) *game.Game {
	return game.Restore(g.StartContributor, g.EndContributor, resolver, g.Moves)
}

// Record copies the state of a played game into g and stamps the end time
// once the game is won.
func (g *Gameplay) Record(played *game.Game, now time.Time) {
	g.Moves = played.Moves()
	if played.Status() == game.Won && !g.Solved {
		g.Solved = true
		g.EndTime = &now
	}
}

// GameplayStore defines the persistence of gameplays.
type GameplayStore interface {
	// CreateGameplay assigns ID and StartTime when they are empty.
	CreateGameplay(ctx context.Context, g *Gameplay) error
	GetGameplay(ctx context.Context, id string) (*Gameplay, error)
	// UpdateGameplay loads the gameplay, passes it to fn and writes it back
	// if fn succeeds. Concurrent updates of one gameplay are serialized.
	UpdateGameplay(ctx context.Context, id string, fn func(*Gameplay) error) (*Gameplay, error)
	// ListGameplays returns the gameplays of user, newest first.
	ListGameplays(ctx context.Context, user string) ([]Gameplay, error)
}
