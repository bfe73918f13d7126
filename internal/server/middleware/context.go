package middleware

import (
	"context"

	"github.com/OFFIS-RIT/cinegraph/backend/internal/queue"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/game"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/provider"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/store"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	UserID      string
	Role        string
	Permissions []string
}

// PuzzleSource hands out new puzzles. Labels names the endpoints for display.
type PuzzleSource interface {
	MakeGame(ctx context.Context, distance int) (game.Puzzle, error)
	Label(ctx context.Context, p game.Puzzle) (start, end string)
}

type App struct {
	Gameplays    store.GameplayStore
	Resolver     provider.Provider
	Puzzles      PuzzleSource
	Queue        queue.Publisher
	Key          keyfunc.Keyfunc
	Snapshot     string
	MasterAPIKey string
	MasterUserID string
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app, nil})
		}
	}
}
