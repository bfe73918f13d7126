package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/cinegraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/game"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

var (
	errNotOwner  = errors.New("not the owner")
	errUnchanged = errors.New("unchanged")
)

// CreateMoveHandler plays one move. Rejected moves are answered with 200 and
// the rejection reason; the gameplay is only written when a move is accepted.
func CreateMoveHandler(c echo.Context) error {
	type createMoveBody struct {
		Person0 string `json:"person0" validate:"required"`
		Person1 string `json:"person1" validate:"required"`
		Work    string `json:"work" validate:"required"`
	}

	type createMoveResponse struct {
		Message  string          `json:"message"`
		Outcome  *game.Outcome   `json:"outcome,omitempty"`
		Gameplay *store.Gameplay `json:"gameplay,omitempty"`
	}

	data := new(createMoveBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createMoveResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createMoveResponse{Message: "Invalid request body"})
	}

	ac := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	var (
		outcome game.Outcome
		current *store.Gameplay
	)
	play, err := ac.App.Gameplays.UpdateGameplay(ctx, c.Param("id"), func(g *store.Gameplay) error {
		if g.User != ac.User.UserID {
			return errNotOwner
		}
		current = g

		played := g.Game(ac.App.Resolver)
		var err error
		outcome, err = played.TakeStep(ctx, data.Person0, data.Person1, data.Work)
		if err != nil {
			return err
		}
		if !outcome.Accepted {
			return errUnchanged
		}
		g.Record(played, time.Now().UTC())
		return nil
	})

	switch {
	case err == nil:
		return c.JSON(http.StatusOK, createMoveResponse{Message: outcome.Message, Outcome: &outcome, Gameplay: play})
	case errors.Is(err, errUnchanged):
		return c.JSON(http.StatusOK, createMoveResponse{Message: outcome.Message, Outcome: &outcome, Gameplay: current})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errNotOwner):
		return c.JSON(http.StatusNotFound, createMoveResponse{Message: "Game not found"})
	case errors.Is(err, game.ErrGameOver):
		return c.JSON(http.StatusConflict, createMoveResponse{Message: "Game is already won"})
	}
	logger.Error("[Server] Failed to play move", "game_id", c.Param("id"), "err", err)
	return c.JSON(http.StatusInternalServerError, createMoveResponse{Message: "Internal server error"})
}
