package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/cinegraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/cinegraph/backend/internal/server/puzzles"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/game"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/store"

	"github.com/labstack/echo/v4"
)

type gameResponse struct {
	Message   string          `json:"message"`
	Gameplay  *store.Gameplay `json:"gameplay,omitempty"`
	StartName string          `json:"start_name,omitempty"`
	EndName   string          `json:"end_name,omitempty"`
}

// CreateGameHandler generates a puzzle and starts a gameplay for the user.
func CreateGameHandler(c echo.Context) error {
	type createGameBody struct {
		Distance int `json:"distance" validate:"required,min=1,max=6"`
	}

	data := new(createGameBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, gameResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, gameResponse{Message: "Invalid request body"})
	}

	ac := c.(*middleware.AppContext)
	ctx := c.Request().Context()

	pz, err := ac.App.Puzzles.MakeGame(ctx, data.Distance)
	switch {
	case errors.Is(err, game.ErrGameNotFound), errors.Is(err, puzzles.ErrNoSnapshot):
		return c.JSON(http.StatusUnprocessableEntity, gameResponse{Message: err.Error()})
	case err != nil:
		logger.Error("[Server] Failed to generate puzzle", "err", err)
		return c.JSON(http.StatusInternalServerError, gameResponse{Message: "Internal server error"})
	}

	play := &store.Gameplay{
		User:             ac.User.UserID,
		StartContributor: pz.Start.ID,
		EndContributor:   pz.End.ID,
		ShortestPath:     pz.PathLength,
	}
	if err := ac.App.Gameplays.CreateGameplay(ctx, play); err != nil {
		logger.Error("[Server] Failed to store gameplay", "err", err)
		return c.JSON(http.StatusInternalServerError, gameResponse{Message: "Internal server error"})
	}

	start, end := ac.App.Puzzles.Label(ctx, pz)
	return c.JSON(http.StatusCreated, gameResponse{
		Message:   "Game created",
		Gameplay:  play,
		StartName: start,
		EndName:   end,
	})
}

// GetGamesHandler lists the gameplays of the user, or of ?user= for users
// allowed to view all games.
func GetGamesHandler(c echo.Context) error {
	type getGamesResponse struct {
		Message   string           `json:"message,omitempty"`
		Gameplays []store.Gameplay `json:"gameplays"`
	}

	ac := c.(*middleware.AppContext)
	owner := ac.User.UserID
	if q := c.QueryParam("user"); q != "" {
		owner = q
	}
	if !middleware.CanView(ac.User, owner) {
		return c.JSON(http.StatusForbidden, getGamesResponse{Message: "Forbidden"})
	}

	plays, err := ac.App.Gameplays.ListGameplays(c.Request().Context(), owner)
	if err != nil {
		logger.Error("[Server] Failed to list gameplays", "err", err)
		return c.JSON(http.StatusInternalServerError, getGamesResponse{Message: "Internal server error"})
	}
	if plays == nil {
		plays = []store.Gameplay{}
	}
	return c.JSON(http.StatusOK, getGamesResponse{Gameplays: plays})
}

func GetGameHandler(c echo.Context) error {
	ac := c.(*middleware.AppContext)

	play, err := ac.App.Gameplays.GetGameplay(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, gameResponse{Message: "Game not found"})
	}
	if err != nil {
		logger.Error("[Server] Failed to get gameplay", "err", err)
		return c.JSON(http.StatusInternalServerError, gameResponse{Message: "Internal server error"})
	}
	if !middleware.CanView(ac.User, play.User) {
		return c.JSON(http.StatusNotFound, gameResponse{Message: "Game not found"})
	}
	return c.JSON(http.StatusOK, gameResponse{Gameplay: play})
}
