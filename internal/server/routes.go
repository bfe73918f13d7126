package server

import (
	"github.com/OFFIS-RIT/cinegraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/cinegraph/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Crawl routes
	apiRoutes.POST("/crawls", routes.CreateCrawlHandler, middleware.RequirePermission(middleware.PermissionCrawlCreate))

	// Game routes
	apiRoutes.GET("/games", routes.GetGamesHandler)
	apiRoutes.POST("/games", routes.CreateGameHandler)
	apiRoutes.GET("/games/:id", routes.GetGameHandler)
	apiRoutes.POST("/games/:id/moves", routes.CreateMoveHandler)
}
