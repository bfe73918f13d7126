package routes

import (
	"encoding/json"
	"net/http"

	"github.com/OFFIS-RIT/cinegraph/backend/internal/queue"
	"github.com/OFFIS-RIT/cinegraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/fame"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/graph"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CreateCrawlHandler enqueues a crawl that extends the graph snapshot.
func CreateCrawlHandler(c echo.Context) error {
	type createCrawlBody struct {
		Works     []graph.ID `json:"works"`
		People    []graph.ID `json:"people"`
		Depth     int        `json:"depth" validate:"required,min=1,max=6"`
		Weighting string     `json:"weighting" validate:"omitempty,oneof=credit_order rating votes actors"`
	}

	type createCrawlResponse struct {
		Message       string `json:"message"`
		CorrelationID string `json:"correlation_id,omitempty"`
	}

	data := new(createCrawlBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createCrawlResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createCrawlResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	msg, err := queue.NewCrawlMsg(app.Snapshot, data.Works, data.People, data.Depth, fame.Strategy(data.Weighting))
	if err != nil {
		return c.JSON(http.StatusBadRequest, createCrawlResponse{Message: err.Error()})
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createCrawlResponse{Message: "Internal server error"})
	}
	if err := queue.PublishFIFO(app.Queue, queue.CrawlQueue, body); err != nil {
		logger.Error("[Server] Failed to enqueue crawl", "err", err)
		return c.JSON(http.StatusInternalServerError, createCrawlResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusAccepted, createCrawlResponse{
		Message:       "Crawl queued",
		CorrelationID: msg.CorrelationID,
	})
}
