package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/cinegraph/backend/internal/queue"
	mid "github.com/OFFIS-RIT/cinegraph/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/cinegraph/backend/internal/server/puzzles"
	"github.com/OFFIS-RIT/cinegraph/backend/internal/storage"
	"github.com/OFFIS-RIT/cinegraph/backend/internal/util"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/provider"
	pgxprovider "github.com/OFFIS-RIT/cinegraph/backend/pkg/provider/pgx"
	pgxstore "github.com/OFFIS-RIT/cinegraph/backend/pkg/store/pgx"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	return cv.validator.Struct(i)
}

// New creates the echo instance with validation, middleware and routes.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	RegisterRoutes(e)
	return e
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var key keyfunc.Keyfunc
	if authURL := util.GetEnv("AUTH_URL"); authURL != "" {
		k, err := keyfunc.NewDefault([]string{authURL + "/jwks"})
		if err != nil {
			logger.Fatal("Failed to load jwks keys", "err", err)
		}
		key = k
	}

	databaseURL := util.MustGetEnv("DATABASE_URL")
	if err := util.Migrate(util.GetEnvString("MIGRATIONS_PATH", "migrations"), databaseURL); err != nil {
		logger.Fatal("Failed to migrate database", "err", err)
	}
	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect to queue", "err", err)
	}
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, []string{queue.CrawlQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	s3, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}
	snapshot := util.GetEnvString("GRAPH_KEY", "graph.json")

	pool := puzzles.NewPool(puzzles.NewPoolParams{
		Snapshots:  storage.NewSnapshots(s3, util.MustGetEnv("AWS_BUCKET")),
		Key:        snapshot,
		Candidates: util.GetEnvInt("CANDIDATE_POOL", 100),
		Ranking:    puzzles.Ranking(util.GetEnvString("CANDIDATE_RANKING", string(puzzles.ByWorks))),
		Refresh:    time.Duration(util.GetEnvInt("SNAPSHOT_REFRESH_SECONDS", 300)) * time.Second,
		MaxIter:    util.GetEnvInt("GAME_MAX_ITER", 100),
	})

	var resolver provider.Provider = pgxprovider.NewWithConnection(conn, pgxprovider.WithCreditedWorks())
	switch mode := util.GetEnvString("MOVE_RESOLVER", "database"); mode {
	case "database":
	case "snapshot":
		resolver = pool.Resolver(resolver)
	default:
		logger.Fatal("Unknown move resolver", "mode", mode)
	}

	app := &mid.App{
		Gameplays: pgxstore.NewGameplayStorageWithConnection(conn),
		Resolver:  resolver,
		Puzzles:   pool,
		Queue:        ch,
		Key:          key,
		Snapshot:     snapshot,
		MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
		MasterUserID: util.GetEnv("MASTER_USER_ID"),
	}
	e := New(app)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
