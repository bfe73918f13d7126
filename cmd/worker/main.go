package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/cinegraph/backend/internal/queue"
	"github.com/OFFIS-RIT/cinegraph/backend/internal/storage"
	"github.com/OFFIS-RIT/cinegraph/backend/internal/timing"
	"github.com/OFFIS-RIT/cinegraph/backend/internal/util"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger"
	"github.com/OFFIS-RIT/cinegraph/backend/pkg/logger/console"
	pgxprovider "github.com/OFFIS-RIT/cinegraph/backend/pkg/provider/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		Prefix: "worker",
	})
	logger.Init(consoleLogger)

	// Init s3 client
	client, err := storage.NewS3Client(ctx)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.MustGetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	deps := queue.CrawlDeps{
		Source:          pgxprovider.NewWithConnection(pgConn),
		Snapshots:       storage.NewSnapshots(client, util.MustGetEnv("AWS_BUCKET")),
		Locks:           leaselock.New(pgConn, leaselock.WithHolder("worker"), leaselock.WithLogger(logger.Default())),
		DefaultSnapshot: util.GetEnvString("GRAPH_KEY", "graph.json"),
		MaxRetries:      util.GetEnvInt("CRAWL_MAX_RETRIES", 3),
		ParallelSeeds:   util.GetEnvInt("CRAWL_PARALLEL_SEEDS", 4),
	}

	// Init rabbitmq
	conn, err := queue.Init()
	if err != nil {
		logger.Fatal("Failed to connect to queue", "err", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.CrawlQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	// One message at a time
	if err := ch.Qos(1, 0, false); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := ch.Consume(
		queue.CrawlQueue,
		queue.CrawlQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.CrawlQueue, "err", err)
	}

	logger.Info("Listening for messages")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, exiting...")
			return
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("Message channel closed", "queue", queue.CrawlQueue)
				return
			}
			startTime := time.Now()
			logger.Info("Received message", "queue", queue.CrawlQueue)

			stats, err := queue.ProcessCrawlMessage(ctx, deps, msg.Body)
			if err != nil {
				logger.Error("Error processing message", "queue", queue.CrawlQueue, "err", err)
				queue.HandleProcessingError(ch, msg, queue.CrawlQueue, err)
			} else {
				if err := msg.Ack(false); err != nil {
					logger.Error("Failed to ack message", "err", err)
				}
				logger.Info(
					"Message processed successfully",
					"queue", queue.CrawlQueue,
					"works", stats.WorksExpanded,
					"people", stats.PeopleExpanded,
					"arcs", stats.ArcsAdded,
					"skipped", stats.Skipped,
				)
			}
			logger.Info("Processing time", "duration", timing.Since(startTime))
			logger.Info("Waiting for next message")
		}
	}
}
