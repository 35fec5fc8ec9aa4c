package main

import (
	"context"
	"os"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nippysky/panthart-live/api"
	"github.com/nippysky/panthart-live/internal/db"
	"github.com/nippysky/panthart-live/internal/event"
	"github.com/nippysky/panthart-live/internal/feed"
	"github.com/nippysky/panthart-live/internal/util"
	"github.com/nippysky/panthart-live/internal/watcher"
	"github.com/nippysky/panthart-live/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rs/zerolog/log"

	_ "github.com/nippysky/panthart-live/docs"
)

//	@title			Panthart Live API
//	@version		1.0.0
//	@description	Realtime event delivery for the Panthart NFT marketplace

//	@host		localhost:8080
//	@BasePath	/
//	@schemes	http https
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configurations
	config, err := util.LoadConfig("./app.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file 😣")
	}

	log.Info().Msg("configurations loaded successfully ✅")

	// Create connection pool
	connPool, err := pgxpool.New(context.Background(), config.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to validate db connection string 😣")
	}

	pingErr := connPool.Ping(context.Background())
	if pingErr != nil {
		log.Fatal().Err(pingErr).Msg("failed to connect to db 😣")
	}
	log.Info().Msg("connected to db ✅")

	store := db.NewStore(connPool)

	redisDb := redis.NewClient(&redis.Options{
		Addr:     config.RedisServerAddress,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	redisOpt := asynq.RedisClientOpt{
		Addr: config.RedisServerAddress,
	}
	taskDistributor := worker.NewTaskDistributor(redisOpt)
	taskInspector := worker.NewTaskInspector(redisOpt)

	// The broker and the featured feed are the process-wide live state. They are
	// constructed exactly once here and handed to every producer and consumer.
	broker := event.NewBroker()
	featuredFeed := feed.New(config.FeaturedBufferSize)

	go runTaskProcessor(redisOpt, store, broker)
	go runChainWatcher(&config, store, redisDb, broker, featuredFeed, taskDistributor, taskInspector)

	runHTTPServer(&config, store, redisDb, broker, featuredFeed)
}

func runTaskProcessor(redisOpt asynq.RedisClientOpt, store db.Store, broker *event.Broker) {
	taskProcessor := worker.NewRedisTaskProcessor(redisOpt, store, broker)
	log.Info().Msg("task processor created successfully ✅")

	if err := taskProcessor.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start task processor 😣")
	}
}

func runChainWatcher(config *util.Config, store db.Store, redisDb *redis.Client, broker *event.Broker, featuredFeed *feed.Feed, taskDistributor worker.TaskDistributor, taskInspector worker.TaskInspector) {
	chainWatcher, err := watcher.NewChainWatcher(config, store, redisDb, broker, featuredFeed, taskDistributor, taskInspector)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create chain watcher 😣")
	}

	if err = chainWatcher.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start chain watcher 😣")
	}
}

func runHTTPServer(config *util.Config, store db.Store, redisDb *redis.Client, broker *event.Broker, featuredFeed *feed.Feed) {
	server, err := api.NewServer(store, redisDb, config, broker, featuredFeed)

	if err != nil {
		log.Fatal().Err(err).Msg("failed to create HTTP server 😣")
	}

	err = server.Start(config.HTTPServerAddress)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start HTTP server 😣")
	}
}
