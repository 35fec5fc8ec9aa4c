package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nippysky/panthart-live/internal/db"
	"github.com/nippysky/panthart-live/internal/event"
	"github.com/nippysky/panthart-live/internal/feed"
	"github.com/nippysky/panthart-live/internal/util"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Server struct {
	router       *gin.Engine
	dbStore      db.Store
	redisClient  *redis.Client
	config       *util.Config
	broker       *event.Broker
	featuredFeed *feed.Feed
}

// NewServer creates a new HTTP server and set up routing.
func NewServer(store db.Store, redisClient *redis.Client, config *util.Config, broker *event.Broker, featuredFeed *feed.Feed) (*Server, error) {
	server := &Server{
		dbStore:      store,
		redisClient:  redisClient,
		config:       config,
		broker:       broker,
		featuredFeed: featuredFeed,
	}

	server.setupRouter()
	return server, nil
}

// setupRouter configures the HTTP server routes.
func (server *Server) setupRouter() *gin.Engine {
	gin.ForceConsoleColor()
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     server.config.AllowedOrigins,
		AllowMethods:     []string{"GET"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Cache-Control"},
		AllowCredentials: true,
	}))

	v1 := router.Group("/v1")

	auctionGroup := v1.Group("/auctions")
	{
		auctionGroup.GET(":auctionID/stream", server.streamAuctionEvents)
	}

	walletGroup := v1.Group("/wallets")
	{
		walletGroup.GET(":address/stream", server.streamWalletEvents)
	}

	featuredGroup := v1.Group("/featured")
	{
		featuredGroup.GET("stream", server.streamFeaturedActivity)
		featuredGroup.GET("activity", server.listFeaturedActivity)
	}

	router.GET("/healthz", server.healthCheck)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	server.router = router
	return router
}

// Start runs the HTTP server on a specific address.
func (server *Server) Start(address string) error {
	return server.router.Run(address)
}
