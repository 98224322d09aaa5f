package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"liveauction/internal/bidfeed"
	"liveauction/internal/config"
	"liveauction/internal/database/db_client"
	"liveauction/internal/database/memstore"
	"liveauction/internal/database/pgstore"
	"liveauction/internal/database/repository"
	"liveauction/internal/fulfillment"
	"liveauction/internal/highbid"
	"liveauction/internal/http/http_server"
	"liveauction/internal/ratelimit"
	"liveauction/internal/redis/auction_state"
	"liveauction/internal/redis/redis_client"
	"liveauction/internal/redis/redis_functions"
	"liveauction/internal/redis/watcher/auctionwatcher"
	"liveauction/internal/services/auction"
	"liveauction/internal/services/notification"
	"liveauction/internal/syncdb"
	"liveauction/internal/workers"
	"liveauction/internal/ws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var store repository.Store
	var live auction.LiveState
	var feed ws.Feed
	var observer auction.BidObserver
	var bidLimiter ratelimit.Limiter
	var redisClient *redis.Client

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.String("state_driver", cfg.StateDriver))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Worker pool for notifications and fulfillment
	pool := workers.New(cfg.NotifyWorkers)
	defer pool.Close()

	// 4. WebSockets hub
	hub := ws.NewHub()

	// 5. State: Redis + Postgres, or process memory
	switch cfg.StateDriver {
	case config.DriverMemory:
		store = memstore.New()
		live = highbid.NewMemory(hub.Broadcast)
		feed = ws.DirectFeed{}
		bidLimiter = ratelimit.NewMemory(cfg.BidRateLimit, cfg.BidRatePeriod)
		Log.Warn("state driver is memory; state is lost on restart and not shared between nodes")

	default:
		redisClient, err = redis_client.NewRedisClient(ctx, cfg)
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
		Log.Debug("Redis client created successfully")

		// Load the Redis Functions lua
		if err := redis_functions.LoadAll(ctx, redisClient); err != nil {
			Log.Fatal("load-redis-funcs", zap.Error(err))
		}

		pgDb, err := db_client.Open(ctx, cfg)
		if err != nil {
			Log.Fatal("pg-open", zap.Error(err))
		}
		defer pgDb.Close()

		store = pgstore.New(pgDb)
		live = auction_state.New(redisClient)
		feed = ws.NewRedisFeed(redisClient, hub)
		observer = bidfeed.NewProducer(redisClient)
		bidLimiter = ratelimit.NewRedis(redisClient, cfg.BidRateLimit, cfg.BidRatePeriod)
	}

	// 6. Services
	notificationService := notification.NewSink(store, pool)
	if observer == nil {
		observer = notificationService
	}
	auctionService := auction.NewAuctionService(store, live, pool,
		auction.WithTrackerOptions(
			highbid.WithMaxAttempts(cfg.BidMaxAttempts),
			highbid.WithRetryBackoff(cfg.BidRetryBackoff),
		),
		auction.WithBidObserver(observer),
		auction.WithNotifier(notificationService),
		auction.WithFulfiller(fulfillment.New(fulfillment.LogMailer{})),
	)

	// 7. Background: timer expiry watcher, bid feed consumer, status sweeper
	if redisClient != nil {
		go auctionwatcher.Run(ctx, redisClient, auctionService)

		consumer := cfg.BidFeedConsumer
		if consumer == "" {
			consumer, _ = os.Hostname()
		}
		bidfeed.NewConsumer(redisClient, cfg.BidFeedGroup, consumer, notificationService).Run(ctx)
	}
	syncdb.New(store, auctionService, cfg.StatusSweepInterval).Run(ctx)

	// 8. Initialize the WS server
	wsSrv := ws.NewWsServer(hub, feed, auctionService, ws.WithBidLimiter(bidLimiter))

	// 9. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, cfg.AuthJwtSecret, wsSrv,
		auctionService, notificationService, bidLimiter)
	go func() {
		if err := httpServer.Start(); err != nil {
			Log.Error("Failed to start HTTP server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	Log.Info("shutting down")
	_ = httpServer.Dispose()
}
