package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"artmarket/internal/api/handlers"
	"artmarket/internal/config"
	"artmarket/internal/domain"
	"artmarket/internal/infrastructure/identity"
	"artmarket/internal/infrastructure/leader"
	"artmarket/internal/infrastructure/memory"
	"artmarket/internal/infrastructure/mysql"
	"artmarket/internal/infrastructure/redis"
	"artmarket/internal/infrastructure/storage"
	ws "artmarket/internal/infrastructure/websocket"
	"artmarket/internal/services"
	"artmarket/pkg/logger"
)

type backends struct {
	listings   domain.ListingRepository
	bids       domain.BidRepository
	users      domain.UserRepository
	priceCache domain.PriceCache
	assets     domain.AssetStore
	eventPub   domain.EventPublisher
	eventSub   domain.EventSubscriber
	leader     domain.LeaderElection
	cleanup    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.Log.Level)
	log.Info("Starting artmarket", "config", cfg.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	b, err := buildBackends(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Error("Failed to initialize backends", "error", err)
		os.Exit(1)
	}
	defer b.cleanup()

	identityProvider := identity.NewHTTPIdentityProvider(cfg.Identity)

	// Services
	listingService := services.NewListingService(b.listings, b.bids, b.assets, b.priceCache, log)
	bidService := services.NewBidService(b.listings, b.bids, b.priceCache, b.eventPub, log)
	accountService := services.NewAccountService(b.users, b.listings, b.bids, b.assets,
		b.priceCache, identityProvider, log)
	reconciler := services.NewExpirationReconciler(b.listings, b.bids, b.priceCache,
		b.eventPub, b.leader, cfg.Instance.ID, cfg.Reconciler.Interval, log)

	// WebSocket fan-out
	connManager := ws.NewConnectionManager(log)
	notifier := ws.NewNotifier(connManager)
	eventListener := services.NewEventListener(connManager, notifier, log)

	// Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	listingHandler := handlers.NewListingHandler(listingService, log)
	bidHandler := handlers.NewBidHandler(bidService, log)
	userHandler := handlers.NewUserHandler(accountService, log)
	adminHandler := handlers.NewAdminHandler(accountService, reconciler, log)
	wsHandler := handlers.NewWebSocketHandler(listingService, connManager, log)

	auth := handlers.AuthMiddleware(accountService, log)

	api := e.Group("/api/v1")
	api.GET("/listings", listingHandler.List)
	api.GET("/listings/:id", listingHandler.Get)
	api.GET("/listings/:id/bids", bidHandler.ListForListing)

	authed := api.Group("", auth)
	authed.POST("/listings", listingHandler.Create, handlers.RequireRole(domain.RoleArtist))
	authed.POST("/listings/:id/hide", listingHandler.Hide)
	authed.POST("/listings/:id/unhide", listingHandler.Unhide)
	authed.DELETE("/listings/:id", listingHandler.Delete)
	authed.POST("/listings/:id/bids", bidHandler.Place)
	authed.GET("/me", userHandler.Me)
	authed.DELETE("/me", userHandler.DeleteMe)
	authed.GET("/my/listings", listingHandler.ListMine)
	authed.GET("/my/bids", bidHandler.ListMine)
	authed.GET("/ws/listings/:id", wsHandler.Subscribe)

	admin := api.Group("/admin", auth, handlers.RequireRole(domain.RoleAdmin))
	admin.PUT("/users/:id/role", adminHandler.SetRole)
	admin.DELETE("/users/:id", adminHandler.DeleteUser)
	admin.POST("/reconcile", adminHandler.Reconcile)
	admin.GET("/stats", adminHandler.Stats)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "artmarket",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Background services
	listenerCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()
	go func() {
		if err := eventListener.Start(listenerCtx, b.eventSub); err != nil &&
			!errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
		}
	}()

	if err := reconciler.Start(context.Background()); err != nil {
		log.Error("Failed to start reconciler", "error", err)
		os.Exit(1)
	}

	go func() {
		for {
			became, err := b.leader.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became reconciler leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting server", "address", serverAddr)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := reconciler.Stop(); err != nil {
		log.Error("Failed to stop reconciler", "error", err)
	}
	stopListener()
	if err := b.leader.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Stopped")
}

func buildBackends(ctx context.Context, cfg *config.Config, log logger.Logger) (*backends, error) {
	if cfg.Storage.Driver == "memory" {
		// Fully in-process: no MySQL, Redis or S3 needed. Meant for local
		// development and demos.
		users := memory.NewUserRepository()
		bids := memory.NewBidRepository(users)
		listings := memory.NewListingRepository(bids, users)
		bus := memory.NewEventBus()
		return &backends{
			listings:   listings,
			bids:       bids,
			users:      users,
			priceCache: memory.NewPriceCache(),
			assets:     memory.NewAssetStore(),
			eventPub:   bus,
			eventSub:   bus,
			leader:     memory.LeaderElection{},
			cleanup:    func() {},
		}, nil
	}

	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	db, err := mysql.Open(ctx, cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	log.Info("Connected to MySQL")

	if err := mysql.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	assets, err := storage.NewS3AssetStore(ctx, cfg.Assets)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &backends{
		listings:   mysql.NewMySQLListingRepository(db),
		bids:       mysql.NewMySQLBidRepository(db),
		users:      mysql.NewMySQLUserRepository(db),
		priceCache: redis.NewPriceCache(rdb),
		assets:     assets,
		eventPub:   redis.NewEventPublisher(rdb),
		eventSub:   redis.NewEventSubscriber(rdb, log),
		leader:     leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL),
		cleanup: func() {
			if err := db.Close(); err != nil {
				log.Error("Failed to close MySQL connection", "error", err)
			}
			rdb.Close()
		},
	}, nil
}
