package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skincare-client/config"
	"skincare-client/internal/delivery/http/middleware"
	v1 "skincare-client/internal/delivery/http/v1"
	"skincare-client/internal/infrastructure/api"
	"skincare-client/internal/infrastructure/broadcast"
	"skincare-client/internal/infrastructure/cache"
	"skincare-client/internal/infrastructure/redisclient"
	"skincare-client/internal/infrastructure/session"
	"skincare-client/internal/store"
	"skincare-client/pkg/logger"

	"github.com/NYTimes/gziphandler"
	"golang.org/x/time/rate"
)

const serviceName = "storefront"

func main() {
	cfg := config.LoadConfig()

	// Initialize Logger
	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Session persistence and auth broadcast: Redis when configured, otherwise in-process.
	var (
		sessions session.Store
		bus      broadcast.Bus
	)
	if cfg.RedisURL != "" {
		rdb, err := redisclient.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, "storefront:session")
		bus = broadcast.NewRedisBus(rdb, cfg.AuthChannel)
		log.Info().Msg("Session and auth channel backed by Redis")
	} else {
		sessions = session.NewMemoryStore()
		bus = broadcast.NewMemoryBus()
		log.Info().Msg("Session and auth channel kept in memory")
	}

	// Initialize Cache (In-Memory)
	memCache := cache.NewMemoryCache(cfg.CacheProductTTL, cfg.CacheCleanupInterval)

	// The client reads the token through the auth store, which needs the client.
	var auth *store.AuthStore
	tokens := api.TokenFunc(func() string { return auth.Token() })
	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, tokens)

	// --- Stores ---
	products := store.NewProductCache(memCache, client, cfg.CacheProductTTL)
	cart := store.NewCartStore(client, tokens, products, store.CartOptions{
		MaxQuantity:        cfg.MaxCartQuantity,
		HydrateConcurrency: cfg.HydrateConcurrency,
	})
	favorites := store.NewFavoritesStore(client, tokens, products, cfg.HydrateConcurrency)
	addresses := store.NewAddressStore(client, tokens, memCache, cfg.CacheLocationTTL)
	orders := store.NewOrdersStore(client, tokens, products, cart, addresses, cfg.HydrateConcurrency)
	search := store.NewSearchStore(client)
	auth = store.NewAuthStore(client, sessions, bus, cart, cart, favorites, addresses, orders)
	admin := store.NewAdminService(client, auth, products)

	if err := auth.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start auth orchestration")
	}

	// Set up Router
	mux := http.NewServeMux()
	v1.RegisterRoutes(mux, v1.Stores{
		Auth:      auth,
		Cart:      cart,
		Favorites: favorites,
		Addresses: addresses,
		Orders:    orders,
		Search:    search,
		Admin:     admin,
	})

	rateLimiter := middleware.NewRateLimiter(
		ctx,
		rate.Limit(cfg.RateLimitRPS),
		cfg.RateLimitBurst,
		time.Minute,
		3*time.Minute,
	)

	// Apply CORS, Request Logger, Rate Limit, and Gzip
	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = middleware.NewRequestLogger(auth)(handler)
	handler = rateLimiter.Middleware()(handler)
	handler = gziphandler.GzipHandler(handler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()
	logger.ServiceStart(serviceName, cfg.Version, cfg.ListenAddr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	rateLimiter.Shutdown()
	search.Cancel()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.ServiceStop(serviceName)
}
