package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/queuewise/backend/internal/api"
	"github.com/queuewise/backend/internal/auth"
	"github.com/queuewise/backend/internal/cache"
	"github.com/queuewise/backend/internal/channel"
	"github.com/queuewise/backend/internal/config"
	"github.com/queuewise/backend/internal/directory"
	"github.com/queuewise/backend/internal/engine"
	"github.com/queuewise/backend/internal/event"
	"github.com/queuewise/backend/internal/metrics"
	"github.com/queuewise/backend/internal/priority"
	"github.com/queuewise/backend/internal/queuestore"
	"github.com/queuewise/backend/internal/rediscache"
	"github.com/queuewise/backend/internal/storage"
	"github.com/queuewise/backend/internal/sweep"
	"github.com/queuewise/backend/internal/ticker"
	"github.com/queuewise/backend/internal/types"
	"github.com/queuewise/backend/internal/websocket"
	"github.com/queuewise/backend/pkg/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Msg("starting queuewise backend server")

	// Create context for services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect redis (optional)
	var redisCache *rediscache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err = rediscache.New(ctx, rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
	} else {
		log.Info().Msg("redis disabled (REDIS_ADDR empty)")
	}

	// Durable store (DynamoDB or noop)
	durable, err := storage.NewStore(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize durable store")
	}

	// Authoritative in-memory queue store
	storeOpts := []queuestore.Option{
		queuestore.WithClosedTTL(cfg.ClosedItemTTL),
		queuestore.WithDurable(durable),
	}
	if redisCache != nil {
		storeOpts = append(storeOpts, queuestore.WithMirror(redisCache))
	}
	store := queuestore.New(log.Logger, storeOpts...)

	// Recover open items: prefer the redis mirror, fall back to the durable
	// store
	recoverItems(ctx, store, redisCache, durable)

	// Live agent performance snapshots; agents with no updates for the
	// stale threshold are marked offline
	perf := cache.NewPerformanceStore()
	staleTicker := ticker.New("presence", 30*time.Second, func(time.Time) {
		if stale := perf.MarkStale(); stale > 0 {
			log.Warn().Int("agents", stale).Msg("marked stale agents offline")
		}
	}, log.Logger)
	go staleTicker.Start(ctx)

	// Prometheus collectors
	collectors := metrics.NewCollectors()

	// WebSocket hub and event publisher
	hub := websocket.NewHub(log.Logger)
	go hub.Run()
	publisher := websocket.NewPublisher(hub)
	wsHandler := websocket.NewHandler(hub, cfg, log.Logger)

	// Department directory
	dir := directory.New(cfg.DefaultCapacity, log.Logger)
	if cfg.DirectoryFile != "" {
		if err := dir.LoadFile(cfg.DirectoryFile); err != nil {
			log.Fatal().Err(err).Msg("failed to load directory file")
		}
	}

	// Metrics aggregator
	aggregator := metrics.NewAggregator(store, perf, publisher, dir, collectors, log.Logger)
	go aggregator.Start(ctx, cfg.MetricsInterval)

	// Outbound messaging channel
	outbound := channel.New(cfg.ChannelBaseURL, cfg.ChannelToken, log.Logger)

	// Distribution engine
	engCfg := engine.Config{
		Store:         store,
		Perf:          perf,
		Classifier:    priority.NewClassifier(log.Logger),
		Directory:     dir,
		Channel:       outbound,
		Publisher:     publisher,
		Metrics:       aggregator,
		Collectors:    collectors,
		AssignTimeout: cfg.AssignTimeout,
	}
	if redisCache != nil {
		engCfg.Rules = redisCache
		engCfg.Counter = redisCache
		engCfg.HistSink = redisCache
	}
	eng := engine.New(engCfg, log.Logger)

	// Sweep scheduler and closed-item janitor
	sweeper := sweep.New(store, eng, collectors, cfg.SweepInterval, log.Logger)
	go sweeper.Start(ctx)
	go store.StartJanitor(ctx, time.Minute)

	// API handlers
	queueHandler := api.NewQueueHandler(eng, store, aggregator, log.Logger)
	webhookReceiver := event.NewReceiver(eng, log.Logger)
	perfHandler := api.NewPerformanceHandler(perf, log.Logger)
	rosterHandler := api.NewRosterHandler(dir, log.Logger)
	adminHandler := api.NewAdminHandler(durable, dir, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Register public routes (no auth required)
	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", collectors.Handler())

	// Internal routes (no auth - for trusted internal services)
	r.Route("/internal", func(r chi.Router) {
		r.Post("/agents/roster", rosterHandler.HandleRoster)
		r.Delete("/agents/{departmentId}/{agentId}", rosterHandler.HandleRemoveAgent)
		r.Post("/agents/performance", perfHandler.HandleEvents)
		r.Post("/webhook/message", webhookReceiver.HandleMessage)
		r.Get("/webhook/stats", webhookReceiver.GetStats)
	})

	// Add auth middleware for protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/ws", wsHandler.ServeHTTP)

		r.Route("/api/queue", func(r chi.Router) {
			r.Post("/enqueue", queueHandler.Enqueue)
			r.Get("/items", queueHandler.ListItems)
			r.Get("/metrics", queueHandler.GetMetrics)
			r.Get("/history", queueHandler.GetHistory)
			r.Get("/alerts", queueHandler.GetAlerts)
			r.Get("/{id}", queueHandler.GetItem)
			r.Put("/{id}/priority", queueHandler.UpdatePriority)
			r.Post("/{id}/processing", queueHandler.MarkProcessing)
			r.Post("/{id}/close", queueHandler.CloseItem)

			if redisCache != nil {
				rulesHandler := api.NewRulesHandler(redisCache, log.Logger)
				r.Get("/rules", rulesHandler.GetRules)
				r.Get("/rules/vip", rulesHandler.GetVIP)
				r.Group(func(r chi.Router) {
					r.Use(api.RequireSupervisorOrAdmin)
					r.Put("/rules", rulesHandler.PutRules)
					r.Put("/rules/vip", rulesHandler.PutVIP)
				})
			}
		})

		r.Get("/api/agents/performance", perfHandler.GetAll)

		r.Route("/api/departments", func(r chi.Router) {
			r.Get("/", adminHandler.ListDepartments)
			r.Get("/{departmentId}/config", adminHandler.GetQueueConfig)
			r.Get("/{departmentId}/records", adminHandler.GetDepartmentRecords)
			r.Group(func(r chi.Router) {
				r.Use(api.RequireSupervisorOrAdmin)
				r.Put("/{departmentId}/config", adminHandler.PutQueueConfig)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(api.RequireAdmin)
			r.Post("/api/admin/reset", adminHandler.Reset)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Stop background services
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// recoverItems rebuilds the in-memory queue after a restart. The redis
// mirror is the freshest copy; the durable store covers the case where
// redis was wiped too.
func recoverItems(ctx context.Context, store *queuestore.Store, redisCache *rediscache.Cache, durable storage.Store) {
	if redisCache != nil {
		items, err := redisCache.LoadItems(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to recover items from redis mirror")
		} else if len(items) > 0 {
			open := make([]*types.QueueItem, 0, len(items))
			for _, item := range items {
				if item.Status != types.StatusClosed {
					open = append(open, item)
				}
			}
			store.Seed(open)
			log.Info().Int("items", len(open)).Msg("queue recovered from redis mirror")
			return
		}
	}

	records, err := durable.LoadOpenItems(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to recover items from durable store")
		return
	}
	if len(records) == 0 {
		return
	}

	items := make([]*types.QueueItem, 0, len(records))
	for _, rec := range records {
		items = append(items, types.RecordToItem(rec))
	}
	store.Seed(items)
	log.Info().Int("items", len(items)).Msg("queue recovered from durable store")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"queuewise-backend"}`)
}
