package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/app"
	"github.com/Ayuu1305/squad-quest-sub001/internal/config"
	"github.com/Ayuu1305/squad-quest-sub001/internal/handlers"
	"github.com/Ayuu1305/squad-quest-sub001/internal/metrics"
	qmiddleware "github.com/Ayuu1305/squad-quest-sub001/internal/middleware"
	"github.com/Ayuu1305/squad-quest-sub001/internal/routers"
	"github.com/Ayuu1305/squad-quest-sub001/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
)

func registerRoutes(router *chi.Mux, a *app.App, guards routers.Guards, logger *zap.Logger) {
	checks := map[string]handlers.Pinger{"store": a.Store.Ping}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}

	questHandler := handlers.NewQuestHandler(a.Quests, logger)
	rewardHandler := handlers.NewRewardHandler(a.Rewards, logger)
	leaderboardHandler := handlers.NewLeaderboardHandler(a.Leaderboard, a.Activity, logger)

	routers.HealthRoutes(router, handlers.NewHealthHandler(checks))
	routers.QuestRoutes(router, questHandler, rewardHandler, guards)
	routers.RewardRoutes(router, rewardHandler, leaderboardHandler, guards)
}

func main() {
	bootLogger, _ := zap.NewProduction()

	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger.Fatal("Failed to load configuration", zap.Error(err))
	}
	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		bootLogger.Fatal("Failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("store_driver", cfg.StoreDriver),
		zap.Bool("archive_dry_run", cfg.Archive.DryRun),
		zap.Bool("jobs_enabled", cfg.Jobs.Enabled))

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	if err := a.StartJobs(); err != nil {
		logger.Fatal("Failed to start background jobs", zap.Error(err))
	}

	var limiter qmiddleware.Limiter
	if a.Redis != nil {
		limiter = redis_rate.NewLimiter(a.Redis)
	}
	guards := routers.NewGuards(cfg, limiter, logger)

	router := chi.NewRouter()

	// cors middleware
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	router.Use(middleware.RequestID, qmiddleware.ClientAddress(cfg.TrustProxyHeaders), middleware.Logger, middleware.Recoverer, middleware.Timeout(60*time.Second))
	router.Use(metrics.Middleware("squadquest"))

	registerRoutes(router, a, guards, logger)

	serverAddr := ":" + cfg.Port

	// http server with timeouts
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Squad Quest service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Squad Quest service shutting down...")

	a.StopJobs()

	// graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	a.Close(ctx)

	logger.Info("Squad Quest service exited")
}
