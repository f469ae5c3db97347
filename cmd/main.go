package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fabtrack/internal/app/hub"
	"fabtrack/internal/app/registry"
	"fabtrack/internal/app/server"
	"fabtrack/internal/app/server/handlers"
	"fabtrack/internal/config"
	"fabtrack/internal/core/services"
	"fabtrack/internal/platform/logger"
	"fabtrack/internal/platform/telemetry"
	"fabtrack/internal/plugins/postgres"
	redisplugin "fabtrack/internal/plugins/redis"
	"fabtrack/pkg/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load() // no .env in production, environment wins
	cfg := config.Load()

	log := logger.New(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.Init(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", logging.Err(err))
	}
	defer func() {
		if otelShutdown == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", logging.Err(err))
		}
	}()

	// Infra
	pdb, err := postgres.New(ctx, *cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", logging.Err(err))
		return
	}
	defer pdb.Close()
	log.Info("postgres connected")

	rdb, err := redisplugin.NewClient(ctx, *cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL, logging.Err(err))
		return
	}
	defer rdb.Close()
	log.Info("redis connected")

	// Adapters
	userRepo := postgres.NewUserRepo(pdb)
	projectRepo := postgres.NewProjectRepo(pdb)
	materialRepo := postgres.NewMaterialRepo(pdb)
	presence := redisplugin.NewPresenceStore(rdb, cfg.Realtime.PresenceWindow)

	// Realtime core
	reg := registry.New()
	h := hub.New(log, reg)
	h.Start()

	heartbeat := hub.NewHeartbeat(h, cfg.Realtime.HeartbeatInterval, log)
	go heartbeat.Run(ctx)

	// Core services
	txManager := services.NewTxManager(pdb)
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	userSvc := services.NewUserService(log, userRepo)
	projectSvc := services.NewProjectService(log, projectRepo, h)
	materialSvc := services.NewMaterialService(log, materialRepo, txManager, h)

	// Server
	srv := server.New(
		log,
		cfg.Service.Name,
		cfg.Service.Addr,
		tokenSvc,
		handlers.NewAuthHandler(userSvc, tokenSvc),
		handlers.NewStreamHandler(h, reg, presence, cfg.Realtime.WriteBuffer, cfg.Realtime.PresenceWindow),
		handlers.NewProjectHandler(projectSvc),
		handlers.NewMaterialHandler(materialSvc),
	)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		// Close every live stream so in-flight handlers can drain.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Realtime.ShutdownTimeout)
		h.Shutdown(shutdownCtx)
		cancel()
		if err := <-serverErr; err != nil {
			log.Error("server shutdown failed", logging.Err(err))
		}
	case err := <-serverErr:
		if err != nil {
			log.Error("server failed", logging.Err(err))
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Realtime.ShutdownTimeout)
		h.Shutdown(shutdownCtx)
		cancel()
	}

	// Drop this instance's presence records so peers stop seeing its users.
	clearCtx, cancelClear := context.WithTimeout(context.Background(), 2*time.Second)
	if err := presence.Clear(clearCtx); err != nil {
		log.Warn("presence cleanup failed", logging.Err(err))
	}
	cancelClear()

	log.Info("application stopped")
}
