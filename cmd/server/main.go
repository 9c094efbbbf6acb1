package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faqdesk/backend/internal/scheduler"
	"faqdesk/backend/pkg/config"
	"faqdesk/backend/pkg/di"
	"faqdesk/backend/pkg/health"
	"faqdesk/backend/pkg/logger"
	"faqdesk/backend/pkg/router"
)

func main() {
	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"), "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := di.New(ctx, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	if created, err := container.UserService.EnsureAdmin(ctx, cfg.Admin.LoginID, cfg.Admin.Password, cfg.Admin.Name); err != nil {
		log.LogError(err, "Failed to create admin account")
	} else if created {
		log.Info("Seeded admin account", "login_id", cfg.Admin.LoginID)
	}

	go container.Hub.Run(ctx)
	container.Health.Start(ctx)

	r := router.New(container)
	r.SetupRoutes()
	go r.RateLimiter.Run(ctx)

	jobs := scheduler.New(container.HelpdeskService, cfg.Escalation.StaleAfter, log)
	if err := jobs.Start(cfg.Escalation.DigestSchedule); err != nil {
		log.LogError(err, "Failed to start scheduler")
	}

	if cfg.GRPC.Enabled {
		grpcHealth := health.NewGRPCServer(container.Health, cfg.Observability.ServiceName, log)
		go func() {
			if err := grpcHealth.Serve(ctx, ":"+cfg.GRPC.Port); err != nil {
				log.LogError(err, "gRPC health server failed")
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError(err, "Server failed to start")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	jobs.Stop(shutdownCtx)
	if err := container.Close(shutdownCtx); err != nil {
		log.LogError(err, "Failed to release resources")
	}

	log.Info("Server exited gracefully")
}
