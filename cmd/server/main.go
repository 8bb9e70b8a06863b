package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/replenish/internal/api"
	"github.com/andresuchdata/replenish/internal/app"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/scheduler"
	"github.com/andresuchdata/replenish/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(cfg.Log.Format, cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	application, err := app.Open(startCtx, cfg, logger.Component("analysis"))
	cancelStart()
	if err != nil {
		logger.Log.Fatal().Err(err).Str("source", cfg.Data.Source).Msg("Failed to initialize services")
	}
	defer application.Close()

	sched, err := startScheduler(cfg, application)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	services := &api.Services{Sales: application.Sales, Stock: application.Stock}
	if application.Reports != nil {
		services.Reports = application.Reports
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

func startScheduler(cfg *config.Config, application *app.App) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}

	opts := []scheduler.StockJobOption{
		scheduler.WithCache(application.Cache),
		scheduler.WithParallelism(cfg.Scheduler.Parallelism),
	}
	if application.Reports != nil {
		opts = append(opts, scheduler.WithExporter(application.Reports))
	}

	job, err := scheduler.NewStockAnalysisJob(application.Stock, cfg.Scheduler.Stores, logger.Log, opts...)
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(logger.Log)
	if err := sched.AddJob(cfg.Scheduler.Spec, job); err != nil {
		return nil, err
	}
	sched.Start()

	if cfg.Scheduler.RunOnStart {
		go func() {
			if err := sched.RunNow(job); err != nil {
				logger.Log.Warn().Err(err).Msg("startup analysis run failed")
			}
		}()
	}
	return sched, nil
}
