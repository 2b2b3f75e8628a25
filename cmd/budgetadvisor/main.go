package main

import (
	"context"
	"os"
	"time"

	"budgetadvisor/internal/backend"
	"budgetadvisor/internal/cache"
	"budgetadvisor/internal/cli"
	"budgetadvisor/internal/config"
	apphttp "budgetadvisor/internal/http"
	applog "budgetadvisor/internal/log"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = 10 * time.Minute
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp)
	if err := run(cfg, logger); err != nil {
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// run owns every resource so deferred cleanup happens before main exits.
func run(cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		return err
	}

	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateAnswerer(backendCfg)
	if err != nil {
		logger.Error("Failed to create answerer", applog.FieldError, err, applog.FieldStrategy, cfg.AnswerStrategy)
		return err
	}
	defer func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	for name, c := range res.Caches {
		caches.Register(name, c)
	}
	caches.StartCleanup(cleanupInterval)
	defer caches.Stop()

	// Load models in the background so the first question does not pay for it.
	if res.Warm != nil {
		go func() {
			start := time.Now()
			if err := res.Warm(); err != nil {
				logger.Warn("Answerer warm-up failed; questions will report the answer as unavailable",
					applog.FieldError, err, applog.FieldStrategy, res.Strategy.String())
				return
			}
			logger.Info("Answerer ready", applog.FieldStrategy, res.Strategy.String(),
				applog.FieldDuration, time.Since(start).Milliseconds())
		}()
	}

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:         ":" + cfg.Port,
		Answerer:     res.Answerer,
		Strategy:     res.Strategy,
		Logger:       logger,
		RateLimitRPM: cfg.RateLimitRPM,
		Caches:       res.Caches,
	})

	// Configure server timeouts and limits; generation can be slow on CPU.
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 120 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := cli.ShutdownSignals(context.Background(), logger)
	defer cancel()

	logger.Info("Starting budget advisor server", "port", cfg.Port, applog.FieldStrategy, res.Strategy.String())
	if err := cli.Serve(ctx, logger, srv, shutdownTimeout); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		return err
	}
	return nil
}
