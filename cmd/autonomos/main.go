package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"autonomos/internal/amqp"
	"autonomos/internal/cache"
	"autonomos/internal/cli"
	"autonomos/internal/config"
	apphttp "autonomos/internal/http"
	"autonomos/internal/log"
	"autonomos/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp, (*config.Config).ValidateWebhook)
	logger.Info("Starting autonomos",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"dispatch", cfg.DispatchMode)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	store, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger backend", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	g, gctx := errgroup.WithContext(ctx)

	var (
		dispatcher services.Dispatcher
		queue      *services.QueueDispatcher
	)
	switch cfg.DispatchMode {
	case config.DispatchAMQP:
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.Workers,
			logger.WithComponent(log.ComponentAMQP))
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer client.Close()
		dispatcher = client
	default:
		bot, cleanup, err := cli.NewBot(ctx, cfg, store.Backend, logger)
		if err != nil {
			logger.Error("Failed to initialize bot", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer cleanup()

		queue = services.NewQueueDispatcher(bot, cfg.Workers, cfg.QueueSize,
			logger.WithComponent(log.ComponentDispatcher))
		dispatcher = queue

		// Queued messages are drained after the server stops, so workers
		// must not share the signal context.
		g.Go(func() error {
			return queue.Run(context.WithoutCancel(gctx))
		})
	}

	intake := services.NewIntake(dispatcher, services.IntakeConfig{
		DedupeTTL:     cfg.DedupeTTL,
		RatePerMinute: cfg.RatePerMinute,
	}, logger.WithComponent(log.ComponentWebhook))

	caches := cache.NewManager(logger)
	caches.Register(intake.Seen())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	if cfg.WhatsAppAppSecret == "" {
		logger.Warn("WHATSAPP_APP_SECRET not set, webhook signatures are not verified")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		VerifyToken: cfg.VerifyToken,
		AppSecret:   cfg.WhatsAppAppSecret,
		Intake:      intake,
		Health:      store.Backend,
		Logger:      logger.WithComponent(log.ComponentHTTP),
		OnShutdown:  intake.Close,
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if queue != nil {
			queue.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
