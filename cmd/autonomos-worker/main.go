package main

import (
	"context"
	"errors"
	"os"

	"autonomos/internal/amqp"
	"autonomos/internal/cli"
	"autonomos/internal/config"
	"autonomos/internal/log"
	"autonomos/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting autonomos-worker", "backend", cfg.DataBackend, "queue", cfg.AMQPQueue)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	store, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger backend", log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer store.Close()

	bot, cleanup, err := cli.NewBot(ctx, cfg, store.Backend, logger)
	if err != nil {
		logger.Error("Failed to initialize bot", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer cleanup()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 1,
		logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer client.Close()

	err = client.ConsumeInbound(ctx, func(ctx context.Context, job *amqp.InboundJob) error {
		// Let an in-flight reply finish even when shutdown starts.
		jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), services.DefaultProcessTimeout)
		defer cancel()

		logger.DebugContext(jobCtx, "Processing job",
			log.FieldJobID, job.JobID,
			log.FieldMessageID, job.Message.ID)
		bot.Process(jobCtx, job.Message)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
