// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/autonomos, cmd/autonomos-worker and cmd/autonomos-cli.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"autonomos/internal/backend"
	"autonomos/internal/config"
	"autonomos/internal/events"
	"autonomos/internal/ledger"
	"autonomos/internal/log"
	"autonomos/internal/services"
	"autonomos/internal/transcribe"
	"autonomos/internal/whatsapp"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and installs it as the default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration, sets up logging and runs
// Validate plus any extra checks. It exits the process on failure.
func LoadAndValidateConfig(component string, checks ...func(*config.Config) error) (*config.Config, *log.Logger) {
	cfg := config.Load()
	logger := SetupLogger(cfg, component)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			logger.Error("Configuration validation failed", log.FieldError, err.Error())
			os.Exit(1)
		}
	}
	return cfg, logger
}

// OpenBackend creates the configured ledger store.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger.WithComponent(log.ComponentStorage)).CreateBackend(ctx, backendCfg)
}

// NewTranscriber returns the configured speech-to-text engine, or nil when
// transcription is disabled. The returned close function is never nil.
func NewTranscriber(ctx context.Context, cfg *config.Config) (services.Transcriber, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Transcriber {
	case config.TranscriberOpenAI:
		return transcribe.NewOpenAI(cfg.OpenAIAPIKey, transcribe.WithLanguage("pt")), noop, nil
	case config.TranscriberGemini:
		g, err := transcribe.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, fmt.Errorf("create gemini transcriber: %w", err)
		}
		return g, g.Close, nil
	case config.TranscriberNone:
		return nil, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown transcriber %q", cfg.Transcriber)
	}
}

// NewEventPublisher publishes to Kafka when brokers are configured.
func NewEventPublisher(cfg *config.Config, logger *log.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopPublisher{}
	}
	logger.Info("Publishing ledger events to Kafka",
		"brokers", cfg.KafkaBrokers,
		"topic", cfg.KafkaTopic)
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

// NewWhatsAppClient creates the Cloud API client for the configured number.
func NewWhatsAppClient(cfg *config.Config, logger *log.Logger) *whatsapp.Client {
	return whatsapp.NewClient(whatsapp.Config{
		BaseURL: cfg.GraphBaseURL,
		PhoneID: cfg.WhatsAppPhoneID,
		Token:   cfg.MetaToken,
		Logger:  logger.WithComponent(log.ComponentWhatsApp),
	})
}

// NewBot wires the router and delivery around store. The cleanup function
// releases the transcriber and the event publisher.
func NewBot(ctx context.Context, cfg *config.Config, store ledger.Store, logger *log.Logger) (*services.Bot, func(), error) {
	wa := NewWhatsAppClient(cfg, logger)

	transcriber, closeTranscriber, err := NewTranscriber(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	publisher := NewEventPublisher(cfg, logger)

	opts := []services.RouterOption{
		services.WithLocation(cfg.Location()),
		services.WithEvents(publisher),
		services.WithRouterLogger(logger.WithComponent(log.ComponentRouter)),
	}
	if transcriber != nil {
		opts = append(opts, services.WithTranscription(wa, transcriber))
	} else {
		logger.Warn("Audio transcription disabled")
	}

	router := services.NewRouter(store, opts...)
	bot := services.NewBot(router, wa, logger.WithComponent(log.ComponentBot))

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher", log.FieldError, err.Error())
		}
		if err := closeTranscriber(); err != nil {
			logger.Warn("Failed to close transcriber", log.FieldError, err.Error())
		}
	}
	return bot, cleanup, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
	}()
	return ctx, stop
}
