package services

import (
	"context"
	"errors"
	"time"

	"autonomos/internal/cache"
	"autonomos/internal/core"
	"autonomos/internal/log"
	"autonomos/internal/middleware/ratelimit"
)

var (
	ErrDuplicateMessage = errors.New("duplicate message")
	ErrRateLimited      = errors.New("sender rate limited")
)

// Intake filters webhook messages before they are dispatched: redeliveries
// of an already seen message id and floods from a single sender are dropped.
type Intake struct {
	dispatcher Dispatcher
	seen       *cache.LRUCache[struct{}]
	limiter    *ratelimit.Limiter
	logger     *log.Logger
}

type IntakeConfig struct {
	DedupeTTL     time.Duration
	DedupeSize    int
	RatePerMinute int
}

func NewIntake(dispatcher Dispatcher, cfg IntakeConfig, logger *log.Logger) *Intake {
	if cfg.DedupeSize < 1 {
		cfg.DedupeSize = 10000
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = log.Default(log.ComponentWebhook)
	}
	return &Intake{
		dispatcher: dispatcher,
		seen:       cache.NewLRUCache[struct{}](cfg.DedupeSize, cfg.DedupeTTL),
		limiter:    ratelimit.NewLimiter(ratelimit.Config{PerMinute: cfg.RatePerMinute}),
		logger:     logger,
	}
}

// Seen exposes the dedupe cache so it can be registered for periodic cleanup.
func (in *Intake) Seen() cache.Cleaner {
	return in.seen
}

// Admit filters and dispatches one message.
func (in *Intake) Admit(ctx context.Context, msg core.InboundMessage) error {
	if msg.ID != "" && !in.seen.SetIfAbsent(msg.ID, struct{}{}) {
		in.logger.DebugContext(ctx, "Duplicate delivery ignored", log.FieldMessageID, msg.ID)
		return ErrDuplicateMessage
	}
	if !in.limiter.Allow(msg.From) {
		in.logger.WarnContext(ctx, "Sender rate limited, dropping message",
			log.FieldTenant, msg.From,
			log.FieldMessageID, msg.ID)
		return ErrRateLimited
	}
	if err := in.dispatcher.Dispatch(ctx, msg); err != nil {
		if msg.ID != "" {
			in.seen.Delete(msg.ID)
		}
		return err
	}
	return nil
}

// AdmitAll admits every message and returns how many were dispatched.
func (in *Intake) AdmitAll(ctx context.Context, msgs []core.InboundMessage) int {
	admitted := 0
	for _, msg := range msgs {
		if err := in.Admit(ctx, msg); err == nil {
			admitted++
		} else if !errors.Is(err, ErrDuplicateMessage) && !errors.Is(err, ErrRateLimited) {
			in.logger.ErrorContext(ctx, "Failed to dispatch message",
				log.FieldMessageID, msg.ID,
				log.FieldOperation, log.OpDispatch,
				log.FieldError, err.Error())
		}
	}
	return admitted
}

// Close releases the limiter's background cleanup.
func (in *Intake) Close() {
	in.limiter.Stop()
}
