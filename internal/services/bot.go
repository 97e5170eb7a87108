package services

import (
	"context"
	"fmt"
	"runtime/debug"

	"autonomos/internal/core"
	"autonomos/internal/log"
)

// Sender delivers a text message to a recipient.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Bot processes one message end to end: routing plus reply delivery.
// Nothing that goes wrong inside a message escapes Process.
type Bot struct {
	router     *Router
	sender     Sender
	logger     *log.Logger
	structured *log.StructuredLogger
}

func NewBot(router *Router, sender Sender, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.Default(log.ComponentBot)
	}
	return &Bot{
		router:     router,
		sender:     sender,
		logger:     logger,
		structured: log.NewStructuredLogger(logger),
	}
}

// Process routes msg and sends the reply. Audio messages get an immediate
// notice before transcription starts.
func (b *Bot) Process(ctx context.Context, msg core.InboundMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			b.structured.LogError(ctx, "Panic while processing message",
				fmt.Errorf("panic: %v", rec), log.ComponentBot, log.OpReceive,
				log.NewFields().
					WithMessage(msg.From, msg.ID, msg.Source.String()).
					WithErrorType(log.ErrorTypeInternal))
			b.logger.DebugContext(ctx, "Panic stack", "stack", string(debug.Stack()))
		}
	}()

	if err := msg.Validate(); err != nil {
		b.logger.DebugContext(ctx, "Ignoring message",
			log.FieldMessageID, msg.ID,
			log.FieldChannel, msg.Source.String(),
			log.FieldError, err.Error())
		return
	}

	if msg.Source == core.SourceAudio {
		b.send(ctx, msg.From, AudioReceivedText)
	}

	reply, err := b.router.Route(ctx, msg)
	if err != nil {
		b.structured.LogError(ctx, "Failed to process message", err, log.ComponentBot, log.OpReceive,
			log.NewFields().
				WithMessage(msg.From, msg.ID, msg.Source.String()).
				WithErrorType(log.ErrorTypeDatabase))
		reply = textReply(GenericFailureText)
	}

	if reply.Text != "" {
		b.send(ctx, msg.From, reply.Text)
	}
}

func (b *Bot) send(ctx context.Context, to, text string) {
	if err := b.sender.SendText(ctx, to, text); err != nil {
		b.logger.WarnContext(ctx, "Failed to deliver reply",
			log.FieldTenant, to,
			log.FieldOperation, log.OpDeliver,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err.Error())
	}
}
