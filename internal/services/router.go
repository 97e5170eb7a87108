package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"autonomos/internal/core"
	"autonomos/internal/events"
	"autonomos/internal/ledger"
	"autonomos/internal/log"
)

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// AudioFetcher downloads the media attached to a message.
type AudioFetcher interface {
	FetchAudio(ctx context.Context, mediaID string) ([]byte, string, error)
}

// Router turns one inbound message into a reply, touching the ledger when
// the message is an entry or a history request.
type Router struct {
	store       ledger.Store
	audio       AudioFetcher
	transcriber Transcriber
	events      events.Publisher
	publishWait time.Duration
	loc         *time.Location
	now         func() time.Time
	logger      *log.Logger
	structured  *log.StructuredLogger
}

// DefaultPublishTimeout caps how long a reply waits on the event broker.
const DefaultPublishTimeout = 2 * time.Second

type RouterOption func(*Router)

// WithTranscription enables audio messages.
func WithTranscription(audio AudioFetcher, transcriber Transcriber) RouterOption {
	return func(r *Router) {
		r.audio = audio
		r.transcriber = transcriber
	}
}

// WithEvents publishes an event for every stored entry.
func WithEvents(p events.Publisher) RouterOption {
	return func(r *Router) {
		r.events = p
	}
}

// WithPublishTimeout bounds each event publish. The entry is already stored
// when the publish runs, so a slow broker only costs the event.
func WithPublishTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.publishWait = d
		}
	}
}

// WithLocation sets the zone history dates are rendered in.
func WithLocation(loc *time.Location) RouterOption {
	return func(r *Router) {
		r.loc = loc
	}
}

func WithRouterLogger(l *log.Logger) RouterOption {
	return func(r *Router) {
		r.logger = l
	}
}

func NewRouter(store ledger.Store, opts ...RouterOption) *Router {
	r := &Router{
		store:  store,
		events:      events.NopPublisher{},
		publishWait: DefaultPublishTimeout,
		loc:         time.UTC,
		now:         time.Now,
		logger:      log.Default(log.ComponentRouter),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.structured = log.NewStructuredLogger(r.logger)
	return r
}

// Route handles msg. Extraction and transcription problems become guidance
// replies; only storage failures are returned as errors.
func (r *Router) Route(ctx context.Context, msg core.InboundMessage) (Reply, error) {
	switch msg.Source {
	case core.SourceText:
		return r.routeText(ctx, msg)
	case core.SourceAudio:
		return r.routeAudio(ctx, msg)
	default:
		return Reply{}, core.ErrInvalidSource
	}
}

func (r *Router) routeText(ctx context.Context, msg core.InboundMessage) (Reply, error) {
	cmd := core.Classify(msg.Text)
	r.logger.DebugContext(ctx, "Message classified",
		log.FieldTenant, msg.From,
		log.FieldCommand, cmd.Kind.String())

	switch cmd.Kind {
	case core.CommandHelp:
		return textReply(HelpText), nil
	case core.CommandHistory:
		rows, err := r.store.QueryHistory(ctx, msg.From, cmd.Filter)
		if err != nil {
			return Reply{}, fmt.Errorf("query history: %w", err)
		}
		return textReply(FormatHistory(rows, r.loc)), nil
	default:
		return r.recordEntry(ctx, msg.From, cmd.Text, core.SourceText)
	}
}

func (r *Router) routeAudio(ctx context.Context, msg core.InboundMessage) (Reply, error) {
	text, ok := r.transcribe(ctx, msg)
	if !ok {
		return textReply(AudioGuidanceText), nil
	}
	return r.recordEntry(ctx, msg.From, text, core.SourceAudio)
}

// transcribe fetches and transcribes the audio of msg. Any failure counts as
// an utterance that could not be understood.
func (r *Router) transcribe(ctx context.Context, msg core.InboundMessage) (string, bool) {
	if r.audio == nil || r.transcriber == nil {
		r.logger.WarnContext(ctx, "Audio received but transcription is disabled", log.FieldTenant, msg.From)
		return "", false
	}

	data, mimeType, err := r.audio.FetchAudio(ctx, msg.MediaID)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to fetch audio",
			log.FieldTenant, msg.From,
			"media_id", msg.MediaID,
			log.FieldError, err.Error())
		return "", false
	}
	if mimeType == "" {
		mimeType = msg.MimeType
	}

	text, err := r.transcriber.Transcribe(ctx, data, mimeType)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to transcribe audio",
			log.FieldTenant, msg.From,
			log.FieldOperation, log.OpTranscribe,
			log.FieldError, err.Error())
		return "", false
	}

	text = strings.TrimSpace(text)
	r.logger.DebugContext(ctx, "Audio transcribed", log.FieldTenant, msg.From, "text", text)
	return text, text != ""
}

func (r *Router) recordEntry(ctx context.Context, tenant, text string, source core.Source) (Reply, error) {
	parsed, ok := core.ExtractEntry(text)
	if !ok {
		r.logger.DebugContext(ctx, "Entry not recognized",
			log.FieldTenant, tenant,
			log.FieldChannel, source.String())
		if source == core.SourceAudio {
			return textReply(AudioGuidanceText), nil
		}
		return textReply(TextGuidanceText), nil
	}

	clientID, err := r.store.ResolveOrCreateClient(ctx, tenant, parsed.Client)
	if err != nil {
		return Reply{}, fmt.Errorf("resolve client: %w", err)
	}

	entryID, err := r.store.AppendEntry(ctx, clientID, parsed.Item, parsed.AmountCents, source)
	if err != nil {
		return Reply{}, fmt.Errorf("append entry: %w", err)
	}

	r.structured.LogEntryRecorded(ctx, tenant, entryID, parsed.Client, parsed.Item, parsed.AmountCents, source.String())
	r.publish(ctx, events.EntryRecorded{
		EntryID:     entryID,
		ClientID:    clientID,
		Tenant:      tenant,
		Client:      parsed.Client,
		Item:        parsed.Item,
		AmountCents: parsed.AmountCents,
		Source:      source.String(),
		RecordedAt:  r.now().UTC(),
	})

	return confirmationReply(source, parsed), nil
}

func (r *Router) publish(ctx context.Context, e events.EntryRecorded) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.publishWait)
	defer cancel()

	if err := r.events.PublishEntryRecorded(ctx, e); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish entry event",
			log.FieldEntryID, e.EntryID,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err.Error())
	}
}
