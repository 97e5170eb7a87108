package events

import (
	"context"
	"time"
)

// TypeEntryRecorded is the event type emitted after a ledger entry is stored.
const TypeEntryRecorded = "entry.recorded"

// EntryRecorded describes a ledger entry that was just persisted.
type EntryRecorded struct {
	Type        string    `json:"type"`
	EntryID     int64     `json:"entry_id"`
	ClientID    int64     `json:"client_id"`
	Tenant      string    `json:"tenant"`
	Client      string    `json:"client"`
	Item        string    `json:"item"`
	AmountCents int64     `json:"amount_cents"`
	Source      string    `json:"source"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Publisher emits ledger events to downstream consumers.
type Publisher interface {
	PublishEntryRecorded(ctx context.Context, e EntryRecorded) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishEntryRecorded(context.Context, EntryRecorded) error { return nil }

func (NopPublisher) Close() error { return nil }
