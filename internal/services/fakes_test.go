package services

import (
	"context"
	"errors"
	"sync"

	"autonomos/internal/core"
	"autonomos/internal/events"
	"autonomos/internal/ledger"
)

type sentMessage struct {
	To   string
	Text string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendText(_ context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Text: text})
	return f.err
}

func (f *fakeSender) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeAudio struct {
	data     []byte
	mimeType string
	err      error
	gotID    string
}

func (f *fakeAudio) FetchAudio(_ context.Context, mediaID string) ([]byte, string, error) {
	f.gotID = mediaID
	return f.data, f.mimeType, f.err
}

type fakeTranscriber struct {
	text    string
	err     error
	gotMIME string
	gotData []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte, mimeType string) (string, error) {
	f.gotData = audio
	f.gotMIME = mimeType
	return f.text, f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.EntryRecorded
	err    error
	ctxErr error
}

func (p *recordingPublisher) PublishEntryRecorded(ctx context.Context, e events.EntryRecorded) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	p.ctxErr = ctx.Err()
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// stalledPublisher blocks until its context ends, like a broker that
// accepts the connection and never acks.
type stalledPublisher struct {
	hadDeadline bool
}

func (p *stalledPublisher) PublishEntryRecorded(ctx context.Context, _ events.EntryRecorded) error {
	_, p.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	return ctx.Err()
}

func (p *stalledPublisher) Close() error { return nil }

var errStoreDown = errors.New("database is locked")

// failingStore wraps a store and fails the selected operations.
type failingStore struct {
	ledger.Store
	failResolve bool
	failAppend  bool
	failHistory bool
}

func (s *failingStore) ResolveOrCreateClient(ctx context.Context, tenant, name string) (int64, error) {
	if s.failResolve {
		return 0, errStoreDown
	}
	return s.Store.ResolveOrCreateClient(ctx, tenant, name)
}

func (s *failingStore) AppendEntry(ctx context.Context, clientID int64, item string, amountCents int64, source core.Source) (int64, error) {
	if s.failAppend {
		return 0, errStoreDown
	}
	return s.Store.AppendEntry(ctx, clientID, item, amountCents, source)
}

func (s *failingStore) QueryHistory(ctx context.Context, tenant, filter string) ([]core.HistoryRow, error) {
	if s.failHistory {
		return nil, errStoreDown
	}
	return s.Store.QueryHistory(ctx, tenant, filter)
}

type panickingStore struct {
	ledger.Store
}

func (panickingStore) QueryHistory(context.Context, string, string) ([]core.HistoryRow, error) {
	panic("boom")
}

type recordingProcessor struct {
	mu   sync.Mutex
	msgs []core.InboundMessage
	wait chan struct{}
}

func (p *recordingProcessor) Process(_ context.Context, msg core.InboundMessage) {
	if p.wait != nil {
		<-p.wait
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

func (p *recordingProcessor) Messages() []core.InboundMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.InboundMessage(nil), p.msgs...)
}
