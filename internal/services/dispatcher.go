package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"autonomos/internal/core"
	"autonomos/internal/log"

	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull        = errors.New("dispatch queue is full")
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)

// DefaultProcessTimeout bounds the work done for a single message.
const DefaultProcessTimeout = 2 * time.Minute

// Dispatcher schedules a message for processing after the webhook has been
// acknowledged.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg core.InboundMessage) error
}

// Processor handles one message to completion.
type Processor interface {
	Process(ctx context.Context, msg core.InboundMessage)
}

// QueueDispatcher feeds a bounded queue drained by a fixed worker pool.
// Dispatch never blocks.
type QueueDispatcher struct {
	queue   chan core.InboundMessage
	proc    Processor
	workers int
	timeout time.Duration
	logger  *log.Logger

	mu     sync.RWMutex
	closed bool
}

func NewQueueDispatcher(proc Processor, workers, size int, logger *log.Logger) *QueueDispatcher {
	if workers < 1 {
		workers = 1
	}
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = log.Default(log.ComponentDispatcher)
	}
	return &QueueDispatcher{
		queue:   make(chan core.InboundMessage, size),
		proc:    proc,
		workers: workers,
		timeout: DefaultProcessTimeout,
		logger:  logger,
	}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg core.InboundMessage) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		d.logger.WarnContext(ctx, "Dispatch queue full, dropping message",
			log.FieldMessageID, msg.ID,
			log.FieldTenant, msg.From)
		return ErrQueueFull
	}
}

// Run starts the workers and blocks until Close has been called and the
// queue is drained. ctx is the parent of every per-message context.
func (d *QueueDispatcher) Run(ctx context.Context) error {
	var g errgroup.Group
	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for msg := range d.queue {
				d.process(ctx, msg)
			}
			return nil
		})
	}

	d.logger.InfoContext(ctx, "Dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
	err := g.Wait()
	d.logger.InfoContext(ctx, "Dispatcher stopped")
	return err
}

func (d *QueueDispatcher) process(ctx context.Context, msg core.InboundMessage) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	d.proc.Process(ctx, msg)
}

// Close stops accepting messages. Queued messages are still processed.
func (d *QueueDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.closed = true
		close(d.queue)
	}
}

// Pending returns the number of queued messages.
func (d *QueueDispatcher) Pending() int {
	return len(d.queue)
}
