package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"autonomos/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDispatcher_ProcessesAllMessages(t *testing.T) {
	proc := &recordingProcessor{}
	d := NewQueueDispatcher(proc, 3, 16, nil)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Dispatch(context.Background(), core.InboundMessage{ID: fmt.Sprint(i), From: tenant, Source: core.SourceText}))
	}
	d.Close()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
	assert.Len(t, proc.Messages(), 10)
}

func TestQueueDispatcher_FullQueueDrops(t *testing.T) {
	proc := &recordingProcessor{}
	d := NewQueueDispatcher(proc, 1, 2, nil)

	ctx := context.Background()
	require.NoError(t, d.Dispatch(ctx, core.InboundMessage{ID: "1"}))
	require.NoError(t, d.Dispatch(ctx, core.InboundMessage{ID: "2"}))
	assert.ErrorIs(t, d.Dispatch(ctx, core.InboundMessage{ID: "3"}), ErrQueueFull)
	assert.Equal(t, 2, d.Pending())
}

func TestQueueDispatcher_ClosedRejects(t *testing.T) {
	d := NewQueueDispatcher(&recordingProcessor{}, 1, 1, nil)
	d.Close()
	d.Close()

	assert.ErrorIs(t, d.Dispatch(context.Background(), core.InboundMessage{ID: "1"}), ErrDispatcherClosed)
	assert.NoError(t, d.Run(context.Background()))
}

func TestQueueDispatcher_DispatchDoesNotWaitForProcessing(t *testing.T) {
	proc := &recordingProcessor{wait: make(chan struct{})}
	d := NewQueueDispatcher(proc, 1, 4, nil)

	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Dispatch(context.Background(), core.InboundMessage{ID: fmt.Sprint(i)}))
	}
	assert.Less(t, time.Since(start), time.Second)

	close(proc.wait)
	d.Close()
	require.NoError(t, <-done)
	assert.Len(t, proc.Messages(), 3)
}
