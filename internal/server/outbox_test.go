package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxDeliversInOrder(t *testing.T) {
	out := NewOutbox()
	ctx := context.Background()

	require.NoError(t, out.Send(ctx, []byte("one")))
	require.NoError(t, out.Send(ctx, []byte("two")))
	require.NoError(t, out.Send(ctx, []byte("three")))

	assert.Equal(t, "one", string(<-out.Frames()))
	assert.Equal(t, "two", string(<-out.Frames()))
	assert.Equal(t, "three", string(<-out.Frames()))
}

func TestOutboxSendAfterClose(t *testing.T) {
	out := NewOutbox()
	out.Close()
	assert.ErrorIs(t, out.Send(context.Background(), []byte("late")), errOutboxClosed)
}

func TestOutboxQueuedFramesSurviveClose(t *testing.T) {
	out := NewOutbox()
	require.NoError(t, out.Send(context.Background(), []byte("queued")))
	out.Close()

	select {
	case <-out.Done():
	default:
		t.Fatal("Done should be closed")
	}
	assert.Equal(t, "queued", string(<-out.Frames()))
}

func TestOutboxSendTimesOutWhenFull(t *testing.T) {
	out := NewOutbox()
	for i := 0; i < outboxBuffer; i++ {
		require.NoError(t, out.Send(context.Background(), []byte("fill")))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, out.Send(ctx, []byte("overflow")), context.DeadlineExceeded)
}

func TestOutboxCloseIdempotent(t *testing.T) {
	out := NewOutbox()
	out.Close()
	out.Close()
}
