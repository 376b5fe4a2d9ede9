package server

import (
	"context"
	"errors"
	"sync"
)

// outboxBuffer is the depth of each connection's outbound queue.
const outboxBuffer = 100

var errOutboxClosed = errors.New("outbox closed")

// Outbox is one connection's outbound frame queue. The write loop owns the
// receiving side; the router and registry enqueue through Send. Closing is
// idempotent: queued frames stay readable so the write loop can drain them,
// but further sends fail fast.
type Outbox struct {
	frames chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewOutbox returns an empty queue ready for a write loop to consume.
func NewOutbox() *Outbox {
	return &Outbox{
		frames: make(chan []byte, outboxBuffer),
		done:   make(chan struct{}),
	}
}

// Frames is the receiving side of the queue.
func (o *Outbox) Frames() <-chan []byte { return o.frames }

// Done is closed once the outbox is closed.
func (o *Outbox) Done() <-chan struct{} { return o.done }

// Close detaches the outbox from future sends.
func (o *Outbox) Close() {
	o.once.Do(func() { close(o.done) })
}

// Send enqueues a frame, blocking until there is room, the context expires,
// or the outbox closes.
func (o *Outbox) Send(ctx context.Context, frame []byte) error {
	select {
	case <-o.done:
		return errOutboxClosed
	default:
	}
	select {
	case o.frames <- frame:
		return nil
	case <-o.done:
		return errOutboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
