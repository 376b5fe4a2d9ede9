package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"github.com/lox/pokerd/internal/protocol"
)

const (
	// feedBuffer bounds the broadcast endpoint; when fan-out falls this far
	// behind, the oldest queued event is dropped.
	feedBuffer = 100

	// sendTimeout is how long one receiver may stall a delivery before the
	// frame is dropped for them.
	sendTimeout = 5 * time.Second

	broadcastWorkers = 50
	directWorkers    = 100
)

// routed is one event on the feed: either a single frame for every
// subscriber or a per-viewer frame map for messages that differ by viewer.
type routed struct {
	kind   string
	frame  []byte
	frames map[string][]byte
}

// Router bridges engine events to the outboxes of seated players. The engine
// publishes while holding its table lock, so enqueueing onto the feed never
// blocks; the run loop fans each event out with bounded concurrency and
// per-receiver timeouts, finishing one event before starting the next so
// every receiver sees events in engine order.
type Router struct {
	logger *log.Logger

	mu   sync.RWMutex
	subs map[string]*Outbox

	feed chan routed

	broadcastSem *semaphore.Weighted
	directSem    *semaphore.Weighted

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	loopDone chan struct{}
}

// NewRouter creates a router. Run must be started for broadcasts to flow.
func NewRouter(logger *log.Logger) *Router {
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		logger:       logger.WithPrefix("router"),
		subs:         make(map[string]*Outbox),
		feed:         make(chan routed, feedBuffer),
		broadcastSem: semaphore.NewWeighted(broadcastWorkers),
		directSem:    semaphore.NewWeighted(directWorkers),
		ctx:          ctx,
		cancel:       cancel,
		loopDone:     make(chan struct{}),
	}
}

// Attach subscribes a player's outbox to table broadcasts.
func (r *Router) Attach(playerID string, out *Outbox) {
	r.mu.Lock()
	r.subs[playerID] = out
	r.mu.Unlock()
}

// Detach unsubscribes a player. Frames already queued on their outbox are
// unaffected.
func (r *Router) Detach(playerID string) {
	r.mu.Lock()
	delete(r.subs, playerID)
	r.mu.Unlock()
}

// Subscribers returns the number of attached players.
func (r *Router) Subscribers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Broadcast queues one frame for every subscriber. Implements game.Events.
func (r *Router) Broadcast(msg protocol.ServerMessage) {
	frame, err := protocol.Marshal(msg)
	if err != nil {
		r.logger.Error("failed to encode broadcast", "type", msg.MessageType(), "error", err)
		return
	}
	r.publish(routed{kind: msg.MessageType(), frame: frame})
}

// BroadcastEach builds one frame per subscriber and queues them as a single
// ordered event. The build callback runs synchronously so it may read state
// guarded by the caller's lock. Implements game.Events.
func (r *Router) BroadcastEach(build func(viewerID string) protocol.ServerMessage) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	if len(ids) == 0 {
		return
	}

	frames := make(map[string][]byte, len(ids))
	kind := ""
	for _, id := range ids {
		msg := build(id)
		if msg == nil {
			continue
		}
		frame, err := protocol.Marshal(msg)
		if err != nil {
			r.logger.Error("failed to encode broadcast", "type", msg.MessageType(), "error", err)
			continue
		}
		kind = msg.MessageType()
		frames[id] = frame
	}
	if len(frames) == 0 {
		return
	}
	r.publish(routed{kind: kind, frames: frames})
}

// SendTo queues frames for a single outbox, preserving their order. Used for
// seat confirmations and snapshots only one client should see.
func (r *Router) SendTo(out *Outbox, msgs ...protocol.ServerMessage) {
	frames := make([][]byte, 0, len(msgs))
	for _, msg := range msgs {
		frame, err := protocol.Marshal(msg)
		if err != nil {
			r.logger.Error("failed to encode message", "type", msg.MessageType(), "error", err)
			continue
		}
		frames = append(frames, frame)
	}
	if len(frames) == 0 {
		return
	}
	if err := r.directSem.Acquire(r.ctx, 1); err != nil {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.directSem.Release(1)
		for _, frame := range frames {
			ctx, cancel := context.WithTimeout(r.ctx, sendTimeout)
			err := out.Send(ctx, frame)
			cancel()
			if err != nil {
				r.logger.Warn("dropping direct message", "error", err)
				return
			}
		}
	}()
}

// publish enqueues an event onto the feed without blocking, dropping the
// oldest queued event to make room when fan-out has fallen behind.
func (r *Router) publish(m routed) {
	for {
		select {
		case <-r.ctx.Done():
			return
		case r.feed <- m:
			return
		default:
		}
		select {
		case old := <-r.feed:
			r.logger.Warn("broadcast feed full, dropping oldest event", "type", old.kind)
		default:
		}
	}
}

// Run fans events out until Stop is called.
func (r *Router) Run() {
	defer close(r.loopDone)
	for {
		select {
		case m := <-r.feed:
			r.fanOut(m)
		case <-r.ctx.Done():
			return
		}
	}
}

// Stop halts fan-out and waits for in-flight deliveries to finish.
func (r *Router) Stop() {
	r.cancel()
	<-r.loopDone
	r.wg.Wait()
}

// fanOut delivers one event to every current subscriber and waits for those
// deliveries before returning, keeping each receiver's queue in event order.
func (r *Router) fanOut(m routed) {
	type target struct {
		id    string
		out   *Outbox
		frame []byte
	}

	r.mu.RLock()
	targets := make([]target, 0, len(r.subs))
	if m.frames != nil {
		for id, frame := range m.frames {
			if out, ok := r.subs[id]; ok {
				targets = append(targets, target{id: id, out: out, frame: frame})
			}
		}
	} else {
		for id, out := range r.subs {
			targets = append(targets, target{id: id, out: out, frame: m.frame})
		}
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, t := range targets {
		if err := r.broadcastSem.Acquire(r.ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		r.wg.Add(1)
		go func(t target) {
			defer wg.Done()
			defer r.wg.Done()
			defer r.broadcastSem.Release(1)

			ctx, cancel := context.WithTimeout(r.ctx, sendTimeout)
			defer cancel()
			if err := t.out.Send(ctx, t.frame); err != nil {
				r.logger.Warn("dropping broadcast for slow client",
					"player_id", t.id, "type", m.kind, "error", err)
			}
		}(t)
	}
	wg.Wait()
}
