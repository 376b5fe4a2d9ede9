package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/lox/pokerd/internal/protocol"
)

const (
	// Time allowed to write a single frame to the peer.
	writeWait = 10 * time.Second

	// How often the write loop sends a protocol-level Ping frame.
	pingInterval = 30 * time.Second

	// Time allowed to flush queued frames after the connection is told
	// to close. Error frames explaining the close go out in this window.
	drainWait = 2 * time.Second
)

// Connection pairs one WebSocket with one player identity. A read loop
// decodes and dispatches client frames; a write loop drains the outbox.
// Either loop tears the connection down on failure, which unblocks the
// other.
type Connection struct {
	conn     *websocket.Conn
	out      *Outbox
	registry *Registry
	verifier *protocol.Verifier
	limiter  *rateLimiter
	logger   *log.Logger
	clock    quartz.Clock
	ip       string

	maxMessageSize    int
	maxPlayerChips    int
	inactivityTimeout time.Duration

	mu       sync.RWMutex
	playerID string

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(conn *websocket.Conn, ip, playerID string, srv *Server) *Connection {
	ctx, cancel := context.WithCancel(srv.connCtx)
	return &Connection{
		conn:              conn,
		out:               NewOutbox(),
		registry:          srv.registry,
		verifier:          srv.verifier,
		limiter:           newRateLimiter(srv.clock),
		logger:            srv.base.WithPrefix("conn"),
		clock:             srv.clock,
		ip:                ip,
		maxMessageSize:    srv.cfg.Server.MaxMessageSize,
		maxPlayerChips:    srv.cfg.Table.MaxPlayerChips,
		inactivityTimeout: srv.cfg.InactivityTimeout(),
		playerID:          playerID,
		ctx:               ctx,
		cancel:            cancel,
		done:              make(chan struct{}),
	}
}

func (c *Connection) start() {
	go c.writeLoop()
	go c.readLoop()
}

func (c *Connection) player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) setPlayer(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = id
}

// teardown releases everything the connection holds: the outbox stops
// accepting frames, the player is unseated and their connection slot
// freed. Safe to call from either loop; runs once.
func (c *Connection) teardown() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.out.Close()
		id := c.player()
		c.registry.DisconnectPlayer(id, c.out)
		c.registry.Unregister(c.ip)
		close(c.done)
		c.logger.Info("connection closed", "player_id", id, "ip", c.ip)
	})
}

// readLoop pulls frames off the socket until the peer goes away, the
// inactivity deadline passes, or a frame warrants closing. The read
// deadline is re-armed before every read, so any traffic keeps the
// connection alive.
func (c *Connection) readLoop() {
	defer c.teardown()

	c.conn.SetReadLimit(int64(2 * c.maxMessageSize))

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(c.inactivityTimeout))
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", "player_id", c.player(), "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if !c.handleFrame(data) {
			return
		}
	}
}

// handleFrame decodes and dispatches one client frame. It reports whether
// the connection should stay open.
func (c *Connection) handleFrame(data []byte) bool {
	if len(data) > c.maxMessageSize {
		c.sendError("Message too large")
		return false
	}
	if !c.limiter.AllowAction() {
		c.logger.Warn("rate limit exceeded", "player_id", c.player(), "ip", c.ip)
		c.sendError("Rate limit exceeded")
		return false
	}

	var msg *protocol.ClientMessage
	var err error
	if c.verifier != nil {
		msg, err = c.verifier.Verify(data, c.clock.Now())
	} else {
		msg, err = protocol.ParseClientMessage(data)
	}
	if err != nil {
		return c.handleParseError(err)
	}

	c.logger.Debug("message received", "type", msg.Type, "player_id", c.player())

	switch msg.Type {
	case protocol.TypePing:
		c.sendMessage(&protocol.Pong{Timestamp: msg.Timestamp})
		return true

	case protocol.TypeChat:
		if !c.limiter.AllowChat() {
			c.sendError("Rate limit exceeded")
			return true
		}
		if err := c.registry.BroadcastChat(c.player(), msg.Text); err != nil {
			c.sendError(err.Error())
		}
		return true

	case protocol.TypeReconnect:
		return c.handleReconnect(msg)

	case protocol.TypeAction:
		if amt := msg.Action.Amount; amt > c.maxPlayerChips {
			c.sendError(fmt.Sprintf("Amount exceeds maximum allowed: %d", c.maxPlayerChips))
			return true
		}
		fallthrough

	default:
		if err := c.registry.HandleMessage(c.player(), msg); err != nil {
			c.sendError(err.Error())
		}
		return true
	}
}

// handleReconnect resumes a previous identity on this connection. Expired
// or forged tokens close the connection; an unknown player id only earns
// an Error frame.
func (c *Connection) handleReconnect(msg *protocol.ClientMessage) bool {
	if _, err := c.registry.Reconnect(c.player(), msg.PlayerID, msg.Token, c.out); err != nil {
		c.sendError(err.Error())
		if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrInvalidToken) {
			return false
		}
		return true
	}
	c.setPlayer(msg.PlayerID)
	return true
}

// handleParseError maps a decode failure onto the close policy: bad
// amounts and unknown types are survivable, everything else ends the
// connection after one Error frame.
func (c *Connection) handleParseError(err error) bool {
	var amountErr *protocol.AmountError
	switch {
	case errors.As(err, &amountErr):
		c.sendError(err.Error())
		return true
	case errors.Is(err, protocol.ErrUnknownMessageType), errors.Is(err, protocol.ErrUnknownAction):
		c.logger.Debug("dropping unknown message", "player_id", c.player(), "error", err)
		return true
	case errors.Is(err, protocol.ErrBadSignature),
		errors.Is(err, protocol.ErrMessageExpired),
		errors.Is(err, protocol.ErrDuplicateNonce):
		c.logger.Warn("rejected signed frame", "player_id", c.player(), "error", err)
		c.sendError(err.Error())
		return false
	default:
		c.sendError("Invalid message format")
		return false
	}
}

// writeLoop owns the socket's write side: queued frames, periodic pings,
// and the final close. Closing the socket here also unblocks a read loop
// stuck in ReadMessage.
func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.out.Frames():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("write failed", "player_id", c.player(), "error", err)
				c.teardown()
				return
			}

		case <-ticker.C:
			frame, err := protocol.Marshal(&protocol.Ping{Timestamp: uint64(c.clock.Now().UnixMilli())})
			if err != nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.teardown()
				return
			}

		case <-c.ctx.Done():
			c.drain()
			return
		}
	}
}

// drain flushes whatever the outbox still holds, sharing one short
// deadline across all of it.
func (c *Connection) drain() {
	deadline := time.Now().Add(drainWait)
	for {
		select {
		case frame := <-c.out.Frames():
			_ = c.conn.SetWriteDeadline(deadline)
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Connection) sendMessage(msg protocol.ServerMessage) {
	frame, err := protocol.Marshal(msg)
	if err != nil {
		c.logger.Error("marshal failed", "type", msg.MessageType(), "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(c.ctx, sendTimeout)
	defer cancel()
	if err := c.out.Send(ctx, frame); err != nil {
		c.logger.Debug("dropping frame for closed connection", "player_id", c.player())
	}
}

func (c *Connection) sendError(text string) {
	c.sendMessage(&protocol.ErrorMessage{Message: text})
}
