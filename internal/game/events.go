package game

import "github.com/lox/pokerd/internal/protocol"

// Events is the engine's outbound channel to connected clients. The
// server's router implements it; implementations must not call back
// into the Game, which holds its lock while emitting.
type Events interface {
	// Broadcast delivers one frame to every connected client.
	Broadcast(msg protocol.ServerMessage)

	// BroadcastEach builds a frame per connected client so that
	// viewer-specific fields (hidden hole cards) can differ.
	BroadcastEach(build func(viewerID string) protocol.ServerMessage)
}

// NopEvents discards everything. Useful for engines driven only through
// their return values.
type NopEvents struct{}

func (NopEvents) Broadcast(protocol.ServerMessage)                          {}
func (NopEvents) BroadcastEach(func(viewerID string) protocol.ServerMessage) {}
