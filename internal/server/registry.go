package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/lox/pokerd/internal/game"
	"github.com/lox/pokerd/internal/protocol"
)

// Session and seating failures surfaced to clients as Error frames.
var (
	ErrPlayerNotFound = errors.New("Player not found")
	ErrGameNotFound   = errors.New("Game not found")
	ErrAlreadySeated  = errors.New("Player already seated")
	ErrSessionExpired = errors.New("Session expired")
	ErrInvalidToken   = errors.New("Invalid session token")
)

// serverPlayer is the registry's view of a player: chips held in reserve
// while unseated, connection status, the outbound queue, and the session
// token. Exactly one record exists per player id; it outlives both the
// connection and any game the player sat at.
type serverPlayer struct {
	id          string
	name        string
	chips       int
	connected   bool
	gameID      string
	out         *Outbox
	token       string
	tokenIssued time.Time
}

// Registry owns the player records, the games map, and the connection
// counters, all under one lock. The lock is released before any blocking
// send and before any call into a Game, and the game never calls back.
type Registry struct {
	logger *log.Logger
	clock  quartz.Clock
	router *Router

	maxConnections      int
	maxConnectionsPerIP int
	tokenExpiry         time.Duration

	mu          sync.Mutex
	players     map[string]*serverPlayer
	games       map[string]*game.Game
	connections int
	perIP       map[string]int
}

// NewRegistry creates an empty registry enforcing the config's connection
// caps and token expiry.
func NewRegistry(cfg *Config, router *Router, clock quartz.Clock, logger *log.Logger) *Registry {
	return &Registry{
		logger:              logger.WithPrefix("registry"),
		clock:               clock,
		router:              router,
		maxConnections:      cfg.Server.MaxConnections,
		maxConnectionsPerIP: cfg.Server.MaxConnectionsPerIP,
		tokenExpiry:         cfg.SessionTokenExpiry(),
		players:             make(map[string]*serverPlayer),
		games:               make(map[string]*game.Game),
		perIP:               make(map[string]int),
	}
}

// CanAccept reports whether a new connection from ip fits under the global
// and per-IP limits.
func (r *Registry) CanAccept(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connections < r.maxConnections && r.perIP[ip] < r.maxConnectionsPerIP
}

// Register counts an accepted connection against ip.
func (r *Registry) Register(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections++
	r.perIP[ip]++
}

// Unregister releases a connection slot. Subtraction saturates at zero so a
// double release cannot corrupt the counters.
func (r *Registry) Unregister(ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connections > 0 {
		r.connections--
	}
	if n := r.perIP[ip]; n > 1 {
		r.perIP[ip] = n - 1
	} else {
		delete(r.perIP, ip)
	}
}

// Connections returns the number of registered connections.
func (r *Registry) Connections() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connections
}

// AddGame registers a table players can be seated at.
func (r *Registry) AddGame(g *game.Game) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.ID()] = g
}

// Game looks up a table by id.
func (r *Registry) Game(id string) (*game.Game, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	return g, ok
}

// RegisterPlayer creates a player record with a fresh session token. The
// display name is sanitized before it is stored. Registering an existing id
// again is a no-op.
func (r *Registry) RegisterPlayer(id, name string, chips int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[id]; ok {
		return
	}
	r.players[id] = &serverPlayer{
		id:          id,
		name:        sanitizePlayerName(name),
		chips:       chips,
		token:       uuid.NewString(),
		tokenIssued: r.clock.Now(),
	}
}

// ConnectPlayer binds a live outbound queue to the player, marks them
// connected, and reissues their session token.
func (r *Registry) ConnectPlayer(id string, out *Outbox) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	p.connected = true
	p.out = out
	p.token = uuid.NewString()
	p.tokenIssued = r.clock.Now()
	return nil
}

// DisconnectPlayer clears the player's outbound queue, removes their seat,
// and banks whatever chips they still had at the table. The record itself
// survives so the player can reconnect while their token is valid. out must
// be the outbox the disconnecting connection bound; if the identity has
// since been rebound to a newer connection, the call is a no-op.
func (r *Registry) DisconnectPlayer(id string, out *Outbox) {
	r.mu.Lock()
	p, ok := r.players[id]
	if !ok || p.out != out {
		r.mu.Unlock()
		return
	}
	p.connected = false
	p.out = nil
	gameID := p.gameID
	p.gameID = ""
	var g *game.Game
	if gameID != "" {
		g = r.games[gameID]
	}
	r.mu.Unlock()

	r.router.Detach(id)
	if g == nil {
		return
	}

	// RemovePlayer folds them out of any live hand and announces the
	// departure; chips already in the pot stay there.
	chips := g.RemovePlayer(id)
	r.mu.Lock()
	p.chips = chips
	r.mu.Unlock()
	r.logger.Info("player left table", "player_id", id, "game_id", gameID, "chips", chips)
}

// SeatPlayer moves a registered player's reserve chips to a table and deals
// them in. On success the player receives a Connected confirmation followed
// by their view of the table.
func (r *Registry) SeatPlayer(id, gameID string) error {
	r.mu.Lock()
	p, ok := r.players[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	g, ok := r.games[gameID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if p.gameID != "" {
		r.mu.Unlock()
		return ErrAlreadySeated
	}
	if p.chips <= 0 {
		r.mu.Unlock()
		return game.ErrNoChips
	}
	chips := p.chips
	p.chips = 0
	p.gameID = gameID
	name := p.name
	out := p.out
	r.mu.Unlock()

	// The seat confirmation goes out before AddPlayer so the client sees
	// it ahead of any hand-start broadcast the seating triggers.
	if out != nil {
		r.router.Attach(id, out)
		r.router.SendTo(out, &protocol.Connected{PlayerID: id})
	}
	g.AddPlayer(id, name, chips)
	if out != nil {
		r.router.SendTo(out, g.PlayerSnapshot(id))
	}
	r.logger.Info("player seated", "player_id", id, "game_id", gameID, "chips", chips)
	return nil
}

// VerifySession checks that the token matches the player's current session
// and has not expired.
func (r *Registry) VerifySession(playerID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.verifySessionLocked(playerID, token)
}

func (r *Registry) verifySessionLocked(playerID, token string) error {
	p, ok := r.players[playerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if token == "" || p.token != token {
		return ErrInvalidToken
	}
	if r.clock.Now().Sub(p.tokenIssued) > r.tokenExpiry {
		return ErrSessionExpired
	}
	return nil
}

// Reconnect resumes the claimed identity on the calling connection.
// currentID is the identity the connection was auto-registered under; a
// successful resume discards that placeholder record, rebinds the outbox,
// reissues the session token, and sends the player their current state.
// An abandoned identity that already held a seat is unseated exactly as if
// that player had disconnected, so it cannot stall the hand.
func (r *Registry) Reconnect(currentID, claimedID, token string, out *Outbox) (string, error) {
	r.mu.Lock()
	if err := r.verifySessionLocked(claimedID, token); err != nil {
		r.mu.Unlock()
		return "", err
	}
	p := r.players[claimedID]
	p.connected = true
	p.out = out
	p.token = uuid.NewString()
	p.tokenIssued = r.clock.Now()
	fresh := p.token
	gameID := p.gameID
	var ghost *serverPlayer
	var ghostGame *game.Game
	if currentID != claimedID {
		if gp, ok := r.players[currentID]; ok {
			if gp.gameID == "" {
				delete(r.players, currentID)
			} else {
				ghost = gp
				ghostGame = r.games[gp.gameID]
				gp.connected = false
				gp.out = nil
				gp.gameID = ""
			}
		}
	}
	var g *game.Game
	if gameID != "" {
		g = r.games[gameID]
	}
	r.mu.Unlock()

	r.router.Detach(currentID)
	if ghostGame != nil {
		chips := ghostGame.RemovePlayer(currentID)
		r.mu.Lock()
		ghost.chips = chips
		r.mu.Unlock()
	}

	msgs := []protocol.ServerMessage{&protocol.Connected{PlayerID: claimedID}}
	if g != nil {
		r.router.Attach(claimedID, out)
		msgs = append(msgs, g.StateUpdate(), g.PlayerSnapshot(claimedID))
	} else {
		msgs = append(msgs, r.reserveSnapshot(claimedID))
	}
	r.router.SendTo(out, msgs...)
	r.logger.Info("player reconnected", "player_id", claimedID)
	return fresh, nil
}

// reserveSnapshot renders an unseated player's registry record in the same
// shape as a table snapshot.
func (r *Registry) reserveSnapshot(id string) *protocol.PlayerUpdates {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[id]
	if !ok {
		return &protocol.PlayerUpdates{Players: []protocol.PlayerUpdate{}}
	}
	return &protocol.PlayerUpdates{Players: []protocol.PlayerUpdate{{
		PlayerID:   p.id,
		PlayerName: p.name,
		Chips:      p.chips,
		HoleCards:  []string{},
	}}}
}

// HandleMessage routes a decoded intent from playerID. Errors are returned
// to the caller for delivery as a single Error frame.
func (r *Registry) HandleMessage(playerID string, msg *protocol.ClientMessage) error {
	switch msg.Type {
	case protocol.TypeConnect:
		if r.isSeated(playerID) {
			return nil
		}
		return r.SeatPlayer(playerID, DefaultTableID)

	case protocol.TypeAction:
		g, err := r.playerGame(playerID)
		if err != nil {
			return err
		}
		return g.HandleAction(playerID, msg.Action)

	case protocol.TypeSitOut:
		g, err := r.playerGame(playerID)
		if err != nil {
			return err
		}
		g.SitOut(playerID)
		return nil

	case protocol.TypeReturn:
		g, err := r.playerGame(playerID)
		if err != nil {
			return err
		}
		g.Return(playerID)
		return nil

	case protocol.TypeChat:
		return r.BroadcastChat(playerID, msg.Text)

	default:
		r.logger.Warn("unhandled message type", "type", msg.Type, "player_id", playerID)
		return nil
	}
}

// BroadcastChat relays a chat line from playerID to the table.
func (r *Registry) BroadcastChat(playerID, text string) error {
	r.mu.Lock()
	p, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	name := p.name
	r.mu.Unlock()

	text = sanitizeChatMessage(text)
	if text == "" {
		return nil
	}
	r.router.Broadcast(&protocol.ChatBroadcast{
		PlayerID:   playerID,
		PlayerName: name,
		Text:       text,
		Timestamp:  r.clock.Now().Unix(),
	})
	return nil
}

func (r *Registry) isSeated(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	return ok && p.gameID != ""
}

func (r *Registry) playerGame(playerID string) (*game.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	if p.gameID == "" {
		return nil, game.ErrPlayerNotInGame
	}
	g, ok := r.games[p.gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, p.gameID)
	}
	return g, nil
}
