// Package game implements a server-authoritative Texas Hold'em table: the
// hand state machine, betting validation, side-pot settlement, and the
// broadcasts that keep clients in sync. A Game guards its own state with a
// single lock; all exported methods are safe for concurrent use by
// connection handlers.
package game

import (
	"io"
	"math"
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerd/internal/deck"
	"github.com/lox/pokerd/internal/protocol"
	"github.com/lox/pokerd/internal/randutil"
)

// MaxPot caps the chips a single hand may hold. Betting that would push
// the pot past it fails instead of overflowing 32-bit clients.
const MaxPot = math.MaxInt32 / 2

// MaxBetMultiplier bounds an opening bet at a multiple of the pot, unless
// the bettor's whole stack is below the bound.
const MaxBetMultiplier = 10

// DefaultMaxBetPerHand is the table ceiling for any single bet or
// raise-to total unless the config overrides it.
const DefaultMaxBetPerHand = 100000

// Game is one poker table. Exported methods lock; unexported helpers
// assume the lock is held.
type Game struct {
	mu sync.Mutex

	id         string
	smallBlind int
	bigBlind   int

	players map[string]*Player
	seats   []string // join order; dealing and turn order follow it

	deck       *deck.Deck
	board      []deck.Card
	pot        int
	sidePots   []Pot
	street     Street
	stage      Stage
	dealerPos  int
	currentID  string
	minRaise   int
	handNumber int
	revealed   bool

	maxBetPerHand int
	chipTotal     int

	rng      *rand.Rand
	nextDeck *deck.Deck
	events   Events
	logger   *log.Logger
}

// New creates an empty table. Events receives every broadcast the table
// makes; pass NopEvents for a silent engine.
func New(id string, smallBlind, bigBlind int, events Events, opts ...Option) *Game {
	g := &Game{
		id:            id,
		smallBlind:    smallBlind,
		bigBlind:      bigBlind,
		players:       make(map[string]*Player),
		minRaise:      bigBlind * 2,
		maxBetPerHand: DefaultMaxBetPerHand,
		events:        events,
		logger:        log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.events == nil {
		g.events = NopEvents{}
	}
	if g.rng == nil {
		g.rng = randutil.NewCrypto()
	}
	return g
}

// ID returns the table identifier.
func (g *Game) ID() string { return g.id }

// Stage returns the table's current state-machine stage.
func (g *Game) Stage() Stage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stage
}

// Street returns the current betting street.
func (g *Game) Street() Street {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.street
}

// HandNumber returns the number of the current (or last) hand.
func (g *Game) HandNumber() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handNumber
}

// Pot returns the chips collected so far this hand.
func (g *Game) Pot() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pot
}

// CurrentPlayerID returns the id of the player to act, or "" when no
// action is pending.
func (g *Game) CurrentPlayerID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.currentID
}

// HasPlayer reports whether the id is seated at this table.
func (g *Game) HasPlayer(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.players[id]
	return ok
}

// PlayerCount returns the number of seated players.
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seats)
}

// PlayerChips returns a seated player's stack.
func (g *Game) PlayerChips(id string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.players[id]
	if !ok {
		return 0, false
	}
	return p.Chips, true
}

// StackDeck queues a prepared deck for the next hand. Test hook.
func (g *Game) StackDeck(d *deck.Deck) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextDeck = d
}

// AddPlayer seats a player. If the table was waiting and now has two
// eligible players, a hand starts immediately. Players joining mid-hand
// wait for the next one. Adding an already-seated id is a no-op.
func (g *Game) AddPlayer(id, name string, chips int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.players[id]; ok {
		return
	}
	g.players[id] = &Player{ID: id, Name: name, Chips: chips}
	g.seats = append(g.seats, id)
	g.chipTotal += chips

	g.logger.Info("player seated", "game_id", g.id, "player_id", id, "name", name, "chips", chips)
	g.events.Broadcast(&protocol.PlayerConnected{PlayerID: id, PlayerName: name, Chips: chips})

	if g.stage == StageWaitingForPlayers && g.eligibleCount() >= 2 {
		g.startHand()
	}
}

// RemovePlayer unseats a player and returns the chips they take with
// them. If they were dealt into the running hand, they fold first; chips
// they already contributed stay in the pot.
func (g *Game) RemovePlayer(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[id]
	if !ok {
		return 0
	}
	p.SittingOut = true
	if p.Contesting() && g.stage == StageBetting {
		g.foldOutOfBand(p)
	}

	chips := p.Chips
	g.chipTotal -= chips
	g.removeSeat(id)
	delete(g.players, id)
	g.logger.Info("player left", "game_id", g.id, "player_id", id, "chips", chips)
	g.events.Broadcast(&protocol.PlayerDisconnected{PlayerID: id})
	return chips
}

// SitOut marks a player as sitting out. They are not dealt into future
// hands; if they are in the running hand, they fold.
func (g *Game) SitOut(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[id]
	if !ok {
		return
	}
	p.SittingOut = true
	if p.Contesting() && g.stage == StageBetting {
		g.foldOutOfBand(p)
	}
}

// Return brings a sitting-out player back. If the table was waiting for
// players, this may start a hand.
func (g *Game) Return(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[id]
	if !ok {
		return
	}
	p.SittingOut = false
	if g.stage == StageWaitingForPlayers && g.eligibleCount() >= 2 {
		g.startHand()
	}
}

// TryStartHand starts a hand if the table is waiting and two eligible
// players are seated. It reports whether a hand started.
func (g *Game) TryStartHand() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stage != StageWaitingForPlayers || g.eligibleCount() < 2 {
		return false
	}
	g.startHand()
	return true
}

// RefreshStage reconciles the stage with the seated players. A table left
// mid-hand with fewer than two eligible players falls back to waiting;
// clients see the change through a state broadcast.
func (g *Game) RefreshStage() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stage == StageWaitingForPlayers || len(g.players) == 0 {
		return
	}
	if g.eligibleCount() >= 2 {
		return
	}
	g.logger.Info("not enough players, waiting", "game_id", g.id)
	g.stage = StageWaitingForPlayers
	g.currentID = ""
	g.broadcastState()
}

// StateUpdate returns the current authoritative table snapshot.
func (g *Game) StateUpdate() *protocol.GameStateUpdate {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateUpdate()
}

// PlayerSnapshot returns the table's players as seen by one viewer:
// everyone else's live hole cards are hidden.
func (g *Game) PlayerSnapshot(viewerID string) *protocol.PlayerUpdates {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playerUpdates(viewerID)
}

// startHand begins a new hand: fresh deck, blinds, hole cards, and the
// first action request. Callers ensure two eligible players are seated.
func (g *Game) startHand() {
	g.handNumber++
	if g.nextDeck != nil {
		g.deck = g.nextDeck
		g.nextDeck = nil
	} else {
		g.deck = deck.NewWithRand(g.rng)
	}

	for _, p := range g.players {
		p.resetForHand()
	}
	g.board = nil
	g.sidePots = nil
	g.pot = 0
	g.revealed = false

	dealt := 0
	for _, id := range g.seats {
		p := g.players[id]
		if !p.SittingOut && p.Chips > 0 {
			p.InHand = true
			dealt++
		}
	}
	if dealt < 2 {
		g.stage = StageWaitingForPlayers
		return
	}

	g.street = Preflop
	g.stage = StageBetting

	sbSeat := g.nextInHandSeatAt(g.dealerPos)
	bbSeat := g.nextInHandSeatAt(sbSeat + 1)
	g.postBlind(sbSeat, g.smallBlind)
	g.postBlind(bbSeat, g.bigBlind)
	g.minRaise = g.bigBlind * 2

	g.dealHoleCards(sbSeat)
	g.currentID = g.nextActorAfterSeat(bbSeat)

	g.logger.Info("hand started",
		"game_id", g.id, "hand", g.handNumber,
		"players", dealt, "dealer_pos", g.dealerPos)

	g.broadcastState()
	g.broadcastPlayers()
	g.runBettingOrSettle()
}

// postBlind commits a forced bet, capped by the player's stack.
func (g *Game) postBlind(seat int, blind int) {
	p := g.players[g.seats[seat]]
	amount := min(blind, p.Chips)
	p.commit(amount)
	g.pot += amount
}

// dealHoleCards gives each dealt-in player two cards, one at a time,
// starting from the small blind seat.
func (g *Game) dealHoleCards(fromSeat int) {
	for round := 0; round < 2; round++ {
		for i := 0; i < len(g.seats); i++ {
			p := g.players[g.seats[(fromSeat+i)%len(g.seats)]]
			if !p.InHand {
				continue
			}
			if card, ok := g.deck.Deal(); ok {
				p.HoleCards = append(p.HoleCards, card)
			}
		}
	}
}

// nextInHandSeatAt returns the first seat at or after the given index
// whose player was dealt in.
func (g *Game) nextInHandSeatAt(seat int) int {
	n := len(g.seats)
	for i := 0; i < n; i++ {
		s := (seat + i) % n
		if g.players[g.seats[s]].InHand {
			return s
		}
	}
	return seat % n
}

// nextActorAfterSeat returns the id of the first player after the given
// seat who can still act, or "" if nobody can.
func (g *Game) nextActorAfterSeat(seat int) string {
	n := len(g.seats)
	for i := 1; i <= n; i++ {
		p := g.players[g.seats[(seat+i)%n]]
		if p.CanAct() {
			return p.ID
		}
	}
	return ""
}

// nextActorAfter advances the turn past the given player.
func (g *Game) nextActorAfter(id string) string {
	seat := g.seatIndex(id)
	if seat < 0 {
		for _, sid := range g.seats {
			if g.players[sid].CanAct() {
				return sid
			}
		}
		return ""
	}
	return g.nextActorAfterSeat(seat)
}

func (g *Game) seatIndex(id string) int {
	for i, sid := range g.seats {
		if sid == id {
			return i
		}
	}
	return -1
}

func (g *Game) removeSeat(id string) {
	idx := g.seatIndex(id)
	if idx < 0 {
		return
	}
	g.seats = append(g.seats[:idx], g.seats[idx+1:]...)
	if g.dealerPos > idx {
		g.dealerPos--
	}
	if len(g.seats) > 0 {
		g.dealerPos %= len(g.seats)
	} else {
		g.dealerPos = 0
	}
}

// tableBet is the highest live street bet among contesting players.
func (g *Game) tableBet() int {
	max := 0
	for _, p := range g.players {
		if p.Contesting() && p.Bet > max {
			max = p.Bet
		}
	}
	return max
}

func (g *Game) eligibleCount() int {
	n := 0
	for _, p := range g.players {
		if !p.SittingOut && p.Chips > 0 {
			n++
		}
	}
	return n
}

// inHandPlayers returns the dealt-in players in seat order.
func (g *Game) inHandPlayers() []*Player {
	out := make([]*Player, 0, len(g.seats))
	for _, id := range g.seats {
		if p := g.players[id]; p.InHand {
			out = append(out, p)
		}
	}
	return out
}

// contestingPlayers returns the non-folded dealt-in players in seat order.
func (g *Game) contestingPlayers() []*Player {
	out := make([]*Player, 0, len(g.seats))
	for _, id := range g.seats {
		if p := g.players[id]; p.Contesting() {
			out = append(out, p)
		}
	}
	return out
}

func (g *Game) actableCount() int {
	n := 0
	for _, p := range g.players {
		if p.CanAct() {
			n++
		}
	}
	return n
}

// allActed reports whether every player who can still act has done so
// this street.
func (g *Game) allActed() bool {
	for _, p := range g.players {
		if p.CanAct() && !p.HasActed {
			return false
		}
	}
	return true
}

// betsEqualized reports whether every contesting player has either
// matched the table bet or is all-in.
func (g *Game) betsEqualized() bool {
	target := g.tableBet()
	for _, p := range g.players {
		if p.Contesting() && !p.AllIn && p.Bet != target {
			return false
		}
	}
	return true
}

func (g *Game) shouldAdvanceStreet() bool {
	return g.betsEqualized() && (g.allActed() || g.actableCount() < 2)
}

// advanceDealer moves the button to the next seated player who can be
// dealt in.
func (g *Game) advanceDealer() {
	n := len(g.seats)
	if n == 0 {
		g.dealerPos = 0
		return
	}
	for i := 1; i <= n; i++ {
		s := (g.dealerPos + i) % n
		p := g.players[g.seats[s]]
		if !p.SittingOut && p.Chips > 0 {
			g.dealerPos = s
			return
		}
	}
}

func (g *Game) stateUpdate() *protocol.GameStateUpdate {
	return &protocol.GameStateUpdate{
		GameID:         g.id,
		HandNumber:     g.handNumber,
		Pot:            g.pot,
		SidePots:       wireSidePots(g.sidePots),
		CommunityCards: cardStrings(g.board),
		CurrentStreet:  g.street.String(),
		DealerPosition: g.dealerPos,
	}
}

func (g *Game) playerUpdates(viewerID string) *protocol.PlayerUpdates {
	updates := make([]protocol.PlayerUpdate, 0, len(g.seats))
	for _, id := range g.seats {
		p := g.players[id]
		updates = append(updates, protocol.PlayerUpdate{
			PlayerID:     p.ID,
			PlayerName:   p.Name,
			Chips:        p.Chips,
			CurrentBet:   p.Bet,
			HasActed:     p.HasActed,
			IsAllIn:      p.AllIn,
			IsFolded:     p.Folded,
			IsSittingOut: p.SittingOut,
			HoleCards:    g.visibleCards(viewerID, p),
		})
	}
	return &protocol.PlayerUpdates{Players: updates}
}

// visibleCards applies the reveal policy: players always see their own
// cards; everyone else sees "[hidden]" until the showdown reveals the
// contesting hands.
func (g *Game) visibleCards(viewerID string, p *Player) []string {
	switch {
	case p.ID == viewerID:
		return cardStrings(p.HoleCards)
	case g.revealed && p.Contesting():
		return cardStrings(p.HoleCards)
	default:
		return []string{protocol.HiddenCards}
	}
}

func (g *Game) broadcastState() {
	g.events.Broadcast(g.stateUpdate())
}

func (g *Game) broadcastPlayers() {
	g.events.BroadcastEach(func(viewerID string) protocol.ServerMessage {
		return g.playerUpdates(viewerID)
	})
}

// requestAction announces whose turn it is.
func (g *Game) requestAction() {
	p, ok := g.players[g.currentID]
	if !ok {
		return
	}
	g.events.Broadcast(&protocol.ActionRequired{
		PlayerID:    p.ID,
		PlayerName:  p.Name,
		MinRaise:    g.minRaise,
		CurrentBet:  g.tableBet(),
		PlayerChips: p.Chips,
	})
}

func cardStrings(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func wireSidePots(pots []Pot) []protocol.SidePot {
	out := make([]protocol.SidePot, len(pots))
	for i, p := range pots {
		out[i] = protocol.SidePot{Amount: p.Amount, Eligible: p.Eligible}
	}
	return out
}
