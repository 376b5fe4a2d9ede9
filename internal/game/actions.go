package game

import (
	"fmt"

	"github.com/lox/pokerd/internal/protocol"
)

// HandleAction applies one betting action for the player. On success the
// turn advances, streets are dealt when betting completes, and the hand
// settles at showdown or when only one player remains. The returned
// error's message is safe to send straight back to the acting client.
func (g *Game) HandleAction(playerID string, action protocol.Action) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stage != StageBetting {
		return errGameState("no betting round in progress")
	}
	p, ok := g.players[playerID]
	if !ok {
		return errPlayerNotFound(playerID)
	}
	if !g.isPlayerTurn(playerID) {
		return ErrNotYourTurn
	}

	tableBet := g.tableBet()

	var err error
	switch action.Kind {
	case protocol.Fold:
		p.Folded = true
		p.HasActed = true
	case protocol.Check:
		err = g.applyCheck(p, tableBet)
	case protocol.Call:
		err = g.applyCall(p, tableBet)
	case protocol.Bet:
		err = g.applyBet(p, action.Amount, tableBet)
	case protocol.Raise:
		err = g.applyRaise(p, action.Amount, tableBet)
	case protocol.AllIn:
		err = g.applyAllIn(p, tableBet)
	default:
		err = errGameState(fmt.Sprintf("unsupported action %q", action.Kind))
	}
	if err != nil {
		return err
	}

	g.logger.Debug("action applied",
		"game_id", g.id, "hand", g.handNumber, "player_id", playerID,
		"action", string(action.Kind), "amount", action.Amount, "pot", g.pot)

	g.broadcastState()
	g.broadcastPlayers()
	g.advanceTurn()
	g.runBettingOrSettle()
	return nil
}

// isPlayerTurn accepts the tracked current player, falling back to the
// first actable player when no turn is pending.
func (g *Game) isPlayerTurn(playerID string) bool {
	if g.currentID != "" {
		return g.currentID == playerID
	}
	return g.nextActorAfterSeat(len(g.seats)-1) == playerID
}

func (g *Game) applyCheck(p *Player, tableBet int) error {
	if tableBet-p.Bet > 0 {
		return ErrCannotCheck
	}
	p.HasActed = true
	return nil
}

func (g *Game) applyCall(p *Player, tableBet int) error {
	call := min(tableBet-p.Bet, p.Chips)
	if call > 0 {
		if err := g.checkPot(call); err != nil {
			return err
		}
	}
	p.commit(call)
	g.pot += call
	p.HasActed = true
	return nil
}

func (g *Game) applyBet(p *Player, amount, tableBet int) error {
	if tableBet > 0 {
		return ErrCannotBet
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > p.Chips {
		return errBetExceedsChips(amount, p.Chips)
	}
	if max := g.pot * MaxBetMultiplier; amount > max && p.Chips > max {
		return errInvalidBet(fmt.Sprintf("Bet exceeds maximum allowed: %d (pot: %d)", max, g.pot))
	}
	if amount > g.maxBetPerHand {
		return errInvalidBet(fmt.Sprintf("Bet exceeds table maximum: %d", g.maxBetPerHand))
	}
	if amount < g.minRaise && p.Chips > g.minRaise {
		return errMinBet(g.minRaise)
	}
	if err := g.checkPot(amount); err != nil {
		return err
	}
	p.commit(amount)
	g.pot += amount
	g.minRaise = amount * 2
	p.HasActed = true
	return nil
}

// applyRaise treats amount as the increment over the table bet: the
// player's total for the street becomes tableBet+amount.
func (g *Game) applyRaise(p *Player, amount, tableBet int) error {
	if tableBet == 0 {
		return ErrCannotRaise
	}
	total := tableBet + amount
	if total <= p.Bet {
		return errInvalidRaise("Raise amount must increase the bet")
	}
	if total < g.minRaise {
		return errMinRaise(g.minRaise)
	}
	required := total - p.Bet
	if required > p.Chips {
		return errRaiseInsufficientChips(required, p.Chips)
	}
	if total > g.maxBetPerHand {
		return errInvalidBet(fmt.Sprintf("Raise exceeds table maximum: %d", g.maxBetPerHand))
	}
	if err := g.checkPot(required); err != nil {
		return err
	}
	p.commit(required)
	g.pot += required
	g.minRaise = p.Bet * 2
	p.HasActed = true
	return nil
}

// applyAllIn pushes the player's whole stack. A short all-in below the
// table bet is always accepted; the side-pot layering settles it.
func (g *Game) applyAllIn(p *Player, tableBet int) error {
	if p.Chips == 0 {
		return ErrNoChips
	}
	amount := p.Chips
	if err := g.checkPot(amount); err != nil {
		return err
	}
	p.commit(amount)
	g.pot += amount
	p.HasActed = true
	if p.Bet > tableBet {
		if mr := p.Bet * 2; mr > g.minRaise {
			g.minRaise = mr
		}
	}
	return nil
}

// checkPot rejects a contribution that would push the pot past MaxPot.
func (g *Game) checkPot(add int) error {
	if add < 0 || g.pot+add > MaxPot {
		return errInvalidBet("Pot size exceeds maximum allowed")
	}
	return nil
}

// advanceTurn moves the turn past the current player.
func (g *Game) advanceTurn() {
	g.currentID = g.nextActorAfter(g.currentID)
}

// foldOutOfBand folds a player outside their turn (disconnect, sit-out).
// The turn only advances if it was theirs.
func (g *Game) foldOutOfBand(p *Player) {
	p.Folded = true
	p.HasActed = true
	g.broadcastState()
	g.broadcastPlayers()
	if g.currentID == p.ID {
		g.advanceTurn()
	}
	g.runBettingOrSettle()
}

// runBettingOrSettle drives the hand forward from the current state:
// uncontested hands settle immediately, completed streets deal the next
// one (running the board out when nobody can act), the river completes
// into showdown, and otherwise the next player is asked to act.
func (g *Game) runBettingOrSettle() {
	if g.stage != StageBetting {
		return
	}

	contesting := g.contestingPlayers()
	if len(contesting) == 1 {
		g.settleFoldWin(contesting[0])
		return
	}
	if len(contesting) == 0 {
		g.endHand()
		return
	}

	for g.stage == StageBetting && g.shouldAdvanceStreet() {
		if g.street == River {
			g.street = Showdown
			g.stage = StageShowdown
			g.settleShowdown()
			return
		}
		g.advanceStreet()
	}

	if g.stage == StageBetting {
		g.requestAction()
	}
}

// advanceStreet deals the next street and resets per-street betting
// state. Per-hand totals keep accumulating for the side pots.
func (g *Game) advanceStreet() {
	g.street++
	switch g.street {
	case Flop:
		g.dealBoard(3)
	case Turn, River:
		g.dealBoard(1)
	}

	for _, p := range g.players {
		if p.InHand {
			p.Bet = 0
			p.HasActed = false
		}
	}
	g.minRaise = g.bigBlind * 2
	g.currentID = g.nextActorAfterSeat(g.dealerPos)

	g.logger.Debug("street advanced",
		"game_id", g.id, "hand", g.handNumber,
		"street", g.street.String(), "pot", g.pot)

	g.broadcastState()
	g.broadcastPlayers()
}

func (g *Game) dealBoard(count int) {
	for i := 0; i < count; i++ {
		if card, ok := g.deck.Deal(); ok {
			g.board = append(g.board, card)
		}
	}
}
