package game

import (
	"sort"

	"github.com/lox/pokerd/internal/deck"
	"github.com/lox/pokerd/internal/evaluator"
	"github.com/lox/pokerd/internal/protocol"
)

type showdownHand struct {
	player *Player
	eval   evaluator.Evaluation
}

// settleShowdown reveals the contesting hands, splits the pot into
// layers, pays each layer to its best eligible hands, and ends the hand.
func (g *Game) settleShowdown() {
	g.revealed = true

	inHand := g.inHandPlayers()
	g.sidePots = calculateSidePots(inHand)
	g.pot = 0

	g.broadcastState()
	g.broadcastPlayers()

	var hands []showdownHand
	for _, p := range inHand {
		if p.Contesting() {
			hands = append(hands, showdownHand{player: p, eval: g.evaluateHand(p)})
		}
	}
	if len(hands) == 0 {
		g.endHand()
		return
	}

	// best hand first; stable keeps seat order among ties
	sort.SliceStable(hands, func(i, j int) bool {
		return hands[j].eval.Less(hands[i].eval)
	})

	winners := g.distributePots(hands)

	revealed := make([]protocol.ShowdownHand, 0, len(hands))
	for _, h := range hands {
		revealed = append(revealed, protocol.ShowdownHand{
			PlayerID:    h.player.ID,
			HoleCards:   cardStrings(h.player.HoleCards),
			Category:    h.eval.Category.String(),
			Description: h.eval.Description,
		})
	}
	g.events.Broadcast(&protocol.Showdown{
		CommunityCards: cardStrings(g.board),
		Hands:          revealed,
		Winners:        winners,
	})

	g.logger.Info("showdown settled",
		"game_id", g.id, "hand", g.handNumber, "winners", winners)

	g.endHand()
}

// distributePots pays each pot layer to the best eligible hands. A
// layer's amount divides equally among its winners, the remainder going
// one chip at a time to the earliest seats. Returns every player who won
// chips, in pot order.
func (g *Game) distributePots(hands []showdownHand) []string {
	evals := make(map[string]evaluator.Evaluation, len(hands))
	for _, h := range hands {
		evals[h.player.ID] = h.eval
	}

	var overall []string
	won := make(map[string]bool)

	for _, pot := range g.sidePots {
		var best evaluator.Evaluation
		hasBest := false
		for _, id := range pot.Eligible {
			ev, ok := evals[id]
			if !ok {
				continue
			}
			if !hasBest || best.Less(ev) {
				best = ev
				hasBest = true
			}
		}
		if !hasBest {
			continue
		}

		var potWinners []string
		for _, id := range pot.Eligible {
			if ev, ok := evals[id]; ok && ev.Compare(best) == 0 {
				potWinners = append(potWinners, id)
			}
		}

		share := pot.Amount / len(potWinners)
		remainder := pot.Amount % len(potWinners)
		for i, id := range potWinners {
			winnings := share
			if i < remainder {
				winnings++
			}
			g.players[id].Chips += winnings
		}
		for _, id := range potWinners {
			if !won[id] {
				won[id] = true
				overall = append(overall, id)
			}
		}
	}
	return overall
}

// evaluateHand ranks the player's best five cards out of their hole
// cards plus the board.
func (g *Game) evaluateHand(p *Player) evaluator.Evaluation {
	cards := make([]deck.Card, 0, len(p.HoleCards)+len(g.board))
	cards = append(cards, p.HoleCards...)
	cards = append(cards, g.board...)
	return evaluator.Evaluate(cards)
}

// settleFoldWin pays the whole pot to the last contesting player without
// revealing any cards.
func (g *Game) settleFoldWin(winner *Player) {
	winner.Chips += g.pot
	g.pot = 0
	g.logger.Info("hand won uncontested",
		"game_id", g.id, "hand", g.handNumber, "winner", winner.ID)
	g.endHand()
}

// endHand closes out the hand, rotates the dealer, and either starts the
// next hand or waits for players.
func (g *Game) endHand() {
	g.stage = StageHandComplete
	g.sidePots = nil
	g.currentID = ""

	if g.pot > 0 {
		// every claimant left the table mid-hand
		g.logger.Warn("discarding unclaimed pot", "game_id", g.id, "amount", g.pot)
		g.chipTotal -= g.pot
		g.pot = 0
	}

	if total := g.totalChips(); total+g.pot != g.chipTotal {
		g.logger.Error("chip conservation violated",
			"game_id", g.id, "hand", g.handNumber,
			"have", total+g.pot, "want", g.chipTotal)
	}

	g.broadcastState()
	g.broadcastPlayers()

	g.advanceDealer()
	if g.eligibleCount() >= 2 {
		g.startHand()
		return
	}
	g.stage = StageWaitingForPlayers
}

func (g *Game) totalChips() int {
	total := 0
	for _, p := range g.players {
		total += p.Chips
	}
	return total
}
