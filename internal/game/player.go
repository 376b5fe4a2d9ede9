package game

import "github.com/lox/pokerd/internal/deck"

// Player is the engine's view of a seated player. All fields are mutated
// only by Game methods while the table lock is held.
type Player struct {
	ID   string
	Name string

	// Chips is the stack behind, excluding anything already committed.
	Chips int

	HoleCards []deck.Card

	// Bet is the amount committed on the current street. TotalBet is the
	// amount committed over the whole hand; side pots are layered over it.
	Bet      int
	TotalBet int

	HasActed   bool
	AllIn      bool
	Folded     bool
	SittingOut bool

	// InHand marks players who were dealt into the current hand. Players
	// seated mid-hand wait for the next one.
	InHand bool
}

// CanAct reports whether the player can still make betting decisions
// this hand.
func (p *Player) CanAct() bool {
	return p.InHand && !p.Folded && !p.SittingOut && !p.AllIn && p.Chips > 0
}

// Contesting reports whether the player still has a claim on the pot.
func (p *Player) Contesting() bool {
	return p.InHand && !p.Folded
}

// resetForHand clears all per-hand state.
func (p *Player) resetForHand() {
	p.HoleCards = nil
	p.Bet = 0
	p.TotalBet = 0
	p.HasActed = false
	p.AllIn = false
	p.Folded = false
	p.InHand = false
}

// commit moves chips from the stack into the current street's bet. The
// amount must already be validated against the stack.
func (p *Player) commit(amount int) {
	p.Chips -= amount
	p.Bet += amount
	p.TotalBet += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
}
