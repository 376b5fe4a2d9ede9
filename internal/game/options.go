package game

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerd/internal/deck"
)

// Option configures a Game during creation.
type Option func(*Game)

// WithRand fixes the shuffle source, making deals deterministic.
// Defaults to a crypto-seeded generator.
func WithRand(rng *rand.Rand) Option {
	return func(g *Game) { g.rng = rng }
}

// WithDeck stacks the deck for the first hand. Later hands shuffle
// normally. Test hook; see also StackDeck.
func WithDeck(d *deck.Deck) Option {
	return func(g *Game) { g.nextDeck = d }
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger *log.Logger) Option {
	return func(g *Game) { g.logger = logger }
}

// WithMaxBetPerHand overrides the table's bet ceiling.
func WithMaxBetPerHand(max int) Option {
	return func(g *Game) {
		if max > 0 {
			g.maxBetPerHand = max
		}
	}
}
