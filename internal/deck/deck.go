package deck

import (
	rand "math/rand/v2"

	"github.com/lox/pokerd/internal/randutil"
)

// Deck is an ordered sequence of cards. The card at index 0 is the next
// dealt. A fresh deck is built and shuffled for every hand.
type Deck struct {
	cards []Card
}

// New creates a standard 52-card deck shuffled with a crypto-seeded source.
func New() *Deck {
	return NewWithRand(randutil.NewCrypto())
}

// NewWithRand creates a standard 52-card deck shuffled with the provided
// source. Tests pass a seeded source for reproducible deals.
func NewWithRand(rng *rand.Rand) *Deck {
	d := &Deck{cards: orderedCards()}
	d.shuffle(rng)
	return d
}

// NewStacked creates a deck that deals the given cards in order. Intended
// for tests that pin hole cards and community cards.
func NewStacked(cards []Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

func orderedCards() []Card {
	cards := make([]Card, 0, 52)
	for _, suit := range Suits {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

func (d *Deck) shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Deal removes and returns the top card from the deck
func (d *Deck) Deal() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// DealN deals up to n cards from the deck
func (d *Deck) DealN(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	cards := make([]Card, n)
	for i := 0; i < n; i++ {
		cards[i], _ = d.Deal()
	}
	return cards
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}
