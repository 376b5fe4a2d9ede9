package evaluator

import (
	"fmt"
	"sort"

	"github.com/lox/pokerd/internal/deck"
)

// Category enumerates the classes of poker hands ordered from weakest to strongest.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = [...]string{
	"HighCard",
	"Pair",
	"TwoPair",
	"ThreeOfAKind",
	"Straight",
	"Flush",
	"FullHouse",
	"FourOfAKind",
	"StraightFlush",
}

// String returns the wire name of the category, as sent in showdown messages.
func (c Category) String() string {
	if c < HighCard || c > StraightFlush {
		return "Unknown"
	}
	return categoryNames[c]
}

// Evaluation is the strength of a player's best five-card hand. Evaluations
// are totally ordered by (Category, Primary, Tiebreakers); Description is
// display-only and never participates in comparison.
type Evaluation struct {
	Category    Category
	Primary     int
	Tiebreakers []int
	Description string
}

// Compare returns -1 if e is weaker than other, 0 if they tie exactly and
// 1 if e is stronger.
func (e Evaluation) Compare(other Evaluation) int {
	if e.Category != other.Category {
		if e.Category < other.Category {
			return -1
		}
		return 1
	}
	if e.Primary != other.Primary {
		if e.Primary < other.Primary {
			return -1
		}
		return 1
	}
	for i := 0; i < len(e.Tiebreakers) && i < len(other.Tiebreakers); i++ {
		if e.Tiebreakers[i] != other.Tiebreakers[i] {
			if e.Tiebreakers[i] < other.Tiebreakers[i] {
				return -1
			}
			return 1
		}
	}
	if len(e.Tiebreakers) != len(other.Tiebreakers) {
		if len(e.Tiebreakers) < len(other.Tiebreakers) {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether e is strictly weaker than other.
func (e Evaluation) Less(other Evaluation) bool {
	return e.Compare(other) < 0
}

func newHighCard(cards []deck.Card) Evaluation {
	ranks := sortedRanksDesc(cards)
	tiebreakers := make([]int, 0, 5)
	for i := 0; i < len(ranks) && i < 5; i++ {
		tiebreakers = append(tiebreakers, int(ranks[i]))
	}
	return Evaluation{
		Category:    HighCard,
		Primary:     int(ranks[0]),
		Tiebreakers: tiebreakers,
		Description: fmt.Sprintf("High Card, %s", ranks[0]),
	}
}

func newPair(cards []deck.Card, pair deck.Rank) Evaluation {
	return Evaluation{
		Category:    Pair,
		Primary:     int(pair),
		Tiebreakers: kickers(cards, 3, pair),
		Description: fmt.Sprintf("Pair of %ss", pair),
	}
}

func newTwoPair(cards []deck.Card, high, low deck.Rank) Evaluation {
	tiebreakers := append([]int{int(low)}, kickers(cards, 1, high, low)...)
	return Evaluation{
		Category:    TwoPair,
		Primary:     int(high),
		Tiebreakers: tiebreakers,
		Description: fmt.Sprintf("Two Pair, %ss and %ss", high, low),
	}
}

func newThreeOfAKind(cards []deck.Card, trips deck.Rank) Evaluation {
	return Evaluation{
		Category:    ThreeOfAKind,
		Primary:     int(trips),
		Tiebreakers: kickers(cards, 2, trips),
		Description: fmt.Sprintf("Three of a Kind, %ss", trips),
	}
}

func newStraight(high int) Evaluation {
	desc := fmt.Sprintf("Straight to %s", deck.Rank(high))
	if high == 5 {
		desc = "Straight to 5 (Wheel)"
	}
	return Evaluation{
		Category:    Straight,
		Primary:     high,
		Tiebreakers: runDown(high),
		Description: desc,
	}
}

func newFlush(flush []deck.Card) Evaluation {
	tiebreakers := make([]int, 5)
	for i := 0; i < 5; i++ {
		tiebreakers[i] = int(flush[i].Rank)
	}
	return Evaluation{
		Category:    Flush,
		Primary:     int(flush[0].Rank),
		Tiebreakers: tiebreakers,
		Description: fmt.Sprintf("Flush, %s high", flush[0].Rank),
	}
}

func newFullHouse(trips, pair deck.Rank) Evaluation {
	return Evaluation{
		Category:    FullHouse,
		Primary:     int(trips),
		Tiebreakers: []int{int(pair)},
		Description: fmt.Sprintf("Full House, %ss over %ss", trips, pair),
	}
}

func newFourOfAKind(cards []deck.Card, quads deck.Rank) Evaluation {
	return Evaluation{
		Category:    FourOfAKind,
		Primary:     int(quads),
		Tiebreakers: kickers(cards, 1, quads),
		Description: fmt.Sprintf("Four of a Kind, %ss", quads),
	}
}

func newStraightFlush(high int) Evaluation {
	desc := fmt.Sprintf("Straight Flush to %s", deck.Rank(high))
	if high == int(deck.Ace) {
		desc = "Royal Flush"
	}
	return Evaluation{
		Category:    StraightFlush,
		Primary:     high,
		Tiebreakers: runDown(high),
		Description: desc,
	}
}

// runDown returns the five ranks of a straight ending at high, descending.
// The wheel's low ace contributes a 1 so that it orders below every other
// straight.
func runDown(high int) []int {
	return []int{high, high - 1, high - 2, high - 3, high - 4}
}

// kickers returns the top n card ranks descending, skipping excluded ranks.
func kickers(cards []deck.Card, n int, exclude ...deck.Rank) []int {
	ranks := make([]int, 0, len(cards))
	for _, c := range cards {
		skip := false
		for _, ex := range exclude {
			if c.Rank == ex {
				skip = true
				break
			}
		}
		if !skip {
			ranks = append(ranks, int(c.Rank))
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))
	if len(ranks) > n {
		ranks = ranks[:n]
	}
	return ranks
}

func sortedRanksDesc(cards []deck.Card) []deck.Rank {
	ranks := make([]deck.Rank, len(cards))
	for i, c := range cards {
		ranks[i] = c.Rank
	}
	sort.Sort(sort.Reverse(byRank(ranks)))
	return ranks
}

type byRank []deck.Rank

func (r byRank) Len() int           { return len(r) }
func (r byRank) Less(i, j int) bool { return r[i] < r[j] }
func (r byRank) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
