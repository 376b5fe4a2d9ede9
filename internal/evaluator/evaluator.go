// Package evaluator ranks poker hands. Evaluate takes a player's hole cards
// combined with the community cards (up to seven cards total) and returns the
// strength of the best five-card hand, with enough tiebreak information to
// totally order any two hands.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/lox/pokerd/internal/deck"
)

// Evaluate returns the best five-card evaluation of the given cards. It is
// pure and safe for concurrent use.
//
// Fewer than five cards only occurs in malformed states, never at a real
// showdown; such hands rank as high card over the ranks present. No cards at
// all ranks below everything.
func Evaluate(cards []deck.Card) Evaluation {
	if len(cards) == 0 {
		return Evaluation{
			Category:    HighCard,
			Primary:     0,
			Description: "No cards",
		}
	}

	if len(cards) < 5 {
		tiebreakers := make([]int, len(cards))
		top := 0
		for i, c := range cards {
			tiebreakers[i] = int(c.Rank)
			if int(c.Rank) > top {
				top = int(c.Rank)
			}
		}
		return Evaluation{
			Category:    HighCard,
			Primary:     top,
			Tiebreakers: tiebreakers,
			Description: fmt.Sprintf("High Card (%d cards)", len(cards)),
		}
	}

	if eval, ok := checkStraightFlush(cards); ok {
		return eval
	}
	if eval, ok := checkFourOfAKind(cards); ok {
		return eval
	}
	if eval, ok := checkFullHouse(cards); ok {
		return eval
	}
	if eval, ok := checkFlush(cards); ok {
		return eval
	}
	if eval, ok := checkStraight(cards); ok {
		return eval
	}
	if eval, ok := checkThreeOfAKind(cards); ok {
		return eval
	}
	if eval, ok := checkTwoPair(cards); ok {
		return eval
	}
	if eval, ok := checkPair(cards); ok {
		return eval
	}
	return newHighCard(cards)
}

func checkStraightFlush(cards []deck.Card) (Evaluation, bool) {
	flush, ok := flushSuitCards(cards)
	if !ok {
		return Evaluation{}, false
	}
	high, ok := straightHigh(flush)
	if !ok {
		return Evaluation{}, false
	}
	return newStraightFlush(high), true
}

func checkFourOfAKind(cards []deck.Card) (Evaluation, bool) {
	counts := rankCounts(cards)
	for r := deck.Ace; r >= deck.Two; r-- {
		if counts[r] == 4 {
			return newFourOfAKind(cards, r), true
		}
	}
	return Evaluation{}, false
}

func checkFullHouse(cards []deck.Card) (Evaluation, bool) {
	counts := rankCounts(cards)

	var trips deck.Rank
	for r := deck.Ace; r >= deck.Two; r-- {
		if counts[r] >= 3 {
			trips = r
			break
		}
	}
	if trips == 0 {
		return Evaluation{}, false
	}
	for r := deck.Ace; r >= deck.Two; r-- {
		if r != trips && counts[r] >= 2 {
			return newFullHouse(trips, r), true
		}
	}
	return Evaluation{}, false
}

func checkFlush(cards []deck.Card) (Evaluation, bool) {
	flush, ok := flushSuitCards(cards)
	if !ok {
		return Evaluation{}, false
	}
	return newFlush(flush), true
}

func checkStraight(cards []deck.Card) (Evaluation, bool) {
	high, ok := straightHigh(cards)
	if !ok {
		return Evaluation{}, false
	}
	return newStraight(high), true
}

func checkThreeOfAKind(cards []deck.Card) (Evaluation, bool) {
	counts := rankCounts(cards)
	for r := deck.Ace; r >= deck.Two; r-- {
		if counts[r] >= 3 {
			return newThreeOfAKind(cards, r), true
		}
	}
	return Evaluation{}, false
}

func checkTwoPair(cards []deck.Card) (Evaluation, bool) {
	counts := rankCounts(cards)
	pairs := make([]deck.Rank, 0, 3)
	for r := deck.Ace; r >= deck.Two; r-- {
		if counts[r] >= 2 {
			pairs = append(pairs, r)
		}
	}
	if len(pairs) < 2 {
		return Evaluation{}, false
	}
	return newTwoPair(cards, pairs[0], pairs[1]), true
}

func checkPair(cards []deck.Card) (Evaluation, bool) {
	counts := rankCounts(cards)
	for r := deck.Ace; r >= deck.Two; r-- {
		if counts[r] >= 2 {
			return newPair(cards, r), true
		}
	}
	return Evaluation{}, false
}

// flushSuitCards returns every card of the first suit holding five or more,
// sorted by rank descending. The straight flush check needs the full suit
// subset, not just the top five, so hands like A-9-8-7-6-5 suited still find
// the 9-high straight flush.
func flushSuitCards(cards []deck.Card) ([]deck.Card, bool) {
	for _, suit := range deck.Suits {
		flush := make([]deck.Card, 0, len(cards))
		for _, c := range cards {
			if c.Suit == suit {
				flush = append(flush, c)
			}
		}
		if len(flush) >= 5 {
			sort.Slice(flush, func(i, j int) bool {
				return flush[i].Rank > flush[j].Rank
			})
			return flush, true
		}
	}
	return nil, false
}

// straightHigh returns the top rank of the highest five-card run in cards.
// The ace-low wheel is only reported when no higher straight exists, so a
// hand holding A-2-3-4-5-6 ranks as a six-high straight.
func straightHigh(cards []deck.Card) (int, bool) {
	ranks := dedupRanksAsc(cards)
	if len(ranks) == 0 {
		return 0, false
	}

	high := 0
	run := 1
	for i := 1; i < len(ranks); i++ {
		if ranks[i] == ranks[i-1]+1 {
			run++
			if run >= 5 {
				high = ranks[i]
			}
		} else {
			run = 1
		}
	}
	if high > 0 {
		return high, true
	}

	if hasWheelRanks(ranks) {
		return 5, true
	}
	return 0, false
}

func hasWheelRanks(ranks []int) bool {
	for _, want := range []int{2, 3, 4, 5, int(deck.Ace)} {
		found := false
		for _, r := range ranks {
			if r == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func dedupRanksAsc(cards []deck.Card) []int {
	seen := make(map[int]bool, len(cards))
	ranks := make([]int, 0, len(cards))
	for _, c := range cards {
		r := int(c.Rank)
		if !seen[r] {
			seen[r] = true
			ranks = append(ranks, r)
		}
	}
	sort.Ints(ranks)
	return ranks
}

func rankCounts(cards []deck.Card) map[deck.Rank]int {
	counts := make(map[deck.Rank]int, len(cards))
	for _, c := range cards {
		counts[c.Rank]++
	}
	return counts
}
