package game

import "sort"

// Pot is one layer of the showdown pot decomposition. Eligible holds the
// IDs of contesting players who can win the layer, in seat order.
type Pot struct {
	Amount   int
	Eligible []string
}

// calculateSidePots splits the hand's contributions into a main pot and
// side pots. Players must be the dealt-in players in seat order.
//
// Layers are peeled at each distinct total contributed by a contesting
// (non-folded) player: a layer's amount collects every dealt-in player's
// contribution between the previous level and this one, so folded chips
// are absorbed by the layers their total reached. Anything contributed
// above the top contested level cannot be won by anyone else and is
// returned to the top layer.
func calculateSidePots(players []*Player) []Pot {
	var contested []int
	total := 0
	for _, p := range players {
		total += p.TotalBet
		if p.Contesting() && p.TotalBet > 0 {
			contested = append(contested, p.TotalBet)
		}
	}
	if len(contested) == 0 {
		return nil
	}

	levels := uniqueSortedLevels(contested)

	var pots []Pot
	collected := 0
	prev := 0
	for _, level := range levels {
		amount := 0
		var eligible []string
		for _, p := range players {
			amount += clamp(p.TotalBet, level) - clamp(p.TotalBet, prev)
			if p.Contesting() && p.TotalBet >= level {
				eligible = append(eligible, p.ID)
			}
		}
		pots = append(pots, Pot{Amount: amount, Eligible: eligible})
		collected += amount
		prev = level
	}

	if excess := total - collected; excess > 0 {
		pots[len(pots)-1].Amount += excess
	}
	return pots
}

func uniqueSortedLevels(values []int) []int {
	sort.Ints(values)
	levels := values[:0]
	for _, v := range values {
		if len(levels) == 0 || v != levels[len(levels)-1] {
			levels = append(levels, v)
		}
	}
	return levels
}

func clamp(v, max int) int {
	if v > max {
		return max
	}
	return v
}
