package game

import (
	"testing"

	"github.com/lox/pokerd/internal/deck"
	"github.com/lox/pokerd/internal/protocol"
	"github.com/lox/pokerd/internal/randutil"
)

func TestShowdownAwardsPotToBestHand(t *testing.T) {
	t.Parallel()
	// p1 flops top pair, p2 flops a set of sixes
	stack := deck.MustParseCards("Ah6sKd6dKh6c2s9d3h")
	rec := newRecorder("p1", "p2")
	g := New("g1", 5, 10, rec, WithDeck(deck.NewStacked(stack)))
	g.AddPlayer("p1", "Alice", 1000)
	g.AddPlayer("p2", "Bob", 1000)

	mustAct(t, g, "p1", protocol.Call, 0)
	mustAct(t, g, "p2", protocol.Check, 0)
	for street := 0; street < 3; street++ {
		mustAct(t, g, "p2", protocol.Bet, 30)
		mustAct(t, g, "p1", protocol.Call, 0)
	}

	chips := rec.finalChips(t, 1)
	if chips["p2"] != 1100 {
		t.Errorf("p2 chips = %d, want 1100", chips["p2"])
	}
	if chips["p1"] != 900 {
		t.Errorf("p1 chips = %d, want 900", chips["p1"])
	}

	sd := rec.showdownFrame(1)
	if sd == nil {
		t.Fatal("no Showdown broadcast")
	}
	if len(sd.Winners) != 1 || sd.Winners[0] != "p2" {
		t.Fatalf("winners = %v, want [p2]", sd.Winners)
	}
	if len(sd.CommunityCards) != 5 {
		t.Errorf("community cards = %v, want a full board", sd.CommunityCards)
	}
	if len(sd.Hands) != 2 {
		t.Fatalf("revealed hands = %d, want 2", len(sd.Hands))
	}
	// hands are listed best first
	if sd.Hands[0].PlayerID != "p2" || sd.Hands[0].Category != "ThreeOfAKind" {
		t.Errorf("best hand = %s %s, want p2 ThreeOfAKind",
			sd.Hands[0].PlayerID, sd.Hands[0].Category)
	}
}

func TestAllInLayersBuildSidePots(t *testing.T) {
	t.Parallel()
	rec := newRecorder("p1", "p2", "p3")
	g := New("g1", 5, 10, rec, WithRand(randutil.New(7)))
	g.AddPlayer("p1", "Alice", 55)
	g.AddPlayer("p2", "Bob", 495)
	g.AddPlayer("p3", "Cara", 200)

	// p2 gets kings, p3 queens, p1 aces; the board misses everyone
	g.StackDeck(deck.NewStacked(deck.MustParseCards("KsQsAsKhQhAh7c8c9cJd3d")))

	// fold out the heads-up opener so hand 2 deals all three: p1 50,
	// p2 500, p3 200, with the button on p2
	mustAct(t, g, "p1", protocol.Fold, 0)

	mustAct(t, g, "p1", protocol.AllIn, 0) // 50
	mustAct(t, g, "p2", protocol.AllIn, 0) // 500
	mustAct(t, g, "p3", protocol.AllIn, 0) // 200, short of p2

	var pots []protocol.SidePot
	for _, msg := range rec.handFrames(2) {
		if gs, ok := msg.(*protocol.GameStateUpdate); ok && len(gs.SidePots) > 0 {
			pots = gs.SidePots
		}
	}
	want := []protocol.SidePot{
		{Amount: 150, Eligible: []string{"p1", "p2", "p3"}},
		{Amount: 300, Eligible: []string{"p2", "p3"}},
		{Amount: 300, Eligible: []string{"p2"}},
	}
	if len(pots) != len(want) {
		t.Fatalf("side pots = %+v, want %+v", pots, want)
	}
	for i := range want {
		if pots[i].Amount != want[i].Amount {
			t.Errorf("pot %d amount = %d, want %d", i, pots[i].Amount, want[i].Amount)
		}
		if len(pots[i].Eligible) != len(want[i].Eligible) {
			t.Errorf("pot %d eligible = %v, want %v", i, pots[i].Eligible, want[i].Eligible)
			continue
		}
		for j := range want[i].Eligible {
			if pots[i].Eligible[j] != want[i].Eligible[j] {
				t.Errorf("pot %d eligible = %v, want %v", i, pots[i].Eligible, want[i].Eligible)
				break
			}
		}
	}

	// p1's aces take the main pot; p2's kings take both side layers
	chips := rec.finalChips(t, 2)
	if chips["p1"] != 150 {
		t.Errorf("p1 chips = %d, want 150", chips["p1"])
	}
	if chips["p2"] != 600 {
		t.Errorf("p2 chips = %d, want 600", chips["p2"])
	}
	if chips["p3"] != 0 {
		t.Errorf("p3 chips = %d, want 0", chips["p3"])
	}

	sd := rec.showdownFrame(2)
	if sd == nil {
		t.Fatal("no Showdown broadcast")
	}
	if len(sd.Winners) != 2 || sd.Winners[0] != "p1" || sd.Winners[1] != "p2" {
		t.Errorf("winners = %v, want [p1 p2]", sd.Winners)
	}
}

func TestBoardPlaysSplitsPotEvenly(t *testing.T) {
	t.Parallel()
	// both players hold broadway cards and the board makes the same straight
	stack := deck.MustParseCards("AhAsKhKsQhJhTs2d3d")
	rec := newRecorder("p1", "p2")
	g := New("g1", 5, 10, rec, WithDeck(deck.NewStacked(stack)))
	g.AddPlayer("p1", "Alice", 1000)
	g.AddPlayer("p2", "Bob", 1000)

	mustAct(t, g, "p1", protocol.Call, 0)
	mustAct(t, g, "p2", protocol.Check, 0)
	for street := 0; street < 3; street++ {
		mustAct(t, g, "p2", protocol.Check, 0)
		mustAct(t, g, "p1", protocol.Check, 0)
	}

	chips := rec.finalChips(t, 1)
	if chips["p1"] != 1000 || chips["p2"] != 1000 {
		t.Errorf("chips = p1:%d p2:%d, want an even split back to 1000",
			chips["p1"], chips["p2"])
	}

	sd := rec.showdownFrame(1)
	if sd == nil {
		t.Fatal("no Showdown broadcast")
	}
	if len(sd.Winners) != 2 || sd.Winners[0] != "p1" || sd.Winners[1] != "p2" {
		t.Errorf("winners = %v, want [p1 p2]", sd.Winners)
	}
	for _, h := range sd.Hands {
		if h.Category != "Straight" {
			t.Errorf("%s category = %s, want Straight", h.PlayerID, h.Category)
		}
	}
}

func TestOddChipGoesToEarliestWinner(t *testing.T) {
	t.Parallel()
	rec := newRecorder("p1", "p2", "p3")
	g := New("g1", 5, 10, rec, WithRand(randutil.New(7)))
	g.AddPlayer("p1", "Alice", 105)
	g.AddPlayer("p2", "Bob", 95)
	g.AddPlayer("p3", "Cara", 100)

	// a royal flush runs out on the board, so every showdown hand ties
	g.StackDeck(deck.NewStacked(deck.MustParseCards("2h3h2d3d2s3sTcJcQcKcAc")))

	// fold out the heads-up opener so hand 2 deals all three at 100 each
	mustAct(t, g, "p1", protocol.Fold, 0)

	mustAct(t, g, "p1", protocol.AllIn, 0)
	mustAct(t, g, "p2", protocol.Fold, 0) // small blind's 5 stays in
	mustAct(t, g, "p3", protocol.AllIn, 0)

	// 205 chips split two ways: the odd chip lands on the earliest seat
	chips := rec.finalChips(t, 2)
	if chips["p1"] != 103 {
		t.Errorf("p1 chips = %d, want 103", chips["p1"])
	}
	if chips["p3"] != 102 {
		t.Errorf("p3 chips = %d, want 102", chips["p3"])
	}
	if chips["p2"] != 95 {
		t.Errorf("p2 chips = %d, want 95", chips["p2"])
	}
	if total := chips["p1"] + chips["p2"] + chips["p3"]; total != 300 {
		t.Errorf("total chips = %d, want 300", total)
	}

	sd := rec.showdownFrame(2)
	if sd == nil {
		t.Fatal("no Showdown broadcast")
	}
	if len(sd.Winners) != 2 || sd.Winners[0] != "p1" || sd.Winners[1] != "p3" {
		t.Errorf("winners = %v, want [p1 p3]", sd.Winners)
	}
	for _, h := range sd.Hands {
		if h.Category != "StraightFlush" {
			t.Errorf("%s category = %s, want StraightFlush", h.PlayerID, h.Category)
		}
	}
}
