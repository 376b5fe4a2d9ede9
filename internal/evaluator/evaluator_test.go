package evaluator

import (
	"testing"

	"github.com/lox/pokerd/internal/deck"
)

func eval(t *testing.T, cards string) Evaluation {
	t.Helper()
	return Evaluate(deck.MustParseCards(cards))
}

func TestEvaluateCategories(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		cards    string
		category Category
		primary  int
	}{
		{"royal flush", "AsKsQsJsTs", StraightFlush, 14},
		{"straight flush", "9h8h7h6h5h", StraightFlush, 9},
		{"steel wheel", "Ah5h4h3h2h", StraightFlush, 5},
		{"four of a kind", "7c7d7h7sKd", FourOfAKind, 7},
		{"full house", "3c3d3hJsJd", FullHouse, 3},
		{"flush", "KdTd8d5d2d", Flush, 13},
		{"straight", "9c8d7h6s5c", Straight, 9},
		{"wheel", "Ah2c3d4s5h", Straight, 5},
		{"three of a kind", "QcQdQh8s2c", ThreeOfAKind, 12},
		{"two pair", "AcAdKhKs4c", TwoPair, 14},
		{"pair", "9c9dAhJs3c", Pair, 9},
		{"high card", "AcKdQh9s3c", HighCard, 14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eval(t, tt.cards)
			if got.Category != tt.category {
				t.Errorf("category = %v, want %v (%s)", got.Category, tt.category, got.Description)
			}
			if got.Primary != tt.primary {
				t.Errorf("primary = %d, want %d", got.Primary, tt.primary)
			}
		})
	}
}

func TestCategoryDominance(t *testing.T) {
	t.Parallel()

	// Weakest representative of each category, ascending. Every hand must
	// strictly beat all hands of lower categories regardless of ranks.
	ladder := []string{
		"7c5d4h3s2c",  // high card
		"2c2dQh7s4c",  // pair
		"3c3d2h2sKc",  // two pair
		"2c2d2hKsQc",  // three of a kind
		"Ah2c3d4s5h",  // wheel straight
		"Kd9d7d4d2d",  // flush
		"2c2d2h3s3d",  // full house
		"2c2d2h2sAc",  // four of a kind (ace kicker)
		"Ah5h4h3h2h",  // steel wheel straight flush
	}

	for i := 1; i < len(ladder); i++ {
		lower := eval(t, ladder[i-1])
		higher := eval(t, ladder[i])
		if higher.Compare(lower) <= 0 {
			t.Errorf("%s (%v) should beat %s (%v)",
				ladder[i], higher.Category, ladder[i-1], lower.Category)
		}
		if !lower.Less(higher) {
			t.Errorf("Less: %v should be less than %v", lower.Category, higher.Category)
		}
	}
}

func TestWheelStraight(t *testing.T) {
	t.Parallel()

	wheel := eval(t, "Ah2c3d4s5h")
	if wheel.Category != Straight {
		t.Fatalf("wheel category = %v, want Straight", wheel.Category)
	}
	if wheel.Primary != 5 {
		t.Errorf("wheel primary = %d, want 5", wheel.Primary)
	}
	want := []int{5, 4, 3, 2, 1}
	if len(wheel.Tiebreakers) != len(want) {
		t.Fatalf("wheel tiebreakers = %v, want %v", wheel.Tiebreakers, want)
	}
	for i := range want {
		if wheel.Tiebreakers[i] != want[i] {
			t.Errorf("wheel tiebreakers = %v, want %v", wheel.Tiebreakers, want)
			break
		}
	}
	if !containsWheel(wheel.Description) {
		t.Errorf("wheel description %q should mention the wheel", wheel.Description)
	}

	sixHigh := eval(t, "2c3d4s5h6c")
	if sixHigh.Compare(wheel) <= 0 {
		t.Error("six-high straight should beat the wheel")
	}
}

func containsWheel(s string) bool {
	for i := 0; i+5 <= len(s); i++ {
		if s[i:i+5] == "Wheel" {
			return true
		}
	}
	return false
}

func TestSixCardRunBeatsWheel(t *testing.T) {
	t.Parallel()

	// Holding A-2-3-4-5-6 the best straight is six high, not the wheel.
	got := eval(t, "Ah2c3d4s5h6cKd")
	if got.Category != Straight {
		t.Fatalf("category = %v, want Straight", got.Category)
	}
	if got.Primary != 6 {
		t.Errorf("primary = %d, want 6", got.Primary)
	}
}

func TestRoyalFlushIsBest(t *testing.T) {
	t.Parallel()

	royal := eval(t, "AsKsQsJsTs")
	if royal.Category != StraightFlush || royal.Primary != 14 {
		t.Fatalf("royal = %v primary %d, want StraightFlush primary 14", royal.Category, royal.Primary)
	}
	if royal.Description != "Royal Flush" {
		t.Errorf("description = %q, want %q", royal.Description, "Royal Flush")
	}

	challengers := []string{
		"KsQsJsTs9s", // king-high straight flush
		"AcAdAhAsKc", // quad aces
		"AcAdAhKsKc", // aces full
		"AsKsQsJs9s", // ace-high flush
	}
	for _, c := range challengers {
		if eval(t, c).Compare(royal) >= 0 {
			t.Errorf("%s should not match or beat a royal flush", c)
		}
	}
}

func TestKickersDecide(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		weaker   string
		stronger string
	}{
		{"pair kicker", "AcAd9h7s3c", "AhAsKh7d3d"},
		{"second kicker", "AcAdKh7s3c", "AhAsKdQd3d"},
		{"two pair low pair", "AcAdQhQs3c", "AhAsKhKd3d"},
		{"two pair kicker", "AcAdKhKs3c", "AhAsKdKcQd"},
		{"trips kicker", "QcQdQhJs3c", "QsQhQdAs3d"},
		{"flush second card", "KdJd8d5d2d", "KhQh8h5h2h"},
		{"full house pair", "3c3d3h2s2d", "3s3h3dJsJd"},
		{"quads kicker", "7c7d7h7sQd", "7c7d7h7sKd"},
		{"high card fifth", "AcKdQh9s2c", "AhKsQd9d3h"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			weaker := eval(t, tt.weaker)
			stronger := eval(t, tt.stronger)
			if weaker.Category != stronger.Category {
				t.Fatalf("categories differ: %v vs %v", weaker.Category, stronger.Category)
			}
			if stronger.Compare(weaker) <= 0 {
				t.Errorf("%s should beat %s (%v vs %v)",
					tt.stronger, tt.weaker, stronger.Tiebreakers, weaker.Tiebreakers)
			}
		})
	}
}

func TestExactTies(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		a, b string
	}{
		{"same straight different suits", "9c8d7h6s5c", "9h8s7c6d5d"},
		{"same two pair", "AcAdKhKs4c", "AhAsKdKc4d"},
		{"same high card", "AcKdQh9s3c", "AhKsQd9d3h"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			a := eval(t, tt.a)
			b := eval(t, tt.b)
			if a.Compare(b) != 0 {
				t.Errorf("%s and %s should tie exactly (%v vs %v)", tt.a, tt.b, a, b)
			}
		})
	}
}

func TestBestFiveOfSeven(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		cards    string
		category Category
		primary  int
	}{
		{"flush hidden in seven", "AhKh2c7h9hQd3h", Flush, 14},
		{"straight using board", "2c2dTc9d8h7s6c", Straight, 10},
		{"two pair not trips", "AcAdKhKs4c4d2h", TwoPair, 14},
		{"full house from two trips", "AcAdAhKsKcKd2h", FullHouse, 14},
		{"straight flush in six suited", "Ah9h8h7h6h5h2c", StraightFlush, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eval(t, tt.cards)
			if got.Category != tt.category {
				t.Errorf("category = %v, want %v (%s)", got.Category, tt.category, got.Description)
			}
			if got.Primary != tt.primary {
				t.Errorf("primary = %d, want %d", got.Primary, tt.primary)
			}
		})
	}
}

func TestFullHouseFromTwoTripsKeepsHigherTrips(t *testing.T) {
	t.Parallel()

	got := eval(t, "AcAdAhKsKcKd2h")
	if got.Category != FullHouse {
		t.Fatalf("category = %v, want FullHouse", got.Category)
	}
	if got.Primary != 14 {
		t.Errorf("primary = %d, want aces (14)", got.Primary)
	}
	if len(got.Tiebreakers) != 1 || got.Tiebreakers[0] != 13 {
		t.Errorf("tiebreakers = %v, want [13]", got.Tiebreakers)
	}
}

func TestThreePairsKeepsTopTwoAndBestKicker(t *testing.T) {
	t.Parallel()

	// A A K K Q Q J: best hand is aces and kings with a queen kicker.
	got := eval(t, "AcAdKhKsQcQdJh")
	if got.Category != TwoPair {
		t.Fatalf("category = %v, want TwoPair", got.Category)
	}
	if got.Primary != 14 {
		t.Errorf("primary = %d, want 14", got.Primary)
	}
	if len(got.Tiebreakers) != 2 || got.Tiebreakers[0] != 13 || got.Tiebreakers[1] != 12 {
		t.Errorf("tiebreakers = %v, want [13 12]", got.Tiebreakers)
	}
}

func TestPartialHands(t *testing.T) {
	t.Parallel()

	empty := Evaluate(nil)
	if empty.Category != HighCard || empty.Primary != 0 {
		t.Errorf("empty hand = %v primary %d, want HighCard primary 0", empty.Category, empty.Primary)
	}
	if empty.Description != "No cards" {
		t.Errorf("empty description = %q, want %q", empty.Description, "No cards")
	}

	two := eval(t, "AhKd")
	if two.Category != HighCard || two.Primary != 14 {
		t.Errorf("two cards = %v primary %d, want HighCard primary 14", two.Category, two.Primary)
	}
	if two.Description != "High Card (2 cards)" {
		t.Errorf("two-card description = %q", two.Description)
	}
}

func TestCategoryWireNames(t *testing.T) {
	t.Parallel()
	tests := []struct {
		category Category
		want     string
	}{
		{HighCard, "HighCard"},
		{Pair, "Pair"},
		{TwoPair, "TwoPair"},
		{ThreeOfAKind, "ThreeOfAKind"},
		{Straight, "Straight"},
		{Flush, "Flush"},
		{FullHouse, "FullHouse"},
		{FourOfAKind, "FourOfAKind"},
		{StraightFlush, "StraightFlush"},
	}
	for _, tt := range tests {
		if got := tt.category.String(); got != tt.want {
			t.Errorf("Category(%d).String() = %q, want %q", tt.category, got, tt.want)
		}
	}
}

func TestDescriptions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		cards string
		want  string
	}{
		{"AcKdQh9s3c", "High Card, A"},
		{"9c9dAhJs3c", "Pair of 9s"},
		{"AcAdKhKs4c", "Two Pair, As and Ks"},
		{"QcQdQh8s2c", "Three of a Kind, Qs"},
		{"9c8d7h6s5c", "Straight to 9"},
		{"Ah2c3d4s5h", "Straight to 5 (Wheel)"},
		{"KdTd8d5d2d", "Flush, K high"},
		{"3c3d3hJsJd", "Full House, 3s over Js"},
		{"7c7d7h7sKd", "Four of a Kind, 7s"},
		{"9h8h7h6h5h", "Straight Flush to 9"},
		{"AsKsQsJsTs", "Royal Flush"},
	}
	for _, tt := range tests {
		if got := eval(t, tt.cards); got.Description != tt.want {
			t.Errorf("Evaluate(%s).Description = %q, want %q", tt.cards, got.Description, tt.want)
		}
	}
}
