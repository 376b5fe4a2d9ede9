package deck

import "testing"

func TestCardString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		card Card
		want string
	}{
		{NewCard(Hearts, Ace), "A♥"},
		{NewCard(Spades, Ten), "10♠"},
		{NewCard(Diamonds, King), "K♦"},
		{NewCard(Clubs, Queen), "Q♣"},
		{NewCard(Spades, Jack), "J♠"},
		{NewCard(Hearts, Two), "2♥"},
		{NewCard(Diamonds, Nine), "9♦"},
	}

	for _, tt := range tests {
		if got := tt.card.String(); got != tt.want {
			t.Errorf("Card(%v %v).String() = %q, want %q", tt.card.Rank, tt.card.Suit, got, tt.want)
		}
	}
}

func TestCardValue(t *testing.T) {
	t.Parallel()
	if got := NewCard(Spades, Ace).Value(); got != 14 {
		t.Errorf("Ace value = %d, want 14", got)
	}
	if got := NewCard(Clubs, Two).Value(); got != 2 {
		t.Errorf("Two value = %d, want 2", got)
	}
	if got := NewCard(Hearts, Ten).Value(); got != 10 {
		t.Errorf("Ten value = %d, want 10", got)
	}
}

func TestParseCards(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected []Card
		wantErr  bool
	}{
		{
			name:  "royal flush",
			input: "AsKsQsJsTs",
			expected: []Card{
				{Suit: Spades, Rank: Ace},
				{Suit: Spades, Rank: King},
				{Suit: Spades, Rank: Queen},
				{Suit: Spades, Rank: Jack},
				{Suit: Spades, Rank: Ten},
			},
		},
		{
			name:  "mixed suits",
			input: "AhKdQcJs9s",
			expected: []Card{
				{Suit: Hearts, Rank: Ace},
				{Suit: Diamonds, Rank: King},
				{Suit: Clubs, Rank: Queen},
				{Suit: Spades, Rank: Jack},
				{Suit: Spades, Rank: Nine},
			},
		},
		{
			name:  "case insensitive",
			input: "asKHqD",
			expected: []Card{
				{Suit: Spades, Rank: Ace},
				{Suit: Hearts, Rank: King},
				{Suit: Diamonds, Rank: Queen},
			},
		},
		{
			name:    "invalid rank",
			input:   "XsKs",
			wantErr: true,
		},
		{
			name:    "invalid suit",
			input:   "AsKx",
			wantErr: true,
		},
		{
			name:    "odd length",
			input:   "AsK",
			wantErr: true,
		},
		{
			name:     "empty string",
			input:    "",
			expected: []Card{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCards(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseCards() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !cardsEqual(got, tt.expected) {
				t.Errorf("ParseCards() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustParseCardsPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustParseCards() should panic on invalid input")
		}
	}()
	MustParseCards("invalid")
}

func cardsEqual(a, b []Card) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Rank != b[i].Rank || a[i].Suit != b[i].Suit {
			return false
		}
	}
	return true
}
