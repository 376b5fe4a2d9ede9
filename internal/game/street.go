package game

// Street is one betting round of a hand. Showdown is terminal and not a
// betting round.
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

var streetNames = [...]string{"Pre-Flop", "Flop", "Turn", "River", "Showdown"}

func (s Street) String() string {
	if s < Preflop || s > Showdown {
		return "Unknown"
	}
	return streetNames[s]
}

// Stage is the table's coarse state machine.
type Stage int

const (
	StageWaitingForPlayers Stage = iota
	StageBetting
	StageShowdown
	StageHandComplete
)

var stageNames = [...]string{"WaitingForPlayers", "BettingRound", "Showdown", "HandComplete"}

func (s Stage) String() string {
	if s < StageWaitingForPlayers || s > StageHandComplete {
		return "Unknown"
	}
	return stageNames[s]
}
