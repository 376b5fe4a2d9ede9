package game

import "fmt"

// ErrorCode classifies engine failures so callers can branch without
// matching message text.
type ErrorCode int

const (
	CodeNotYourTurn ErrorCode = iota
	CodeCannotCheck
	CodeCannotBet
	CodeCannotRaise
	CodeInvalidBet
	CodeInvalidRaise
	CodeMinBet
	CodeMinRaise
	CodeBetExceedsChips
	CodeRaiseInsufficientChips
	CodeNoChips
	CodeInvalidAmount
	CodePlayerNotFound
	CodePlayerNotInGame
	CodeGameState
)

// GameError carries the exact message sent back to the acting player.
type GameError struct {
	Code ErrorCode
	msg  string
}

func (e *GameError) Error() string { return e.msg }

// Is lets errors.Is match two GameErrors by code, so parameterized
// errors compare against their sentinels.
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	return ok && t.Code == e.Code
}

var (
	ErrNotYourTurn     = &GameError{CodeNotYourTurn, "Not your turn"}
	ErrCannotCheck     = &GameError{CodeCannotCheck, "Cannot check, must call"}
	ErrCannotBet       = &GameError{CodeCannotBet, "Cannot bet, must call or raise"}
	ErrCannotRaise     = &GameError{CodeCannotRaise, "Cannot raise, must call first"}
	ErrNoChips         = &GameError{CodeNoChips, "Player has no chips"}
	ErrInvalidAmount   = &GameError{CodeInvalidAmount, "Amount must be positive"}
	ErrPlayerNotInGame = &GameError{CodePlayerNotInGame, "Player not in a game"}
)

func errInvalidBet(reason string) *GameError {
	return &GameError{CodeInvalidBet, fmt.Sprintf("Invalid bet amount: %s", reason)}
}

func errInvalidRaise(reason string) *GameError {
	return &GameError{CodeInvalidRaise, fmt.Sprintf("Invalid raise amount: %s", reason)}
}

func errMinBet(min int) *GameError {
	return &GameError{CodeMinBet, fmt.Sprintf("Minimum bet is %d", min)}
}

func errMinRaise(total int) *GameError {
	return &GameError{CodeMinRaise, fmt.Sprintf("Minimum raise is to %d", total)}
}

func errBetExceedsChips(amount, chips int) *GameError {
	return &GameError{CodeBetExceedsChips, fmt.Sprintf("Bet amount %d exceeds your chips (%d)", amount, chips)}
}

func errRaiseInsufficientChips(required, chips int) *GameError {
	return &GameError{CodeRaiseInsufficientChips, fmt.Sprintf("Raise requires %d more chips, but you only have %d", required, chips)}
}

func errPlayerNotFound(id string) *GameError {
	return &GameError{CodePlayerNotFound, fmt.Sprintf("Player not found: %s", id)}
}

func errGameState(reason string) *GameError {
	return &GameError{CodeGameState, fmt.Sprintf("Game state error: %s", reason)}
}
