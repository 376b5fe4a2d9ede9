package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxPlayerChips bounds any single bet or raise amount a client may submit.
const MaxPlayerChips = 1000000

// Parse failures the connection handler logs and drops without replying.
var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrUnknownAction      = errors.New("unknown action")
)

// AmountError reports a bet or raise amount that failed range validation.
// The handler replies with an Error frame carrying the message but keeps
// the connection open.
type AmountError struct {
	msg string
}

func (e *AmountError) Error() string { return e.msg }

// Marshal serializes a server message to JSON with its type tag injected
// alongside the payload fields.
func Marshal(msg ServerMessage) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, err
	}
	obj["type"] = msg.MessageType()
	return json.Marshal(obj)
}

// ParseClientMessage decodes an inbound frame. Bet and raise amounts are
// range-checked here so the engine only ever sees validated values; failures
// surface as *AmountError. Unrecognized type tags and action names return
// ErrUnknownMessageType and ErrUnknownAction respectively.
func ParseClientMessage(data []byte) (*ClientMessage, error) {
	var raw struct {
		Type      string          `json:"type"`
		Action    json.RawMessage `json:"action"`
		Amount    *int64          `json:"amount"`
		Text      string          `json:"text"`
		PlayerID  string          `json:"player_id"`
		Token     string          `json:"token"`
		Timestamp uint64          `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}

	msg := &ClientMessage{}
	switch canonicalType(raw.Type) {
	case TypeConnect:
		msg.Type = TypeConnect
	case TypeReconnect:
		msg.Type = TypeReconnect
		msg.PlayerID = raw.PlayerID
		msg.Token = raw.Token
	case TypeAction:
		action, err := parseAction(raw.Action, raw.Amount)
		if err != nil {
			return nil, err
		}
		msg.Type = TypeAction
		msg.Action = action
	case TypeChat:
		msg.Type = TypeChat
		msg.Text = raw.Text
	case TypeSitOut:
		msg.Type = TypeSitOut
	case TypeReturn:
		msg.Type = TypeReturn
	case TypePing:
		msg.Type = TypePing
		msg.Timestamp = raw.Timestamp
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, raw.Type)
	}
	return msg, nil
}

func canonicalType(t string) string {
	switch t {
	case TypeConnect, "connect":
		return TypeConnect
	case TypeReconnect, "reconnect":
		return TypeReconnect
	case TypeAction, "action":
		return TypeAction
	case TypeChat, "chat":
		return TypeChat
	case TypeSitOut, "sit_out":
		return TypeSitOut
	case TypeReturn, "return":
		return TypeReturn
	case TypePing, "ping":
		return TypePing
	}
	return ""
}

// parseAction accepts both encodings of a betting action: a bare string
// ("Fold", "Check", "Call", "AllIn", or "Bet"/"Raise" with a sibling
// "amount" field) and the nested object form {"Bet": n} / {"Raise": n}.
func parseAction(raw json.RawMessage, amount *int64) (Action, error) {
	if len(raw) == 0 {
		return Action{}, ErrUnknownAction
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		switch ActionKind(name) {
		case Fold, Check, Call, AllIn:
			return Action{Kind: ActionKind(name)}, nil
		case Bet, Raise:
			if amount == nil {
				return Action{}, ErrUnknownAction
			}
			n, err := validateAmount(*amount)
			if err != nil {
				return Action{}, err
			}
			return Action{Kind: ActionKind(name), Amount: n}, nil
		default:
			return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, name)
		}
	}

	var nested map[string]int64
	if err := json.Unmarshal(raw, &nested); err != nil {
		return Action{}, ErrUnknownAction
	}
	for _, kind := range []ActionKind{Bet, Raise} {
		if v, ok := nested[string(kind)]; ok {
			n, err := validateAmount(v)
			if err != nil {
				return Action{}, err
			}
			return Action{Kind: kind, Amount: n}, nil
		}
	}
	return Action{}, ErrUnknownAction
}

func validateAmount(amount int64) (int, error) {
	if amount <= 0 {
		return 0, &AmountError{msg: "Amount must be positive"}
	}
	if amount > MaxPlayerChips {
		return 0, &AmountError{msg: fmt.Sprintf("Amount exceeds maximum allowed: %d", MaxPlayerChips)}
	}
	return int(amount), nil
}
