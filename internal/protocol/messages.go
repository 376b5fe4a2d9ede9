// Package protocol defines the JSON messages exchanged with poker clients
// and the optional signed envelope used when HMAC authentication is enabled.
//
// Every frame is a JSON object tagged with a "type" field. Outbound messages
// always carry the capitalized tag; inbound parsing also accepts the
// lowercase spellings older clients send.
package protocol

import "encoding/json"

// Client → Server type tags.
const (
	TypeConnect   = "Connect"
	TypeReconnect = "Reconnect"
	TypeAction    = "Action"
	TypeChat      = "Chat"
	TypeSitOut    = "SitOut"
	TypeReturn    = "Return"
	TypePing      = "Ping"
)

// Server → Client type tags.
const (
	TypeConnected          = "Connected"
	TypeGameStateUpdate    = "GameStateUpdate"
	TypePlayerUpdates      = "PlayerUpdates"
	TypeActionRequired     = "ActionRequired"
	TypePlayerConnected    = "PlayerConnected"
	TypePlayerDisconnected = "PlayerDisconnected"
	TypeShowdown           = "Showdown"
	TypeError              = "Error"
	TypePong               = "Pong"
)

// HiddenCards is the placeholder sent in place of hole cards the viewer
// is not allowed to see.
const HiddenCards = "[hidden]"

// ActionKind identifies a betting action.
type ActionKind string

const (
	Fold  ActionKind = "Fold"
	Check ActionKind = "Check"
	Call  ActionKind = "Call"
	Bet   ActionKind = "Bet"
	Raise ActionKind = "Raise"
	AllIn ActionKind = "AllIn"
)

// Action is a player's betting decision. Amount is meaningful only for Bet
// and Raise; it has already passed range validation by the time it leaves
// the codec.
type Action struct {
	Kind   ActionKind
	Amount int
}

// ClientMessage is a decoded inbound intent. Which fields are meaningful
// depends on Type.
type ClientMessage struct {
	Type      string
	Action    Action // TypeAction
	Text      string // TypeChat
	PlayerID  string // TypeReconnect
	Token     string // TypeReconnect
	Timestamp uint64 // TypePing
}

// ServerMessage is implemented by every outbound message.
type ServerMessage interface {
	MessageType() string
}

// Server → Client messages.

// Connected confirms a player's seat and reports their server-assigned id.
type Connected struct {
	PlayerID string `json:"player_id"`
}

func (Connected) MessageType() string { return TypeConnected }

// SidePot is one pot layer and the ids eligible to win it. It serializes as
// a two-element array [amount, [ids]].
type SidePot struct {
	Amount   int
	Eligible []string
}

func (s SidePot) MarshalJSON() ([]byte, error) {
	eligible := s.Eligible
	if eligible == nil {
		eligible = []string{}
	}
	return json.Marshal([2]any{s.Amount, eligible})
}

func (s *SidePot) UnmarshalJSON(data []byte) error {
	var arr [2]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[0], &s.Amount); err != nil {
		return err
	}
	return json.Unmarshal(arr[1], &s.Eligible)
}

// GameStateUpdate is the authoritative table snapshot broadcast after every
// state change.
type GameStateUpdate struct {
	GameID         string    `json:"game_id"`
	HandNumber     int       `json:"hand_number"`
	Pot            int       `json:"pot"`
	SidePots       []SidePot `json:"side_pots"`
	CommunityCards []string  `json:"community_cards"`
	CurrentStreet  string    `json:"current_street"`
	DealerPosition int       `json:"dealer_position"`
}

func (GameStateUpdate) MessageType() string { return TypeGameStateUpdate }

// PlayerUpdate is one player's row in a PlayerUpdates broadcast. HoleCards
// is ["[hidden]"] for everyone but the recipient until showdown.
type PlayerUpdate struct {
	PlayerID     string   `json:"player_id"`
	PlayerName   string   `json:"player_name"`
	Chips        int      `json:"chips"`
	CurrentBet   int      `json:"current_bet"`
	HasActed     bool     `json:"has_acted"`
	IsAllIn      bool     `json:"is_all_in"`
	IsFolded     bool     `json:"is_folded"`
	IsSittingOut bool     `json:"is_sitting_out"`
	HoleCards    []string `json:"hole_cards"`
}

// PlayerUpdates carries the per-player view of the table.
type PlayerUpdates struct {
	Players []PlayerUpdate `json:"players"`
}

func (PlayerUpdates) MessageType() string { return TypePlayerUpdates }

// ActionRequired tells the table whose turn it is and what it costs to stay in.
type ActionRequired struct {
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name"`
	MinRaise    int    `json:"min_raise"`
	CurrentBet  int    `json:"current_bet"`
	PlayerChips int    `json:"player_chips"`
}

func (ActionRequired) MessageType() string { return TypeActionRequired }

// PlayerConnected announces a player joining the table.
type PlayerConnected struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Chips      int    `json:"chips"`
}

func (PlayerConnected) MessageType() string { return TypePlayerConnected }

// PlayerDisconnected announces a player leaving the table.
type PlayerDisconnected struct {
	PlayerID string `json:"player_id"`
}

func (PlayerDisconnected) MessageType() string { return TypePlayerDisconnected }

// ShowdownHand is one revealed hand. It serializes as a four-element array
// [player_id, [cards], category, description].
type ShowdownHand struct {
	PlayerID    string
	HoleCards   []string
	Category    string
	Description string
}

func (h ShowdownHand) MarshalJSON() ([]byte, error) {
	cards := h.HoleCards
	if cards == nil {
		cards = []string{}
	}
	return json.Marshal([4]any{h.PlayerID, cards, h.Category, h.Description})
}

func (h *ShowdownHand) UnmarshalJSON(data []byte) error {
	var arr [4]json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[0], &h.PlayerID); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[1], &h.HoleCards); err != nil {
		return err
	}
	if err := json.Unmarshal(arr[2], &h.Category); err != nil {
		return err
	}
	return json.Unmarshal(arr[3], &h.Description)
}

// Showdown reveals every non-folded hand and the overall winners.
type Showdown struct {
	CommunityCards []string       `json:"community_cards"`
	Hands          []ShowdownHand `json:"hands"`
	Winners        []string       `json:"winners"`
}

func (Showdown) MessageType() string { return TypeShowdown }

// ChatBroadcast relays a chat line to the table. Timestamp is unix seconds.
type ChatBroadcast struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Text       string `json:"text"`
	Timestamp  int64  `json:"timestamp"`
}

func (ChatBroadcast) MessageType() string { return TypeChat }

// ErrorMessage reports a rejected frame or action to one client.
type ErrorMessage struct {
	Message string `json:"message"`
}

func (ErrorMessage) MessageType() string { return TypeError }

// Ping is the server's keepalive probe. Timestamp is unix milliseconds.
type Ping struct {
	Timestamp uint64 `json:"timestamp"`
}

func (Ping) MessageType() string { return TypePing }

// Pong echoes a client Ping's timestamp.
type Pong struct {
	Timestamp uint64 `json:"timestamp"`
}

func (Pong) MessageType() string { return TypePong }
