package websocket

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gridmatch/internal/apperror"
	"gridmatch/internal/entity"
)

// client → server actions
const (
	actionJoin       = "join"
	actionPlay       = "play"
	actionSwitchTurn = "switchTurn"
	actionRestart    = "restart"
	actionLeave      = "leave"
)

// server → client events
const (
	eventRoomInit      = "room:init"
	eventGameInit      = "game:init"
	eventPlayersInit   = "players:init"
	eventPlayerWaiting = "player:waiting"
	eventGamePlay      = "game:play"
	eventPlayersSwitch = "players:switch"
	eventGameRestart   = "game:restart"
)

// Message represents a real-time message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinPayload struct {
	RoomID string `json:"room_id,omitempty"`
	Name   string `json:"name"`
}

type playPayload struct {
	Move entity.Move `json:"move"`
}

type restartPayload struct {
	WinnerID    string `json:"winner_id,omitempty"`
	Combination []int  `json:"combination,omitempty"`
}

type roomPayload struct {
	Room *entity.Room `json:"room"`
}

type gamePayload struct {
	Game *entity.Game `json:"game"`
}

type playersPayload struct {
	Players []*entity.Player `json:"players"`
}

type waitingPayload struct {
	Position int              `json:"position"`
	Room     *entity.Room     `json:"room,omitempty"`
	Game     *entity.Game     `json:"game,omitempty"`
	Players  []*entity.Player `json:"players,omitempty"`
}

type movePayload struct {
	Move entity.Move `json:"move"`
}

type switchPayload struct {
	Game    *entity.Game     `json:"game"`
	Players []*entity.Player `json:"players"`
}

type restartResultPayload struct {
	Game        *entity.Game     `json:"game"`
	Players     []*entity.Player `json:"players"`
	Combination []int            `json:"combination,omitempty"`
}

type errorPayload struct {
	Error string `json:"error"`
}

// parseRoomID turns the optional room id of a join request into an integer.
// An absent id means an anonymous join; anything else must be a positive
// integer.
func parseRoomID(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", apperror.ErrMalformedRoomID, raw)
	}

	return id, nil
}
