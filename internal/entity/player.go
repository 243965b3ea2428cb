package entity

import "regexp"

const (
	SeatCross  = 0
	SeatNought = 1
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]{2,16}$`)

type Player struct {
	ID     string `json:"id"`
	RoomID int    `json:"room_id"`
	Name   string `json:"name"`
	Seat   int    `json:"seat"`
	Active bool   `json:"active"`
	Score  int    `json:"score"`
}

// IsValidName reports whether a display name passes the boundary check
// applied before any room or player document is touched.
func IsValidName(name string) bool {
	return namePattern.MatchString(name)
}

// OpponentSeat returns the other seat of a two-seat room.
func OpponentSeat(seat int) int {
	if seat == SeatCross {
		return SeatNought
	}
	return SeatCross
}
