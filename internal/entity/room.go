package entity

// NoVacantSeat marks a room that has no open seat to hand out: either both
// seats are taken or the room was just allocated and nobody picked a seat yet.
const NoVacantSeat = -1

type Room struct {
	ID         int  `json:"id"`
	Available  bool `json:"available"`
	VacantSeat int  `json:"vacant_seat"`
}

func NewRoom(id int) *Room {
	return &Room{
		ID:         id,
		Available:  true,
		VacantSeat: NoVacantSeat,
	}
}

func (that *Room) IsFull() bool {
	return !that.Available
}
