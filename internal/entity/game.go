package entity

import (
	"fmt"

	"gridmatch/internal/apperror"
)

const (
	// StartingMover is the figure that moves first in every fresh match.
	StartingMover = 1

	// BoardCells is the number of cells on the grid.
	BoardCells = 9
)

// Move is a single cell-to-figure assignment appended to the match log.
type Move struct {
	Cell   int `json:"cell"`
	Figure int `json:"figure"`
}

// Game holds the per-room mover indicator and the append-only move log.
// Turn legality and win detection are not decided here; the log only
// guards its own document invariants: cells stay in range and a cell is
// never assigned twice.
type Game struct {
	RoomID int    `json:"room_id"`
	Mover  int    `json:"mover"`
	Moves  []Move `json:"moves"`
}

func NewGame(roomID int) *Game {
	return &Game{
		RoomID: roomID,
		Mover:  StartingMover,
		Moves:  []Move{},
	}
}

func (that *Game) AppendMove(move Move) error {
	if move.Cell < 0 || move.Cell >= BoardCells {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, move.Cell)
	}

	for _, existing := range that.Moves {
		if existing.Cell == move.Cell {
			return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, move.Cell)
		}
	}

	that.Moves = append(that.Moves, move)

	return nil
}

func (that *Game) ToggleMover() {
	if that.Mover == 0 {
		that.Mover = 1
	} else {
		that.Mover = 0
	}
}

// Reset returns the match to its canonical start: empty log, starting mover.
func (that *Game) Reset() {
	that.Moves = []Move{}
	that.Mover = StartingMover
}
