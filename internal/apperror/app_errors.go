package apperror

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomIsFull        = errors.New("room is full")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrGameNotFound      = errors.New("game not found")
	ErrGameAlreadyExists = errors.New("game already exists")
	ErrInvalidPlayerName = errors.New("invalid player name")
	ErrMalformedRoomID   = errors.New("malformed room id")
	ErrInvalidCell       = errors.New("invalid cell index")
	ErrCellOccupied      = errors.New("cell is already occupied")
)
