package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gridmatch/internal/apperror"
	"gridmatch/internal/entity"
)

// Assignment is the outcome of allocating a room for a joining player: the
// room itself, whether it was freshly created, and which seat was open
// before the claim (NoVacantSeat for fresh rooms).
type Assignment struct {
	Room       *entity.Room
	Created    bool
	VacantSeat int
}

type roomRepo interface {
	Create(ctx context.Context) (*entity.Room, error)
	GetByID(ctx context.Context, id int) (*entity.Room, error)
	Claim(ctx context.Context, id int) (*entity.Room, int, error)
	ClaimAnyAvailable(ctx context.Context) (*entity.Room, int, error)
	Reopen(ctx context.Context, id, vacantSeat int) (*entity.Room, error)
	Close(ctx context.Context, id int) (*entity.Room, error)
	DeleteByID(ctx context.Context, id int) error
}

type RoomAllocator interface {
	Assign(ctx context.Context, requestedID int) (*Assignment, error)
	GetByID(ctx context.Context, roomID int) (*entity.Room, error)
	Open(ctx context.Context, roomID, vacatedSeat int) (*entity.Room, error)
	Close(ctx context.Context, roomID int) (*entity.Room, error)
	Remove(ctx context.Context, roomID int) error
}

type roomAllocator struct {
	logger *slog.Logger
	rooms  roomRepo
}

func NewRoomAllocator(logger *slog.Logger, rooms roomRepo) RoomAllocator {
	return &roomAllocator{
		logger: logger.With("component", "room_allocator"),
		rooms:  rooms,
	}
}

// Assign resolves which room a joining player lands in. A positive
// requestedID targets one exact room (join-by-link, no fallback); otherwise
// anonymous joins always prefer filling a waiting room over creating a new
// one.
func (that *roomAllocator) Assign(ctx context.Context, requestedID int) (*Assignment, error) {
	if requestedID > 0 {
		room, vacated, err := that.rooms.Claim(ctx, requestedID)
		if err != nil {
			return nil, fmt.Errorf("failed to claim room %d: %w", requestedID, err)
		}

		return &Assignment{Room: room, VacantSeat: vacated}, nil
	}

	room, vacated, err := that.rooms.ClaimAnyAvailable(ctx)
	if err == nil {
		that.logger.Info("reused waiting room", "roomID", room.ID)
		return &Assignment{Room: room, VacantSeat: vacated}, nil
	}

	if !errors.Is(err, apperror.ErrRoomNotFound) {
		return nil, fmt.Errorf("failed to claim available room: %w", err)
	}

	room, err = that.rooms.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	that.logger.Info("opened fresh room", "roomID", room.ID)

	return &Assignment{Room: room, Created: true, VacantSeat: entity.NoVacantSeat}, nil
}

func (that *roomAllocator) GetByID(ctx context.Context, roomID int) (*entity.Room, error) {
	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

func (that *roomAllocator) Open(ctx context.Context, roomID, vacatedSeat int) (*entity.Room, error) {
	room, err := that.rooms.Reopen(ctx, roomID, vacatedSeat)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen room: %w", err)
	}

	return room, nil
}

func (that *roomAllocator) Close(ctx context.Context, roomID int) (*entity.Room, error) {
	room, err := that.rooms.Close(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to close room: %w", err)
	}

	return room, nil
}

func (that *roomAllocator) Remove(ctx context.Context, roomID int) error {
	if err := that.rooms.DeleteByID(ctx, roomID); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	that.logger.Info("room torn down", "roomID", roomID)

	return nil
}
