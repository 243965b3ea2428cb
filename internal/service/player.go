package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"gridmatch/internal/apperror"
	"gridmatch/internal/entity"
)

type playerRepo interface {
	Create(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
	FindByRoom(ctx context.Context, roomID int) ([]*entity.Player, error)
	Delete(ctx context.Context, player *entity.Player) (bool, error)
	Update(ctx context.Context, id string, patch func(*entity.Player)) (*entity.Player, error)
	UpdateRoster(ctx context.Context, roomID int, patch func(*entity.Player)) ([]*entity.Player, error)
}

type PlayerRegistry interface {
	Seat(ctx context.Context, assignment *Assignment, name string) (*entity.Player, error)
	Unseat(ctx context.Context, player *entity.Player) (bool, error)
	SwitchTurn(ctx context.Context, roomID int) ([]*entity.Player, error)
	ReseatAndReset(ctx context.Context, playerID string) (*entity.Player, error)
	IncrementScore(ctx context.Context, playerID string) (*entity.Player, error)
	RosterByRoom(ctx context.Context, roomID int) ([]*entity.Player, error)
	FindBySeat(ctx context.Context, roomID, seat int) (*entity.Player, error)
}

type playerRegistry struct {
	logger  *slog.Logger
	players playerRepo
}

func NewPlayerRegistry(logger *slog.Logger, players playerRepo) PlayerRegistry {
	return &playerRegistry{
		logger:  logger.With("component", "player_registry"),
		players: players,
	}
}

// Seat places a participant into an assigned room. The first seat of a
// fresh room starts out active; any other seating starts inactive and is
// corrected by the first turn switch once both seats exist.
func (that *playerRegistry) Seat(ctx context.Context, assignment *Assignment, name string) (*entity.Player, error) {
	if !entity.IsValidName(name) {
		return nil, fmt.Errorf("%w: %q", apperror.ErrInvalidPlayerName, name)
	}

	seat := entity.SeatNought
	switch {
	case assignment.Created:
		seat = entity.SeatCross
	case assignment.VacantSeat >= 0:
		seat = assignment.VacantSeat
	}

	player := &entity.Player{
		ID:     uuid.NewString(),
		RoomID: assignment.Room.ID,
		Name:   name,
		Seat:   seat,
		Active: assignment.Created,
	}

	if err := that.players.Create(ctx, player); err != nil {
		return nil, fmt.Errorf("failed to seat player: %w", err)
	}

	that.logger.Info("player seated", "roomID", player.RoomID, "seat", player.Seat)

	return player, nil
}

func (that *playerRegistry) Unseat(ctx context.Context, player *entity.Player) (bool, error) {
	removed, err := that.players.Delete(ctx, player)
	if err != nil {
		return false, fmt.Errorf("failed to unseat player: %w", err)
	}

	return removed, nil
}

// SwitchTurn negates the activity flag of every player in the room in one
// atomic roster update. It is unconditional over the whole roster, so it
// must only run while exactly the two seated players are present.
func (that *playerRegistry) SwitchTurn(ctx context.Context, roomID int) ([]*entity.Player, error) {
	roster, err := that.players.UpdateRoster(ctx, roomID, func(player *entity.Player) {
		player.Active = !player.Active
	})
	if err != nil {
		return nil, fmt.Errorf("failed to switch turn: %w", err)
	}

	return roster, nil
}

func (that *playerRegistry) ReseatAndReset(ctx context.Context, playerID string) (*entity.Player, error) {
	player, err := that.players.Update(ctx, playerID, func(player *entity.Player) {
		player.Active = true
		player.Score = 0
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reseat player: %w", err)
	}

	return player, nil
}

// IncrementScore bumps the winner's score; an empty id means the match was
// drawn and nothing happens.
func (that *playerRegistry) IncrementScore(ctx context.Context, playerID string) (*entity.Player, error) {
	if playerID == "" {
		return nil, nil
	}

	player, err := that.players.Update(ctx, playerID, func(player *entity.Player) {
		player.Score++
	})
	if err != nil {
		return nil, fmt.Errorf("failed to increment score: %w", err)
	}

	return player, nil
}

func (that *playerRegistry) RosterByRoom(ctx context.Context, roomID int) ([]*entity.Player, error) {
	roster, err := that.players.FindByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}

	return roster, nil
}

func (that *playerRegistry) FindBySeat(ctx context.Context, roomID, seat int) (*entity.Player, error) {
	roster, err := that.players.FindByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}

	for _, player := range roster {
		if player.Seat == seat {
			return player, nil
		}
	}

	return nil, apperror.ErrPlayerNotFound
}
