package service

import (
	"context"
	"fmt"
	"log/slog"

	"gridmatch/internal/apperror"
	"gridmatch/internal/entity"
)

type gameRepo interface {
	Create(ctx context.Context, game *entity.Game) (bool, error)
	GetByRoom(ctx context.Context, roomID int) (*entity.Game, error)
	Update(ctx context.Context, roomID int, patch func(*entity.Game) error) (*entity.Game, error)
	DeleteByRoom(ctx context.Context, roomID int) error
}

type GameStateMachine interface {
	// Open creates the match log for a freshly opened room. An existing log
	// is reported with ErrGameAlreadyExists alongside the current document,
	// to be treated as a benign no-op by the caller.
	Open(ctx context.Context, room *entity.Room) (*entity.Game, error)

	// ApplyMove appends a move to the log. Turn legality and game-over are
	// decided by the board renderer before the event reaches the server.
	ApplyMove(ctx context.Context, roomID int, move entity.Move) (*entity.Game, error)

	ToggleMover(ctx context.Context, roomID int) (*entity.Game, error)

	// ClearMoves returns the match to its canonical start: empty log and
	// the starting mover.
	ClearMoves(ctx context.Context, roomID int) (*entity.Game, error)

	GetByRoom(ctx context.Context, roomID int) (*entity.Game, error)
	Remove(ctx context.Context, roomID int) error
}

type gameStateMachine struct {
	logger *slog.Logger
	games  gameRepo
}

func NewGameStateMachine(logger *slog.Logger, games gameRepo) GameStateMachine {
	return &gameStateMachine{
		logger: logger.With("component", "game_state_machine"),
		games:  games,
	}
}

func (that *gameStateMachine) Open(ctx context.Context, room *entity.Room) (*entity.Game, error) {
	if room.IsFull() {
		existing, err := that.games.GetByRoom(ctx, room.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get game: %w", err)
		}

		return existing, apperror.ErrGameAlreadyExists
	}

	game := entity.NewGame(room.ID)

	created, err := that.games.Create(ctx, game)
	if err != nil {
		return nil, fmt.Errorf("failed to open game: %w", err)
	}

	if !created {
		existing, err := that.games.GetByRoom(ctx, room.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get game: %w", err)
		}

		return existing, apperror.ErrGameAlreadyExists
	}

	that.logger.Info("game opened", "roomID", room.ID)

	return game, nil
}

func (that *gameStateMachine) ApplyMove(ctx context.Context, roomID int, move entity.Move) (*entity.Game, error) {
	game, err := that.games.Update(ctx, roomID, func(game *entity.Game) error {
		return game.AppendMove(move)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply move: %w", err)
	}

	return game, nil
}

func (that *gameStateMachine) ToggleMover(ctx context.Context, roomID int) (*entity.Game, error) {
	game, err := that.games.Update(ctx, roomID, func(game *entity.Game) error {
		game.ToggleMover()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to toggle mover: %w", err)
	}

	return game, nil
}

func (that *gameStateMachine) ClearMoves(ctx context.Context, roomID int) (*entity.Game, error) {
	game, err := that.games.Update(ctx, roomID, func(game *entity.Game) error {
		game.Reset()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear moves: %w", err)
	}

	return game, nil
}

func (that *gameStateMachine) GetByRoom(ctx context.Context, roomID int) (*entity.Game, error) {
	game, err := that.games.GetByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

func (that *gameStateMachine) Remove(ctx context.Context, roomID int) error {
	if err := that.games.DeleteByRoom(ctx, roomID); err != nil {
		return fmt.Errorf("failed to remove game: %w", err)
	}

	return nil
}
