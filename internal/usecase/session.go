package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gridmatch/internal/apperror"
	"gridmatch/internal/entity"
	"gridmatch/internal/service"
)

type roomAllocator interface {
	Assign(ctx context.Context, requestedID int) (*service.Assignment, error)
	GetByID(ctx context.Context, roomID int) (*entity.Room, error)
	Open(ctx context.Context, roomID, vacatedSeat int) (*entity.Room, error)
	Remove(ctx context.Context, roomID int) error
}

type playerRegistry interface {
	Seat(ctx context.Context, assignment *service.Assignment, name string) (*entity.Player, error)
	Unseat(ctx context.Context, player *entity.Player) (bool, error)
	SwitchTurn(ctx context.Context, roomID int) ([]*entity.Player, error)
	ReseatAndReset(ctx context.Context, playerID string) (*entity.Player, error)
	IncrementScore(ctx context.Context, playerID string) (*entity.Player, error)
	RosterByRoom(ctx context.Context, roomID int) ([]*entity.Player, error)
	FindBySeat(ctx context.Context, roomID, seat int) (*entity.Player, error)
}

type gameStateMachine interface {
	Open(ctx context.Context, room *entity.Room) (*entity.Game, error)
	ApplyMove(ctx context.Context, roomID int, move entity.Move) (*entity.Game, error)
	ToggleMover(ctx context.Context, roomID int) (*entity.Game, error)
	ClearMoves(ctx context.Context, roomID int) (*entity.Game, error)
	GetByRoom(ctx context.Context, roomID int) (*entity.Game, error)
	Remove(ctx context.Context, roomID int) error
}

type JoinResult struct {
	Room         *entity.Room
	Game         *entity.Game
	Player       *entity.Player
	Players      []*entity.Player
	Waiting      bool
	OpponentSeat int
}

type SwitchResult struct {
	Game    *entity.Game
	Players []*entity.Player
}

type RestartResult struct {
	Game    *entity.Game
	Players []*entity.Player
}

type LeaveResult struct {
	// Closed is set when the opponent was already gone and the whole room
	// has been torn down.
	Closed      bool
	Room        *entity.Room
	Game        *entity.Game
	Players     []*entity.Player
	VacatedSeat int
}

// SessionCoordinator sequences the allocator, the registry, and the state
// machine for every inbound real-time event and hands a typed result back
// to the transport for fan-out. It never touches a connection itself.
type SessionCoordinator struct {
	logger  *slog.Logger
	rooms   roomAllocator
	players playerRegistry
	games   gameStateMachine
}

func NewSessionCoordinator(logger *slog.Logger, rooms roomAllocator, players playerRegistry, games gameStateMachine) *SessionCoordinator {
	return &SessionCoordinator{
		logger:  logger.With("component", "session_coordinator"),
		rooms:   rooms,
		players: players,
		games:   games,
	}
}

func (that *SessionCoordinator) Join(ctx context.Context, requestedRoomID int, name string) (*JoinResult, error) {
	// reject bad names before any room or player document is touched
	if !entity.IsValidName(name) {
		return nil, fmt.Errorf("%w: %q", apperror.ErrInvalidPlayerName, name)
	}

	assignment, err := that.rooms.Assign(ctx, requestedRoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to assign room: %w", err)
	}

	player, err := that.players.Seat(ctx, assignment, name)
	if err != nil {
		return nil, fmt.Errorf("failed to seat player: %w", err)
	}

	var game *entity.Game
	if assignment.Created {
		game, err = that.games.Open(ctx, assignment.Room)
		if err != nil && !errors.Is(err, apperror.ErrGameAlreadyExists) {
			return nil, fmt.Errorf("failed to open game: %w", err)
		}
	} else {
		game, err = that.games.GetByRoom(ctx, assignment.Room.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get game: %w", err)
		}
	}

	roster, err := that.players.RosterByRoom(ctx, assignment.Room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}

	return &JoinResult{
		Room:         assignment.Room,
		Game:         game,
		Player:       player,
		Players:      roster,
		Waiting:      len(roster) == 1,
		OpponentSeat: entity.OpponentSeat(player.Seat),
	}, nil
}

// Reattach recovers the session of a connection that dropped and returned
// while its seat was still occupied. No document changes hands; the seat's
// existing player and the current room, game, and roster are read back so
// the transport can replay the join events.
func (that *SessionCoordinator) Reattach(ctx context.Context, roomID, seat int) (*JoinResult, error) {
	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	player, err := that.players.FindBySeat(ctx, roomID, seat)
	if err != nil {
		return nil, fmt.Errorf("failed to find seat occupant: %w", err)
	}

	game, err := that.games.GetByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	roster, err := that.players.RosterByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}

	return &JoinResult{
		Room:         room,
		Game:         game,
		Player:       player,
		Players:      roster,
		Waiting:      len(roster) == 1,
		OpponentSeat: entity.OpponentSeat(player.Seat),
	}, nil
}

func (that *SessionCoordinator) Play(ctx context.Context, roomID int, move entity.Move) (*entity.Game, error) {
	game, err := that.games.ApplyMove(ctx, roomID, move)
	if err != nil {
		return nil, fmt.Errorf("failed to play move: %w", err)
	}

	return game, nil
}

func (that *SessionCoordinator) SwitchTurn(ctx context.Context, roomID int) (*SwitchResult, error) {
	roster, err := that.players.SwitchTurn(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to switch players: %w", err)
	}

	game, err := that.games.ToggleMover(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle mover: %w", err)
	}

	return &SwitchResult{Game: game, Players: roster}, nil
}

// Restart resets the match and credits the reported winner. The winner is
// whatever the board renderer reported; an empty id means a draw and no
// score changes.
func (that *SessionCoordinator) Restart(ctx context.Context, roomID int, winnerID string) (*RestartResult, error) {
	game, err := that.games.ClearMoves(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to reset game: %w", err)
	}

	if _, err = that.players.IncrementScore(ctx, winnerID); err != nil {
		return nil, fmt.Errorf("failed to credit winner: %w", err)
	}

	roster, err := that.players.RosterByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}

	return &RestartResult{Game: game, Players: roster}, nil
}

func (that *SessionCoordinator) Leave(ctx context.Context, roomID, seat int) (*LeaveResult, error) {
	room, err := that.rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	player, err := that.players.FindBySeat(ctx, roomID, seat)
	if err != nil {
		return nil, fmt.Errorf("failed to find seat occupant: %w", err)
	}

	removed, err := that.players.Unseat(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("failed to unseat player: %w", err)
	}

	if !removed {
		that.logger.Warn("seat was already vacated", "roomID", roomID, "seat", seat)
	}

	// opponent already gone: both seats empty, tear the room down
	if room.Available {
		if err = that.games.Remove(ctx, roomID); err != nil {
			return nil, fmt.Errorf("failed to remove game: %w", err)
		}

		if err = that.rooms.Remove(ctx, roomID); err != nil {
			return nil, fmt.Errorf("failed to remove room: %w", err)
		}

		return &LeaveResult{Closed: true, VacatedSeat: seat}, nil
	}

	reopened, err := that.rooms.Open(ctx, roomID, seat)
	if err != nil {
		return nil, fmt.Errorf("failed to reopen room: %w", err)
	}

	remaining, err := that.players.RosterByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}

	roster := make([]*entity.Player, 0, len(remaining))
	for _, stale := range remaining {
		reseated, err := that.players.ReseatAndReset(ctx, stale.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reseat remaining player: %w", err)
		}
		roster = append(roster, reseated)
	}

	game, err := that.games.ClearMoves(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to reset game: %w", err)
	}

	return &LeaveResult{
		Room:        reopened,
		Game:        game,
		Players:     roster,
		VacatedSeat: seat,
	}, nil
}
