package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridmatch/internal/apperror"
	"gridmatch/internal/entity"
	"gridmatch/internal/repository"
)

func TestGameStateMachine_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("Opens a game for a freshly opened room", func(t *testing.T) {
		client := newTestClient(t)
		machine := NewGameStateMachine(discardLogger(), repository.NewGameRepository(client))

		game, err := machine.Open(ctx, entity.NewRoom(1))

		require.NoError(t, err)
		assert.Equal(t, 1, game.RoomID)
		assert.Equal(t, entity.StartingMover, game.Mover)
		assert.Empty(t, game.Moves)
	})

	t.Run("Full room reports the existing game as a no-op", func(t *testing.T) {
		client := newTestClient(t)
		machine := NewGameStateMachine(discardLogger(), repository.NewGameRepository(client))

		room := entity.NewRoom(1)
		_, err := machine.Open(ctx, room)
		require.NoError(t, err)

		room.Available = false

		game, err := machine.Open(ctx, room)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrGameAlreadyExists)
		assert.Equal(t, 1, game.RoomID)
	})

	t.Run("Second open of the same room is a no-op", func(t *testing.T) {
		client := newTestClient(t)
		machine := NewGameStateMachine(discardLogger(), repository.NewGameRepository(client))

		room := entity.NewRoom(1)
		_, err := machine.Open(ctx, room)
		require.NoError(t, err)

		_, err = machine.Open(ctx, room)

		assert.ErrorIs(t, err, apperror.ErrGameAlreadyExists)
	})
}

func TestGameStateMachine_ApplyMove(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(t)
	machine := NewGameStateMachine(discardLogger(), repository.NewGameRepository(client))

	_, err := machine.Open(ctx, entity.NewRoom(1))
	require.NoError(t, err)

	// When: seat 0 plays the center with the starting figure
	game, err := machine.ApplyMove(ctx, 1, entity.Move{Cell: 4, Figure: 1})

	// Then: the move is in the log and the mover has not flipped yet
	require.NoError(t, err)
	require.Len(t, game.Moves, 1)
	assert.Equal(t, entity.Move{Cell: 4, Figure: 1}, game.Moves[0])
	assert.Equal(t, entity.StartingMover, game.Mover)
}

func TestGameStateMachine_ToggleMover(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(t)
	machine := NewGameStateMachine(discardLogger(), repository.NewGameRepository(client))

	_, err := machine.Open(ctx, entity.NewRoom(1))
	require.NoError(t, err)

	game, err := machine.ToggleMover(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, game.Mover)

	game, err = machine.ToggleMover(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, game.Mover)
}

func TestGameStateMachine_ClearMoves(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(t)
	machine := NewGameStateMachine(discardLogger(), repository.NewGameRepository(client))

	// Given: a match in progress with the mover flipped
	_, err := machine.Open(ctx, entity.NewRoom(1))
	require.NoError(t, err)

	_, err = machine.ApplyMove(ctx, 1, entity.Move{Cell: 4, Figure: 1})
	require.NoError(t, err)

	_, err = machine.ToggleMover(ctx, 1)
	require.NoError(t, err)

	// When: the match restarts
	game, err := machine.ClearMoves(ctx, 1)

	// Then: the log is empty and the mover is back at the canonical start
	require.NoError(t, err)
	assert.Empty(t, game.Moves)
	assert.Equal(t, entity.StartingMover, game.Mover)
}

func TestGameStateMachine_Remove(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(t)
	machine := NewGameStateMachine(discardLogger(), repository.NewGameRepository(client))

	_, err := machine.Open(ctx, entity.NewRoom(1))
	require.NoError(t, err)

	require.NoError(t, machine.Remove(ctx, 1))

	_, err = machine.GetByRoom(ctx, 1)
	assert.ErrorIs(t, err, apperror.ErrGameNotFound)
}
