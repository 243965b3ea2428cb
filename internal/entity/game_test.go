package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridmatch/internal/apperror"
)

func TestGame_AppendMove(t *testing.T) {
	t.Run("Appends a move to an empty log", func(t *testing.T) {
		// Given: a fresh game
		game := NewGame(1)

		// When: the first move is appended
		err := game.AppendMove(Move{Cell: 4, Figure: 1})

		// Then: the log contains exactly that move
		require.NoError(t, err)
		require.Len(t, game.Moves, 1)
		assert.Equal(t, Move{Cell: 4, Figure: 1}, game.Moves[0])
	})

	t.Run("Rejects a cell outside the grid", func(t *testing.T) {
		game := NewGame(1)

		err := game.AppendMove(Move{Cell: 9, Figure: 1})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrInvalidCell)
		assert.Empty(t, game.Moves)
	})

	t.Run("Rejects a negative cell", func(t *testing.T) {
		game := NewGame(1)

		err := game.AppendMove(Move{Cell: -1, Figure: 0})

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrInvalidCell)
	})

	t.Run("Never reassigns a cell already present in the log", func(t *testing.T) {
		// Given: a game with a move on cell 4
		game := NewGame(1)
		require.NoError(t, game.AppendMove(Move{Cell: 4, Figure: 1}))

		// When: the opponent figure targets the same cell
		err := game.AppendMove(Move{Cell: 4, Figure: 0})

		// Then: the append is refused and the original figure stands
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrCellOccupied)
		require.Len(t, game.Moves, 1)
		assert.Equal(t, 1, game.Moves[0].Figure)
	})
}

func TestGame_ToggleMover(t *testing.T) {
	game := NewGame(1)
	require.Equal(t, StartingMover, game.Mover)

	game.ToggleMover()
	assert.Equal(t, 0, game.Mover)

	game.ToggleMover()
	assert.Equal(t, 1, game.Mover)
}

func TestGame_Reset(t *testing.T) {
	// Given: a game mid-match
	game := NewGame(1)
	require.NoError(t, game.AppendMove(Move{Cell: 0, Figure: 1}))
	game.ToggleMover()
	require.NoError(t, game.AppendMove(Move{Cell: 8, Figure: 0}))

	// When: the game is reset
	game.Reset()

	// Then: the log is empty and the mover is back at the canonical start
	assert.Empty(t, game.Moves)
	assert.Equal(t, StartingMover, game.Mover)
}
