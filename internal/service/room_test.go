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

func TestRoomAllocator_Assign(t *testing.T) {
	ctx := context.Background()

	t.Run("Anonymous join with no waiting room opens a fresh one", func(t *testing.T) {
		client := newTestClient(t)
		allocator := NewRoomAllocator(discardLogger(), repository.NewRoomRepository(client))

		assignment, err := allocator.Assign(ctx, 0)

		require.NoError(t, err)
		assert.True(t, assignment.Created)
		assert.Equal(t, 1, assignment.Room.ID)
		assert.True(t, assignment.Room.Available)
		assert.Equal(t, entity.NoVacantSeat, assignment.VacantSeat)
	})

	t.Run("Anonymous join prefers filling the waiting room", func(t *testing.T) {
		client := newTestClient(t)
		allocator := NewRoomAllocator(discardLogger(), repository.NewRoomRepository(client))

		// Given: a waiting room opened by the first joiner
		first, err := allocator.Assign(ctx, 0)
		require.NoError(t, err)
		require.True(t, first.Created)

		// When: a second anonymous join arrives
		second, err := allocator.Assign(ctx, 0)

		// Then: the waiting room is reused and becomes full
		require.NoError(t, err)
		assert.False(t, second.Created)
		assert.Equal(t, first.Room.ID, second.Room.ID)
		assert.False(t, second.Room.Available)
	})

	t.Run("Join by link targets one exact room", func(t *testing.T) {
		client := newTestClient(t)
		allocator := NewRoomAllocator(discardLogger(), repository.NewRoomRepository(client))

		first, err := allocator.Assign(ctx, 0)
		require.NoError(t, err)

		assignment, err := allocator.Assign(ctx, first.Room.ID)

		require.NoError(t, err)
		assert.False(t, assignment.Created)
		assert.Equal(t, first.Room.ID, assignment.Room.ID)
	})

	t.Run("Join by link to a missing room yields not found", func(t *testing.T) {
		client := newTestClient(t)
		allocator := NewRoomAllocator(discardLogger(), repository.NewRoomRepository(client))

		_, err := allocator.Assign(ctx, 42)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Join by link to a full room is refused", func(t *testing.T) {
		client := newTestClient(t)
		allocator := NewRoomAllocator(discardLogger(), repository.NewRoomRepository(client))

		first, err := allocator.Assign(ctx, 0)
		require.NoError(t, err)

		_, err = allocator.Assign(ctx, first.Room.ID)
		require.NoError(t, err)

		_, err = allocator.Assign(ctx, first.Room.ID)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrRoomIsFull)
	})
}

func TestRoomAllocator_OpenCloseRemove(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(t)
	allocator := NewRoomAllocator(discardLogger(), repository.NewRoomRepository(client))

	first, err := allocator.Assign(ctx, 0)
	require.NoError(t, err)

	_, err = allocator.Assign(ctx, 0)
	require.NoError(t, err)

	// When: seat 1 vacates and the room reopens
	room, err := allocator.Open(ctx, first.Room.ID, 1)
	require.NoError(t, err)
	assert.True(t, room.Available)
	assert.Equal(t, 1, room.VacantSeat)

	// Then: the reopened room is claimable again by an anonymous join
	reused, err := allocator.Assign(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, first.Room.ID, reused.Room.ID)
	assert.Equal(t, 1, reused.VacantSeat)

	// And: removing the room makes it unreachable
	err = allocator.Remove(ctx, first.Room.ID)
	require.NoError(t, err)

	_, err = allocator.GetByID(ctx, first.Room.ID)
	assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
}
