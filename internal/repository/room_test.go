package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridmatch/internal/apperror"
	"gridmatch/internal/entity"
	"gridmatch/testing/suite"
)

func TestRoomRepository_Create(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage)

	// Given: an empty store
	// When: two rooms are created
	first, err := roomRepo.Create(ctx)
	require.NoError(t, err)

	second, err := roomRepo.Create(ctx)
	require.NoError(t, err)

	// Then: ids are sequential and both rooms start available
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.True(t, first.Available)
	assert.Equal(t, entity.NoVacantSeat, first.VacantSeat)
}

func TestRoomRepository_Claim(t *testing.T) {
	t.Run("Claim_Success", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		// Given: a room reopened with seat 1 vacant
		room, err := roomRepo.Create(ctx)
		require.NoError(t, err)

		_, err = roomRepo.Close(ctx, room.ID)
		require.NoError(t, err)

		_, err = roomRepo.Reopen(ctx, room.ID, 1)
		require.NoError(t, err)

		// When: the room is claimed
		claimed, vacated, err := roomRepo.Claim(ctx, room.ID)

		// Then: the claim reports the previously open seat and fills the room
		require.NoError(t, err)
		assert.Equal(t, 1, vacated)
		assert.False(t, claimed.Available)
		assert.Equal(t, entity.NoVacantSeat, claimed.VacantSeat)
	})

	t.Run("Claim_FullRoom", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		room, err := roomRepo.Create(ctx)
		require.NoError(t, err)

		_, _, err = roomRepo.Claim(ctx, room.ID)
		require.NoError(t, err)

		// When: the same room is claimed a second time
		_, _, err = roomRepo.Claim(ctx, room.ID)

		// Then: the claim is refused
		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrRoomIsFull)
	})

	t.Run("Claim_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		_, _, err := roomRepo.Claim(ctx, 42)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRoomRepository_ClaimAnyAvailable(t *testing.T) {
	t.Run("ClaimAnyAvailable_PrefersWaitingRoom", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		// Given: one waiting room
		room, err := roomRepo.Create(ctx)
		require.NoError(t, err)

		// When: an anonymous join claims any available room
		claimed, _, err := roomRepo.ClaimAnyAvailable(ctx)

		// Then: the waiting room is reused, and the index is now empty
		require.NoError(t, err)
		assert.Equal(t, room.ID, claimed.ID)

		_, _, err = roomRepo.ClaimAnyAvailable(ctx)
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("ClaimAnyAvailable_RestoresIndexWhenClaimFails", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		// Given: a waiting room whose document cannot be read back
		room, err := roomRepo.Create(ctx)
		require.NoError(t, err)

		require.NoError(t, st.Storage.Set(ctx, roomKey(room.ID), "{broken", 0).Err())

		// When: an anonymous claim pops it and then fails
		_, _, err = roomRepo.ClaimAnyAvailable(ctx)
		require.Error(t, err)

		// Then: the id is back in the availability index
		member, err := st.Storage.SIsMember(ctx, availableSetKey, room.ID).Result()
		require.NoError(t, err)
		assert.True(t, member)
	})

	t.Run("ClaimAnyAvailable_DropsStaleFullRoomFromIndex", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		// Given: a full room whose id lingers in the availability index
		room, err := roomRepo.Create(ctx)
		require.NoError(t, err)

		_, _, err = roomRepo.Claim(ctx, room.ID)
		require.NoError(t, err)

		require.NoError(t, st.Storage.SAdd(ctx, availableSetKey, room.ID).Err())

		// When: an anonymous claim pops the stale entry
		_, _, err = roomRepo.ClaimAnyAvailable(ctx)
		require.ErrorIs(t, err, apperror.ErrRoomIsFull)

		// Then: the unmatchable id stays out of the index
		member, err := st.Storage.SIsMember(ctx, availableSetKey, room.ID).Result()
		require.NoError(t, err)
		assert.False(t, member)
	})

	t.Run("ClaimAnyAvailable_Empty", func(t *testing.T) {
		ctx, st := suite.New(t)

		roomRepo := NewRoomRepository(st.Storage)

		_, _, err := roomRepo.ClaimAnyAvailable(ctx)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestRoomRepository_DeleteByID(t *testing.T) {
	ctx, st := suite.New(t)

	roomRepo := NewRoomRepository(st.Storage)

	room, err := roomRepo.Create(ctx)
	require.NoError(t, err)

	// When: the room is deleted
	err = roomRepo.DeleteByID(ctx, room.ID)
	require.NoError(t, err)

	// Then: the room is gone and no longer claimable anonymously
	_, err = roomRepo.GetByID(ctx, room.ID)
	assert.ErrorIs(t, err, apperror.ErrRoomNotFound)

	_, _, err = roomRepo.ClaimAnyAvailable(ctx)
	assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
}
