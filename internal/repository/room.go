package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"gridmatch/internal/apperror"
	"gridmatch/internal/entity"
	"gridmatch/internal/repository/storage"
)

const (
	roomKeyPrefix   = "room:"
	availableSetKey = "rooms:available"
	roomCounterKey  = "rooms:next-id"
)

type RoomRepository interface {
	Create(ctx context.Context) (*entity.Room, error)
	GetByID(ctx context.Context, id int) (*entity.Room, error)

	// Claim atomically takes the vacant seat of a specific room, returning
	// the updated room and the seat that was open before the claim.
	Claim(ctx context.Context, id int) (*entity.Room, int, error)

	// ClaimAnyAvailable pops a waiting room off the availability index and
	// claims it; ErrRoomNotFound when no room is waiting.
	ClaimAnyAvailable(ctx context.Context) (*entity.Room, int, error)

	Reopen(ctx context.Context, id, vacantSeat int) (*entity.Room, error)
	Close(ctx context.Context, id int) (*entity.Room, error)
	DeleteByID(ctx context.Context, id int) error
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func roomKey(id int) string {
	return roomKeyPrefix + strconv.Itoa(id)
}

func decodeRoom(cmd *redis.StringCmd) (*entity.Room, error) {
	raw, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	var room entity.Room
	if err = json.Unmarshal([]byte(raw), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

func (that *dbRoom) Create(ctx context.Context) (*entity.Room, error) {
	id, err := that.client.Incr(ctx, roomCounterKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate room id: %w", err)
	}

	room := entity.NewRoom(int(id))

	buf, err := json.Marshal(room)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal room: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, roomKey(room.ID), buf, 0)
		pipe.SAdd(ctx, availableSetKey, room.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store room: %w", err)
	}

	return room, nil
}

func (that *dbRoom) GetByID(ctx context.Context, id int) (*entity.Room, error) {
	return decodeRoom(that.client.Get(ctx, roomKey(id)))
}

func (that *dbRoom) Claim(ctx context.Context, id int) (*entity.Room, int, error) {
	var claimed *entity.Room
	vacated := entity.NoVacantSeat

	txn := func(tx *redis.Tx) error {
		room, err := decodeRoom(tx.Get(ctx, roomKey(id)))
		if err != nil {
			return err
		}

		if room.IsFull() {
			return apperror.ErrRoomIsFull
		}

		vacated = room.VacantSeat
		room.Available = false
		room.VacantSeat = entity.NoVacantSeat

		buf, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("failed to marshal room: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roomKey(id), buf, 0)
			pipe.SRem(ctx, availableSetKey, id)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to store room: %w", err)
		}

		claimed = room

		return nil
	}

	if err := storage.Atomically(ctx, that.client, txn, roomKey(id)); err != nil {
		return nil, entity.NoVacantSeat, err
	}

	return claimed, vacated, nil
}

func (that *dbRoom) ClaimAnyAvailable(ctx context.Context) (*entity.Room, int, error) {
	raw, err := that.client.SPop(ctx, availableSetKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, entity.NoVacantSeat, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, entity.NoVacantSeat, fmt.Errorf("failed to pop available room: %w", err)
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return nil, entity.NoVacantSeat, fmt.Errorf("%w: %q in availability index", apperror.ErrMalformedRoomID, raw)
	}

	room, vacated, err := that.Claim(ctx, id)
	if err != nil {
		// the pop already removed the id; put a still matchable room back
		// so a failed claim does not strand a waiting room
		if !errors.Is(err, apperror.ErrRoomNotFound) && !errors.Is(err, apperror.ErrRoomIsFull) {
			if addErr := that.client.SAdd(ctx, availableSetKey, id).Err(); addErr != nil {
				return nil, entity.NoVacantSeat, errors.Join(err, fmt.Errorf("failed to restore availability index: %w", addErr))
			}
		}

		return nil, entity.NoVacantSeat, err
	}

	return room, vacated, nil
}

func (that *dbRoom) Reopen(ctx context.Context, id, vacantSeat int) (*entity.Room, error) {
	return that.update(ctx, id, func(room *entity.Room) {
		room.Available = true
		room.VacantSeat = vacantSeat
	}, true)
}

func (that *dbRoom) Close(ctx context.Context, id int) (*entity.Room, error) {
	return that.update(ctx, id, func(room *entity.Room) {
		room.Available = false
		room.VacantSeat = entity.NoVacantSeat
	}, false)
}

func (that *dbRoom) DeleteByID(ctx context.Context, id int) error {
	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, roomKey(id))
		pipe.SRem(ctx, availableSetKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}

func (that *dbRoom) update(ctx context.Context, id int, patch func(*entity.Room), index bool) (*entity.Room, error) {
	var updated *entity.Room

	txn := func(tx *redis.Tx) error {
		room, err := decodeRoom(tx.Get(ctx, roomKey(id)))
		if err != nil {
			return err
		}

		patch(room)

		buf, err := json.Marshal(room)
		if err != nil {
			return fmt.Errorf("failed to marshal room: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, roomKey(id), buf, 0)
			if index {
				pipe.SAdd(ctx, availableSetKey, id)
			} else {
				pipe.SRem(ctx, availableSetKey, id)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to store room: %w", err)
		}

		updated = room

		return nil
	}

	if err := storage.Atomically(ctx, that.client, txn, roomKey(id)); err != nil {
		return nil, err
	}

	return updated, nil
}
