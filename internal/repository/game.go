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

const gameKeyPrefix = "game:"

type GameRepository interface {
	// Create stores the game only when no game for the room exists yet; the
	// bool reports whether the document was created.
	Create(ctx context.Context, game *entity.Game) (bool, error)

	GetByRoom(ctx context.Context, roomID int) (*entity.Game, error)

	// Update applies patch as one atomic conditional fetch-patch-return
	// keyed by room id and returns the updated document.
	Update(ctx context.Context, roomID int, patch func(*entity.Game) error) (*entity.Game, error)

	DeleteByRoom(ctx context.Context, roomID int) error
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func gameKey(roomID int) string {
	return gameKeyPrefix + strconv.Itoa(roomID)
}

func decodeGame(cmd *redis.StringCmd) (*entity.Game, error) {
	raw, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	var game entity.Game
	if err = json.Unmarshal([]byte(raw), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &game, nil
}

func (that *dbGame) Create(ctx context.Context, game *entity.Game) (bool, error) {
	buf, err := json.Marshal(game)
	if err != nil {
		return false, fmt.Errorf("failed to marshal game: %w", err)
	}

	created, err := that.client.SetNX(ctx, gameKey(game.RoomID), buf, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to store game: %w", err)
	}

	return created, nil
}

func (that *dbGame) GetByRoom(ctx context.Context, roomID int) (*entity.Game, error) {
	return decodeGame(that.client.Get(ctx, gameKey(roomID)))
}

func (that *dbGame) Update(ctx context.Context, roomID int, patch func(*entity.Game) error) (*entity.Game, error) {
	var updated *entity.Game

	txn := func(tx *redis.Tx) error {
		game, err := decodeGame(tx.Get(ctx, gameKey(roomID)))
		if err != nil {
			return err
		}

		if err = patch(game); err != nil {
			return err
		}

		buf, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("failed to marshal game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameKey(roomID), buf, 0)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to store game: %w", err)
		}

		updated = game

		return nil
	}

	if err := storage.Atomically(ctx, that.client, txn, gameKey(roomID)); err != nil {
		return nil, err
	}

	return updated, nil
}

func (that *dbGame) DeleteByRoom(ctx context.Context, roomID int) error {
	if err := that.client.Del(ctx, gameKey(roomID)).Err(); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	return nil
}
