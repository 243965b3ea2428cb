package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"gridmatch/internal/apperror"
	"gridmatch/internal/entity"
	"gridmatch/internal/repository/storage"
)

const playerKeyPrefix = "player:"

type PlayerRepository interface {
	Create(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
	FindByRoom(ctx context.Context, roomID int) ([]*entity.Player, error)

	// Delete removes the player document and its roster entry; the bool
	// reports whether exactly one document was removed.
	Delete(ctx context.Context, player *entity.Player) (bool, error)

	Update(ctx context.Context, id string, patch func(*entity.Player)) (*entity.Player, error)

	// UpdateRoster applies patch to every player seated in the room as one
	// atomic update over the whole roster.
	UpdateRoster(ctx context.Context, roomID int, patch func(*entity.Player)) ([]*entity.Player, error)
}

type dbPlayer struct {
	client *redis.Client
}

func NewPlayerRepository(client *redis.Client) PlayerRepository {
	return &dbPlayer{
		client: client,
	}
}

func playerKey(id string) string {
	return playerKeyPrefix + id
}

func rosterKey(roomID int) string {
	return "room:" + strconv.Itoa(roomID) + ":players"
}

func decodePlayer(cmd *redis.StringCmd) (*entity.Player, error) {
	raw, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrPlayerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	var player entity.Player
	if err = json.Unmarshal([]byte(raw), &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &player, nil
}

func sortBySeat(players []*entity.Player) {
	sort.Slice(players, func(i, j int) bool {
		return players[i].Seat < players[j].Seat
	})
}

func (that *dbPlayer) Create(ctx context.Context, player *entity.Player) error {
	buf, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, playerKey(player.ID), buf, 0)
		pipe.SAdd(ctx, rosterKey(player.RoomID), player.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store player: %w", err)
	}

	return nil
}

func (that *dbPlayer) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	return decodePlayer(that.client.Get(ctx, playerKey(id)))
}

func (that *dbPlayer) FindByRoom(ctx context.Context, roomID int) ([]*entity.Player, error) {
	ids, err := that.client.SMembers(ctx, rosterKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	players := make([]*entity.Player, 0, len(ids))
	for _, id := range ids {
		player, err := decodePlayer(that.client.Get(ctx, playerKey(id)))
		if errors.Is(err, apperror.ErrPlayerNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		players = append(players, player)
	}

	sortBySeat(players)

	return players, nil
}

func (that *dbPlayer) Delete(ctx context.Context, player *entity.Player) (bool, error) {
	var removed *redis.IntCmd

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, playerKey(player.ID))
		pipe.SRem(ctx, rosterKey(player.RoomID), player.ID)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete player: %w", err)
	}

	return removed.Val() == 1, nil
}

func (that *dbPlayer) Update(ctx context.Context, id string, patch func(*entity.Player)) (*entity.Player, error) {
	var updated *entity.Player

	txn := func(tx *redis.Tx) error {
		player, err := decodePlayer(tx.Get(ctx, playerKey(id)))
		if err != nil {
			return err
		}

		patch(player)

		buf, err := json.Marshal(player)
		if err != nil {
			return fmt.Errorf("failed to marshal player: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, playerKey(id), buf, 0)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to store player: %w", err)
		}

		updated = player

		return nil
	}

	if err := storage.Atomically(ctx, that.client, txn, playerKey(id)); err != nil {
		return nil, err
	}

	return updated, nil
}

func (that *dbPlayer) UpdateRoster(ctx context.Context, roomID int, patch func(*entity.Player)) ([]*entity.Player, error) {
	for attempt := 0; attempt < storage.MaxTxAttempts; attempt++ {
		ids, err := that.client.SMembers(ctx, rosterKey(roomID)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read roster: %w", err)
		}

		if len(ids) == 0 {
			return nil, apperror.ErrPlayerNotFound
		}

		sort.Strings(ids)

		keys := make([]string, 0, len(ids)+1)
		keys = append(keys, rosterKey(roomID))
		for _, id := range ids {
			keys = append(keys, playerKey(id))
		}

		var updated []*entity.Player

		txn := func(tx *redis.Tx) error {
			current, err := tx.SMembers(ctx, rosterKey(roomID)).Result()
			if err != nil {
				return fmt.Errorf("failed to read roster: %w", err)
			}

			sort.Strings(current)
			if !slices.Equal(current, ids) {
				// membership changed between snapshot and watch
				return redis.TxFailedErr
			}

			players := make([]*entity.Player, 0, len(ids))
			for _, id := range ids {
				player, err := decodePlayer(tx.Get(ctx, playerKey(id)))
				if err != nil {
					return err
				}

				patch(player)
				players = append(players, player)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, player := range players {
					buf, err := json.Marshal(player)
					if err != nil {
						return fmt.Errorf("failed to marshal player: %w", err)
					}
					pipe.Set(ctx, playerKey(player.ID), buf, 0)
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to store roster: %w", err)
			}

			sortBySeat(players)
			updated = players

			return nil
		}

		err = that.client.Watch(ctx, txn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, err
		}

		return updated, nil
	}

	return nil, storage.ErrTooMuchContention
}
