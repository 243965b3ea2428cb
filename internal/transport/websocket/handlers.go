package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gridmatch/internal/apperror"
)

func (that *Server) handleJoin(ctx context.Context, client *Client, msg *Message) error {
	log := that.logger.With("method", "handleJoin")

	var payload joinPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	roomID, err := parseRoomID(payload.RoomID)
	if err != nil {
		log.Error("rejected join with malformed room id", "roomID", payload.RoomID)
		return that.sendError(client, msg.Action, "malformed room id")
	}

	// a join carrying the id of a room whose seat lost its connection is a
	// returning client, not a new player
	if roomID > 0 {
		if seat, detached := that.membership.DetachedSeat(roomID); detached {
			handled, err := that.reattach(ctx, client, roomID, seat)
			if err != nil {
				return err
			}
			if handled {
				return nil
			}
		}
	}

	result, err := that.session.Join(ctx, roomID, payload.Name)
	if err != nil {
		log.Error("failed to join", "error", err)
		return that.sendError(client, msg.Action, joinFailureMessage(err))
	}

	client.setSession(result.Room.ID, result.Player.Seat)
	that.membership.Add(result.Room.ID, client)

	if err = that.sendMessage(client, eventRoomInit, roomPayload{Room: result.Room}); err != nil {
		return err
	}

	if err = that.sendMessage(client, eventGameInit, gamePayload{Game: result.Game}); err != nil {
		return err
	}

	that.broadcast(result.Room.ID, nil, eventPlayersInit, playersPayload{Players: result.Players})

	if result.Waiting {
		if err = that.sendMessage(client, eventPlayerWaiting, waitingPayload{Position: result.OpponentSeat}); err != nil {
			return err
		}
	}

	log.Info("player joined", "roomID", result.Room.ID, "seat", result.Player.Seat)

	return nil
}

// reattach restores a returning connection onto its still occupied seat and
// replays the room, game, and roster state to it. A seat that turned out to
// be vacated already falls back to the regular join path; handled reports
// whether the join was resolved here.
func (that *Server) reattach(ctx context.Context, client *Client, roomID, seat int) (handled bool, err error) {
	log := that.logger.With("method", "reattach")

	result, err := that.session.Reattach(ctx, roomID, seat)
	if err != nil {
		if errors.Is(err, apperror.ErrPlayerNotFound) || errors.Is(err, apperror.ErrRoomNotFound) {
			return false, nil
		}

		log.Error("failed to reattach", "roomID", roomID, "seat", seat, "error", err)
		return true, that.sendError(client, actionJoin, "failed to rejoin")
	}

	client.setSession(roomID, seat)
	that.membership.Add(roomID, client)

	if err = that.sendMessage(client, eventRoomInit, roomPayload{Room: result.Room}); err != nil {
		return true, err
	}

	if err = that.sendMessage(client, eventGameInit, gamePayload{Game: result.Game}); err != nil {
		return true, err
	}

	if err = that.sendMessage(client, eventPlayersInit, playersPayload{Players: result.Players}); err != nil {
		return true, err
	}

	log.Info("connection reattached to its seat", "roomID", roomID, "seat", seat)

	return true, nil
}

func joinFailureMessage(err error) string {
	switch {
	case errors.Is(err, apperror.ErrInvalidPlayerName):
		return "invalid player name"
	case errors.Is(err, apperror.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, apperror.ErrRoomIsFull):
		return "room is full"
	default:
		return "failed to join"
	}
}

func (that *Server) handlePlay(ctx context.Context, client *Client, msg *Message) error {
	roomID, _, seated := client.session()
	if !seated {
		return that.sendError(client, msg.Action, "join a room first")
	}

	var payload playPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if _, err := that.session.Play(ctx, roomID, payload.Move); err != nil {
		return fmt.Errorf("failed to play move: %w", err)
	}

	// everyone but the mover learns about the move
	that.broadcast(roomID, client, eventGamePlay, movePayload{Move: payload.Move})

	return nil
}

func (that *Server) handleSwitchTurn(ctx context.Context, client *Client, msg *Message) error {
	roomID, _, seated := client.session()
	if !seated {
		return that.sendError(client, msg.Action, "join a room first")
	}

	result, err := that.session.SwitchTurn(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to switch turn: %w", err)
	}

	that.broadcast(roomID, nil, eventPlayersSwitch, switchPayload{Game: result.Game, Players: result.Players})

	return nil
}

func (that *Server) handleRestart(ctx context.Context, client *Client, msg *Message) error {
	roomID, _, seated := client.session()
	if !seated {
		return that.sendError(client, msg.Action, "join a room first")
	}

	var payload restartPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	result, err := that.session.Restart(ctx, roomID, payload.WinnerID)
	if err != nil {
		return fmt.Errorf("failed to restart: %w", err)
	}

	that.broadcast(roomID, nil, eventGameRestart, restartResultPayload{
		Game:        result.Game,
		Players:     result.Players,
		Combination: payload.Combination,
	})

	return nil
}

func (that *Server) handleLeave(ctx context.Context, client *Client, msg *Message) error {
	log := that.logger.With("method", "handleLeave")

	roomID, seat, seated := client.session()
	if !seated {
		return nil
	}

	that.membership.Remove(roomID, client)
	client.clearSession()

	result, err := that.session.Leave(ctx, roomID, seat)
	if err != nil {
		// a missing room or seat means the leave already happened
		if errors.Is(err, apperror.ErrRoomNotFound) || errors.Is(err, apperror.ErrPlayerNotFound) {
			log.Info("leave for an already vacated seat", "roomID", roomID, "seat", seat)
			return nil
		}

		return fmt.Errorf("failed to leave: %w", err)
	}

	if result.Closed {
		log.Info("room torn down", "roomID", roomID)
		return nil
	}

	that.broadcast(roomID, nil, eventPlayerWaiting, waitingPayload{
		Position: result.VacatedSeat,
		Room:     result.Room,
		Game:     result.Game,
		Players:  result.Players,
	})

	return nil
}
