package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gridmatch/internal/entity"
	"gridmatch/internal/usecase"
)

type sessionCoordinator interface {
	Join(ctx context.Context, requestedRoomID int, name string) (*usecase.JoinResult, error)
	Reattach(ctx context.Context, roomID, seat int) (*usecase.JoinResult, error)
	Play(ctx context.Context, roomID int, move entity.Move) (*entity.Game, error)
	SwitchTurn(ctx context.Context, roomID int) (*usecase.SwitchResult, error)
	Restart(ctx context.Context, roomID int, winnerID string) (*usecase.RestartResult, error)
	Leave(ctx context.Context, roomID, seat int) (*usecase.LeaveResult, error)
}

type Server struct {
	logger      *slog.Logger
	session     sessionCoordinator
	membership  *RoomMembershipTable
	gracePeriod time.Duration
	upgrader    websocket.Upgrader

	handlers map[string]func(ctx context.Context, client *Client, message *Message) error
}

func New(logger *slog.Logger, session sessionCoordinator, gracePeriod time.Duration) *Server {
	server := &Server{
		logger:      logger.With("component", "websocket"),
		session:     session,
		membership:  NewRoomMembershipTable(),
		gracePeriod: gracePeriod,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},

		handlers: make(map[string]func(context.Context, *Client, *Message) error),
	}

	server.handlers[actionJoin] = server.handleJoin
	server.handlers[actionPlay] = server.handlePlay
	server.handlers[actionSwitchTurn] = server.handleSwitchTurn
	server.handlers[actionRestart] = server.handleRestart
	server.handlers[actionLeave] = server.handleLeave

	return server
}

// Handler returns the HTTP handler that upgrades requests to WebSocket and
// pumps messages until the connection drops.
func (that *Server) Handler(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	}
}

func (that *Server) upgradeToWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	log.Info("connection established", "remote", conn.RemoteAddr().String())

	client := newClient(conn)

	go client.writePump()
	client.readPump(ctx, that)
}

// dispatch routes one inbound message to its action handler. Handlers run
// to completion before the next message of the same connection is read;
// cross-connection interleaving is resolved by the store's atomic updates.
func (that *Server) dispatch(ctx context.Context, client *Client, raw []byte) {
	log := that.logger.With("method", "dispatch")

	var message Message
	if err := json.Unmarshal(raw, &message); err != nil {
		log.Error("failed to unmarshal message", "error", err)
		return
	}

	handler, ok := that.handlers[message.Action]
	if !ok {
		log.Error("unknown action", "action", message.Action)
		return
	}

	if err := handler(ctx, client, &message); err != nil {
		log.Error("error processing message", "action", message.Action, "error", err)
	}
}

// handleDisconnect debounces a dropped connection. The membership size is
// snapshotted now and compared again when the grace window elapses; only
// an unchanged size makes the drop permanent.
func (that *Server) handleDisconnect(ctx context.Context, client *Client) {
	log := that.logger.With("method", "handleDisconnect")

	roomID, seat, seated := client.session()
	if !seated {
		return
	}

	that.membership.Remove(roomID, client)
	size := that.membership.Count(roomID)

	log.Info("seated connection dropped, scheduling vacancy check",
		"roomID", roomID, "seat", seat, "members", size)

	time.AfterFunc(that.gracePeriod, func() {
		that.checkVacancy(ctx, roomID, seat, size)
	})
}

func (that *Server) checkVacancy(ctx context.Context, roomID, seat, sizeAtDrop int) {
	log := that.logger.With("method", "checkVacancy")

	if that.membership.Count(roomID) != sizeAtDrop {
		log.Info("seat reconnected within grace window", "roomID", roomID, "seat", seat)
		return
	}

	result, err := that.session.Leave(ctx, roomID, seat)
	if err != nil {
		log.Error("failed to vacate seat", "roomID", roomID, "seat", seat, "error", err)
		return
	}

	if result.Closed {
		log.Info("room torn down after sustained absence", "roomID", roomID)
		return
	}

	that.broadcast(roomID, nil, eventPlayerWaiting, waitingPayload{
		Position: result.VacatedSeat,
		Room:     result.Room,
		Game:     result.Game,
		Players:  result.Players,
	})
}

func (that *Server) sendMessage(client *Client, action string, payload any) error {
	data, err := encodeMessage(action, payload)
	if err != nil {
		return err
	}

	client.enqueue(data)

	return nil
}

func (that *Server) sendError(client *Client, action, errorMsg string) error {
	if err := that.sendMessage(client, action, errorPayload{Error: errorMsg}); err != nil {
		return fmt.Errorf("failed to send error response: %w", err)
	}

	return nil
}

func (that *Server) broadcast(roomID int, except *Client, action string, payload any) {
	data, err := encodeMessage(action, payload)
	if err != nil {
		that.logger.Error("failed to encode broadcast", "action", action, "error", err)
		return
	}

	that.membership.Broadcast(roomID, except, data)
}

func encodeMessage(action string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	data, err := json.Marshal(Message{Action: action, Payload: body})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return data, nil
}
