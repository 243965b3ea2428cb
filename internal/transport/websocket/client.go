package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	sendBufferSize = 32
)

// Client is one live connection plus the small session tokens the client
// side holds after a successful join: the room id and the seat position.
// The server uses the tokens, not connection identity alone, to recover
// which seat a dropped connection occupied.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	roomID int
	seat   int
	seated bool
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

func (that *Client) setSession(roomID, seat int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.roomID = roomID
	that.seat = seat
	that.seated = true
}

func (that *Client) clearSession() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.roomID = 0
	that.seat = 0
	that.seated = false
}

func (that *Client) session() (roomID, seat int, ok bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.roomID, that.seat, that.seated
}

// enqueue hands data to the write pump without ever blocking the caller;
// a connection that cannot keep up loses the message and will resync on
// its next join.
func (that *Client) enqueue(data []byte) {
	select {
	case that.send <- data:
	default:
	}
}

func (that *Client) readPump(ctx context.Context, server *Server) {
	defer func() {
		server.handleDisconnect(ctx, that)
		_ = that.conn.Close()
	}()

	that.conn.SetReadLimit(maxMessageSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := that.conn.ReadMessage()
		if err != nil {
			return
		}

		server.dispatch(ctx, that, raw)
	}
}

func (that *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case data, ok := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
