package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // UI is served same-origin
}

// ClientConn is one subscriber connection. Outbound frames are enqueued on
// send by the owning room and drained by a single writer goroutine.
type ClientConn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
}

func newClientConn(ws *websocket.Conn) *ClientConn {
	return &ClientConn{ws: ws, send: make(chan []byte, 64)}
}

func (c *ClientConn) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.ws.Close()
	})
}

// handleWS serves /ws/{room}. The first envelope must be a join; after that
// the connection is a plain action stream (ready/guess/reset) with state
// snapshots coming back on every room mutation.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomName, ok := roomNameFromWSPath(r.URL.Path)
	if !ok {
		http.Error(w, "bad room name", http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	cc := newClientConn(ws)

	// Errors before a successful join are written straight to the socket;
	// the writer goroutine is not running yet. The client may retry the join
	// (e.g. after a name conflict) on the same connection.
	var room *Room
	for room == nil {
		_, data, rerr := ws.ReadMessage()
		if rerr != nil {
			_ = ws.Close()
			return
		}

		var env Envelope
		if json.Unmarshal(data, &env) != nil || env.Type != "join" {
			writeErrorDirect(ws, "join_required", "send a join message first")
			continue
		}
		var p JoinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			writeErrorDirect(ws, "bad_input", "invalid payload")
			continue
		}
		room = s.join(r.Context(), ws, cc, roomName, p)
	}

	// writer loop
	go func() {
		ticker := time.NewTicker(25 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case msg, ok := <-cc.send:
				if !ok {
					return
				}
				_ = ws.WriteMessage(websocket.TextMessage, msg)
			case <-ticker.C:
				_ = ws.WriteMessage(websocket.PingMessage, []byte{})
			}
		}
	}()

	// reader loop
	for {
		_, data, rerr := ws.ReadMessage()
		if rerr != nil {
			break
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			room.sendError(cc, "bad_json", "invalid json")
			continue
		}

		switch env.Type {
		case "ready":
			room.Ready(cc)

		case "guess":
			var p GuessPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				room.sendError(cc, "bad_input", "invalid payload")
				continue
			}
			room.Guess(cc, p.Number)

		case "reset":
			room.Reset(cc)

		case "join":
			room.sendError(cc, "already_joined", "already joined this room")

		default:
			room.sendError(cc, "unknown_type", "unknown message type")
		}
	}

	// disconnect
	s.rooms.Leave(room, cc)
	cc.Close()
}

// join resolves the display name (token wins over the payload name), admits
// the participant, and attaches the connection. Returns nil when the join was
// rejected; the reason has already been written to the socket.
func (s *Server) join(ctx context.Context, ws *websocket.Conn, cc *ClientConn, roomName string, p JoinPayload) *Room {
	name := p.Name
	if p.Token != "" {
		if s.tokens == nil {
			writeErrorDirect(ws, "unauthorized", "tokens are not supported")
			return nil
		}
		claims, err := s.tokens.Verify(p.Token)
		if err != nil {
			writeErrorDirect(ws, "unauthorized", "invalid token")
			return nil
		}
		if claims.DisplayName != "" {
			name = claims.DisplayName
		}
	}
	if name == "" {
		writeErrorDirect(ws, "bad_input", "name is required")
		return nil
	}

	var role Role
	switch p.Role {
	case "player", "":
		role = RolePlayer
	case "observer":
		role = RoleObserver
	default:
		writeErrorDirect(ws, "bad_input", `role must be "player" or "observer"`)
		return nil
	}

	for {
		room := s.rooms.GetOrCreate(ctx, roomName)
		err := room.Join(cc, name, role)
		if err == nil {
			return room
		}
		if errors.Is(err, ErrRoomClosed) {
			// torn down between lookup and attach: start a fresh lobby
			continue
		}
		writeErrorDirect(ws, "name_conflict", err.Error())
		return nil
	}
}

func writeErrorDirect(ws *websocket.Conn, code, msg string) {
	_ = ws.WriteJSON(Envelope{
		Type:    "error",
		Payload: mustJSON(ErrorPayload{Code: code, Message: msg}),
	})
}

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
