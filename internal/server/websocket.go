package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/livetemplate/tinkerpen"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer is how many messages may queue for a slow client before it
	// is disconnected. A reconnecting client receives the full state again.
	sendBuffer = 32

	// closeSessionGone is sent when a session ends. The editor page shows an
	// "expired" alert instead of reconnecting.
	closeSessionGone = 4404
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// wsMessage is pushed to the editor page after every controller change.
type wsMessage struct {
	Type  tinkerpen.EventType `json:"type"`
	State sessionState        `json:"state"`
}

// client is one websocket connection watching a session. All writes go
// through the writer goroutine.
type client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// enqueue queues a message without blocking. A full queue closes the client.
func (c *client) enqueue(data []byte) {
	select {
	case <-c.done:
	case c.send <- data:
	default:
		log.Printf("[WS] Client too slow, dropping connection")
		c.closeWith(websocket.ClosePolicyViolation, "too slow")
	}
}

// closeWith sends a close frame and stops the writer.
func (c *client) closeWith(code int, text string) {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, text)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		close(c.done)
		c.conn.Close()
	})
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.closeWith(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.closeWith(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop discards client messages and returns when the connection closes.
func (c *client) readLoop() {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error: %v", err)
			}
			return
		}
	}
}

// handleWebSocket streams session changes to the editor page. The first
// message carries the current state.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "session query parameter required")
		return
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "session not found or expired")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade failed: %v", err)
		return
	}

	c := newClient(conn)
	sess.registerClient(c)
	if s.debug() {
		log.Printf("[WS] Client connected to session %s: %d client(s)", sess.ID, sess.clientCount())
	}

	unsubscribe := sess.Controller.Subscribe(func(evt tinkerpen.Event) {
		if data, err := encodeMessage(sess.ID, evt.Type, evt.Snapshot); err == nil {
			c.enqueue(data)
		}
	})

	if data, err := encodeMessage(sess.ID, tinkerpen.EventState, sess.Controller.Snapshot()); err == nil {
		c.enqueue(data)
	}

	go c.writeLoop()
	c.readLoop()

	unsubscribe()
	sess.unregisterClient(c)
	c.closeWith(websocket.CloseNormalClosure, "")
	if s.debug() {
		log.Printf("[WS] Client disconnected from session %s", sess.ID)
	}
}

func encodeMessage(id string, typ tinkerpen.EventType, snap tinkerpen.Snapshot) ([]byte, error) {
	data, err := json.Marshal(wsMessage{Type: typ, State: newSessionState(id, snap)})
	if err != nil {
		log.Printf("[WS] Failed to marshal %s message: %v", typ, err)
	}
	return data, err
}
