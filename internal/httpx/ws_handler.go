package httpx

import (
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vendio/beverage-machine/internal/machine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The storefront runs on a separate origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MachineHandler exposes the notification channel over a websocket.
type MachineHandler struct {
	Hub *machine.Hub
}

func (h *MachineHandler) Register(r *chi.Mux) {
	r.Get("/ws/machine", h.serve)
}

// clientCommand is what a connected client may ask of the hub.
type clientCommand struct {
	Action string `json:"action"` // check_status | force_release
}

func (h *MachineHandler) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return
	}

	connID := uuid.NewString()
	client := newWSClient(conn)
	go client.writePump()

	h.Hub.Connect(connID, client)
	defer func() {
		h.Hub.Disconnect(connID)
		client.stop()
	}()

	for {
		var cmd clientCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			// normal close or dead peer: disconnect handling releases
			// the machine if this connection held it
			return
		}
		switch cmd.Action {
		case "check_status":
			h.Hub.Status(connID)
		case "force_release":
			// administrative override; deliberately unauthenticated,
			// matching the reference deployment
			h.Hub.ForceRelease()
		}
	}
}

// wsClient adapts one websocket connection to machine.Pusher. Writes go
// through a buffered channel so the hub never blocks on a slow peer; a
// full buffer drops the event rather than stalling the hub.
type wsClient struct {
	conn *websocket.Conn
	send chan machine.Event
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan machine.Event, 16),
		done: make(chan struct{}),
	}
}

func (c *wsClient) Push(ev machine.Event) {
	select {
	case <-c.done:
	case c.send <- ev:
	default:
		log.Printf("ws push dropped: slow client, event=%s", ev.Type)
	}
}

func (c *wsClient) writePump() {
	for {
		select {
		case <-c.done:
			_ = c.conn.Close()
			return
		case ev := <-c.send:
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) stop() {
	c.once.Do(func() { close(c.done) })
}
