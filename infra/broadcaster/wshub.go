package broadcaster

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tickbook/domain/book"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// writeTimeout bounds how long the hub will block trying to deliver a
// snapshot to one slow client before dropping that client.
const writeTimeout = 2 * time.Second

// WSHub implements driver.SnapshotPublisher by fanning every published
// snapshot out to all currently connected websocket clients. A slow or
// stuck client is disconnected rather than allowed to stall delivery
// to everyone else.
type WSHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	log     *logrus.Logger
}

// NewWSHub returns an empty hub ready to accept connections.
func NewWSHub(log *logrus.Logger) *WSHub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHub{clients: make(map[*websocket.Conn]struct{}), log: log}
}

// ServeHTTP upgrades the request to a websocket connection and
// registers it for snapshot fan-out until it disconnects.
func (h *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Drain and discard anything the client sends; this is a
	// publish-only feed, but reading is required to notice a client
	// closing the connection.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WSHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// wsMessage is the JSON payload delivered to every connected client:
// the depth snapshot plus the driver's bounded spread history (its
// most recent samples, oldest first).
type wsMessage struct {
	Snapshot *book.DepthSnapshot `json:"snapshot"`
	Spreads  []book.SpreadSample `json:"spreads,omitempty"`
}

// Publish sends snap and spreads to every connected client as JSON.
func (h *WSHub) Publish(snap *book.DepthSnapshot, spreads []book.SpreadSample) {
	payload, err := json.Marshal(wsMessage{Snapshot: snap, Spreads: spreads})
	if err != nil {
		h.log.WithError(err).Error("failed to marshal snapshot for websocket fan-out")
		return
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(conn)
		}
	}
}

// Count returns the number of currently connected clients.
func (h *WSHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
