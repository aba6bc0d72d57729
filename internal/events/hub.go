package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/primaltree/piratenation/internal/common"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans Event values out to connected WebSocket clients and, in-process,
// to a synchronous observer. It is the mechanism behind §4.4's on_update
// callback: the orchestrator calls Notify when it seeds a match, after each
// poll that returns data, and when a match reaches FT; Notify never blocks
// on a slow or absent client.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *common.Logger

	observerMu sync.Mutex
	observer   func(Event)
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an event hub. Call Run as a goroutine before Notify.
func NewHub(logger *common.Logger) *Hub {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// OnUpdate installs the in-process observer invoked synchronously by Notify.
// Only one observer is supported; a later call replaces an earlier one. Per
// spec §4.4, observer errors (panics from a misbehaving callback) are
// swallowed and logged, never surfaced to the poller.
func (h *Hub) OnUpdate(fn func(Event)) {
	h.observerMu.Lock()
	defer h.observerMu.Unlock()
	h.observer = fn
}

// Run starts the hub's dispatch loop. Should be called as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.notifyObserver(event)

			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn().Err(err).Msg("failed to marshal match event")
				continue
			}

			h.mu.RLock()
			var slow []*client
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, c := range slow {
					delete(h.clients, c)
					close(c.send)
				}
				h.mu.Unlock()
			}
		}
	}
}

// notifyObserver invokes the installed observer, recovering any panic so a
// broken observer never takes down the dispatch loop (spec §4.4, §7).
func (h *Hub) notifyObserver(event Event) {
	h.observerMu.Lock()
	observer := h.observer
	h.observerMu.Unlock()
	if observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.logger.Warn().Interface("panic", r).Msg("observer callback panicked, swallowing")
		}
	}()
	observer(event)
}

// Stop signals the dispatch loop to exit.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Notify broadcasts event. It never blocks: if the internal channel is full
// the event is dropped and logged, matching the teacher's Broadcast.
func (h *Hub) Notify(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Msg("event broadcast channel full, dropping event")
	}
}

// ServeWS upgrades an HTTP connection to WebSocket and registers the client
// for live event streaming.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
	h.register <- c

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
