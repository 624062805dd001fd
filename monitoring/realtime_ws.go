// Package monitoring streams served predictions to connected dashboards.
package monitoring

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"autocentral/logging"
	"autocentral/ml"
)

type MessageType string

const (
	PredictionServed MessageType = "prediction_served"
	Heartbeat        MessageType = "heartbeat"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
	ID        string          `json:"id"`
}

// PredictionEvent is broadcast once per served prediction.
type PredictionEvent struct {
	Input             ml.CarRecord `json:"input"`
	EstimatedPriceTND int          `json:"estimated_price_tnd"`
	Timestamp         time.Time    `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// ActivityFeed fans served-prediction events out to websocket clients.
type ActivityFeed struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

func NewActivityFeed() *ActivityFeed {
	return &ActivityFeed{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (f *ActivityFeed) Start() {
	for {
		select {
		case c := <-f.register:
			f.mu.Lock()
			f.clients[c] = true
			f.mu.Unlock()
			logging.L().Infow("activity client connected", "client", c.id, "total", f.ClientCount())

		case c := <-f.unregister:
			f.mu.Lock()
			if _, ok := f.clients[c]; ok {
				delete(f.clients, c)
				close(c.send)
			}
			f.mu.Unlock()
			logging.L().Infow("activity client disconnected", "client", c.id, "total", f.ClientCount())

		case message := <-f.broadcast:
			f.mu.Lock()
			for c := range f.clients {
				select {
				case c.send <- message:
				default:
					close(c.send)
					delete(f.clients, c)
				}
			}
			f.mu.Unlock()

		case <-f.done:
			f.mu.Lock()
			for c := range f.clients {
				close(c.send)
				delete(f.clients, c)
			}
			f.mu.Unlock()
			return
		}
	}
}

func (f *ActivityFeed) Stop() {
	close(f.done)
}

func (f *ActivityFeed) ClientCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Publish broadcasts one prediction event; drops it when the queue is full.
func (f *ActivityFeed) Publish(event PredictionEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.L().Warnw("failed to marshal prediction event", "error", err)
		return
	}
	message, err := json.Marshal(Message{
		Type:      PredictionServed,
		Timestamp: time.Now(),
		Data:      data,
		ID:        fmt.Sprintf("msg_%d", time.Now().UnixNano()),
	})
	if err != nil {
		return
	}

	select {
	case f.broadcast <- message:
	default:
		logging.L().Warn("activity broadcast queue full, dropping event")
	}
}

func (f *ActivityFeed) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.L().Warnw("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 256),
		id:   fmt.Sprintf("client_%d", time.Now().UnixNano()),
	}
	f.register <- c

	go c.writePump()
	go c.readPump(f)
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
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump(f *ActivityFeed) {
	defer func() {
		f.unregister <- c
		c.conn.Close()
	}()

	// The feed is broadcast-only; reads just detect disconnects.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.L().Debugw("websocket read error", "error", err)
			}
			return
		}
	}
}
