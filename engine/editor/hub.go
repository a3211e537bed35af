package editor

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
)

const (
	// DefaultBacklog is how many notifications a new client receives on connect.
	DefaultBacklog = 64

	clientSendBuffer = 32
	writeWait        = 10 * time.Second
	pingPeriod       = 30 * time.Second
)

/** @brief A resource notification as streamed to editor clients. */
type Notification struct {
	Event string `json:"event"`
	core.ResourceEvent
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

/**
 * @brief Fans the resource notifications out to every connected websocket
 * client. Recent notifications are kept so that a new client starts with
 * the current picture.
 */
type Hub struct {
	mutex   sync.Mutex
	clients map[*client]bool
	backlog *containers.RingQueue[[]byte]
}

func NewHub(backlog int) *Hub {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Hub{
		clients: make(map[*client]bool),
		backlog: containers.NewRingQueue[[]byte](backlog),
	}
}

// Attach subscribes the hub to the resource notifications of events.
func (h *Hub) Attach(events *core.EventSystem) {
	events.Register(core.EVENT_CODE_RESOURCE_INFO_CHANGED, h, h.onEvent)
	events.Register(core.EVENT_CODE_RESOURCE_DELETED, h, h.onEvent)
}

func (h *Hub) Detach(events *core.EventSystem) {
	events.Unregister(core.EVENT_CODE_RESOURCE_INFO_CHANGED, h)
	events.Unregister(core.EVENT_CODE_RESOURCE_DELETED, h)
}

func (h *Hub) onEvent(sender interface{}, listener interface{}, context core.EventContext) bool {
	e, ok := context.Data.(core.ResourceEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	n := Notification{Event: "info", ResourceEvent: e}
	if context.Type == core.EVENT_CODE_RESOURCE_DELETED {
		n.Event = "deleted"
	}
	h.Broadcast(n)
	// other listeners still get the notification
	return false
}

// Broadcast queues n for every client. A client that does not keep up loses messages.
func (h *Hub) Broadcast(n Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		core.LogError("failed to marshal notification: %s", err.Error())
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.backlog.Push(data)
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			core.LogWarn("editor client is too slow, notification dropped")
		}
	}
}

// Backlog returns the retained notifications, oldest first.
func (h *Hub) Backlog() [][]byte {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.backlog.Items()
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Serve streams notifications to conn until it fails or the hub is closed.
func (h *Hub) Serve(conn *websocket.Conn) {
	h.mutex.Lock()
	backlog := h.backlog.Items()
	c := &client{conn: conn, send: make(chan []byte, clientSendBuffer+len(backlog))}
	for _, data := range backlog {
		c.send <- data
	}
	h.clients[c] = true
	h.mutex.Unlock()

	go c.readPump(h)
	c.writePump(h)
}

func (h *Hub) unregister(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump drains the client so that control frames get processed.
func (c *client) readPump(h *Hub) {
	defer h.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.unregister(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				core.LogDebug("editor websocket write error: %s", err.Error())
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
