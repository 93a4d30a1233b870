package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"ideaportal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by CORS on the REST API; the socket itself requires a token
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the envelope pushed to browsers
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	At   time.Time   `json:"at"`
}

type outbound struct {
	recipient uuid.UUID // uuid.Nil for everyone
	message   []byte
}

// Client represents a single connected WebSocket client
type Client struct {
	Hub        *Hub
	Conn       *websocket.Conn
	Send       chan []byte
	EmployeeID uuid.UUID
}

// Hub tracks connected clients per employee and fans out workflow events
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	log        zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		log:        log.With().Str("component", "websocket").Logger(),
	}
}

// Run is the dispatch loop; it returns when stop is closed
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.log.Debug().Str("employee_id", client.EmployeeID.String()).Msg("websocket client connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			h.log.Debug().Str("employee_id", client.EmployeeID.String()).Msg("websocket client disconnected")
		case out := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if out.recipient != uuid.Nil && client.EmployeeID != out.recipient {
					continue
				}
				select {
				case client.Send <- out.message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// PublishTo queues an event for one employee's open sessions. It never blocks.
func (h *Hub) PublishTo(employeeID uuid.UUID, event string, data interface{}) {
	h.publish(employeeID, event, data)
}

// PublishAll queues an event for every connected client. It never blocks.
func (h *Hub) PublishAll(event string, data interface{}) {
	h.publish(uuid.Nil, event, data)
}

// ClientCount reports how many sockets are connected
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) publish(recipient uuid.UUID, event string, data interface{}) {
	msg, err := json.Marshal(Event{Type: event, Data: data, At: time.Now().UTC()})
	if err != nil {
		h.log.Warn().Err(err).Str("event", event).Msg("failed to encode websocket event")
		return
	}
	select {
	case h.broadcast <- outbound{recipient: recipient, message: msg}:
	default:
		h.log.Warn().Str("event", event).Msg("websocket broadcast buffer full, event dropped")
	}
}

// writePump handles writing messages from the Hub to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump keeps the connection alive and notices when the peer goes away
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

// ServeWs upgrades an authenticated request. The token comes in the "token" query parameter.
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	_, employeeID, err := service.ParseToken(secret, tokenString)
	if err != nil {
		hub.log.Warn().Err(err).Msg("websocket connection rejected")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256), EmployeeID: employeeID}
	client.Hub.register <- client

	go client.writePump()
	go client.readPump()
}
