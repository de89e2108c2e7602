package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tessyjonburica/excel-mind-crm/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GlobalHub is the single hub instance for the whole application.
var GlobalHub = NewHub()

// Event is the wire format of every server push.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// clientMessage is the only shape a client may send: {"type":"join","room":...}.
type clientMessage struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// Hub maps each authenticated user to at most one live connection. A second
// login replaces the first mapping entry; pushes to users without an entry
// are dropped, the persisted Notification row being the durable fallback.
type Hub struct {
	clients    map[uint]*Client
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]*Client),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if prev, ok := h.clients[client.userID]; ok && prev != client {
				close(prev.send)
			}
			h.clients[client.userID] = client
			h.mu.Unlock()
			slog.Info("Client registered", "userID", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			// Only evict if the map still points at this client: a late
			// disconnect from a superseded connection must not remove the
			// mapping of its replacement.
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.removeFromRoomsLocked(client)
			h.mu.Unlock()
			slog.Info("Client unregistered", "userID", client.userID)
		}
	}
}

// PushToUser delivers an event to the user's live connection if one exists.
// At-most-once: no queue, no retry, no acknowledgment. A missing or
// saturated connection drops the event silently.
func (h *Hub) PushToUser(userID uint, event string, payload interface{}) {
	data, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		slog.Error("Failed to marshal push event", "event", event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[userID]
	if !ok {
		slog.Info("User not connected, push dropped", "userID", userID, "event", event)
		return
	}
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, userID)
		h.removeFromRoomsLocked(client)
		slog.Warn("Client send buffer full, connection dropped", "userID", userID)
	}
}

// JoinRoom adds the user's live connection to a named room.
func (h *Hub) JoinRoom(userID uint, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[userID]
	if !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

// BroadcastToRoom pushes an event to every connection in the room.
func (h *Hub) BroadcastToRoom(room string, event string, payload interface{}) {
	data, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		slog.Error("Failed to marshal room broadcast", "event", event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.rooms[room] {
		select {
		case client.send <- data:
		default:
		}
	}
}

// Broadcast pushes an event to every live connection.
func (h *Hub) Broadcast(event string, payload interface{}) {
	data, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		slog.Error("Failed to marshal broadcast", "event", event, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

// Connected reports whether the user currently has a live connection.
func (h *Hub) Connected(userID uint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.clients[userID]
	return ok
}

func (h *Hub) removeFromRoomsLocked(client *Client) {
	for name, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Unexpected websocket close error", "error", err)
			}
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			slog.Error("Error unmarshaling message from client", "error", err)
			continue
		}
		if msg.Type == "join" {
			room := msg.Room
			if room == "" {
				room = userRoom(c.userID)
			}
			c.hub.JoinRoom(c.userID, room)
		}
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			slog.Error("Failed to write message to websocket", "error", err)
			return
		}
	}
}

func userRoom(userID uint) string {
	return "user:" + strconv.FormatUint(uint64(userID), 10)
}

// NotificationsWSEndpoint authenticates the handshake and hands the socket to
// the hub. The token comes from the Authorization header, the auth cookie or
// a ?token= query parameter; an invalid token closes the connection with no
// error frame.
func NotificationsWSEndpoint(c *gin.Context) {
	tokenStr := ""
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if tokenStr == "" {
		tokenStr, _ = c.Cookie("auth_token")
	}
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}

	userID, err := middleware.ParseToken(tokenStr)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}

	client := &Client{
		hub:    GlobalHub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
