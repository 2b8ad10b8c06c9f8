package handlers

import (
	"context"
	"net/http"
	"time"

	"spin-rewards-backend/internal/models"
	"spin-rewards-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	MessageAccountUpdate = "ACCOUNT_UPDATE"
	MessagePing          = "PING"
	MessagePong          = "PONG"

	clientSendBuffer = 16
	writeWait        = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	rewards *services.RewardService
	hub     *WebSocketHub
}

// WebSocketHub tracks live connections per user and fans account updates
// out to them. All map access happens on the run goroutine.
type WebSocketHub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	direct     chan directMessage
	done       chan struct{}
}

type directMessage struct {
	client *Client
	msg    *Message
}

type Client struct {
	UserID string
	Conn   *websocket.Conn
	send   chan *Message
}

type Message struct {
	Type   string      `json:"type"`
	UserID string      `json:"user_id,omitempty"`
	Data   interface{} `json:"data"`
}

func NewWebSocketHandler(ctx context.Context, rewards *services.RewardService) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		direct:     make(chan directMessage),
		done:       make(chan struct{}),
	}

	go hub.run(ctx)

	return &WebSocketHandler{
		rewards: rewards,
		hub:     hub,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade to WebSocket")
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
		send:   make(chan *Message, clientSendBuffer),
	}

	select {
	case h.hub.register <- client:
	case <-h.hub.done:
		conn.Close()
		return
	}
	go client.writePump()

	defer func() {
		select {
		case h.hub.unregister <- client:
		case <-h.hub.done:
		}
		conn.Close()
	}()

	h.sendAccount(c.Request.Context(), client)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("user_id", userID).Warn("WebSocket error")
			}
			break
		}

		if msg.Type == MessagePing {
			h.hub.sendTo(client, &Message{
				Type: MessagePong,
				Data: gin.H{"timestamp": time.Now().Unix()},
			})
		}
	}
}

// BroadcastAccountUpdate pushes the snapshot to every connection of the
// user. It never blocks; updates are dropped when the hub is backed up.
func (h *WebSocketHandler) BroadcastAccountUpdate(userID string, snapshot models.AccountSnapshot) {
	msg := &Message{
		Type:   MessageAccountUpdate,
		UserID: userID,
		Data:   snapshot,
	}

	select {
	case h.hub.broadcast <- msg:
	default:
		log.WithField("user_id", userID).Warn("WebSocket broadcast queue full, dropping update")
	}
}

func (h *WebSocketHandler) sendAccount(ctx context.Context, client *Client) {
	account, err := h.rewards.Account(ctx, client.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", client.UserID).Error("Failed to load account for WS")
		return
	}

	h.hub.sendTo(client, &Message{
		Type:   MessageAccountUpdate,
		UserID: client.UserID,
		Data:   h.rewards.Snapshot(account),
	})
}

// sendTo hands a reply for one connection to the run goroutine, the only
// writer of client.send. It is a no-op once the hub has stopped.
func (hub *WebSocketHub) sendTo(client *Client, msg *Message) {
	select {
	case hub.direct <- directMessage{client: client, msg: msg}:
	case <-hub.done:
	}
}

func (c *Client) writePump() {
	for msg := range c.send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteJSON(msg); err != nil {
			log.WithError(err).WithField("user_id", c.UserID).Debug("WebSocket write failed")
			c.Conn.Close()
			return
		}
	}
	c.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}

func (hub *WebSocketHub) run(ctx context.Context) {
	defer close(hub.done)

	for {
		select {
		case <-ctx.Done():
			for _, clients := range hub.clients {
				for client := range clients {
					close(client.send)
				}
			}
			hub.clients = make(map[string]map[*Client]struct{})
			return

		case client := <-hub.register:
			if hub.clients[client.UserID] == nil {
				hub.clients[client.UserID] = make(map[*Client]struct{})
			}
			hub.clients[client.UserID][client] = struct{}{}
			log.WithField("user_id", client.UserID).Debug("Client registered")

		case client := <-hub.unregister:
			if clients, ok := hub.clients[client.UserID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
				}
				if len(clients) == 0 {
					delete(hub.clients, client.UserID)
				}
				log.WithField("user_id", client.UserID).Debug("Client unregistered")
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)

		case d := <-hub.direct:
			if _, ok := hub.clients[d.client.UserID][d.client]; !ok {
				continue
			}
			select {
			case d.client.send <- d.msg:
			default:
				log.WithField("user_id", d.client.UserID).Warn("WebSocket client too slow, dropping reply")
			}
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	for client := range hub.clients[message.UserID] {
		select {
		case client.send <- message:
		default:
			log.WithField("user_id", client.UserID).Warn("WebSocket client too slow, dropping update")
		}
	}
}
