package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/iamasit07/glicko2-ratings/internal/domain"
	"github.com/iamasit07/glicko2-ratings/pkg/uid"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Handler upgrades rating subscribers to websocket connections
type Handler struct {
	ConnManager *ConnectionManager
	Upgrader    websocket.Upgrader
}

// NewHandler accepts origins from allowedOrigins; an empty list allows any
func NewHandler(cm *ConnectionManager, allowedOrigins []string) *Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return &Handler{
		ConnManager: cm,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	h.ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	h.handleConnection(conn)
}

// handleConnection manages the lifecycle of a single subscriber
func (h *Handler) handleConnection(conn *websocket.Conn) {
	subscriberID, err := uid.GenerateSubscriberID()
	if err != nil {
		log.Printf("[WS] %v", err)
		conn.Close()
		return
	}

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	h.ConnManager.AddConnection(subscriberID, conn)
	log.Printf("[WS] Subscriber %s connected", subscriberID)

	done := make(chan struct{})
	defer func() {
		close(done)
		h.ConnManager.RemoveConnection(subscriberID)
		log.Printf("[WS] Subscriber %s disconnected", subscriberID)
	}()

	go keepAlive(conn, done)

	h.ConnManager.SendMessage(subscriberID, domain.ServerMessage{
		Type:    domain.MessageWelcome,
		Message: subscriberID,
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Subscriber %s disconnected unexpectedly: %v", subscriberID, err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg domain.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[WS] Invalid message format: %v", err)
			continue
		}
		h.processMessage(subscriberID, msg)
	}
}

func (h *Handler) processMessage(subscriberID string, msg domain.ClientMessage) {
	switch msg.Type {
	case "subscribe":
		h.ConnManager.Subscribe(subscriberID, msg.PlayerIDs)
		h.ConnManager.SendMessage(subscriberID, domain.ServerMessage{Type: domain.MessageSubscribed})
	case "ping":
	default:
		h.ConnManager.SendMessage(subscriberID, domain.ServerMessage{Type: domain.MessageError, Message: "Unknown message type"})
	}
}

// keepAlive pings until done; WriteControl may run alongside WriteJSON
func keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
