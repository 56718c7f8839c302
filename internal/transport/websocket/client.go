package websocket

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iamasit07/glicko2-ratings/internal/domain"
)

const (
	writeWait = 10 * time.Second

	// sendBuffer is how many events a subscriber may lag behind before it is dropped
	sendBuffer = 1024
)

var ErrSubscriberTooSlow = errors.New("subscriber send buffer full")

// subscriber owns one connection. Only its writer goroutine writes data frames.
type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan domain.ServerMessage

	// player filter; nil means every player
	filter map[int64]struct{}
}

// ConnectionManager tracks rating subscribers and fans events out to them.
// Events reach each subscriber in the order they were broadcast.
type ConnectionManager struct {
	subscribers map[string]*subscriber
	mu          sync.RWMutex // protects subscribers and their filters
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		subscribers: make(map[string]*subscriber),
	}
}

// AddConnection registers conn and starts its writer
func (cm *ConnectionManager) AddConnection(subscriberID string, conn *websocket.Conn) {
	sub := &subscriber{
		id:   subscriberID,
		conn: conn,
		send: make(chan domain.ServerMessage, sendBuffer),
	}

	cm.mu.Lock()
	if old, exists := cm.subscribers[subscriberID]; exists {
		cm.detach(old)
	}
	cm.subscribers[subscriberID] = sub
	cm.mu.Unlock()

	go cm.writeLoop(sub)
}

// RemoveConnection closes and forgets a subscriber
func (cm *ConnectionManager) RemoveConnection(subscriberID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if sub, exists := cm.subscribers[subscriberID]; exists {
		cm.detach(sub)
	}
}

// drop removes sub only if it is still the registered connection for its ID
func (cm *ConnectionManager) drop(sub *subscriber) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.subscribers[sub.id] == sub {
		cm.detach(sub)
	}
}

// detach must be called with cm.mu held
func (cm *ConnectionManager) detach(sub *subscriber) {
	delete(cm.subscribers, sub.id)
	close(sub.send)
	sub.conn.Close()
}

func (cm *ConnectionManager) writeLoop(sub *subscriber) {
	for msg := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteJSON(msg); err != nil {
			log.Printf("[WS] Dropping subscriber %s: %v", sub.id, err)
			cm.drop(sub)
			return
		}
	}
}

// Subscribe narrows player events for a subscriber. No IDs clears the filter.
func (cm *ConnectionManager) Subscribe(subscriberID string, playerIDs []int64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	sub, exists := cm.subscribers[subscriberID]
	if !exists {
		return
	}
	if len(playerIDs) == 0 {
		sub.filter = nil
		return
	}
	filter := make(map[int64]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		filter[id] = struct{}{}
	}
	sub.filter = filter
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.subscribers)
}

// SendMessage queues a message for one subscriber. A subscriber whose queue
// is full is disconnected.
func (cm *ConnectionManager) SendMessage(subscriberID string, message domain.ServerMessage) error {
	cm.mu.RLock()
	sub, exists := cm.subscribers[subscriberID]
	if !exists {
		cm.mu.RUnlock()
		return nil // already disconnected
	}
	queued := enqueue(sub, message)
	cm.mu.RUnlock()

	if !queued {
		log.Printf("[WS] Dropping subscriber %s: %v", subscriberID, ErrSubscriberTooSlow)
		cm.drop(sub)
		return ErrSubscriberTooSlow
	}
	return nil
}

// BroadcastMessage queues a message for every subscriber interested in it
func (cm *ConnectionManager) BroadcastMessage(message domain.ServerMessage) {
	var slow []*subscriber

	cm.mu.RLock()
	for _, sub := range cm.subscribers {
		if !wants(sub.filter, message) {
			continue
		}
		if !enqueue(sub, message) {
			slow = append(slow, sub)
		}
	}
	cm.mu.RUnlock()

	for _, sub := range slow {
		log.Printf("[WS] Dropping subscriber %s: %v", sub.id, ErrSubscriberTooSlow)
		cm.drop(sub)
	}
}

// enqueue must be called with cm.mu held so send is not closed underneath it
func enqueue(sub *subscriber, message domain.ServerMessage) bool {
	select {
	case sub.send <- message:
		return true
	default:
		return false
	}
}

func wants(filter map[int64]struct{}, message domain.ServerMessage) bool {
	if filter == nil {
		return true
	}
	if message.Player != nil {
		_, ok := filter[message.Player.ID]
		return ok
	}
	if message.Game != nil {
		_, a := filter[message.Game.PlayerID]
		_, b := filter[message.Game.OpponentID]
		return a || b
	}
	return true
}
