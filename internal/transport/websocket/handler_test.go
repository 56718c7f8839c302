package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iamasit07/glicko2-ratings/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, h *Handler) (*websocket.Conn, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	welcome := read(t, conn)
	require.Equal(t, domain.MessageWelcome, welcome.Type)
	require.NotEmpty(t, welcome.Message)
	return conn, welcome.Message
}

func read(t *testing.T, conn *websocket.Conn) domain.ServerMessage {
	t.Helper()
	var msg domain.ServerMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// serverConn returns the server side of a fresh websocket connection
func serverConn(t *testing.T) *websocket.Conn {
	t.Helper()
	upgraded := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		upgraded <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return <-upgraded
}

func TestBroadcastReachesSubscriber(t *testing.T) {
	cm := NewConnectionManager()
	conn, _ := dial(t, NewHandler(cm, nil))
	assert.Equal(t, 1, cm.Count())

	cm.BroadcastMessage(domain.ServerMessage{Type: domain.MessagePeriodClosed, PeriodID: 3})

	msg := read(t, conn)
	assert.Equal(t, domain.MessagePeriodClosed, msg.Type)
	assert.Equal(t, int64(3), msg.PeriodID)
}

func TestSubscribeFiltersPlayerEvents(t *testing.T) {
	cm := NewConnectionManager()
	conn, _ := dial(t, NewHandler(cm, nil))

	require.NoError(t, conn.WriteJSON(domain.ClientMessage{Type: "subscribe", PlayerIDs: []int64{1}}))
	assert.Equal(t, domain.MessageSubscribed, read(t, conn).Type)

	cm.BroadcastMessage(domain.ServerMessage{Type: domain.MessageRatingUpdate, Player: &domain.PlayerRating{ID: 5}})
	cm.BroadcastMessage(domain.ServerMessage{Type: domain.MessageRatingUpdate, Player: &domain.PlayerRating{ID: 1}})

	msg := read(t, conn)
	require.NotNil(t, msg.Player)
	assert.Equal(t, int64(1), msg.Player.ID)
}

func TestUnknownMessageType(t *testing.T) {
	cm := NewConnectionManager()
	conn, _ := dial(t, NewHandler(cm, nil))

	require.NoError(t, conn.WriteJSON(domain.ClientMessage{Type: "dance"}))
	msg := read(t, conn)
	assert.Equal(t, domain.MessageError, msg.Type)
}

func TestDisconnectRemovesSubscriber(t *testing.T) {
	cm := NewConnectionManager()
	conn, _ := dial(t, NewHandler(cm, nil))
	require.Equal(t, 1, cm.Count())

	conn.Close()
	assert.Eventually(t, func() bool { return cm.Count() == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestRejectsUnknownOrigin(t *testing.T) {
	srv := httptest.NewServer(NewHandler(NewConnectionManager(), []string{"http://localhost:5173"}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := map[string][]string{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestBroadcastKeepsOrder(t *testing.T) {
	cm := NewConnectionManager()
	conn, _ := dial(t, NewHandler(cm, nil))

	const updates = 200
	for i := 1; i <= updates; i++ {
		cm.BroadcastMessage(domain.ServerMessage{Type: domain.MessageRatingUpdate, Player: &domain.PlayerRating{ID: int64(i)}})
	}
	cm.BroadcastMessage(domain.ServerMessage{Type: domain.MessagePeriodClosed, PeriodID: 1})

	for i := 1; i <= updates; i++ {
		msg := read(t, conn)
		require.Equal(t, domain.MessageRatingUpdate, msg.Type, "message %d", i)
		require.NotNil(t, msg.Player)
		require.Equal(t, int64(i), msg.Player.ID)
	}
	assert.Equal(t, domain.MessagePeriodClosed, read(t, conn).Type)
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	// no writer drains this queue
	cm := NewConnectionManager()
	cm.subscribers["slow"] = &subscriber{id: "slow", conn: serverConn(t), send: make(chan domain.ServerMessage, 1)}

	cm.BroadcastMessage(domain.ServerMessage{Type: domain.MessagePeriodClosed, PeriodID: 1})
	assert.Equal(t, 1, cm.Count())

	cm.BroadcastMessage(domain.ServerMessage{Type: domain.MessagePeriodClosed, PeriodID: 2})
	assert.Equal(t, 0, cm.Count())

	assert.NoError(t, cm.SendMessage("slow", domain.ServerMessage{Type: domain.MessageWelcome}))
}

func TestSendMessageReportsFullQueue(t *testing.T) {
	cm := NewConnectionManager()
	cm.subscribers["slow"] = &subscriber{id: "slow", conn: serverConn(t), send: make(chan domain.ServerMessage)}

	err := cm.SendMessage("slow", domain.ServerMessage{Type: domain.MessageWelcome, Message: "slow"})
	assert.ErrorIs(t, err, ErrSubscriberTooSlow)
	assert.Equal(t, 0, cm.Count())
}

func TestWants(t *testing.T) {
	filter := map[int64]struct{}{2: {}}

	assert.True(t, wants(nil, domain.ServerMessage{Player: &domain.PlayerRating{ID: 9}}))
	assert.True(t, wants(filter, domain.ServerMessage{Type: domain.MessagePeriodClosed}))
	assert.True(t, wants(filter, domain.ServerMessage{Game: &domain.Game{PlayerID: 1, OpponentID: 2}}))
	assert.False(t, wants(filter, domain.ServerMessage{Game: &domain.Game{PlayerID: 1, OpponentID: 3}}))
	assert.False(t, wants(filter, domain.ServerMessage{Player: &domain.PlayerRating{ID: 1}}))
}
