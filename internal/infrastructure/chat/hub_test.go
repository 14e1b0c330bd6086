package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securetransact/escrow-api/internal/core/domain"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(r.Context(), w, r, strings.TrimPrefix(r.URL.Path, "/"))
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitSubscribers(t *testing.T, hub *Hub, txID string, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Subscribers(txID) == want }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_DeliversToTransactionSubscribers(t *testing.T) {
	hub, base := startHub(t)
	a := dial(t, base+"/t1")
	b := dial(t, base+"/t1")
	other := dial(t, base+"/t2")
	waitSubscribers(t, hub, "t1", 2)
	waitSubscribers(t, hub, "t2", 1)

	sent := domain.Message{ID: "m1", TransactionID: "t1", SenderID: "1", Message: "hello", Type: domain.MessageText}
	hub.Deliver(sent)

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got domain.Message
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "m1", got.ID)
		assert.Equal(t, "hello", got.Message)
	}

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "t2 subscriber must not receive t1 messages")
}

func TestHub_RemovesSubscriberOnDisconnect(t *testing.T) {
	hub, base := startHub(t)
	conn := dial(t, base+"/t1")
	waitSubscribers(t, hub, "t1", 1)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()
	waitSubscribers(t, hub, "t1", 0)
}

func TestHub_DeliverWithoutSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.Deliver(domain.Message{TransactionID: "nobody"})
	assert.Equal(t, 0, hub.Subscribers("nobody"))
}
