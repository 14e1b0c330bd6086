// Package chat pushes transaction chat messages to websocket subscribers.
package chat

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/securetransact/escrow-api/internal/api/metrics"
	"github.com/securetransact/escrow-api/internal/core/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxReadSize    = 512
	subscriberSend = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type subscriber struct {
	send chan domain.Message
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub keeps the live subscribers of every transaction, keyed by
// transaction id.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	log         zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
		log:         log,
	}
}

// Deliver pushes m to every subscriber of its transaction. A subscriber that
// cannot keep up is disconnected rather than blocking the others.
func (h *Hub) Deliver(m domain.Message) {
	h.mu.RLock()
	var slow []*subscriber
	for sub := range h.subscribers[m.TransactionID] {
		select {
		case sub.send <- m:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		h.log.Warn().Str("transaction_id", m.TransactionID).Msg("chat subscriber too slow, disconnecting")
		h.remove(m.TransactionID, sub)
	}
}

// Subscribers returns the number of live subscribers of a transaction.
func (h *Hub) Subscribers(transactionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[transactionID])
}

// Serve upgrades the request and streams the transaction's messages as JSON
// until the client goes away or ctx ends. Callers authorize the request
// before calling Serve.
func (h *Hub) Serve(ctx context.Context, w http.ResponseWriter, r *http.Request, transactionID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := h.add(transactionID)
	defer h.remove(transactionID, sub)

	h.log.Debug().Str("transaction_id", transactionID).Msg("chat subscriber connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go readPump(conn, cancel)

	writePump(ctx, conn, sub)
	return nil
}

func (h *Hub) add(transactionID string) *subscriber {
	sub := &subscriber{send: make(chan domain.Message, subscriberSend)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subscribers[transactionID] == nil {
		h.subscribers[transactionID] = make(map[*subscriber]struct{})
	}
	h.subscribers[transactionID][sub] = struct{}{}
	metrics.ChatSubscribers.Inc()
	return sub
}

func (h *Hub) remove(transactionID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subscribers[transactionID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, transactionID)
	}
	sub.close()
	metrics.ChatSubscribers.Dec()
}

// readPump drains client frames so that close and pong frames are processed.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxReadSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case m, ok := <-sub.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
