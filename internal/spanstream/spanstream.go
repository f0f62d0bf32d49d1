// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package spanstream provides a live websocket tail of the spans an
// adapter appends, for the example collaborator dashboard described in
// the tracing design (§4.8): every completed invocation's span is pushed
// to connected clients as it is written, instead of requiring a poll of
// the span file.
package spanstream

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jontk/distsched/internal/span"
)

// Hub fans a sequence of spans out to any number of websocket clients.
// Adapters call Publish after each span.Writer.Append; Hub never reads the
// span file itself.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[chan span.Span]struct{}
}

// NewHub constructs an empty Hub, accepting connections from any origin
// (this endpoint is intended for trusted, same-host dashboards).
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[chan span.Span]struct{}),
	}
}

// Publish fans s out to every currently connected client. A slow client's
// buffered channel that is full is skipped rather than blocking the
// publisher; spanstream is best-effort, not a durable log.
func (h *Hub) Publish(s span.Span) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- s:
		default:
		}
	}
}

// HandleWebSocket upgrades r and streams spans to the connection until the
// client disconnects or the request context is canceled.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("spanstream: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := make(chan span.Span, 64)
	h.register(ch)
	defer h.unregister(ch)

	go h.readPump(ctx, conn, cancel)
	h.writePump(ctx, conn, ch)
}

func (h *Hub) register(ch chan span.Span) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[ch] = struct{}{}
}

func (h *Hub) unregister(ch chan span.Span) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
	close(ch)
}

// readPump discards client messages but detects disconnects, mirroring
// the teacher's incoming-message loop without the SLURM request schema
// this endpoint has no use for.
func (h *Hub) readPump(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("spanstream: websocket read error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(ctx context.Context, conn *websocket.Conn, ch chan span.Span) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(s); err != nil {
				log.Printf("spanstream: websocket write error: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("spanstream: websocket ping error: %v", err)
				return
			}
		}
	}
}
