// Package ws streams moderation events to connected reviewers over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/metrics"
	"github.com/mediate-project/mediate/internal/models"
)

var _ domain.EventPublisher = (*Hub)(nil)

// Hub channel buffer sizes and connection limits.
const (
	broadcastBuffer = 256
	registerBuffer  = 64

	maxClients        = 1000
	maxClientsPerUser = 20
)

// outbound is a serialized event and the entity type it concerns.
type outbound struct {
	msg        []byte
	entityType string
}

// Hub manages active WebSocket clients and broadcasts messages.
// All client map mutations happen exclusively in the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	userCount  map[string]int
	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound
	done       chan struct{} // closed when Run has finished draining
	count      atomic.Int64
	log        *logrus.Logger
	seq        *EventSequence
	buffer     *EventBuffer
}

// NewHub creates a new Hub instance.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		userCount:  make(map[string]int),
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan outbound, broadcastBuffer),
		done:       make(chan struct{}),
		log:        log,
		seq:        NewEventSequence(),
		buffer:     NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
	}
}

// drainTimeout is how long the hub waits for clients to flush after shutdown.
const drainTimeout = 3 * time.Second

// Run is the hub event loop. When ctx is cancelled it tells every client the
// server is going away, waits briefly for their buffers to flush and returns.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.drainClients()

			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
			}
			h.updateCount()
			h.log.WithField("total", len(h.clients)).Info("client unregistered")

		case out := <-h.broadcast:
			for client := range h.clients {
				if !client.follows(out.entityType) {
					continue
				}

				if !client.offer(out.msg) {
					h.log.WithField("user_id", client.UserID).Warn("dropping slow websocket client")
					h.remove(client)
				}
			}
			h.updateCount()
		}
	}
}

func (h *Hub) add(client *Client) {
	if len(h.clients) >= maxClients {
		h.log.Warn("global connection limit reached, dropping client")
		client.closeSend()

		return
	}

	if h.userCount[client.UserID] >= maxClientsPerUser {
		h.log.WithField("user_id", client.UserID).Warn("per-user connection limit reached, dropping client")
		client.closeSend()

		return
	}

	h.clients[client] = true
	h.userCount[client.UserID]++
	h.updateCount()
	h.log.WithField("total", len(h.clients)).Info("client registered")
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	client.closeSend()

	h.userCount[client.UserID]--
	if h.userCount[client.UserID] <= 0 {
		delete(h.userCount, client.UserID)
	}
}

func (h *Hub) updateCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.WSConnections.Set(float64(len(h.clients)))
}

// maxBroadcastPayload is the maximum allowed message size (8 KB).
const maxBroadcastPayload = 8192

// enqueue hands a message to the Run goroutine. Oversized messages are
// dropped with a warning.
func (h *Hub) enqueue(out outbound) {
	if len(out.msg) > maxBroadcastPayload {
		h.log.WithFields(logrus.Fields{
			"payload_size": len(out.msg),
			"max_size":     maxBroadcastPayload,
		}).Warn("dropping oversized broadcast payload")

		return
	}

	select {
	case h.broadcast <- out:
	default:
		h.log.Warn("broadcast channel full, dropping message")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	default:
		// Run loop already exited; client cleanup happened in Run shutdown.
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// BroadcastEvent assigns a sequence ID, stores the event for replay and
// sends it to every client following the record's entity type.
func (h *Hub) BroadcastEvent(eventType string, data json.RawMessage) {
	evt := Event{
		Type:       eventType,
		ID:         h.seq.Next(),
		EntityType: entityTypeOf(data),
		Data:       data,
		Time:       time.Now(),
	}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal event")

		return
	}

	h.buffer.Append(&evt)
	h.enqueue(outbound{msg: msg, entityType: evt.EntityType})
}

// Publish forwards a moderation event to connected clients. The record is
// sent without its payload.
func (h *Hub) Publish(_ context.Context, evt models.ModerationEvent) {
	if evt.Record == nil {
		return
	}

	data, err := json.Marshal(evt.Record.Summary())
	if err != nil {
		h.log.WithError(err).Error("failed to marshal moderation record")

		return
	}

	h.BroadcastEvent(evt.Type, data)
}

// drainClients sends a close frame to every client and waits for buffers to flush.
func (h *Hub) drainClients() {
	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining WebSocket clients")

	shutdownMsg := []byte(`{"type":"shutdown","message":"server shutting down"}`)
	for client := range h.clients {
		client.offer(shutdownMsg)
	}

	deadline := time.After(drainTimeout)
	ticker := time.NewTicker(50 * time.Millisecond) //nolint:mnd // poll interval
	defer ticker.Stop()

	for !h.flushed() {
		select {
		case <-deadline:
			h.log.Warn("WebSocket drain timeout, closing remaining clients")
			h.closeAll()

			return
		case <-ticker.C:
		}
	}

	h.closeAll()
}

func (h *Hub) flushed() bool {
	for client := range h.clients {
		if len(client.send) > 0 {
			return false
		}
	}

	return true
}

func (h *Hub) closeAll() {
	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}

	h.userCount = make(map[string]int)
	h.count.Store(0)
	metrics.WSConnections.Set(0)
}

// ReplayEvents sends the buffered events after lastEventID that the client
// follows. It returns false when events after lastEventID have already been
// evicted. A zero lastEventID replays the whole buffer.
func (h *Hub) ReplayEvents(client *Client, lastEventID uint64) bool {
	if oldest := h.buffer.OldestID(); oldest > 0 && lastEventID > 0 && lastEventID+1 < oldest {
		return false
	}

	for _, evt := range h.buffer.Since(lastEventID) {
		if !client.follows(evt.EntityType) {
			continue
		}

		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}

		if !client.offer(msg) {
			break
		}
	}

	return true
}
