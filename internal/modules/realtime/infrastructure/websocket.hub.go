package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"lostFoundWs/internal/modules/realtime/domain"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrConnectionClosed   = errors.New("connection closed")
	ErrSendBufferFull     = errors.New("send buffer full")
	ErrHubClosed          = errors.New("hub closed")
)

// ConnectionTracker is told about every attach and detach. *ConnectionRegistry
// satisfies it.
type ConnectionTracker interface {
	Register(userID int64, connectionID string)
	Unregister(userID int64, connectionID string)
}

// Hub owns the live socket clients of this instance, keyed by connection id, and is
// the push transport the dispatcher sends through.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
	tracker ConnectionTracker
	logger  *slog.Logger
}

func NewHub(tracker ConnectionTracker, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]*Client),
		tracker: tracker,
		logger:  logger.With(slog.String("component", "ws-hub")),
	}
}

// Attach registers the client under its user and then makes it reachable. The
// registration is undone by the client's close hook, whichever way it closes. A
// client that closed meanwhile, or a hub that is shutting down, is rejected and
// left unregistered.
func (h *Hub) Attach(c *Client) error {
	if c == nil {
		return ErrConnectionClosed
	}
	h.mu.RLock()
	existing, ok := h.clients[c.id]
	h.mu.RUnlock()
	if ok && existing != c {
		h.detachClient(existing)
	}

	if h.tracker != nil {
		c.AddCloseHook(func(closed *Client) {
			h.tracker.Unregister(closed.userID, closed.id)
		})
		h.tracker.Register(c.userID, c.id)
	}

	h.mu.Lock()
	var err error
	switch {
	case h.closed:
		err = ErrHubClosed
	case c.isClosed():
		err = ErrConnectionClosed
	default:
		h.clients[c.id] = c
	}
	h.mu.Unlock()
	if err != nil {
		if h.tracker != nil {
			h.tracker.Unregister(c.userID, c.id)
		}
		return err
	}
	h.logger.Info("ws client attached", slog.Int64("userId", c.userID), slog.String("connectionId", c.id))
	return nil
}

func (h *Hub) detachClient(c *Client) {
	if c == nil {
		return
	}
	h.mu.Lock()
	if current, ok := h.clients[c.id]; ok && current == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	if c.close() {
		h.logger.Info("ws client detached", slog.Int64("userId", c.userID), slog.String("connectionId", c.id))
	}
}

// Send encodes event and payload as a frame and queues it on the connection without
// blocking. A connection whose queue is full is dropped as a slow consumer.
func (h *Hub) Send(_ context.Context, connectionID string, event domain.Event, payload any) error {
	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
	}
	record, err := encodeRecord(domain.NewFrame(event, payload))
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", event, err)
	}
	return c.enqueue(record)
}

// ConnectionCount is the number of attached clients.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close detaches every client, sending each a hub close record and a going-away
// close frame. Later attaches are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for id, c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.sendClose("server shutting down")
		c.close()
	}
	h.logger.Info("ws hub closed", slog.Int("clients", len(clients)))
}
