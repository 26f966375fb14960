// Package notifications fans comment events out to connected websocket viewers.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"commentboard/internal/observability"
)

// DefaultMaxConnections caps concurrent viewers when no limit is configured.
const DefaultMaxConnections = 1000

var (
	// ErrHubClosed is returned once Shutdown has run.
	ErrHubClosed = errors.New("comment hub is shut down")
	// ErrConnectionLimit is returned when the hub is full.
	ErrConnectionLimit = errors.New("server connection limit reached")
	// ErrNotRegistered is returned for clients the hub does not know.
	ErrNotRegistered = errors.New("client is not registered")
)

// CommentHub is the process-wide broadcaster for comment events. It is
// created at start-up, injected where needed and shut down on exit.
//
// Publish enqueues into every subscriber's FIFO buffer while holding the
// write lock, so all subscribers observe events in the same relative order.
// Delivery is best-effort and at-most-once with no replay.
type CommentHub struct {
	mu       sync.Mutex
	clients  map[*Client]struct{}
	rooms    map[string]map[*Client]struct{}
	maxConns int
	closed   bool
	log      *observability.WSLogger
}

// NewCommentHub creates a hub that accepts up to maxConns connections.
func NewCommentHub(maxConns int) *CommentHub {
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	h := &CommentHub{
		clients:  make(map[*Client]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
		maxConns: maxConns,
		log:      observability.NewWSLogger("comment hub"),
	}
	h.log.LogLifecycle(context.Background(), "started", map[string]interface{}{"max_connections": maxConns})
	return h
}

// Name returns a human-readable identifier for this hub.
func (h *CommentHub) Name() string { return "comment hub" }

// Register admits a connection. conn may be nil in tests.
func (h *CommentHub) Register(conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if len(h.clients) >= h.maxConns {
		return nil, ErrConnectionLimit
	}

	client := NewClient(h, conn, uuid.NewString())
	client.IncomingHandler = h.HandleIncoming
	h.clients[client] = struct{}{}
	observability.WebSocketConnections.Inc()
	h.log.LogConnect(context.Background(), client.ID, "")
	return client, nil
}

// UnregisterClient drops the client from every room and closes its send
// buffer. Safe to call more than once.
func (h *CommentHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client, "client disconnected")
}

func (h *CommentHub) removeLocked(client *Client, reason string) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	for room, members := range h.rooms {
		if _, ok := members[client]; ok {
			delete(members, client)
			observability.WebSocketRoomSubscribers.WithLabelValues(room).Dec()
		}
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.clients, client)
	client.closeReason = reason
	close(client.Send)
	observability.WebSocketConnections.Dec()
	h.log.LogDisconnect(context.Background(), client.ID, RoomComments, reason)
}

// Subscribe adds the client to the comments room. Joining twice is a no-op.
func (h *CommentHub) Subscribe(client *Client) error {
	return h.join(client, RoomComments)
}

// Unsubscribe removes the client from the comments room.
func (h *CommentHub) Unsubscribe(client *Client) {
	h.leave(client, RoomComments)
}

func (h *CommentHub) join(client *Client, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if _, ok := h.clients[client]; !ok {
		return ErrNotRegistered
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	if _, already := members[client]; !already {
		members[client] = struct{}{}
		observability.WebSocketRoomSubscribers.WithLabelValues(room).Inc()
	}
	return nil
}

func (h *CommentHub) leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	if _, ok := members[client]; ok {
		delete(members, client)
		observability.WebSocketRoomSubscribers.WithLabelValues(room).Dec()
	}
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Publish sends event to every subscriber of the comments room.
func (h *CommentHub) Publish(event Event) error {
	data, err := event.Encode()
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	for client := range h.rooms[RoomComments] {
		client.TrySend(data)
	}
	observability.BroadcastEventsTotal.WithLabelValues(event.Type).Inc()
	return nil
}

// HandleIncoming reacts to a viewer's control message.
func (h *CommentHub) HandleIncoming(client *Client, raw []byte) {
	switch msgType := parseIncoming(raw); msgType {
	case MsgJoinComments:
		if err := h.Subscribe(client); err != nil {
			h.reply(client, Event{Type: EventError, Payload: map[string]string{"message": err.Error()}})
			return
		}
		h.reply(client, Event{Type: EventJoined, Payload: map[string]string{"room": RoomComments}})
	case MsgLeaveComments:
		h.Unsubscribe(client)
		h.reply(client, Event{Type: EventLeft, Payload: map[string]string{"room": RoomComments}})
	case MsgPing:
		h.reply(client, Event{Type: "pong", Payload: nil})
	default:
		h.reply(client, Event{Type: EventError, Payload: map[string]string{"message": "unknown message type: " + msgType}})
	}
}

// reply sends a message to one client, serialized with Publish.
func (h *CommentHub) reply(client *Client, event Event) {
	data, err := event.Encode()
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		client.TrySend(data)
	}
}

// IsSubscribed reports whether client is in the comments room.
func (h *CommentHub) IsSubscribed(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rooms[RoomComments][client]
	return ok
}

// SubscriberCount returns the number of viewers in the comments room.
func (h *CommentHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[RoomComments])
}

// ConnectionCount returns the number of registered connections.
func (h *CommentHub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown closes every client's send buffer, which makes its WritePump send
// a going-away close frame. Further Register and Publish calls fail.
func (h *CommentHub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	count := len(h.clients)
	for client := range h.clients {
		h.removeLocked(client, "server shutting down")
	}
	h.log.LogLifecycle(ctx, "shutdown", map[string]interface{}{"closed_connections": count})
	return nil
}
