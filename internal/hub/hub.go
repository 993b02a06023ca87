// ABOUTME: In-memory room fan-out between the publisher and push connections
// ABOUTME: Publishes frames to every subscriber of a room, dropping for slow readers

package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/status-gateway/internal/status"
)

// Room names.
const (
	RoomBroadcast     = "broadcast"
	RoomSystemUpdates = "system_updates"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Hub provides in-memory pub/sub of frames keyed by room name.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan status.Frame // room -> subID -> ch
	closed      bool
	logger      *slog.Logger
}

// New creates a hub. Pass nil logger for default.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]map[string]chan status.Frame),
		logger:      logger.With("component", "hub"),
	}
}

// Subscribe registers a subscriber on room. The returned channel is closed
// when ctx is cancelled, on Unsubscribe, or when the hub closes.
func (h *Hub) Subscribe(ctx context.Context, room string) (<-chan status.Frame, string) {
	subID := uuid.New().String()
	ch := make(chan status.Frame, subscriberBufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if _, ok := h.subscribers[room]; !ok {
		h.subscribers[room] = make(map[string]chan status.Frame)
	}
	h.subscribers[room][subID] = ch
	h.mu.Unlock()

	h.logger.Debug("subscriber added", "room", room, "sub_id", subID)

	go func() {
		<-ctx.Done()
		h.Unsubscribe(room, subID)
	}()

	return ch, subID
}

// Publish sends a frame to all subscribers of room and returns how many
// missed it because their buffer was full. It never blocks.
func (h *Hub) Publish(room string, frame status.Frame) (dropped int) {
	// Sends are non-blocking, so holding the read lock keeps Unsubscribe
	// from closing a channel mid-send.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subscribers[room] {
		select {
		case ch <- frame:
		default:
			dropped++
			h.logger.Debug("dropped frame for slow subscriber",
				"room", room,
				"sub_id", id,
				"type", frame.Type)
		}
	}
	return dropped
}

// Unsubscribe removes a subscription and closes its channel.
func (h *Hub) Unsubscribe(room, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[room]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)
	if len(subs) == 0 {
		delete(h.subscribers, room)
	}

	h.logger.Debug("subscriber removed", "room", room, "sub_id", subID)
}

// Count returns the number of subscribers on room.
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[room])
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room, subs := range h.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(h.subscribers, room)
	}
	h.closed = true

	h.logger.Debug("hub closed")
}
