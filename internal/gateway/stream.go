// ABOUTME: Server-sent events fallback for clients that cannot open a WebSocket
// ABOUTME: Streams the broadcast room as event/data records until the client leaves

package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/2389/status-gateway/internal/hub"
	"github.com/2389/status-gateway/internal/status"
)

// handleStream handles GET /api/stream.
func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		g.sendJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ctx := r.Context()
	frames, subID := g.hub.Subscribe(ctx, hub.RoomBroadcast)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	g.metrics.ConnectionOpened()
	defer g.metrics.ConnectionClosed()
	g.logger.Info("stream client connected", "subscription", subID, "remote", r.RemoteAddr)

	hello, err := g.publisher.Stamp(status.EventConnectionStatus, status.ConnectionStatus{
		Status:        "connected",
		Message:       "Connected to status gateway",
		Timestamp:     g.publisher.Now().UTC(),
		SystemVersion: g.publisher.Version(),
	})
	if err == nil {
		g.writeSSEEvent(w, hello.Type, hello)
		flusher.Flush()
	}

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("stream client disconnected", "subscription", subID)
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			g.writeSSEEvent(w, frame.Type, frame)
			flusher.Flush()
		}
	}
}

// writeSSEEvent writes one server-sent event record.
func (g *Gateway) writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		g.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}
