// ABOUTME: WebSocket push channel carrying JSON frames between gateway and dashboards
// ABOUTME: One reader loop and one writer goroutine per connection, frames drop when buffers fill

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/2389/status-gateway/internal/hub"
	"github.com/2389/status-gateway/internal/status"
)

const (
	// outboundBufferSize is the per-connection send queue.
	outboundBufferSize = 64
	// maxInboundBytes bounds a single client frame.
	maxInboundBytes = 64 << 10
	// writeTimeout bounds a single frame write.
	writeTimeout = 10 * time.Second
)

// pushConn is one connected push-channel client.
type pushConn struct {
	id     string
	ws     *websocket.Conn
	out    chan status.Frame
	ctx    context.Context
	cancel context.CancelFunc
	gw     *Gateway

	mu    sync.Mutex
	rooms map[string]bool
}

// send queues frame for the writer. Frames are dropped when the queue is full.
func (c *pushConn) send(frame status.Frame) bool {
	select {
	case c.out <- frame:
		return true
	case <-c.ctx.Done():
		return false
	default:
		c.gw.metrics.AddFramesDropped(1)
		c.gw.logger.Debug("dropped frame for slow connection", "conn_id", c.id, "type", frame.Type)
		return false
	}
}

// reply stamps payload and queues it for this connection only.
func (c *pushConn) reply(eventType string, payload any) {
	frame, err := c.gw.publisher.Stamp(eventType, payload)
	if err != nil {
		c.gw.logger.Error("failed to build reply", "type", eventType, "error", err)
		return
	}
	c.send(frame)
}

// replyError sends an error frame with message.
func (c *pushConn) replyError(message string) {
	c.reply(status.EventError, status.Notice{Message: message, Timestamp: c.gw.publisher.Now().UTC()})
}

// join subscribes the connection to room once. Frames published to the room
// are forwarded into the send queue until the connection or the hub closes.
func (c *pushConn) join(room string) bool {
	c.mu.Lock()
	if c.rooms[room] {
		c.mu.Unlock()
		return false
	}
	c.rooms[room] = true
	c.mu.Unlock()

	ch, _ := c.gw.hub.Subscribe(c.ctx, room)
	go func() {
		for frame := range ch {
			c.send(frame)
		}
		// The hub closed the room, either on shutdown or because the
		// connection context ended.
		c.cancel()
	}()
	return true
}

// writeLoop drains the send queue onto the socket.
func (c *pushConn) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame := <-c.out:
			ctx, cancel := context.WithTimeout(c.ctx, writeTimeout)
			err := wsjson.Write(ctx, c.ws, frame)
			cancel()
			if err != nil {
				c.gw.logger.Debug("push write failed", "conn_id", c.id, "error", err)
				c.cancel()
				return
			}
		}
	}
}

// handlePush handles GET /ws.
func (g *Gateway) handlePush(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		g.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer ws.CloseNow()
	ws.SetReadLimit(maxInboundBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &pushConn{
		id:     uuid.New().String(),
		ws:     ws,
		out:    make(chan status.Frame, outboundBufferSize),
		ctx:    ctx,
		cancel: cancel,
		gw:     g,
		rooms:  make(map[string]bool),
	}

	g.metrics.ConnectionOpened()
	defer g.metrics.ConnectionClosed()

	logger := g.logger.With("conn_id", c.id, "remote", r.RemoteAddr)
	logger.Info("push client connected")

	c.reply(status.EventConnectionStatus, status.ConnectionStatus{
		Status:        "connected",
		Message:       "Connected to status gateway",
		Timestamp:     g.publisher.Now().UTC(),
		SystemVersion: g.publisher.Version(),
	})
	c.join(hub.RoomBroadcast)

	go c.writeLoop()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			logReadEnd(logger, err)
			break
		}

		cmd, err := status.ParseCommand(data)
		if err != nil {
			g.metrics.IncInvalidFrames()
			logger.Warn("invalid frame from push client", "error", err)
			c.replyError("invalid frame")
			continue
		}
		g.dispatch(ctx, c, cmd)
	}

	cancel()
	_ = ws.Close(websocket.StatusGoingAway, "connection closed")
}

// logReadEnd records why a connection's reader loop stopped.
func logReadEnd(logger *slog.Logger, err error) {
	switch {
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
		logger.Info("push client disconnected")
	case errors.Is(err, context.Canceled):
		logger.Info("push connection closed by server")
	default:
		logger.Debug("push read ended", "error", err)
	}
}
