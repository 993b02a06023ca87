// ABOUTME: Push-channel subscriber with a bounded fixed-interval reconnection loop
// ABOUTME: Holds the latest system snapshot and an LRU board of agent records

package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/2389/status-gateway/internal/status"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultReconnectInterval    = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultBoardSize            = 256

	maxFrameBytes = 1 << 20
)

var (
	// ErrReconnectsExhausted is returned by Run once the attempt budget is spent.
	ErrReconnectsExhausted = errors.New("reconnect attempts exhausted")
	// ErrNotConnected is returned by Send while no channel is open.
	ErrNotConnected = errors.New("not connected")
)

// Options configures a Client.
type Options struct {
	// URL is the push endpoint, e.g. ws://host:8080/ws.
	URL string
	// Token is sent as a bearer token when set.
	Token string

	ReconnectInterval    time.Duration
	MaxReconnectAttempts int
	// SubscribeUpdates also joins the system_updates room on every open.
	SubscribeUpdates bool
	// BoardSize bounds the agent board.
	BoardSize int

	// OnFrame is called for every parsed frame, outside the client lock.
	OnFrame func(status.Frame)
	// OnStateChange is called on every phase transition.
	OnStateChange func(ConnectionState)

	Logger *slog.Logger
}

// Client is one push-channel subscription.
type Client struct {
	opts   Options
	logger *slog.Logger
	board  *lru.Cache[string, status.AgentStatus]

	mu          sync.Mutex
	state       ConnectionState
	conn        *websocket.Conn
	system      *status.SystemStatus
	snapshotSeq uint64

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a client. Nothing is dialed until Run.
func New(opts Options) *Client {
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.BoardSize <= 0 {
		opts.BoardSize = DefaultBoardSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// lru.New only fails for a non-positive size.
	board, _ := lru.New[string, status.AgentStatus](opts.BoardSize)

	return &Client{
		opts:   opts,
		logger: logger.With("component", "subscriber", "url", opts.URL),
		board:  board,
		state:  ConnectionState{Phase: PhaseClosed},
		done:   make(chan struct{}),
	}
}

// Run connects and keeps reconnecting until ctx is canceled, Disconnect is
// called or the attempt budget is spent. The first two return nil.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		c.setPhase(PhaseConnecting)
		err := c.session(ctx)

		if ctx.Err() != nil || c.stopped() {
			c.setPhase(PhaseClosed)
			c.logger.Info("subscriber stopped")
			return nil
		}

		attempt, ok := c.nextAttempt()
		if !ok {
			c.logger.Warn("giving up after reconnect attempts", "max", c.opts.MaxReconnectAttempts, "error", err)
			return ErrReconnectsExhausted
		}
		c.logger.Info("push channel closed, reconnecting",
			"attempt", attempt,
			"max", c.opts.MaxReconnectAttempts,
			"in", c.opts.ReconnectInterval,
			"error", err,
		)

		timer := time.NewTimer(c.opts.ReconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.setPhase(PhaseClosed)
			return nil
		case <-timer.C:
		}
	}
}

func (c *Client) stopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// nextAttempt records a close. It reports false once the budget is spent.
func (c *Client) nextAttempt() (int, bool) {
	c.mu.Lock()
	c.state.IsConnected = false
	c.state.Phase = PhaseClosed
	ok := c.state.ReconnectAttempts < c.opts.MaxReconnectAttempts
	if ok {
		c.state.ReconnectAttempts++
	}
	attempt := c.state.ReconnectAttempts
	snap := c.state.clone()
	c.mu.Unlock()

	c.notify(snap)
	return attempt, ok
}

// session dials once and reads until the channel closes.
func (c *Client) session(ctx context.Context) error {
	var header http.Header
	if c.opts.Token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + c.opts.Token}}
	}

	conn, _, err := websocket.Dial(ctx, c.opts.URL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("dialing push channel: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxFrameBytes)

	c.opened(conn)
	defer c.clearConn()

	if err := c.Send(ctx, status.Command{Type: status.CmdRequestStatusUpdate}); err != nil {
		return err
	}
	if c.opts.SubscribeUpdates {
		if err := c.Send(ctx, status.Command{Type: status.CmdSubscribeUpdates}); err != nil {
			return err
		}
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		c.handleFrame(data)
	}
}

func (c *Client) opened(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.state.IsConnected = true
	c.state.ReconnectAttempts = 0
	c.state.Phase = PhaseOpen
	c.snapshotSeq = 0
	snap := c.state.clone()
	c.mu.Unlock()

	c.logger.Info("push channel open")
	c.notify(snap)
}

func (c *Client) clearConn() {
	c.mu.Lock()
	c.conn = nil
	c.state.IsConnected = false
	c.mu.Unlock()
}

func (c *Client) setPhase(p Phase) {
	c.mu.Lock()
	c.state.Phase = p
	if p != PhaseOpen {
		c.state.IsConnected = false
	}
	snap := c.state.clone()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Client) notify(s ConnectionState) {
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}

// handleFrame applies one inbound frame. Unparseable frames are logged and dropped.
func (c *Client) handleFrame(data []byte) {
	frame, err := status.ParseFrame(data)
	if err != nil {
		c.logger.Warn("dropping unparseable frame", "error", err)
		return
	}

	c.mu.Lock()
	last := frame
	c.state.LastMessage = &last

	switch frame.Type {
	case status.EventStatusUpdate, status.EventSystemUpdate:
		c.applySnapshot(frame)
	case status.EventInitialData:
		var initial status.InitialData
		if err := frame.Decode(&initial); err != nil {
			c.logger.Warn("dropping bad initial_data", "error", err)
			break
		}
		for _, a := range initial.Agents {
			c.board.Add(a.ID, a)
		}
	case status.EventAgentStatusUpdate:
		var upd status.AgentStatusUpdate
		if err := frame.Decode(&upd); err != nil {
			c.logger.Warn("dropping bad agent_status_update", "error", err)
			break
		}
		a, ok := c.board.Get(upd.AgentID)
		if !ok {
			a = status.AgentStatus{ID: upd.AgentID, Name: upd.AgentID}
		}
		a.Status = upd.Status
		c.board.Add(upd.AgentID, a)
	}
	c.mu.Unlock()

	if c.opts.OnFrame != nil {
		c.opts.OnFrame(frame)
	}
}

// applySnapshot replaces the held snapshot wholesale unless the frame is
// older than the one already held on this connection. Caller holds c.mu.
func (c *Client) applySnapshot(frame status.Frame) {
	var snap status.SystemStatus
	if err := frame.Decode(&snap); err != nil {
		c.logger.Warn("dropping bad snapshot", "type", frame.Type, "error", err)
		return
	}
	if frame.Seq != 0 && frame.Seq < c.snapshotSeq {
		c.logger.Debug("ignoring stale snapshot", "seq", frame.Seq, "held", c.snapshotSeq)
		return
	}
	if frame.Seq > c.snapshotSeq {
		c.snapshotSeq = frame.Seq
	}
	c.system = &snap
}

// Send writes a command on the open channel.
func (c *Client) Send(ctx context.Context, cmd status.Command) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	if err := wsjson.Write(ctx, conn, cmd); err != nil {
		return fmt.Errorf("sending %s: %w", cmd.Type, err)
	}
	return nil
}

// Disconnect closes the channel and cancels any pending reconnect.
// Run returns nil afterwards.
func (c *Client) Disconnect() {
	c.doneOnce.Do(func() { close(c.done) })

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
}

// State returns a copy of the connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// System returns the latest snapshot, if one has arrived.
func (c *Client) System() (status.SystemStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.system == nil {
		return status.SystemStatus{}, false
	}
	return *c.system, true
}

// Agents returns the board, least recently updated first.
func (c *Client) Agents() []status.AgentStatus {
	return c.board.Values()
}

// Agent returns one board entry without touching its recency.
func (c *Client) Agent(id string) (status.AgentStatus, bool) {
	return c.board.Peek(id)
}
