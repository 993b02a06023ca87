// ABOUTME: Tests for the WebSocket push channel and its command handlers
// ABOUTME: Dials a real httptest server with the coder/websocket client

package gateway

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/status-gateway/internal/agent"
	"github.com/2389/status-gateway/internal/hub"
	"github.com/2389/status-gateway/internal/status"
)

type pushClient struct {
	t    *testing.T
	ctx  context.Context
	conn *websocket.Conn
}

func dialPush(t *testing.T, gw *Gateway) *pushClient {
	t.Helper()

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })

	c := &pushClient{t: t, ctx: ctx, conn: conn}
	hello := c.read()
	require.Equal(t, status.EventConnectionStatus, hello.Type)
	return c
}

func (c *pushClient) read() status.Frame {
	c.t.Helper()
	var f status.Frame
	require.NoError(c.t, wsjson.Read(c.ctx, c.conn, &f))
	return f
}

func (c *pushClient) send(cmd any) {
	c.t.Helper()
	require.NoError(c.t, wsjson.Write(c.ctx, c.conn, cmd))
}

func (c *pushClient) sendRaw(data string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.Write(c.ctx, websocket.MessageText, []byte(data)))
}

func (c *pushClient) expect(eventType string, v any) status.Frame {
	c.t.Helper()
	f := c.read()
	require.Equal(c.t, eventType, f.Type)
	if v != nil {
		require.NoError(c.t, f.Decode(v))
	}
	return f
}

func TestPush_ConnectionStatus(t *testing.T) {
	gw := newTestGateway(t)
	srv := httptest.NewServer(gw.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var f status.Frame
	require.NoError(t, wsjson.Read(ctx, conn, &f))
	assert.Equal(t, status.EventConnectionStatus, f.Type)
	assert.NotZero(t, f.Seq)

	var cs status.ConnectionStatus
	require.NoError(t, f.Decode(&cs))
	assert.Equal(t, "connected", cs.Status)
	assert.Equal(t, gw.Publisher().Version(), cs.SystemVersion)
}

func TestPush_ReceivesBroadcasts(t *testing.T) {
	gw := newTestGateway(t)
	c := dialPush(t, gw)

	require.Eventually(t, func() bool { return gw.hub.Count(hub.RoomBroadcast) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, gw.Publisher().EmitSignal(context.Background()))

	var sig status.Signal
	c.expect(status.EventNewSignal, &sig)
	assert.GreaterOrEqual(t, sig.Confidence, 0.7)
}

func TestPush_SubscribeUpdates(t *testing.T) {
	gw := newTestGateway(t)
	c := dialPush(t, gw)

	c.send(status.Command{Type: status.CmdSubscribeUpdates})
	var confirmed status.SubscriptionConfirmed
	c.expect(status.EventSubscriptionConfirmed, &confirmed)
	assert.Equal(t, hub.RoomSystemUpdates, confirmed.Room)
	assert.Equal(t, "Subscribed to system updates", confirmed.Message)

	// A second subscribe is confirmed again but does not double delivery.
	c.send(status.Command{Type: status.CmdSubscribeUpdates})
	c.expect(status.EventSubscriptionConfirmed, nil)

	require.Eventually(t, func() bool { return gw.hub.Count(hub.RoomSystemUpdates) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, gw.Publisher().EmitSystem(context.Background()))

	var snap status.SystemStatus
	c.expect(status.EventSystemUpdate, &snap)
	assert.Equal(t, 8, snap.TotalAgents)
}

func TestPush_RequestStatusUpdateIsIdempotent(t *testing.T) {
	gw := newTestGateway(t)
	c := dialPush(t, gw)

	var first, second status.SystemStatus
	c.send(status.Command{Type: status.CmdRequestStatusUpdate})
	c.expect(status.EventStatusUpdate, &first)
	c.send(status.Command{Type: status.CmdRequestStatusUpdate})
	c.expect(status.EventStatusUpdate, &second)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.AgentsActive, second.AgentsActive)
	assert.Equal(t, first.TotalAgents, second.TotalAgents)
}

func TestPush_GetInitialData(t *testing.T) {
	gw := newTestGateway(t)
	c := dialPush(t, gw)

	c.send(status.Command{Type: status.CmdGetInitialData})
	var data status.InitialData
	c.expect(status.EventInitialData, &data)
	assert.Len(t, data.Agents, 8)
	assert.Equal(t, 8, data.Metrics.ActiveAgents)
}

func TestPush_GetSystemMetrics(t *testing.T) {
	gw := newTestGateway(t)
	_, err := gw.Registry().Apply("ptc_clicking", agent.ActionPause)
	require.NoError(t, err)
	c := dialPush(t, gw)

	c.send(status.Command{Type: status.CmdGetSystemMetrics})
	var m status.DashboardMetrics
	f := c.expect(status.EventSystemMetrics, &m)
	assert.Equal(t, 7, m.ActiveAgents)
	assert.Equal(t, 8, m.TotalAgents)
	assert.Zero(t, m.Revenue)
	assert.NotZero(t, f.Seq)
}

func TestPush_AgentAction(t *testing.T) {
	gw := newTestGateway(t)
	c := dialPush(t, gw)

	c.send(map[string]any{
		"type": status.CmdAgentAction,
		"data": map[string]string{"agent_id": "ptc_clicking", "action": "pause", "request_id": "req-1"},
	})

	var result status.AgentActionResult
	c.expect(status.EventAgentActionResult, &result)
	assert.True(t, result.Success)
	assert.Equal(t, status.StateIdle, result.Status)
	assert.Equal(t, "Agent ptc_clicking paused", result.Message)
	assert.False(t, result.Duplicate)

	var update status.AgentStatusUpdate
	c.expect(status.EventAgentStatusUpdate, &update)
	assert.Equal(t, "ptc_clicking", update.AgentID)
	assert.Equal(t, status.StateIdle, update.Status)

	a, ok := gw.Registry().Get("ptc_clicking")
	require.True(t, ok)
	assert.Equal(t, status.StateIdle, a.Status)

	actions, err := gw.store.ListActions(context.Background(), "ptc_clicking", 10)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "req-1", actions[0].RequestID)
}

func TestPush_AgentActionDuplicate(t *testing.T) {
	gw := newTestGateway(t)
	c := dialPush(t, gw)

	action := func(act string) {
		c.send(map[string]any{
			"type": status.CmdAgentAction,
			"data": map[string]string{"agent_id": "ptc_clicking", "action": act, "request_id": "req-dup"},
		})
	}

	action("stop")
	c.expect(status.EventAgentActionResult, nil)
	c.expect(status.EventAgentStatusUpdate, nil)

	// Same request id, different verb: answered from cache, not applied.
	action("start")
	var result status.AgentActionResult
	c.expect(status.EventAgentActionResult, &result)
	assert.True(t, result.Duplicate)
	assert.Equal(t, status.StateInitialized, result.Status)

	// No broadcast follows a duplicate; the next frame is the status reply.
	c.send(status.Command{Type: status.CmdRequestStatusUpdate})
	c.expect(status.EventStatusUpdate, nil)

	a, _ := gw.Registry().Get("ptc_clicking")
	assert.Equal(t, status.StateInitialized, a.Status)
}

func TestPush_AgentActionErrors(t *testing.T) {
	gw := newTestGateway(t)
	c := dialPush(t, gw)

	tests := []struct {
		name    string
		agentID string
		action  string
		wantErr string
	}{
		{"unknown agent", "ghost", "start", "Agent ghost not found"},
		{"unknown action", "ptc_clicking", "explode", "Unknown action: explode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.send(map[string]any{
				"type": status.CmdAgentAction,
				"data": map[string]string{"agent_id": tt.agentID, "action": tt.action},
			})
			var result status.AgentActionResult
			c.expect(status.EventAgentActionResult, &result)
			assert.False(t, result.Success)
			assert.Equal(t, tt.wantErr, result.Error)
		})
	}
}

func TestPush_EmergencyStopAndRestart(t *testing.T) {
	gw := newTestGateway(t)
	c := dialPush(t, gw)

	c.send(status.Command{Type: status.CmdEmergencyStop})
	var stop status.EmergencyStopResult
	c.expect(status.EventEmergencyStopResult, &stop)
	assert.True(t, stop.Success)
	assert.Len(t, stop.StoppedAgents, 8)
	assert.Equal(t, "Emergency stop executed. 8 agents stopped.", stop.Message)

	var notice status.Notice
	c.expect(status.EventEmergencyStopBroadcast, &notice)
	assert.Equal(t, "Emergency stop executed by admin", notice.Message)
	assert.Equal(t, 0, gw.Registry().ActiveCount())

	c.send(status.Command{Type: status.CmdRestartAll})
	var restart status.RestartAllResult
	c.expect(status.EventRestartAllResult, &restart)
	assert.Equal(t, "Restart completed. 8 agents restarted.", restart.Message)
	c.expect(status.EventRestartAllBroadcast, &notice)
	assert.Equal(t, "System restart executed by admin", notice.Message)
	assert.Equal(t, 8, gw.Registry().ActiveCount())
}

func TestPush_InvalidFrameKeepsConnection(t *testing.T) {
	gw := newTestGateway(t)
	c := dialPush(t, gw)

	for _, raw := range []string{
		`not json`,
		`{"data": {}}`,
		`{"type": "agent_action", "data": {"agent_id": "x"}}`,
	} {
		c.sendRaw(raw)
		var notice status.Notice
		c.expect(status.EventError, &notice)
		assert.Equal(t, "invalid frame", notice.Message)
	}

	c.send(status.Command{Type: status.CmdRequestStatusUpdate})
	c.expect(status.EventStatusUpdate, nil)
}

func TestPush_UnknownCommand(t *testing.T) {
	gw := newTestGateway(t)
	c := dialPush(t, gw)

	c.send(status.Command{Type: "launch_rockets"})
	var notice status.Notice
	c.expect(status.EventError, &notice)
	assert.Equal(t, "unknown event type: launch_rockets", notice.Message)
}

func TestPush_ShutdownClosesConnection(t *testing.T) {
	gw := newGateway(t, testConfig())
	c := dialPush(t, gw)

	require.NoError(t, gw.Shutdown(context.Background()))

	var f status.Frame
	err := wsjson.Read(c.ctx, c.conn, &f)
	assert.Error(t, err)
}
