// ABOUTME: Dispatch table for inbound push-channel commands
// ABOUTME: Replies go to the caller, state changes are broadcast through the publisher

package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/status-gateway/internal/agent"
	"github.com/2389/status-gateway/internal/hub"
	"github.com/2389/status-gateway/internal/status"
	"github.com/2389/status-gateway/internal/store"
)

// commandHandler handles one inbound command type.
type commandHandler func(g *Gateway, ctx context.Context, c *pushConn, cmd status.Command)

var commandHandlers = map[string]commandHandler{
	status.CmdSubscribeUpdates:    (*Gateway).handleSubscribeUpdates,
	status.CmdRequestStatusUpdate: (*Gateway).handleRequestStatusUpdate,
	status.CmdGetInitialData:      (*Gateway).handleGetInitialData,
	status.CmdGetSystemMetrics:    (*Gateway).handleGetSystemMetrics,
	status.CmdAgentAction:         (*Gateway).handleAgentAction,
	status.CmdEmergencyStop:       (*Gateway).handleEmergencyStop,
	status.CmdRestartAll:          (*Gateway).handleRestartAll,
}

// dispatch routes cmd to its handler. Unknown types get an error frame.
func (g *Gateway) dispatch(ctx context.Context, c *pushConn, cmd status.Command) {
	h, ok := commandHandlers[cmd.Type]
	if !ok {
		g.logger.Debug("unknown command", "conn_id", c.id, "type", cmd.Type)
		c.replyError(fmt.Sprintf("unknown event type: %s", cmd.Type))
		return
	}
	h(g, ctx, c, cmd)
}

func (g *Gateway) handleSubscribeUpdates(_ context.Context, c *pushConn, _ status.Command) {
	c.join(hub.RoomSystemUpdates)
	c.reply(status.EventSubscriptionConfirmed, status.SubscriptionConfirmed{
		Message: "Subscribed to system updates",
		Room:    hub.RoomSystemUpdates,
	})
}

func (g *Gateway) handleRequestStatusUpdate(_ context.Context, c *pushConn, _ status.Command) {
	c.reply(status.EventStatusUpdate, g.publisher.SystemStatus())
}

func (g *Gateway) handleGetInitialData(_ context.Context, c *pushConn, _ status.Command) {
	c.reply(status.EventInitialData, g.publisher.InitialData())
}

func (g *Gateway) handleGetSystemMetrics(_ context.Context, c *pushConn, _ status.Command) {
	c.reply(status.EventSystemMetrics, g.publisher.SystemMetrics())
}

// handleAgentAction applies start, pause or stop to one agent. A repeated
// request_id inside the dedupe window is answered from the cache.
func (g *Gateway) handleAgentAction(ctx context.Context, c *pushConn, cmd status.Command) {
	var req status.AgentActionRequest
	if err := cmd.Decode(&req); err != nil {
		g.metrics.IncInvalidFrames()
		c.replyError("invalid frame")
		return
	}

	g.actionMu.Lock()
	defer g.actionMu.Unlock()

	if req.RequestID != "" {
		if prior, ok := g.dedupe.Lookup(req.RequestID); ok {
			g.metrics.IncDuplicateRequests()
			g.logger.Debug("duplicate agent_action", "request_id", req.RequestID, "agent_id", req.AgentID)
			prior.Duplicate = true
			c.reply(status.EventAgentActionResult, prior)
			return
		}
	}

	result := g.applyAgentAction(req)
	if req.RequestID != "" {
		g.dedupe.Remember(req.RequestID, result)
	}
	c.reply(status.EventAgentActionResult, result)

	outcome := "ok"
	recorded := string(result.Status)
	if !result.Success {
		outcome = "error"
		recorded = "error"
	}
	g.metrics.IncAgentActions(req.Action, outcome)
	g.recordAction(ctx, &store.ActionRecord{
		AgentID:      req.AgentID,
		Action:       req.Action,
		RequestID:    req.RequestID,
		ResultStatus: recorded,
	})

	if !result.Success {
		return
	}
	update := status.AgentStatusUpdate{
		AgentID:   req.AgentID,
		Status:    result.Status,
		Timestamp: g.publisher.Now().UTC(),
	}
	if _, err := g.publisher.Emit(ctx, hub.RoomBroadcast, status.EventAgentStatusUpdate, update); err != nil {
		g.logger.Error("failed to broadcast agent status", "agent_id", req.AgentID, "error", err)
	}
}

func (g *Gateway) applyAgentAction(req status.AgentActionRequest) status.AgentActionResult {
	result := status.AgentActionResult{
		AgentID:   req.AgentID,
		Action:    req.Action,
		RequestID: req.RequestID,
	}

	action, err := agent.ParseAction(req.Action)
	if err != nil {
		result.Error = fmt.Sprintf("Unknown action: %s", req.Action)
		return result
	}

	updated, err := g.registry.Apply(req.AgentID, action)
	switch {
	case errors.Is(err, agent.ErrAgentNotFound):
		result.Error = fmt.Sprintf("Agent %s not found", req.AgentID)
		return result
	case err != nil:
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Status = updated.Status
	result.Message = fmt.Sprintf("Agent %s %s", req.AgentID, pastTense(action))
	return result
}

func pastTense(a agent.Action) string {
	switch a {
	case agent.ActionStart:
		return "started"
	case agent.ActionPause:
		return "paused"
	default:
		return "stopped"
	}
}

func (g *Gateway) handleEmergencyStop(ctx context.Context, c *pushConn, _ status.Command) {
	stopped := g.registry.StopAll()
	c.reply(status.EventEmergencyStopResult, status.EmergencyStopResult{
		Success:       true,
		Message:       fmt.Sprintf("Emergency stop executed. %d agents stopped.", len(stopped)),
		StoppedAgents: stopped,
	})
	g.metrics.IncAgentActions(status.CmdEmergencyStop, "ok")
	g.recordAction(ctx, &store.ActionRecord{
		AgentID:      "*",
		Action:       status.CmdEmergencyStop,
		ResultStatus: string(status.StateInitialized),
	})
	g.broadcastNotice(ctx, status.EventEmergencyStopBroadcast, "Emergency stop executed by admin")
}

func (g *Gateway) handleRestartAll(ctx context.Context, c *pushConn, _ status.Command) {
	restarted := g.registry.RestartAll()
	c.reply(status.EventRestartAllResult, status.RestartAllResult{
		Success:         true,
		Message:         fmt.Sprintf("Restart completed. %d agents restarted.", len(restarted)),
		RestartedAgents: restarted,
	})
	g.metrics.IncAgentActions(status.CmdRestartAll, "ok")
	g.recordAction(ctx, &store.ActionRecord{
		AgentID:      "*",
		Action:       status.CmdRestartAll,
		ResultStatus: string(status.StateReady),
	})
	g.broadcastNotice(ctx, status.EventRestartAllBroadcast, "System restart executed by admin")
}

func (g *Gateway) broadcastNotice(ctx context.Context, eventType, message string) {
	notice := status.Notice{Message: message, Timestamp: g.publisher.Now().UTC()}
	if _, err := g.publisher.Emit(ctx, hub.RoomBroadcast, eventType, notice); err != nil {
		g.logger.Error("failed to broadcast notice", "type", eventType, "error", err)
	}
}

// recordAction writes an audit row when the journal is enabled.
func (g *Gateway) recordAction(ctx context.Context, rec *store.ActionRecord) {
	if g.store == nil {
		return
	}
	if err := g.store.SaveAction(ctx, rec); err != nil {
		g.metrics.IncJournalErrors()
		g.logger.Warn("failed to record agent action", "action", rec.Action, "agent_id", rec.AgentID, "error", err)
	}
}
