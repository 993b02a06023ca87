// ABOUTME: Contract tests for the push-channel wire surface seen by dashboards
// ABOUTME: Pins event and command names and the JSON field names of key payloads

package contract

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/status-gateway/internal/status"
)

func TestEventNames(t *testing.T) {
	expected := map[string]string{
		"connection_status":        status.EventConnectionStatus,
		"subscription_confirmed":   status.EventSubscriptionConfirmed,
		"system_update":            status.EventSystemUpdate,
		"status_update":            status.EventStatusUpdate,
		"performance_update":       status.EventPerformanceUpdate,
		"new_signal":               status.EventNewSignal,
		"initial_data":             status.EventInitialData,
		"system_metrics":           status.EventSystemMetrics,
		"agent_action_result":      status.EventAgentActionResult,
		"agent_status_update":      status.EventAgentStatusUpdate,
		"emergency_stop_result":    status.EventEmergencyStopResult,
		"emergency_stop_broadcast": status.EventEmergencyStopBroadcast,
		"restart_all_result":       status.EventRestartAllResult,
		"restart_all_broadcast":    status.EventRestartAllBroadcast,
		"error":                    status.EventError,
	}
	for wire, got := range expected {
		assert.Equal(t, wire, got)
	}
}

func TestCommandNames(t *testing.T) {
	expected := map[string]string{
		"subscribe_updates":     status.CmdSubscribeUpdates,
		"request_status_update": status.CmdRequestStatusUpdate,
		"get_initial_data":      status.CmdGetInitialData,
		"get_system_metrics":    status.CmdGetSystemMetrics,
		"agent_action":          status.CmdAgentAction,
		"emergency_stop":        status.CmdEmergencyStop,
		"restart_all":           status.CmdRestartAll,
	}
	for wire, got := range expected {
		assert.Equal(t, wire, got)
	}
}

// fieldsOf marshals v and returns its top-level JSON keys.
func fieldsOf(t *testing.T, v any) map[string]bool {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	keys := make(map[string]bool, len(m))
	for k := range m {
		keys[k] = true
	}
	return keys
}

func TestPayloadFields(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		value  any
		fields []string
	}{
		{"frame", status.Frame{Type: "x", Seq: 1, Timestamp: now, Data: json.RawMessage(`{}`)},
			[]string{"type", "seq", "timestamp", "data"}},
		{"performance_update", status.PerformanceUpdate{Timestamp: now},
			[]string{"timestamp", "daily_earnings", "active_trades", "win_rate", "portfolio_value"}},
		{"new_signal", status.Signal{Symbol: "BTC", Timestamp: now},
			[]string{"symbol", "type", "confidence", "timestamp"}},
		{"system_metrics", status.DashboardMetrics{ActiveAgents: 1, TotalAgents: 2},
			[]string{"active_agents", "total_agents", "total_tasks", "revenue", "threats", "backups", "campaigns"}},
		{"agent_action_result", status.AgentActionResult{Success: true, AgentID: "a", Action: "start", Status: status.StateActive, Message: "ok"},
			[]string{"success", "agent_id", "action", "status", "message"}},
		{"agent_status_update", status.AgentStatusUpdate{AgentID: "a", Status: status.StateIdle, Timestamp: now},
			[]string{"agent_id", "status", "timestamp"}},
		{"emergency_stop_result", status.EmergencyStopResult{Success: true},
			[]string{"success", "message", "stopped_agents"}},
		{"restart_all_result", status.RestartAllResult{Success: true},
			[]string{"success", "message", "restarted_agents"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fieldsOf(t, tt.value)
			for _, f := range tt.fields {
				assert.True(t, got[f], "%s should carry %q", tt.name, f)
			}
		})
	}
}
