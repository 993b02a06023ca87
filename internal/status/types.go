// ABOUTME: Wire types shared by the publisher, push channel and subscriber
// ABOUTME: Defines AgentStatus, SystemStatus and the agent state vocabulary

package status

import (
	"encoding/json"
	"strings"
	"time"
)

// AgentState is the display state of an agent record.
type AgentState string

const (
	StateInitialized AgentState = "initialized"
	StateReady       AgentState = "ready"
	StateProcessing  AgentState = "processing"
	StateError       AgentState = "error"
	StateIdle        AgentState = "idle"
	StateActive      AgentState = "active"
	StateUnknown     AgentState = "unknown"
)

// ParseAgentState maps a raw state string onto the known vocabulary.
// Anything unrecognised becomes StateUnknown.
func ParseAgentState(s string) AgentState {
	switch AgentState(strings.ToLower(strings.TrimSpace(s))) {
	case StateInitialized:
		return StateInitialized
	case StateReady:
		return StateReady
	case StateProcessing:
		return StateProcessing
	case StateError:
		return StateError
	case StateIdle:
		return StateIdle
	case StateActive:
		return StateActive
	default:
		return StateUnknown
	}
}

// UnmarshalJSON decodes a state string, folding unknown values to StateUnknown.
func (s *AgentState) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseAgentState(raw)
	return nil
}

// Counts reports whether an agent in this state counts toward agents_active.
func (s AgentState) Counts() bool {
	return s == StateReady || s == StateActive
}

// AgentStatus is a display record for one agent. It carries no identity
// beyond the payload it arrived in.
type AgentStatus struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Status       AgentState `json:"status"`
	Capabilities []string   `json:"capabilities"`

	Description       string  `json:"description,omitempty"`
	Icon              string  `json:"icon,omitempty"`
	DailyEarnings     float64 `json:"daily_earnings,omitempty"`
	MonthlyProjection float64 `json:"monthly_projection,omitempty"`
}

// Clone returns a copy that does not share the capabilities slice.
func (a AgentStatus) Clone() AgentStatus {
	if a.Capabilities != nil {
		caps := make([]string, len(a.Capabilities))
		copy(caps, a.Capabilities)
		a.Capabilities = caps
	}
	return a
}

// SystemStatus is a transient snapshot of the whole system. Each update
// replaces the previous one wholesale.
type SystemStatus struct {
	Status        string    `json:"status"`
	AgentsActive  int       `json:"agents_active"`
	TotalAgents   int       `json:"total_agents"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds float64   `json:"uptime_seconds,omitempty"`
}

// UnmarshalJSON accepts the field spellings used by older dashboards:
// active_agents for agents_active, agents_count for total_agents and
// system_status for status. Canonical names win when both are present.
func (s *SystemStatus) UnmarshalJSON(data []byte) error {
	type plain SystemStatus
	var aux struct {
		plain
		ActiveAgents *int    `json:"active_agents"`
		AgentsCount  *int    `json:"agents_count"`
		SystemStatus *string `json:"system_status"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*s = SystemStatus(aux.plain)
	if s.AgentsActive == 0 && aux.ActiveAgents != nil {
		s.AgentsActive = *aux.ActiveAgents
	}
	if s.TotalAgents == 0 && aux.AgentsCount != nil {
		s.TotalAgents = *aux.AgentsCount
	}
	if s.Status == "" && aux.SystemStatus != nil {
		s.Status = *aux.SystemStatus
	}
	return nil
}
