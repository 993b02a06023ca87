// ABOUTME: Registry holds the roster of display-only agent records
// ABOUTME: Applies control actions and builds system snapshots from the roster

package agent

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/status-gateway/internal/status"
)

// ErrAgentNotFound indicates the specified agent is not in the roster.
var ErrAgentNotFound = errors.New("agent not found")

// ErrUnknownAction indicates an agent_action verb the registry does not know.
var ErrUnknownAction = errors.New("unknown action")

// Action is a control verb applied to one agent.
type Action string

const (
	ActionStart Action = "start"
	ActionPause Action = "pause"
	ActionStop  Action = "stop"
)

// ParseAction validates a raw action verb.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionStart, ActionPause, ActionStop:
		return a, nil
	default:
		return "", ErrUnknownAction
	}
}

// Target returns the state an agent moves to when the action is applied.
func (a Action) Target() status.AgentState {
	switch a {
	case ActionStart:
		return status.StateActive
	case ActionPause:
		return status.StateIdle
	case ActionStop:
		return status.StateInitialized
	default:
		return status.StateUnknown
	}
}

// Registry is the in-memory roster. Insertion order is preserved for listing.
type Registry struct {
	agents map[string]*status.AgentStatus
	order  []string
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewRegistry seeds a registry from roster. Duplicate ids keep the first entry.
func NewRegistry(roster []status.AgentStatus, logger *slog.Logger) *Registry {
	r := &Registry{
		agents: make(map[string]*status.AgentStatus, len(roster)),
		logger: logger,
	}
	for _, a := range roster {
		if a.ID == "" {
			continue
		}
		if _, exists := r.agents[a.ID]; exists {
			logger.Warn("duplicate agent id in roster", "agent_id", a.ID)
			continue
		}
		rec := a.Clone()
		r.agents[a.ID] = &rec
		r.order = append(r.order, a.ID)
	}
	return r
}

// List returns copies of every agent in roster order.
func (r *Registry) List() []status.AgentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]status.AgentStatus, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id].Clone())
	}
	return out
}

// Get returns a copy of one agent.
func (r *Registry) Get(id string) (status.AgentStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[id]
	if !ok {
		return status.AgentStatus{}, false
	}
	return a.Clone(), true
}

// Apply moves one agent to the state its action maps to and returns the
// updated record.
func (r *Registry) Apply(id string, action Action) (status.AgentStatus, error) {
	target := action.Target()
	if target == status.StateUnknown {
		return status.AgentStatus{}, ErrUnknownAction
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[id]
	if !ok {
		return status.AgentStatus{}, ErrAgentNotFound
	}
	prev := a.Status
	a.Status = target

	r.logger.Info("agent action applied",
		"agent_id", id,
		"action", string(action),
		"from", string(prev),
		"to", string(target),
	)
	return a.Clone(), nil
}

// StopAll sets every agent to initialized and returns the affected ids.
func (r *Registry) StopAll() []string {
	return r.setAll(status.StateInitialized)
}

// RestartAll sets every agent to ready and returns the affected ids.
func (r *Registry) RestartAll() []string {
	return r.setAll(status.StateReady)
}

func (r *Registry) setAll(state status.AgentState) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.order))
	for _, id := range r.order {
		r.agents[id].Status = state
		ids = append(ids, id)
	}
	r.logger.Info("bulk agent state change", "state", string(state), "count", len(ids))
	return ids
}

// ActiveCount returns how many agents are ready or active.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, a := range r.agents {
		if a.Status.Counts() {
			n++
		}
	}
	return n
}

// Len returns the roster size.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// States returns the current state of every agent keyed by id.
func (r *Registry) States() map[string]status.AgentState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]status.AgentState, len(r.agents))
	for id, a := range r.agents {
		out[id] = a.Status
	}
	return out
}

// Snapshot builds a SystemStatus from the current roster.
func (r *Registry) Snapshot(version string, now time.Time) status.SystemStatus {
	active := r.ActiveCount()
	total := r.Len()

	state := "running"
	switch {
	case total == 0:
		state = "empty"
	case active == 0:
		state = "stopped"
	case active < total:
		state = "degraded"
	}

	return status.SystemStatus{
		Status:       state,
		AgentsActive: active,
		TotalAgents:  total,
		Version:      version,
		Timestamp:    now.UTC(),
	}
}
