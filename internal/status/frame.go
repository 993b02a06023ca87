// ABOUTME: Push-channel frame envelope and the event names carried in it
// ABOUTME: Frames wrap a typed payload as raw JSON stamped with seq and time

package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Server-to-client event types.
const (
	EventConnectionStatus       = "connection_status"
	EventSubscriptionConfirmed  = "subscription_confirmed"
	EventSystemUpdate           = "system_update"
	EventStatusUpdate           = "status_update"
	EventPerformanceUpdate      = "performance_update"
	EventNewSignal              = "new_signal"
	EventInitialData            = "initial_data"
	EventSystemMetrics          = "system_metrics"
	EventAgentActionResult      = "agent_action_result"
	EventAgentStatusUpdate      = "agent_status_update"
	EventEmergencyStopResult    = "emergency_stop_result"
	EventEmergencyStopBroadcast = "emergency_stop_broadcast"
	EventRestartAllResult       = "restart_all_result"
	EventRestartAllBroadcast    = "restart_all_broadcast"
	EventError                  = "error"
)

// Client-to-server command types.
const (
	CmdSubscribeUpdates    = "subscribe_updates"
	CmdRequestStatusUpdate = "request_status_update"
	CmdGetInitialData      = "get_initial_data"
	CmdGetSystemMetrics    = "get_system_metrics"
	CmdAgentAction         = "agent_action"
	CmdEmergencyStop       = "emergency_stop"
	CmdRestartAll          = "restart_all"
)

// ErrMalformedFrame is returned when inbound bytes are not a usable frame.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is the envelope every push-channel message travels in.
type Frame struct {
	Type      string          `json:"type"`
	Seq       uint64          `json:"seq,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewFrame marshals payload into a frame of the given type. Seq is left
// for the publisher to stamp.
func NewFrame(eventType string, payload any, now time.Time) (Frame, error) {
	f := Frame{Type: eventType, Timestamp: now.UTC()}
	if payload == nil {
		return f, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	f.Data = data
	return f, nil
}

// Decode unmarshals the frame payload into v.
func (f Frame) Decode(v any) error {
	if len(f.Data) == 0 {
		return fmt.Errorf("%w: %s frame has no data", ErrMalformedFrame, f.Type)
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrMalformedFrame, f.Type, err)
	}
	return nil
}

// ParseFrame decodes a server frame. Frames without a type are rejected.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return f, nil
}

// Command is an inbound client frame.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the command payload into v.
func (c Command) Decode(v any) error {
	if len(c.Data) == 0 {
		return fmt.Errorf("%w: %s command has no data", ErrMalformedFrame, c.Type)
	}
	if err := json.Unmarshal(c.Data, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrMalformedFrame, c.Type, err)
	}
	return nil
}
