// ABOUTME: Connection state exposed by the push-channel subscriber
// ABOUTME: Copied out on every read so callers never share the client's lock

package subscriber

import "github.com/2389/status-gateway/internal/status"

// Phase is the supervisor state: connecting, open or closed.
type Phase string

const (
	PhaseConnecting Phase = "connecting"
	PhaseOpen       Phase = "open"
	PhaseClosed     Phase = "closed"
)

// ConnectionState describes one subscriber's push channel.
type ConnectionState struct {
	IsConnected       bool          `json:"isConnected"`
	ReconnectAttempts int           `json:"reconnectAttempts"`
	LastMessage       *status.Frame `json:"lastMessage,omitempty"`
	Phase             Phase         `json:"phase"`
}

// clone returns a copy that does not alias LastMessage.
func (s ConnectionState) clone() ConnectionState {
	if s.LastMessage != nil {
		m := *s.LastMessage
		s.LastMessage = &m
	}
	return s
}
