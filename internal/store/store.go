// ABOUTME: Store interface and record types for the status journal
// ABOUTME: Defines FrameRecord, ActionRecord and the Store interface

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// timestampLayout is fixed-width so created_at columns sort lexically.
// time.RFC3339Nano trims trailing zeros and would not.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FrameRecord is one published frame as written to the journal.
type FrameRecord struct {
	ID        int64           // journal row id, assigned on save
	Seq       uint64          // publisher sequence number
	Type      string          // event type
	Payload   json.RawMessage // frame data
	CreatedAt time.Time
}

// FrameFilter narrows ListFrames. Zero values mean no filter.
type FrameFilter struct {
	Type  string
	Limit int // default 100, max 1000
}

// ActionRecord is one agent control action as written to the audit table.
type ActionRecord struct {
	ID           string // UUID v4, generated if empty
	AgentID      string // agent id, or "*" for bulk actions
	Action       string // start, pause, stop, emergency_stop, restart_all
	RequestID    string // optional client request id
	ResultStatus string // resulting state, or "error"
	CreatedAt    time.Time
}

// Store defines the journal operations.
type Store interface {
	SaveFrame(ctx context.Context, rec *FrameRecord) error
	GetFrame(ctx context.Context, id int64) (*FrameRecord, error)
	ListFrames(ctx context.Context, f FrameFilter) ([]*FrameRecord, error)

	SaveAction(ctx context.Context, rec *ActionRecord) error
	ListActions(ctx context.Context, agentID string, limit int) ([]*ActionRecord, error)

	Close() error
}

// normalizeLimit applies default (100) and cap (1000) to a list limit.
func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}
