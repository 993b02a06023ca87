// ABOUTME: Agent action audit methods on SQLiteStore
// ABOUTME: Records which control action hit which agent and what state resulted

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveAction appends an audit entry. Generates ID and CreatedAt if not set.
func (s *SQLiteStore) SaveAction(ctx context.Context, rec *ActionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_actions (id, agent_id, action, request_id, result_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.AgentID,
		rec.Action,
		rec.RequestID,
		rec.ResultStatus,
		rec.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting agent action: %w", err)
	}

	s.logger.Debug("recorded agent action",
		"id", rec.ID,
		"agent_id", rec.AgentID,
		"action", rec.Action,
		"result", rec.ResultStatus,
	)
	return nil
}

// ListActions returns audit entries newest first. An empty agentID lists all.
func (s *SQLiteStore) ListActions(ctx context.Context, agentID string, limit int) ([]*ActionRecord, error) {
	var agentFilter *string
	if agentID != "" {
		agentFilter = &agentID
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent_id, action, request_id, result_status, created_at
		FROM agent_actions
		WHERE (? IS NULL OR agent_id = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		agentFilter, agentFilter, normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying agent actions: %w", err)
	}
	defer rows.Close()

	var out []*ActionRecord
	for rows.Next() {
		var rec ActionRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.Action, &rec.RequestID, &rec.ResultStatus, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning agent action: %w", err)
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing action timestamp: %w", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating agent actions: %w", err)
	}
	return out, nil
}
