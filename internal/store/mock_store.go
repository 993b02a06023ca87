// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject write failures

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	frames  []*FrameRecord
	actions []*ActionRecord
	nextID  int64

	// SaveErr, when set, is returned by SaveFrame and SaveAction.
	SaveErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{}
}

// SaveFrame stores a copy of rec.
func (m *MockStore) SaveFrame(ctx context.Context, rec *FrameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.nextID++
	rec.ID = m.nextID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	m.frames = append(m.frames, &cp)
	return nil
}

// GetFrame retrieves a frame by id.
func (m *MockStore) GetFrame(ctx context.Context, id int64) (*FrameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, f := range m.frames {
		if f.ID == id {
			cp := *f
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ListFrames returns frames newest first.
func (m *MockStore) ListFrames(ctx context.Context, f FrameFilter) ([]*FrameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := normalizeLimit(f.Limit)
	var out []*FrameRecord
	for i := len(m.frames) - 1; i >= 0 && len(out) < limit; i-- {
		if f.Type != "" && m.frames[i].Type != f.Type {
			continue
		}
		cp := *m.frames[i]
		out = append(out, &cp)
	}
	return out, nil
}

// SaveAction stores a copy of rec.
func (m *MockStore) SaveAction(ctx context.Context, rec *ActionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	m.actions = append(m.actions, &cp)
	return nil
}

// ListActions returns actions newest first.
func (m *MockStore) ListActions(ctx context.Context, agentID string, limit int) ([]*ActionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = normalizeLimit(limit)
	var out []*ActionRecord
	for i := len(m.actions) - 1; i >= 0 && len(out) < limit; i-- {
		if agentID != "" && m.actions[i].AgentID != agentID {
			continue
		}
		cp := *m.actions[i]
		out = append(out, &cp)
	}
	return out, nil
}

// Close is a no-op.
func (m *MockStore) Close() error { return nil }

var _ Store = (*MockStore)(nil)
