// ABOUTME: Tests for the in-memory MockStore
// ABOUTME: Keeps the mock's ordering and filtering in line with SQLiteStore

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_FramesBehaveLikeSQLite(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	for i, typ := range []string{"a", "b", "a"} {
		require.NoError(t, m.SaveFrame(ctx, &FrameRecord{Seq: uint64(i + 1), Type: typ}))
	}

	list, err := m.ListFrames(ctx, FrameFilter{Type: "a"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint64(3), list[0].Seq)

	got, err := m.GetFrame(ctx, list[1].ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Seq)

	_, err = m.GetFrame(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockStore_SaveErr(t *testing.T) {
	m := NewMockStore()
	m.SaveErr = errors.New("disk full")

	err := m.SaveFrame(context.Background(), &FrameRecord{Type: "x"})
	assert.EqualError(t, err, "disk full")

	err = m.SaveAction(context.Background(), &ActionRecord{AgentID: "a"})
	assert.EqualError(t, err, "disk full")

	actions, err := m.ListActions(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, actions)
}
