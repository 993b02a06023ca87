// Package store provides the optional SQLite journal for the status gateway.
//
// # Tables
//
//   - frames: every frame the publisher emitted (seq, type, payload, created_at)
//   - agent_actions: audit of control actions (agent_id, action, request_id,
//     result_status, created_at)
//
// Both are append-only. Sequence numbers restart with each server process,
// so frames are ordered by the journal row id rather than seq.
//
// # Implementations
//
//   - SQLiteStore: modernc.org/sqlite, WAL mode, idempotent migrations
//   - MockStore: in-memory, for tests, with an injectable write error
//
// The journal is disabled entirely when database.path is empty; callers hold
// a nil Store in that case.
package store
