// Package agent keeps the roster of agent display records.
//
// # Overview
//
// Agents here are not processes. Each record is a name, a display state and
// a list of capabilities, seeded from configuration or from DefaultRoster.
// Control commands arriving over the push channel change the display state
// and nothing else.
//
// # Registry
//
//	reg := agent.NewRegistry(agent.DefaultRoster(), logger)
//
// Key operations:
//
//   - List(): copies of every record in roster order
//   - Get(id): one record
//   - Apply(id, action): start -> active, pause -> idle, stop -> initialized
//   - StopAll(): every record to initialized
//   - RestartAll(): every record to ready
//   - Snapshot(version, now): a SystemStatus built from the roster
//
// Apply returns ErrAgentNotFound for ids outside the roster and
// ErrUnknownAction for verbs other than start, pause and stop.
//
// # Thread Safety
//
// Registry guards its map with an RWMutex and only hands out copies.
package agent
