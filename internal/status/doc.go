// ABOUTME: Package status defines the data model shared by server and client
// ABOUTME: Agent and system snapshots, frame envelope, payloads and validation

// Package status holds the wire vocabulary of the status gateway.
//
// Everything here is a plain value: AgentStatus and SystemStatus records are
// recreated on every push cycle and carry no identity beyond their payload.
// Frames wrap a typed payload as raw JSON together with a server-stamped
// sequence number so clients can discard stale snapshots.
//
// Decoding is lenient. Unrecognised agent states fold to StateUnknown, and
// SystemStatus accepts the older active_agents / agents_count spellings.
// Inbound client commands are checked against a JSON schema by ParseCommand.
package status
