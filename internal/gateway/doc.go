// Package gateway orchestrates the status-gateway server components.
//
// # Overview
//
// The gateway package is the central coordinator of the status-gateway
// server. It owns the agent registry, the room hub, the status publisher,
// the optional journal and mirrors, and the HTTP and gRPC health servers.
//
// # HTTP API
//
// The gateway exposes HTTP endpoints in api.go:
//
//   - GET /api/status - Overall status report
//   - GET /api/system/status - Current SystemStatus snapshot
//   - GET /api/agents - Agent roster
//   - GET /api/agents/{id}/status - One agent
//   - GET /api/performance, /api/signals, /api/mining, /api/airdrops - Fixed dashboard data
//   - GET /api/history - Journaled frames, newest first
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check
//
// # Push Channel
//
// GET /ws upgrades to a WebSocket carrying JSON frames:
//
//	{"type": "system_update", "seq": 42, "timestamp": "...", "data": {...}}
//
// Every connection joins the broadcast room. A subscribe_updates command
// also joins system_updates. Inbound commands are validated and dispatched
// from commands.go; replies go to the caller only, state changes are
// broadcast.
//
// # SSE Streaming
//
// GET /api/stream serves the broadcast room as Server-Sent Events for
// clients without WebSocket support:
//
//	event: performance_update
//	data: {"type": "performance_update", "seq": 7, ...}
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	ctx, cancel := context.WithCancel(context.Background())
//	go gw.Run(ctx)
//
// Run shuts down gracefully when ctx is canceled.
//
// # Key Files
//
//   - gateway.go: Gateway struct, initialization, Run/Shutdown
//   - api.go: HTTP routes and JSON handlers
//   - push.go: WebSocket connections
//   - commands.go: Inbound command handlers
//   - stream.go: SSE fallback
//   - grpc.go: gRPC health service
package gateway
