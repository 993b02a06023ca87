// Package config handles configuration loading for status-gateway.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Defaults are applied before validation.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from STATUS_GATEWAY_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/status-gateway/gateway.yaml
//  3. ~/.config/status-gateway/gateway.yaml
//
// A path ending in .toml is decoded as TOML.
//
// # Environment Variable Expansion
//
//	auth:
//	  jwt_secret: "${STATUS_GATEWAY_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	publisher:
//	  metrics_interval: "5s"
//	  signal_interval: "30s"
//	  system_interval: "10s"
//	subscriber:
//	  reconnect_interval: "3s"
//	  max_reconnect_attempts: 5
//
// # Configuration Sections
//
//	server:       http_addr, grpc_addr (optional gRPC health), version
//	tailscale:    tsnet listener (hostname, auth_key, funnel, ...)
//	database:     path of the SQLite journal, empty disables it
//	auth:         jwt_secret, empty disables bearer auth
//	publisher:    timer intervals and the agent_action dedupe window
//	agents:       roster, empty uses the built-in eight agents
//	subscriber:   defaults for status-watch
//	mirrors:      nats and redis frame mirrors
//	logging:      level (debug|info|warn|error), format (text|json)
//	metrics:      Prometheus endpoint
package config
