// ABOUTME: Package mirror re-publishes gateway frames to NATS and Redis
// ABOUTME: Both sinks are optional and best-effort

// Package mirror copies every frame the publisher emits to external
// brokers so other services can follow the status stream without holding a
// push connection.
//
//   - NATSSink publishes the JSON frame on <subject_prefix>.<type> with
//     x-event-type, x-seq and x-timestamp headers.
//   - RedisSink msgpack-encodes the frame, PUBLISHes it on a channel and can
//     also RPUSH it onto a list trimmed to the newest list_max entries.
//
// Fanout wraps any number of sinks and is itself a Sink. It logs and counts
// each failure and returns them joined. The publisher only ever enqueues,
// so a broken broker cannot stall publishing.
package mirror
