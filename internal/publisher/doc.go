// ABOUTME: Package publisher emits synthetic status frames on timers
// ABOUTME: Also holds the fixed report bodies served over HTTP

// Package publisher is the server side of the status channel. A Publisher
// stamps every outbound frame with a per-process sequence number and sends
// it to a hub room. performance_update and new_signal go to the broadcast
// room on the metrics and signal intervals; system_update goes to the
// system_updates room on the system interval.
//
// Published frames are also appended to the journal and queued for the
// mirrors when those are configured. Neither can stall publishing: errors
// are logged and counted.
package publisher
