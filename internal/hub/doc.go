// ABOUTME: Package hub fans frames out to push connections by room
// ABOUTME: Subscribers get 64-frame buffers and lose frames when they fall behind

// Package hub is the in-memory fan-out between the status publisher and the
// connected push channels.
//
// Every push connection subscribes to RoomBroadcast on connect and to
// RoomSystemUpdates after it sends subscribe_updates. Publish never blocks:
// a subscriber whose buffer is full simply misses the frame.
package hub
