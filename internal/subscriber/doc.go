// Package subscriber is the client side of the status push channel.
//
// A Client holds one WebSocket connection to a gateway, parses inbound
// frames and keeps the latest SystemStatus snapshot plus a bounded board of
// recently updated agents. Run supervises the connection: a close (or a
// failed dial) schedules a reconnect after a fixed interval until the
// attempt budget is spent, at which point Run returns ErrReconnectsExhausted.
// A successful open resets the budget.
//
//	c := subscriber.New(subscriber.Options{URL: "ws://localhost:8080/ws"})
//	go c.Run(ctx)
//	st := c.State()
package subscriber
