// Package hass implements the Home Assistant WebSocket and REST protocol client.
//
// The client maintains a single WebSocket connection to a Home Assistant
// instance, performing the token handshake, correlating request/response
// pairs by monotonically increasing message id, delivering event stream
// subscriptions, and probing liveness with periodic pings.
//
// # Connection Lifecycle
//
// Connect dials the /api/websocket endpoint, answers the auth_required
// challenge with the access token and waits for auth_ok. A rejected token
// (auth_invalid) fails permanently; transport errors trigger automatic
// reconnection with exponential backoff until the attempt limit is reached.
//
// # Concurrency
//
// All exported methods are safe for concurrent use. A single reader
// goroutine owns the connection's read side and routes every inbound
// frame to its waiting caller or subscription channel; writers serialise
// through the client mutex so correlation ids are issued in send order.
//
// # Usage
//
//	client := hass.NewClient(endpoint, token, cfg, logger)
//	client.SetOnConnect(func() { ... })
//	if err := client.Connect(ctx); err != nil { ... }
//	states, err := client.GetStates(ctx)
package hass
