package hass

import "errors"

// Domain errors for the Home Assistant bridge package.
var (
	// ErrNotConnected is returned when an operation requires a connection
	// but the client is not connected to Home Assistant.
	ErrNotConnected = errors.New("hass: not connected")

	// ErrConnectionFailed is returned when the WebSocket connection
	// cannot be established.
	ErrConnectionFailed = errors.New("hass: connection failed")

	// ErrAuthenticationFailed is returned when Home Assistant rejects
	// the access token. This error is permanent; the client does not
	// reconnect after it.
	ErrAuthenticationFailed = errors.New("hass: authentication failed")

	// ErrInvalidEndpoint is returned when a server address cannot be
	// normalised into a usable URL.
	ErrInvalidEndpoint = errors.New("hass: invalid endpoint")

	// ErrInvalidResponse is returned when a reply frame cannot be
	// decoded into the expected shape.
	ErrInvalidResponse = errors.New("hass: invalid response")

	// ErrServiceCallFailed is returned when Home Assistant reports a
	// command result with success=false.
	ErrServiceCallFailed = errors.New("hass: service call failed")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("hass: operation timed out")
)
