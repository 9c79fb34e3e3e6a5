package platform

import "errors"

var (
	// ErrNotConfigured indicates neither the config file nor the
	// credential store holds a hub endpoint and token.
	ErrNotConfigured = errors.New("platform: no hub credentials configured")

	// ErrNotConnected indicates no hub connection is established.
	ErrNotConnected = errors.New("platform: not connected")

	// ErrUnknownEntity indicates the identifier does not resolve to a
	// known entity.
	ErrUnknownEntity = errors.New("platform: unknown entity")
)
