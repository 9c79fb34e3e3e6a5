package actions

import "errors"

var (
	// ErrUnknownCharacteristic indicates the characteristic id does not
	// resolve to any known entity.
	ErrUnknownCharacteristic = errors.New("actions: unknown characteristic")

	// ErrUnknownScene indicates the scene id does not resolve to a
	// scene entity.
	ErrUnknownScene = errors.New("actions: unknown scene")

	// ErrUnsupportedValue indicates the value's type does not fit the
	// characteristic being written.
	ErrUnsupportedValue = errors.New("actions: unsupported value")

	// ErrCodeRequired indicates an alarm panel needs a code to arm and
	// none was supplied.
	ErrCodeRequired = errors.New("actions: alarm panel requires a code to arm")
)
