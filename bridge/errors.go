package bridge

import "errors"

var (
	// ErrConnectionFailed is returned when the broker cannot be reached or
	// refuses the connection within the connect timeout.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a message could not be delivered.
	// Remaining messages of the cycle are not sent.
	ErrPublishFailed = errors.New("mqtt: publish failed")
)
