package gateway

import "errors"

var (
	ErrClosed            = errors.New("gateway closed")
	ErrInvalidMessage    = errors.New("invalid message")
	ErrUnexpectedPayload = errors.New("unexpected payload type")
)
