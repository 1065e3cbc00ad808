package gosio

import "errors"

// Packet codec errors. Callers match them with errors.Is; decode failures
// carry extra detail wrapped around the sentinel.
var (
	ErrEmptyInput              = errors.New("empty packet")
	ErrUnknownPacketType       = errors.New("unknown packet type")
	ErrUnsupportedBinaryPacket = errors.New("binary packets are not supported")
	ErrInvalidAckID            = errors.New("invalid ack id")
	ErrInvalidPayload          = errors.New("invalid packet payload")
)

// Namespace name validation errors.
var (
	ErrEmptyName          = errors.New("namespace name is empty")
	ErrMustStartWithSlash = errors.New("namespace name must start with '/'")
	ErrContainsComma      = errors.New("namespace name must not contain ','")
)

var (
	ErrDuplicateNamespace = errors.New("namespace already exists")
	ErrUnknownNamespace   = errors.New("unknown namespace")

	// ErrSocketClosed is returned when pushing to a socket that is no longer active.
	ErrSocketClosed = errors.New("socket closed")
)
