package core

import "errors"

// Session and routing errors. None of them crosses the wire; the session
// translates each into at most one reply line.
var (
	ErrHandshakeTimeout   = errors.New("handshake timed out")
	ErrHandshakeMalformed = errors.New("malformed handshake")
	ErrNameTaken          = errors.New("name already in use")
	ErrReadFailure        = errors.New("read failure")
	ErrUndeliverable      = errors.New("undeliverable")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrParseFailure       = errors.New("invalid id")
	ErrNotFound           = errors.New("not found")
)

// CloseReason describes why a session left the Active state.
type CloseReason string

const (
	CloseReasonPeerClosed CloseReason = "peer_closed"
	CloseReasonReadError  CloseReason = "read_error"
	CloseReasonWriteError CloseReason = "write_error"
	CloseReasonIdle       CloseReason = "idle_timeout"
	CloseReasonCancelled  CloseReason = "cancelled"
)
