package proto

import "strconv"

// Server notices, sent as "[server] <notice>".
const (
	NoticeKicked             = "kicked"
	NoticeUserKicked         = "user kicked"
	NoticeUserNotFound       = "user not found"
	NoticeTargetNotFound     = "target not found"
	NoticeTargetDisconnected = "target disconnected"
	NoticeTargetOffline      = "target offline"
	NoticePermissionDenied   = "permission denied"
	NoticeInvalidID          = "invalid ID"
	NoticeInactivity         = "timed out due to inactivity"
	NoticeDisconnected       = "disconnected"
	NoticeRateLimited        = "rate limit exceeded"

	// NoticeCommands is sent once after WELCOME.
	NoticeCommands = "commands: TO <name> <msg> | TOID <id> <msg> | KICK <name> | KICKID <id>"
	// NoticeUsage answers any unrecognised line.
	NoticeUsage = "commands: TO | TOID | KICK | KICKID"
)

// Handshake failure reasons, sent as "ERR <reason>".
const (
	ErrReasonTimeout   = "timeout waiting for NICK"
	ErrReasonMalformed = "expected: NICK <name>"
	ErrReasonNameTaken = "name already in use"
)

const serverPrefix = "[server] "

// Server formats a server notice line.
func Server(notice string) string {
	return serverPrefix + notice
}

// Err formats a handshake failure line.
func Err(reason string) string {
	return "ERR " + reason
}

// Welcome formats the handshake acknowledgement.
func Welcome(id uint64, name string) string {
	return "WELCOME " + strconv.FormatUint(id, 10) + " " + name
}

// From formats a relayed message as seen by its recipient.
func From(name string, id uint64, text string) string {
	return "from " + name + "(" + strconv.FormatUint(id, 10) + "): " + text
}
