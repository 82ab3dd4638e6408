// Package proto defines the newline-delimited text protocol spoken between
// relay clients and the server.
package proto

import (
	"strconv"
	"strings"
	"unicode"
)

// Inbound command keywords.
const (
	KeywordNick   = "NICK"
	KeywordKick   = "KICK"
	KeywordKickID = "KICKID"
	KeywordTo     = "TO"
	KeywordToID   = "TOID"
)

// Kind classifies an inbound line received after the handshake.
type Kind int

const (
	// KindUnknown is any line that matches no command; it earns a usage reply.
	KindUnknown Kind = iota
	// KindKick force-disconnects a user by nickname.
	KindKick
	// KindKickID force-disconnects a connection by id. Admin only.
	KindKickID
	// KindTo sends a message to a nickname.
	KindTo
	// KindToID sends a message to a connection id.
	KindToID
)

func (k Kind) String() string {
	switch k {
	case KindKick:
		return "kick"
	case KindKickID:
		return "kick_id"
	case KindTo:
		return "to"
	case KindToID:
		return "to_id"
	default:
		return "unknown"
	}
}

// Command is a parsed inbound line.
type Command struct {
	Kind Kind
	// Name is the target nickname for KICK and TO.
	Name string
	// RawID is the unparsed argument of KICKID; validation happens after the privilege check.
	RawID string
	// ID is the target connection id for TOID.
	ID uint64
	// Text is the message body for TO and TOID, kept verbatim.
	Text string
}

// Parse classifies a line. The line is trimmed first and the first matching rule wins:
// KICK, KICKID, TO, TOID. A TOID with a non-numeric id is KindUnknown.
func Parse(line string) Command {
	line = strings.TrimSpace(line)

	if name, ok := strings.CutPrefix(line, KeywordKick+" "); ok {
		return Command{Kind: KindKick, Name: name}
	}
	if raw, ok := strings.CutPrefix(line, KeywordKickID+" "); ok {
		return Command{Kind: KindKickID, RawID: raw}
	}

	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return Command{Kind: KindUnknown}
	}

	switch parts[0] {
	case KeywordTo:
		return Command{Kind: KindTo, Name: parts[1], Text: parts[2]}
	case KeywordToID:
		id, err := ParseID(parts[1])
		if err != nil {
			return Command{Kind: KindUnknown}
		}
		return Command{Kind: KindToID, ID: id, Text: parts[2]}
	}

	return Command{Kind: KindUnknown}
}

// ParseID parses a decimal connection id.
func ParseID(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// ParseNick extracts the nickname from a handshake line of the form "NICK <name>".
// The keyword is case-insensitive. Names must be non-empty and contain no whitespace,
// otherwise they could never be addressed by TO or KICK.
func ParseNick(line string) (string, bool) {
	cmd, rest, ok := strings.Cut(strings.TrimSpace(line), " ")
	if !ok || !strings.EqualFold(cmd, KeywordNick) {
		return "", false
	}
	name := strings.TrimSpace(rest)
	if name == "" || strings.ContainsFunc(name, unicode.IsSpace) {
		return "", false
	}
	return name, true
}
