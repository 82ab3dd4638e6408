package core

import (
	"fmt"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

// DefaultAdminName is the reserved nickname allowed to use KICKID.
const DefaultAdminName = "admin"

// Directory is the read-only registry view the router needs.
type Directory interface {
	LookupByName(name string) (ConnID, bool)
}

// Delivery is one message the session must enqueue for another connection.
type Delivery struct {
	To      ConnID
	Payload string
	// FailReply replaces the sender's reply when delivery fails. Empty means
	// the failure is absorbed silently.
	FailReply string
}

// Outcome is everything a single inbound line asks the session to do, in
// order: deliveries, then kicks, then the reply to the sender.
type Outcome struct {
	Command    proto.Command
	Deliveries []Delivery
	Kicks      []ConnID
	Reply      string
	// Err classifies a rejected command for logging; it is never sent.
	Err error
}

// Router turns protocol lines into Outcomes. It never mutates the registry.
type Router struct {
	dir       Directory
	adminName string
}

// NewRouter builds a router backed by dir.
func NewRouter(dir Directory, adminName string) *Router {
	if adminName == "" {
		adminName = DefaultAdminName
	}
	return &Router{dir: dir, adminName: adminName}
}

// AdminName returns the nickname allowed to kick by id.
func (r *Router) AdminName() string {
	return r.adminName
}

// Route classifies line on behalf of sender.
func (r *Router) Route(sender ConnID, senderName, line string) Outcome {
	cmd := proto.Parse(line)
	out := Outcome{Command: cmd}

	switch cmd.Kind {
	case proto.KindKick:
		target, ok := r.dir.LookupByName(cmd.Name)
		if !ok {
			out.Reply = proto.Server(proto.NoticeUserNotFound)
			out.Err = fmt.Errorf("kick %q: %w", cmd.Name, ErrNotFound)
			return out
		}
		r.kick(&out, target)

	case proto.KindKickID:
		if senderName != r.adminName {
			out.Reply = proto.Server(proto.NoticePermissionDenied)
			out.Err = fmt.Errorf("kick by id from %q: %w", senderName, ErrPermissionDenied)
			return out
		}
		id, err := proto.ParseID(cmd.RawID)
		if err != nil {
			out.Reply = proto.Server(proto.NoticeInvalidID)
			out.Err = fmt.Errorf("kick by id %q: %w", cmd.RawID, ErrParseFailure)
			return out
		}
		r.kick(&out, ConnID(id))

	case proto.KindTo:
		target, ok := r.dir.LookupByName(cmd.Name)
		if !ok {
			out.Reply = proto.Server(proto.NoticeTargetNotFound)
			out.Err = fmt.Errorf("message to %q: %w", cmd.Name, ErrNotFound)
			return out
		}
		out.Deliveries = []Delivery{{
			To:        target,
			Payload:   proto.From(senderName, uint64(sender), cmd.Text),
			FailReply: proto.Server(proto.NoticeTargetDisconnected),
		}}

	case proto.KindToID:
		out.Deliveries = []Delivery{{
			To:        ConnID(cmd.ID),
			Payload:   proto.From(senderName, uint64(sender), cmd.Text),
			FailReply: proto.Server(proto.NoticeTargetOffline),
		}}

	default:
		out.Reply = proto.Server(proto.NoticeUsage)
	}

	return out
}

// kick notifies the target, tears it down and confirms to the sender. A
// target that is already gone makes the notice undeliverable, which is fine.
func (r *Router) kick(out *Outcome, target ConnID) {
	out.Deliveries = []Delivery{{To: target, Payload: proto.Server(proto.NoticeKicked)}}
	out.Kicks = []ConnID{target}
	out.Reply = proto.Server(proto.NoticeUserKicked)
}
