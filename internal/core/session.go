package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/utils"
)

// State is a session's position in its lifecycle.
type State int

const (
	StateConnecting State = iota
	StateHandshaking
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type inbound struct {
	line string
	err  error
}

// session is the actor owning one connection: a scanner feeding the reader
// loop, and a writer loop draining the outbox.
type session struct {
	hub     *Hub
	id      ConnID
	traceID string
	conn    net.Conn
	log     zerolog.Logger

	state   State
	name    string
	out     *Outbox
	limiter *rateLimiter

	writeFailed atomic.Bool
}

func newSession(h *Hub, id ConnID, conn net.Conn) *session {
	traceID := utils.NewTraceID()
	return &session{
		hub:     h,
		id:      id,
		traceID: traceID,
		conn:    conn,
		log: h.log.With().
			Uint64("conn_id", uint64(id)).
			Str("trace_id", traceID).
			Str("remote", remoteAddr(conn)).
			Logger(),
		limiter: newRateLimiter(h.opts.RateLimitPerMinute),
	}
}

func (s *session) run(ctx context.Context) {
	defer s.conn.Close()

	s.setState(StateConnecting)
	s.log.Info().Msg("client connected")

	stop := make(chan struct{})
	defer close(stop)
	lines := s.scan(stop)

	s.setState(StateHandshaking)
	name, err := s.handshake(ctx, lines)
	if err != nil {
		s.log.Info().Err(err).Msg("handshake failed")
		s.record(store.AuditHandshakeFailed, "", 0, err.Error())
		s.setState(StateClosed)
		return
	}

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The greeting is queued while the outbox is still private, so nothing
	// routed to the new id can overtake it.
	s.out = NewOutbox(max(s.hub.opts.QueueSize, 2))
	_ = s.out.Send(sessCtx, proto.Welcome(uint64(s.id), name))
	_ = s.out.Send(sessCtx, proto.Server(proto.NoticeCommands))

	if err := s.hub.registry.Register(s.id, name, s.out, cancel); err != nil {
		_ = s.write(proto.Err(proto.ErrReasonNameTaken))
		s.log.Info().Err(err).Str("name", name).Msg("handshake rejected")
		s.record(store.AuditHandshakeFailed, name, 0, err.Error())
		s.setState(StateClosed)
		return
	}

	s.name = name
	s.log = s.log.With().Str("name", name).Logger()
	s.log.Info().Msg("client logged in")
	s.record(store.AuditLogin, name, 0, "")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(cancel)
	}()

	s.setState(StateActive)

	reason := s.readLoop(sessCtx, lines)

	s.setState(StateClosing)
	if _, removed := s.hub.registry.Deregister(s.id); removed {
		s.log.Info().Str("reason", string(reason)).Msg("client removed")
	}
	s.out.Close()
	<-writerDone

	s.record(store.AuditLogout, name, 0, string(reason))
	s.setState(StateClosed)
	s.log.Info().Str("reason", string(reason)).Msg("client disconnected")
}

// scan feeds complete lines to the returned channel until the connection
// fails or stop is closed. The last value carries the terminating error.
func (s *session) scan(stop <-chan struct{}) <-chan inbound {
	lines := make(chan inbound)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(s.conn)
		limit := s.hub.opts.MaxLineBytes
		scanner.Buffer(make([]byte, 0, min(4096, limit)), limit)

		for scanner.Scan() {
			select {
			case lines <- inbound{line: scanner.Text()}:
			case <-stop:
				return
			}
		}

		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		select {
		case lines <- inbound{err: err}:
		case <-stop:
		}
	}()
	return lines
}

func (s *session) handshake(ctx context.Context, lines <-chan inbound) (string, error) {
	timer := time.NewTimer(s.hub.opts.HandshakeTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		_ = s.write(proto.Err(proto.ErrReasonTimeout))
		return "", ErrHandshakeTimeout
	case in, ok := <-lines:
		if !ok {
			return "", fmt.Errorf("%w: %w", ErrReadFailure, io.EOF)
		}
		if in.err != nil {
			return "", fmt.Errorf("%w: %w", ErrReadFailure, in.err)
		}
		name, valid := proto.ParseNick(in.line)
		if !valid {
			_ = s.write(proto.Err(proto.ErrReasonMalformed))
			return "", ErrHandshakeMalformed
		}
		return name, nil
	}
}

// readLoop runs until the peer goes away, the idle window lapses, or ctx is
// cancelled by a kick, a writer failure or server shutdown.
func (s *session) readLoop(ctx context.Context, lines <-chan inbound) CloseReason {
	idle := time.NewTimer(s.hub.opts.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.writeFailed.Load() {
				return CloseReasonWriteError
			}
			s.notifyClosing(proto.Server(proto.NoticeDisconnected))
			return CloseReasonCancelled

		case <-idle.C:
			s.log.Info().Dur("idle_timeout", s.hub.opts.IdleTimeout).Msg("client idle")
			s.notifyClosing(proto.Server(proto.NoticeInactivity))
			return CloseReasonIdle

		case in, ok := <-lines:
			if !ok {
				return CloseReasonPeerClosed
			}
			if in.err != nil {
				if errors.Is(in.err, io.EOF) {
					return CloseReasonPeerClosed
				}
				s.log.Debug().Err(fmt.Errorf("%w: %w", ErrReadFailure, in.err)).Msg("read line")
				return CloseReasonReadError
			}
			s.handleLine(ctx, in.line)
			idle.Reset(s.hub.opts.IdleTimeout)
		}
	}
}

func (s *session) handleLine(ctx context.Context, line string) {
	if !s.limiter.allow() {
		s.log.Warn().Msg("rate limit exceeded")
		_ = s.out.Send(ctx, proto.Server(proto.NoticeRateLimited))
		return
	}

	outcome := s.hub.router.Route(s.id, s.name, line)
	cmd := outcome.Command

	switch cmd.Kind {
	case proto.KindKick:
		s.log.Info().Str("target", cmd.Name).Msg("kick requested")
	case proto.KindKickID:
		s.log.Info().Str("target", cmd.RawID).Msg("kick by id requested")
		if errors.Is(outcome.Err, ErrPermissionDenied) {
			s.log.Warn().Msg("admin command denied")
			s.record(store.AuditDenied, s.name, 0, line)
		}
	case proto.KindTo:
		s.log.Debug().Str("target", cmd.Name).Str("text", cmd.Text).Msg("message")
	case proto.KindToID:
		s.log.Debug().Uint64("target", cmd.ID).Str("text", cmd.Text).Msg("message")
	default:
		s.log.Debug().Str("line", line).Msg("unknown command")
	}
	if outcome.Err != nil {
		s.log.Debug().Err(outcome.Err).Msg("command rejected")
	}

	s.apply(ctx, outcome)
}

// apply performs an Outcome: deliveries, then kicks, then the reply.
func (s *session) apply(ctx context.Context, outcome Outcome) {
	reply := outcome.Reply

	for _, d := range outcome.Deliveries {
		if err := s.hub.registry.Deliver(ctx, d.To, d.Payload); err != nil {
			s.log.Debug().Err(err).Uint64("target", uint64(d.To)).Msg("delivery failed")
			if d.FailReply != "" {
				reply = d.FailReply
			}
		}
	}

	for _, target := range outcome.Kicks {
		name, removed := s.hub.registry.Deregister(target)
		s.log.Info().
			Uint64("target", uint64(target)).
			Str("target_name", name).
			Bool("removed", removed).
			Msg("user kicked")
		s.record(store.AuditKick, s.name, target, name)
	}

	if reply != "" {
		_ = s.out.Send(ctx, reply)
	}
}

// writeLoop drains the outbox to the socket. After Close it flushes whatever
// is still queued, then returns. A failed write cancels the session.
func (s *session) writeLoop(cancel context.CancelFunc) {
	for {
		select {
		case msg := <-s.out.C():
			if err := s.write(msg); err != nil {
				s.log.Debug().Err(err).Msg("write failed")
				s.writeFailed.Store(true)
				s.out.Close()
				cancel()
				return
			}
		case <-s.out.Done():
			for {
				select {
				case msg := <-s.out.C():
					if err := s.write(msg); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// notifyClosing queues a final notice without depending on the session
// context, which is usually already cancelled at this point.
func (s *session) notifyClosing(msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.hub.opts.WriteTimeout)
	defer cancel()
	_ = s.out.Send(ctx, msg)
}

func (s *session) write(msg string) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.hub.opts.WriteTimeout)); err != nil {
		return err
	}
	_, err := io.WriteString(s.conn, msg+"\n")
	return err
}

func (s *session) setState(state State) {
	s.state = state
	s.log.Trace().Str("state", state.String()).Msg("session state")
}

func (s *session) record(kind store.AuditKind, name string, target ConnID, detail string) {
	s.hub.record(&store.AuditEvent{
		Kind:      kind,
		ConnID:    uint64(s.id),
		Name:      name,
		TraceID:   s.traceID,
		Target:    uint64(target),
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
