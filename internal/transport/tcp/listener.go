package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

const maxAcceptBackoff = time.Second

// Server accepts line-protocol connections and hands each to the hub.
type Server struct {
	addr string
	hub  *core.Hub
	log  *zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// NewServer builds a listener for addr.
func NewServer(addr string, hub *core.Hub, logger *zerolog.Logger) *Server {
	return &Server{
		addr:  addr,
		hub:   hub,
		log:   logger,
		ready: make(chan struct{}),
	}
}

// ListenAndServe binds the configured address and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled, then closes ln
// and waits for every session it started. Accept errors are logged and
// retried; they never stop the loop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	s.log.Info().Str("addr", ln.Addr().String()).Msg("tcp listener started")

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	var sessions sync.WaitGroup
	defer sessions.Wait()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.log.Info().Msg("tcp listener stopped")
				return nil
			}

			backoff = nextBackoff(backoff)
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("accept failed")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			continue
		}
		backoff = 0

		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}

		sessions.Add(1)
		go func() {
			defer sessions.Done()
			s.hub.Serve(ctx, conn)
		}()
	}
}

// Addr returns the bound address once Serve has started.
func (s *Server) Addr() net.Addr {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener.Addr()
}

func nextBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return 5 * time.Millisecond
	}
	if next := prev * 2; next < maxAcceptBackoff {
		return next
	}
	return maxAcceptBackoff
}
