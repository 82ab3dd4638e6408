package tcp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/log"
)

// flakyListener fails the first Accept calls before delegating.
type flakyListener struct {
	net.Listener
	failures atomic.Int32
}

func (l *flakyListener) Accept() (net.Conn, error) {
	if l.failures.Add(-1) >= 0 {
		return nil, errors.New("too many open files")
	}
	return l.Listener.Accept()
}

type testServer struct {
	srv    *Server
	hub    *core.Hub
	cancel context.CancelFunc
	done   <-chan error
}

func startTestServer(t *testing.T, wrap func(net.Listener) net.Listener) testServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if wrap != nil {
		ln = wrap(ln)
	}

	hub := core.NewHub(core.Options{
		HandshakeTimeout: time.Second,
		IdleTimeout:      5 * time.Second,
		WriteTimeout:     time.Second,
	}, nil, log.Nop())
	srv := NewServer("", hub, log.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(cancel)

	return testServer{srv: srv, hub: hub, cancel: cancel, done: done}
}

type lineConn struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr net.Addr) *lineConn {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &lineConn{t: t, conn: conn, r: bufio.NewReader(conn)}
}

func (c *lineConn) send(line string) {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		c.t.Fatalf("send %q: %v", line, err)
	}
}

func (c *lineConn) expect(want string) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := c.r.ReadString('\n')
	if err != nil {
		c.t.Fatalf("expected %q, read failed: %v", want, err)
	}
	if got = strings.TrimRight(got, "\r\n"); got != want {
		c.t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestEndToEndOverTCP(t *testing.T) {
	ts := startTestServer(t, nil)
	const commands = "[server] commands: TO <name> <msg> | TOID <id> <msg> | KICK <name> | KICKID <id>"

	a := dial(t, ts.srv.Addr())
	a.send("NICK alice")
	a.expect("WELCOME 1 alice")
	a.expect(commands)

	b := dial(t, ts.srv.Addr())
	b.send("NICK bob")
	b.expect("WELCOME 2 bob")
	b.expect(commands)

	a.send("TO bob hello")
	b.expect("from alice(1): hello")

	b.send("TOID 1 hi")
	a.expect("from bob(2): hi")

	_ = a.conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := ts.hub.Registry().LookupByName("alice"); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("alice never went offline")
		}
		time.Sleep(10 * time.Millisecond)
	}

	b.send("TO alice test")
	b.expect("[server] target not found")
}

func TestAcceptErrorsAreNotFatal(t *testing.T) {
	ts := startTestServer(t, func(ln net.Listener) net.Listener {
		fl := &flakyListener{Listener: ln}
		fl.failures.Store(3)
		return fl
	})

	c := dial(t, ts.srv.Addr())
	c.send("NICK survivor")
	c.expect("WELCOME 1 survivor")

	select {
	case err := <-ts.done:
		t.Fatalf("listener exited early: %v", err)
	default:
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ts := startTestServer(t, nil)

	c := dial(t, ts.srv.Addr())
	c.send("NICK alice")
	c.expect("WELCOME 1 alice")

	ts.cancel()

	c.expect("[server] commands: TO <name> <msg> | TOID <id> <msg> | KICK <name> | KICKID <id>")
	c.expect("[server] disconnected")

	select {
	case err := <-ts.done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
