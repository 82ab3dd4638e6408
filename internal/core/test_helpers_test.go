package core

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var errBrokenPipe = errors.New("broken pipe")

// failingConn fails every write after the first okWrites.
type failingConn struct {
	net.Conn
	okWrites int32
	writes   atomic.Int32
}

func (c *failingConn) Write(p []byte) (int, error) {
	if c.writes.Add(1) > c.okWrites {
		return 0, errBrokenPipe
	}
	return c.Conn.Write(p)
}

const testWait = 2 * time.Second

func testOptions() Options {
	return Options{
		HandshakeTimeout: time.Second,
		IdleTimeout:      5 * time.Second,
		WriteTimeout:     time.Second,
		QueueSize:        16,
	}
}

type harness struct {
	t      *testing.T
	hub    *Hub
	ctx    context.Context
	cancel context.CancelFunc
}

// newHarness runs a hub whose sessions are cancelled when the test ends.
func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	hub := NewHub(opts, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})
	return &harness{t: t, hub: hub, ctx: ctx, cancel: cancel}
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

// connect attaches a client to the hub over an in-memory pipe.
func (h *harness) connect() *testClient {
	h.t.Helper()

	server, client := net.Pipe()
	go h.hub.Serve(h.ctx, server)
	h.t.Cleanup(func() { _ = client.Close() })

	return &testClient{t: h.t, conn: client, r: bufio.NewReader(client)}
}

func (c *testClient) send(line string) {
	c.t.Helper()

	_ = c.conn.SetWriteDeadline(time.Now().Add(testWait))
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		c.t.Fatalf("send %q: %v", line, err)
	}
}

func (c *testClient) readLine() (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(testWait))
	line, err := c.r.ReadString('\n')
	return strings.TrimSuffix(line, "\n"), err
}

func (c *testClient) expect(want string) {
	c.t.Helper()

	got, err := c.readLine()
	if err != nil {
		c.t.Fatalf("expected %q, read failed: %v", want, err)
	}
	if got != want {
		c.t.Fatalf("expected %q, got %q", want, got)
	}
}

// expectClosed asserts the server hung up without sending anything else.
func (c *testClient) expectClosed() {
	c.t.Helper()

	line, err := c.readLine()
	if err == nil {
		c.t.Fatalf("expected connection to close, got line %q", line)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		c.t.Fatal("expected connection to close, timed out instead")
	}
}

// login performs the handshake and returns the assigned id.
func (c *testClient) login(name string) ConnID {
	c.t.Helper()

	c.send("NICK " + name)
	welcome, err := c.readLine()
	if err != nil {
		c.t.Fatalf("read welcome: %v", err)
	}
	fields := strings.Fields(welcome)
	if len(fields) != 3 || fields[0] != "WELCOME" || fields[2] != name {
		c.t.Fatalf("unexpected welcome %q", welcome)
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		c.t.Fatalf("welcome id: %v", err)
	}
	c.expect("[server] commands: TO <name> <msg> | TOID <id> <msg> | KICK <name> | KICKID <id>")
	return ConnID(id)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(testWait)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
