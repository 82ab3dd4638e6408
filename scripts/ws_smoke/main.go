// Command ws_smoke registers two nicknames over the /ws gateway, sends a
// private message between them and checks it arrives.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

type lineConn struct {
	net.Conn
	r *bufio.Reader
}

func dial(ctx context.Context, addr, nick string) (*lineConn, string, error) {
	ws, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, "", fmt.Errorf("dial: %w", err)
	}
	c := &lineConn{Conn: websocket.NetConn(ctx, ws, websocket.MessageText)}
	c.r = bufio.NewReader(c.Conn)

	if err := c.send(proto.KeywordNick + " " + nick); err != nil {
		_ = c.Close()
		return nil, "", err
	}
	welcome, err := c.read()
	if err != nil {
		_ = c.Close()
		return nil, "", err
	}
	if !strings.HasPrefix(welcome, "WELCOME") {
		_ = c.Close()
		return nil, "", fmt.Errorf("%s rejected: %s", nick, welcome)
	}
	// commands hint
	if _, err := c.read(); err != nil {
		_ = c.Close()
		return nil, "", err
	}
	return c, welcome, nil
}

func (c *lineConn) send(line string) error {
	if _, err := c.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("send %q: %w", line, err)
	}
	return nil
}

func (c *lineConn) read() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket gateway address")
	from := flag.String("from", "smoke-a", "sender nickname")
	to := flag.String("to", "smoke-b", "recipient nickname")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sender, welcome, err := dial(ctx, *addr, *from)
	if err != nil {
		return err
	}
	defer sender.Close()
	fmt.Println(welcome)

	recipient, welcome, err := dial(ctx, *addr, *to)
	if err != nil {
		return err
	}
	defer recipient.Close()
	fmt.Println(welcome)

	if err := sender.send(proto.KeywordTo + " " + *to + " " + *text); err != nil {
		return err
	}

	got, err := recipient.read()
	if err != nil {
		return err
	}
	fmt.Printf("Received: %s\n", got)
	if !strings.HasSuffix(got, ": "+*text) {
		return fmt.Errorf("unexpected delivery %q", got)
	}
	return nil
}
