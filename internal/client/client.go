// Package client is the terminal front end for the relay: it performs the
// handshake, prints every line the server sends and forwards typed lines.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

// DefaultAddr is the server address used when none is given.
const DefaultAddr = "127.0.0.1:5555"

// ErrNoWelcome means the server closed or stayed silent during the handshake.
var ErrNoWelcome = errors.New("server did not welcome us")

// Config holds client settings.
type Config struct {
	Addr             string
	Nick             string
	HandshakeTimeout time.Duration
}

// Run connects, registers Nick and relays between in/out and the server until
// either side finishes. Empty Addr or Nick are prompted for on in.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	input := bufio.NewScanner(in)

	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		fmt.Fprintln(out, "Enter server address (ip:port):")
		var err error
		if addr, err = promptNonEmpty(input); err != nil {
			return fmt.Errorf("read address: %w", err)
		}
	}

	nick := strings.TrimSpace(cfg.Nick)
	if nick == "" {
		fmt.Fprintln(out, "Enter your nickname:")
		var err error
		if nick, err = promptNonEmpty(input); err != nil {
			return fmt.Errorf("read nickname: %w", err)
		}
	}

	fmt.Fprintf(out, "Connecting to %s ...\n", addr)
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := io.WriteString(conn, proto.KeywordNick+" "+nick+"\n"); err != nil {
		return fmt.Errorf("send nickname: %w", err)
	}

	incoming := bufio.NewReader(conn)
	_ = conn.SetReadDeadline(time.Now().Add(cfg.HandshakeTimeout))
	first, err := incoming.ReadString('\n')
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoWelcome, err)
	}
	_ = conn.SetReadDeadline(time.Time{})

	first = strings.TrimRight(first, "\r\n")
	if !strings.HasPrefix(first, "WELCOME") {
		fmt.Fprintf(out, "Connection rejected: %s\n", first)
		return nil
	}
	fmt.Fprintln(out, first)
	fmt.Fprintf(out, "Registered as: %s\n", nick)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		echo(incoming, out)
	}()
	defer func() {
		_ = conn.Close()
		<-serverDone
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for input.Scan() {
			select {
			case lines <- input.Text():
			case <-serverDone:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-serverDone:
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := io.WriteString(conn, line+"\n"); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

// echo prints server lines until the server says goodbye or the stream ends.
func echo(r *bufio.Reader, out io.Writer) {
	disconnected := proto.Server(proto.NoticeDisconnected)
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			fmt.Fprintln(out, line)
			if strings.HasPrefix(line, disconnected) {
				break
			}
		}
		if err != nil {
			break
		}
	}
	fmt.Fprintln(out, "Server closed the connection")
}

func promptNonEmpty(s *bufio.Scanner) (string, error) {
	for s.Scan() {
		if v := strings.TrimSpace(s.Text()); v != "" {
			return v, nil
		}
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return "", io.ErrUnexpectedEOF
}
