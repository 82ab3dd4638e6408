package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

type staticSource []core.Presence

func (s staticSource) Online() []core.Presence { return s }

func TestReportLogsSnapshot(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r, err := NewPresenceReporter("@every 1h", staticSource{{ID: 1, Name: "alice"}, {ID: 2, Name: "bob"}}, &logger)
	if err != nil {
		t.Fatalf("new reporter: %v", err)
	}
	r.Report()

	var entry struct {
		Online int      `json:"online"`
		Names  []string `json:"names"`
		Msg    string   `json:"message"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry.Online != 2 || len(entry.Names) != 2 || entry.Names[0] != "alice" || entry.Msg != "presence report" {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
}

func TestInvalidScheduleRejected(t *testing.T) {
	logger := zerolog.Nop()
	if _, err := NewPresenceReporter("every tuesday", staticSource{}, &logger); err == nil {
		t.Fatal("expected schedule parse error")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	logger := zerolog.Nop()
	r, err := NewPresenceReporter("@every 1h", staticSource{}, &logger)
	if err != nil {
		t.Fatalf("new reporter: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reporter did not stop")
	}
}
