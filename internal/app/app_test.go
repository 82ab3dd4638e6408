package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/log"
)

func TestRunStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.AuditDBPath = filepath.Join(t.TempDir(), "audit.db")
	cfg.PresenceSchedule = "@every 1h"
	cfg.ShutdownTimeout = time.Second

	a, err := New(cfg, log.Nop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.PresenceSchedule = "whenever"

	if _, err := New(cfg, log.Nop()); err == nil {
		t.Fatal("expected schedule error")
	}
}

func TestRunReportsListenFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "256.0.0.1:1"

	a, err := New(cfg, log.Nop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := a.Run(ctx); err == nil {
		t.Fatal("expected listen error")
	}
}
