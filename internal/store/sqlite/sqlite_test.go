package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRecordAndListEvents(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	events := []*store.AuditEvent{
		{Kind: store.AuditLogin, ConnID: 1, Name: "alice", TraceID: "t-1"},
		{Kind: store.AuditLogin, ConnID: 2, Name: "bob", TraceID: "t-2"},
		{Kind: store.AuditKick, ConnID: 2, Name: "bob", Target: 1, Detail: "alice"},
	}
	for _, ev := range events {
		if err := st.RecordEvent(ctx, ev); err != nil {
			t.Fatalf("record: %v", err)
		}
		if ev.ID == 0 {
			t.Fatal("expected ID to be set")
		}
	}

	got, err := st.ListEvents(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}

	newest := got[0]
	if newest.Kind != store.AuditKick || newest.Target != 1 || newest.Detail != "alice" || newest.ConnID != 2 {
		t.Fatalf("unexpected newest event: %+v", newest)
	}
	if got[2].Name != "alice" || got[2].TraceID != "t-1" {
		t.Fatalf("unexpected oldest event: %+v", got[2])
	}
	if newest.CreatedAt.IsZero() {
		t.Fatal("created_at not round-tripped")
	}
}

func TestListEventsRespectsLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := st.RecordEvent(ctx, &store.AuditEvent{Kind: store.AuditLogout, ConnID: uint64(i + 1)}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := st.ListEvents(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ConnID != 5 || got[1].ConnID != 4 {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestNewCreatesFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	st, err := New(path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := st.RecordEvent(context.Background(), &store.AuditEvent{Kind: store.AuditLogin, ConnID: 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
	_ = st.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.ListEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected persisted event, got %d", len(got))
	}
}
