package store

import (
	"context"
	"time"
)

// AuditKind names a session lifecycle or admin event worth keeping.
type AuditKind string

const (
	AuditLogin           AuditKind = "login"
	AuditLogout          AuditKind = "logout"
	AuditKick            AuditKind = "kick"
	AuditDenied          AuditKind = "denied"
	AuditHandshakeFailed AuditKind = "handshake_failed"
)

// AuditEvent is one row of the audit trail. Chat message bodies are never stored.
type AuditEvent struct {
	ID      int64
	Kind    AuditKind
	ConnID  uint64
	Name    string
	TraceID string
	// Target is the kicked connection id for AuditKick, zero otherwise.
	Target    uint64
	Detail    string
	CreatedAt time.Time
}

// AuditStore persists and lists audit events.
type AuditStore interface {
	RecordEvent(ctx context.Context, ev *AuditEvent) error
	ListEvents(ctx context.Context, limit int) ([]AuditEvent, error)
	Close() error
}
