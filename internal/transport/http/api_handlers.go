package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

const maxAuditLimit = 500

// APIHandlers provides read-only JSON endpoints over relay state.
type APIHandlers struct {
	registry *core.Registry
	audit    store.AuditStore
	log      *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(registry *core.Registry, audit store.AuditStore, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		registry: registry,
		audit:    audit,
		log:      logger,
	}
}

// OnlineResponse lists registered connections.
type OnlineResponse struct {
	Count int             `json:"count"`
	Users []core.Presence `json:"users"`
}

// AuditEventResponse is one audit trail entry.
type AuditEventResponse struct {
	ID        int64  `json:"id"`
	Kind      string `json:"kind"`
	ConnID    uint64 `json:"conn_id"`
	Name      string `json:"name,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	Target    uint64 `json:"target,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// AuditResponse wraps the audit trail.
type AuditResponse struct {
	Enabled bool                 `json:"enabled"`
	Events  []AuditEventResponse `json:"events"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Online lists who is connected.
// GET /api/online
func (h *APIHandlers) Online(c *gin.Context) {
	users := h.registry.Online()
	c.JSON(http.StatusOK, OnlineResponse{Count: len(users), Users: users})
}

// Audit returns the most recent audit events.
// GET /api/audit?limit=N
func (h *APIHandlers) Audit(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxAuditLimit)
	}

	if h.audit == nil {
		c.JSON(http.StatusOK, AuditResponse{Enabled: false, Events: []AuditEventResponse{}})
		return
	}

	events, err := h.audit.ListEvents(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list audit events")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to list audit events"})
		return
	}

	resp := AuditResponse{Enabled: true, Events: make([]AuditEventResponse, 0, len(events))}
	for _, ev := range events {
		resp.Events = append(resp.Events, auditEventToResponse(ev))
	}
	c.JSON(http.StatusOK, resp)
}

func auditEventToResponse(ev store.AuditEvent) AuditEventResponse {
	return AuditEventResponse{
		ID:        ev.ID,
		Kind:      string(ev.Kind),
		ConnID:    ev.ConnID,
		Name:      ev.Name,
		TraceID:   ev.TraceID,
		Target:    ev.Target,
		Detail:    ev.Detail,
		CreatedAt: ev.CreatedAt.UTC().Format(time.RFC3339),
	}
}
