package core

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/utils"
)

// Options tune every session served by a Hub.
type Options struct {
	HandshakeTimeout   time.Duration
	IdleTimeout        time.Duration
	WriteTimeout       time.Duration
	QueueSize          int
	MaxLineBytes       int
	RateLimitPerMinute int
	AdminName          string
}

// OptionsFromConfig extracts session options from the server configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		HandshakeTimeout:   cfg.HandshakeTimeout,
		IdleTimeout:        cfg.IdleTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		QueueSize:          cfg.QueueSize,
		MaxLineBytes:       cfg.MaxLineBytes,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AdminName:          cfg.AdminName,
	}
}

func (o Options) withDefaults() Options {
	def := OptionsFromConfig(config.Default())
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = def.HandshakeTimeout
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = def.IdleTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = def.WriteTimeout
	}
	if o.QueueSize <= 0 {
		o.QueueSize = def.QueueSize
	}
	if o.MaxLineBytes <= 0 {
		o.MaxLineBytes = def.MaxLineBytes
	}
	if o.AdminName == "" {
		o.AdminName = def.AdminName
	}
	return o
}

// Hub owns the shared registry and runs one session per connection handed to
// Serve, whatever transport accepted it.
type Hub struct {
	registry *Registry
	router   *Router
	ids      utils.Sequence
	opts     Options
	audit    store.AuditStore
	log      *zerolog.Logger

	sessions sync.WaitGroup
}

// NewHub creates a hub. audit may be nil.
func NewHub(opts Options, audit store.AuditStore, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	opts = opts.withDefaults()
	registry := NewRegistry()
	router := NewRouter(registry, opts.AdminName)
	logger.Debug().
		Str("admin_name", router.AdminName()).
		Dur("idle_timeout", opts.IdleTimeout).
		Int("queue_size", opts.QueueSize).
		Msg("hub ready")
	return &Hub{
		registry: registry,
		router:   router,
		opts:     opts,
		audit:    audit,
		log:      logger,
	}
}

// Registry exposes the shared registry for read-only reporting.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Serve runs a session on conn until it closes. It owns conn from here on.
// Cancelling ctx disconnects the session as if it had been kicked.
func (h *Hub) Serve(ctx context.Context, conn net.Conn) {
	h.sessions.Add(1)
	defer h.sessions.Done()

	s := newSession(h, ConnID(h.ids.Next()), conn)
	s.run(ctx)
}

// Wait blocks until every session started by Serve has closed.
func (h *Hub) Wait() {
	h.sessions.Wait()
}

func (h *Hub) record(ev *store.AuditEvent) {
	if h.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.audit.RecordEvent(ctx, ev); err != nil {
		h.log.Warn().Err(err).Str("kind", string(ev.Kind)).Msg("failed to record audit event")
	}
}
