package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// NewServer builds the ops HTTP server: health, presence, audit trail and the
// WebSocket gateway into the line protocol. audit may be nil. /ws stays on the
// plain mux because the upgrade must hijack an unwritten response.
func NewServer(hub *core.Hub, audit store.AuditStore, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	api := NewAPIHandlers(hub.Registry(), audit, logger)

	router.GET("/health", healthHandler)
	router.GET("/api/online", api.Online)
	router.GET("/api/audit", api.Audit)

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
