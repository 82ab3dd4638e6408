package http

import (
	"context"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// WSHandler upgrades HTTP connections and runs the line protocol over text
// frames. Each frame may carry any part of a line; lines are still
// delimited by '\n'.
type WSHandler struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	// The net.Conn must outlive request cancellation long enough for the
	// session to flush its final notice; the session closes it itself.
	conn := websocket.NetConn(context.WithoutCancel(r.Context()), c, websocket.MessageText)
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("ws session started")
	h.hub.Serve(r.Context(), conn)
	h.log.Debug().Str("remote", r.RemoteAddr).Msg("ws session ended")
}
