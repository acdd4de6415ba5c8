package game

import (
	"net/http"

	"github.com/gokatarajesh/livequiz/internal/server"
)

// HandleWebSocket upgrades the request and serves game events on it.
// Players are anonymous; host commands carry their own token.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	h.HandleConnection(conn)
}
