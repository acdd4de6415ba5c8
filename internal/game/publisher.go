package game

import (
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/livequiz/pkg/http/ws"
)

// HubPublisher fans session events out to the session's WebSocket room.
type HubPublisher struct {
	hub    *ws.Hub
	logger zerolog.Logger
}

var _ Publisher = (*HubPublisher)(nil)

func NewHubPublisher(hub *ws.Hub, logger zerolog.Logger) *HubPublisher {
	return &HubPublisher{hub: hub, logger: logger.With().Str("component", "hub_publisher").Logger()}
}

// Publish enqueues without waiting on any socket; the hub logs per-connection drops.
func (p *HubPublisher) Publish(sessionID, msgType string, payload interface{}) {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		p.logger.Error().Err(err).Str("type", msgType).Msg("encode broadcast")
		return
	}
	_ = p.hub.Broadcast(sessionID, msg)
}

// Close unsubscribes the room; the sockets stay open for other sessions.
func (p *HubPublisher) Close(sessionID string) {
	p.hub.CloseRoom(sessionID)
}
