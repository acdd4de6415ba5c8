package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	httperrors "github.com/gokatarajesh/livequiz/pkg/http/errors"
	"github.com/gokatarajesh/livequiz/pkg/http/ws"
)

// binding is the last session/player a connection joined as. It is advisory
// and only used to turn a dropped socket into a leave. The most recent
// connection to join as a player owns that player; only the owner's
// disconnect marks them inactive.
type binding struct {
	sessionID  string
	playerName string
}

// Handler adapts WebSocket events to machine calls.
type Handler struct {
	machine  *Machine
	hub      *ws.Hub
	metrics  Metrics
	bindings sync.Map // uuid.UUID -> binding
	owners   sync.Map // binding -> uuid.UUID
	logger   zerolog.Logger
}

// NewHandler creates a game WebSocket handler. metrics may be nil.
func NewHandler(machine *Machine, hub *ws.Hub, metrics Metrics, logger zerolog.Logger) *Handler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Handler{
		machine: machine,
		hub:     hub,
		metrics: metrics,
		logger:  logger.With().Str("component", "game_gateway").Logger(),
	}
}

// HandleConnection serves one socket until it closes.
func (h *Handler) HandleConnection(conn *websocket.Conn) {
	wsConn := ws.NewConnection(conn, h.logger)
	h.hub.RegisterConnection(wsConn)
	h.metrics.SocketOpened()

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(wsConn.ID, msg)
	})

	h.disconnect(wsConn.ID)
	h.hub.UnregisterConnection(wsConn.ID)
	h.metrics.SocketClosed()
}

// handleMessage routes incoming WebSocket messages.
func (h *Handler) handleMessage(connID uuid.UUID, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeJoin:
		return h.handleJoin(connID, msg)
	case ws.TypeLeave:
		return h.handleLeave(connID, msg)
	case ws.TypeStart:
		return h.handleStart(connID, msg)
	case ws.TypeNextQuestion:
		return h.handleNextQuestion(connID, msg)
	case ws.TypeSubmitAnswer:
		return h.handleSubmitAnswer(connID, msg)
	case ws.TypeEnd:
		return h.handleEnd(connID, msg)
	default:
		return h.sendError(connID, msg.RequestID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleJoin(connID uuid.UUID, msg ws.Message) error {
	var req ws.JoinPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(connID, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid join payload")
	}

	if prev, ok := h.binding(connID); ok && (prev.sessionID != req.SessionID || prev.playerName != req.PlayerName) {
		h.release(connID, prev)
	}

	// Subscribe first so the roster broadcast from this join reaches the joiner.
	wasSubscribed := h.hub.InRoom(req.SessionID, connID)
	h.hub.JoinRoom(req.SessionID, connID)

	res, err := h.machine.Join(req.SessionID, req.PlayerName)
	if err != nil {
		if !wasSubscribed {
			h.hub.LeaveRoom(req.SessionID, connID)
		}
		return h.sendEngineError(connID, msg.RequestID, err)
	}

	b := binding{sessionID: req.SessionID, playerName: res.Joined.Player.Name}
	h.bindings.Store(connID, b)
	h.owners.Store(b, connID)
	if err := h.reply(connID, msg.RequestID, ws.TypeJoined, res.Joined); err != nil {
		return err
	}
	if res.Question != nil {
		return h.reply(connID, msg.RequestID, ws.TypeQuestionStarted, res.Question)
	}
	return nil
}

func (h *Handler) handleLeave(connID uuid.UUID, msg ws.Message) error {
	var req ws.LeavePayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(connID, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid leave payload")
	}

	if err := h.machine.Leave(req.SessionID, req.PlayerName); err != nil {
		return h.sendEngineError(connID, msg.RequestID, err)
	}
	if prev, ok := h.binding(connID); ok && prev.sessionID == req.SessionID && prev.playerName == req.PlayerName {
		h.bindings.Delete(connID)
		h.owners.CompareAndDelete(prev, connID)
	}
	h.hub.LeaveRoom(req.SessionID, connID)
	return nil
}

func (h *Handler) handleStart(connID uuid.UUID, msg ws.Message) error {
	var req ws.StartPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(connID, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid start payload")
	}
	return h.hostCommand(connID, msg.RequestID, req.SessionID, func() error {
		return h.machine.Start(req.SessionID, req.HostToken)
	})
}

func (h *Handler) handleNextQuestion(connID uuid.UUID, msg ws.Message) error {
	var req ws.NextQuestionPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(connID, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid next-question payload")
	}
	return h.hostCommand(connID, msg.RequestID, req.SessionID, func() error {
		return h.machine.NextQuestion(req.SessionID, req.QuestionIndex, req.HostToken)
	})
}

func (h *Handler) handleEnd(connID uuid.UUID, msg ws.Message) error {
	var req ws.EndPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(connID, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid end payload")
	}
	return h.hostCommand(connID, msg.RequestID, req.SessionID, func() error {
		return h.machine.EndGame(req.SessionID, req.HostToken)
	})
}

// hostCommand subscribes the host's socket to the session room for the
// broadcasts the command produces, and undoes that if the command fails.
func (h *Handler) hostCommand(connID uuid.UUID, requestID, sessionID string, run func() error) error {
	wasSubscribed := h.hub.InRoom(sessionID, connID)
	if sessionID != "" {
		h.hub.JoinRoom(sessionID, connID)
	}
	if err := run(); err != nil {
		if !wasSubscribed {
			h.hub.LeaveRoom(sessionID, connID)
		}
		return h.sendEngineError(connID, requestID, err)
	}
	return nil
}

func (h *Handler) handleSubmitAnswer(connID uuid.UUID, msg ws.Message) error {
	var req ws.SubmitAnswerPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return h.sendError(connID, msg.RequestID, httperrors.ErrCodeInvalidPayload, "Invalid submit-answer payload")
	}

	accepted, err := h.machine.SubmitAnswer(SubmitRequest{
		SessionID:           req.SessionID,
		PlayerName:          req.PlayerName,
		QuestionID:          req.QuestionID,
		AnswerID:            req.AnswerID,
		TimeToAnswerSeconds: req.TimeToAnswerSeconds,
	})
	if err != nil {
		return h.sendEngineError(connID, msg.RequestID, err)
	}
	return h.reply(connID, msg.RequestID, ws.TypeAnswerAccepted, accepted)
}

// disconnect turns a dropped socket into a leave for its last join.
func (h *Handler) disconnect(connID uuid.UUID) {
	prev, ok := h.binding(connID)
	if !ok {
		return
	}
	h.release(connID, prev)
}

func (h *Handler) release(connID uuid.UUID, prev binding) {
	h.bindings.Delete(connID)
	defer h.hub.LeaveRoom(prev.sessionID, connID)

	if !h.owners.CompareAndDelete(prev, connID) {
		h.logger.Debug().
			Str("conn_id", connID.String()).
			Str("session_id", prev.sessionID).
			Str("player", prev.playerName).
			Msg("player rejoined on another connection")
		return
	}
	if err := h.machine.Leave(prev.sessionID, prev.playerName); err != nil && !errors.Is(err, ErrNotFound) {
		h.logger.Warn().Err(err).
			Str("conn_id", connID.String()).
			Str("session_id", prev.sessionID).
			Msg("leave on disconnect failed")
	}
}

func (h *Handler) binding(connID uuid.UUID) (binding, bool) {
	v, ok := h.bindings.Load(connID)
	if !ok {
		return binding{}, false
	}
	return v.(binding), true
}

func (h *Handler) reply(connID uuid.UUID, requestID, msgType string, payload interface{}) error {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	msg.RequestID = requestID
	return h.hub.SendTo(connID, msg)
}

func (h *Handler) sendEngineError(connID uuid.UUID, requestID string, err error) error {
	var gameErr *Error
	if errors.As(err, &gameErr) {
		return h.sendError(connID, requestID, gameErr.Code, gameErr.Message)
	}
	h.logger.Error().Err(err).Str("conn_id", connID.String()).Msg("unexpected engine error")
	return h.sendError(connID, requestID, httperrors.ErrCodeInternalError, "Internal server error")
}

func (h *Handler) sendError(connID uuid.UUID, requestID, code, message string) error {
	return h.reply(connID, requestID, ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
}
