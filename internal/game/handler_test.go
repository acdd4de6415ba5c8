package game

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/livequiz/internal/quiz"
	"github.com/gokatarajesh/livequiz/pkg/http/ws"
)

type gatewayFixture struct {
	machine *Machine
	store   *Store
	hub     *ws.Hub
	server  *httptest.Server
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	cfg := testConfig()
	cfg.CountdownTicks = 0

	hub := ws.NewHub(zerolog.Nop())
	store := NewStore(clock, nil, zerolog.Nop())
	machine := NewMachine(
		store,
		NewTimerRegistry(clock, zerolog.Nop()),
		quiz.NewStaticLoader(map[string]quiz.Quiz{"quiz-1": testQuiz()}),
		NewHubPublisher(hub, zerolog.Nop()),
		MachineOptions{Config: cfg, Clock: clock},
		zerolog.Nop(),
	)
	handler := NewHandler(machine, hub, nil, zerolog.Nop())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.HandleWebSocket)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &gatewayFixture{machine: machine, store: store, hub: hub, server: server}
}

func (f *gatewayFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType, requestID string, payload interface{}) {
	t.Helper()
	msg, err := ws.NewMessage(msgType, payload)
	require.NoError(t, err)
	msg.RequestID = requestID
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) ws.Message {
	t.Helper()
	for {
		var msg ws.Message
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == msgType {
			return msg
		}
	}
}

func decode[T any](t *testing.T, msg ws.Message) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(msg.Payload, &out))
	return out
}

func TestHandler_JoinStartAnswerFlow(t *testing.T) {
	f := newGatewayFixture(t)
	created, err := f.machine.CreateSession(context.Background(), "quiz-1", 10)
	require.NoError(t, err)
	id := created.Session.ID

	alice := f.dial(t)
	send(t, alice, ws.TypeJoin, "r1", ws.JoinPayload{SessionID: id, PlayerName: "Alice"})
	readUntil(t, alice, ws.TypeRosterChanged)
	joined := readUntil(t, alice, ws.TypeJoined)
	assert.Equal(t, "r1", joined.RequestID)
	joinedPayload := decode[ws.JoinedPayload](t, joined)
	assert.Equal(t, "Alice", joinedPayload.Player.Name)
	assert.Equal(t, string(PhaseLobby), joinedPayload.Phase)

	bob := f.dial(t)
	send(t, bob, ws.TypeJoin, "", ws.JoinPayload{SessionID: id, PlayerName: "Bob"})
	readUntil(t, bob, ws.TypeJoined)
	roster := decode[ws.RosterChangedPayload](t, readUntil(t, alice, ws.TypeRosterChanged))
	assert.Equal(t, 2, roster.TotalPlayers)

	send(t, alice, ws.TypeStart, "", ws.StartPayload{SessionID: id})
	for _, conn := range []*websocket.Conn{alice, bob} {
		readUntil(t, conn, ws.TypeGameStarted)
		started := decode[ws.QuestionStartedPayload](t, readUntil(t, conn, ws.TypeQuestionStarted))
		assert.Equal(t, "q1", started.Question.ID)
	}

	send(t, alice, ws.TypeSubmitAnswer, "r2", ws.SubmitAnswerPayload{
		SessionID: id, PlayerName: "Alice", QuestionID: "q1", AnswerID: "B",
	})
	count := decode[ws.AnswerCountChangedPayload](t, readUntil(t, bob, ws.TypeAnswerCountChanged))
	assert.Equal(t, 1, count.AnsweredCount)
	assert.Equal(t, 2, count.TotalPlayers)

	accepted := readUntil(t, alice, ws.TypeAnswerAccepted)
	assert.Equal(t, "r2", accepted.RequestID)
	acceptedPayload := decode[ws.AnswerAcceptedPayload](t, accepted)
	assert.True(t, acceptedPayload.IsCorrect)
	assert.Equal(t, 200, acceptedPayload.PointsEarned)

	send(t, alice, ws.TypeSubmitAnswer, "r3", ws.SubmitAnswerPayload{
		SessionID: id, PlayerName: "Alice", QuestionID: "q1", AnswerID: "B",
	})
	dup := readUntil(t, alice, ws.TypeError)
	assert.Equal(t, "r3", dup.RequestID)
	assert.Equal(t, "duplicate_answer", decode[ws.ErrorPayload](t, dup).Code)

	send(t, bob, ws.TypeEnd, "", ws.EndPayload{SessionID: id})
	ended := decode[ws.GameEndedPayload](t, readUntil(t, alice, ws.TypeGameEnded))
	require.NotEmpty(t, ended.Leaderboard)
	assert.Equal(t, "Alice", ended.Leaderboard[0].Name)
}

func TestHandler_ErrorsGoToSenderOnly(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t)

	send(t, conn, "dance", "r1", map[string]string{})
	errMsg := readUntil(t, conn, ws.TypeError)
	assert.Equal(t, "r1", errMsg.RequestID)
	assert.Equal(t, "unknown_message_type", decode[ws.ErrorPayload](t, errMsg).Code)

	send(t, conn, ws.TypeJoin, "r2", "not-an-object")
	assert.Equal(t, "invalid_payload", decode[ws.ErrorPayload](t, readUntil(t, conn, ws.TypeError)).Code)

	send(t, conn, ws.TypeJoin, "r3", ws.JoinPayload{SessionID: "missing", PlayerName: "Alice"})
	assert.Equal(t, "not_found", decode[ws.ErrorPayload](t, readUntil(t, conn, ws.TypeError)).Code)

	send(t, conn, ws.TypeStart, "r4", ws.StartPayload{SessionID: "missing"})
	assert.Equal(t, "not_found", decode[ws.ErrorPayload](t, readUntil(t, conn, ws.TypeError)).Code)
}

func TestHandler_DisconnectMarksPlayerInactive(t *testing.T) {
	f := newGatewayFixture(t)
	created, err := f.machine.CreateSession(context.Background(), "quiz-1", 10)
	require.NoError(t, err)
	id := created.Session.ID

	conn := f.dial(t)
	send(t, conn, ws.TypeJoin, "", ws.JoinPayload{SessionID: id, PlayerName: "Alice"})
	readUntil(t, conn, ws.TypeJoined)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		s, err := f.store.Get(id)
		return err == nil && !s.Players["Alice"].Active
	}, 2*time.Second, 5*time.Millisecond)

	again := f.dial(t)
	send(t, again, ws.TypeJoin, "", ws.JoinPayload{SessionID: id, PlayerName: "Alice"})
	readUntil(t, again, ws.TypeJoined)
	s, err := f.store.Get(id)
	require.NoError(t, err)
	assert.True(t, s.Players["Alice"].Active)
}

func TestHandler_OldSocketDropAfterReconnectKeepsPlayerActive(t *testing.T) {
	f := newGatewayFixture(t)
	created, err := f.machine.CreateSession(context.Background(), "quiz-1", 10)
	require.NoError(t, err)
	id := created.Session.ID

	first := f.dial(t)
	send(t, first, ws.TypeJoin, "", ws.JoinPayload{SessionID: id, PlayerName: "Alice"})
	readUntil(t, first, ws.TypeJoined)

	second := f.dial(t)
	send(t, second, ws.TypeJoin, "", ws.JoinPayload{SessionID: id, PlayerName: "Alice"})
	rejoined := decode[ws.JoinedPayload](t, readUntil(t, second, ws.TypeJoined))
	assert.Equal(t, "Alice", rejoined.Player.Name)
	require.Equal(t, 2, f.hub.RoomSize(id))

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return f.hub.RoomSize(id) == 1 }, 2*time.Second, time.Millisecond)

	s, err := f.store.Get(id)
	require.NoError(t, err)
	require.Contains(t, s.Players, "Alice")
	assert.True(t, s.Players["Alice"].Active)

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool {
		s, err := f.store.Get(id)
		return err == nil && !s.Players["Alice"].Active
	}, 2*time.Second, time.Millisecond)
}
