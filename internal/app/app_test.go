package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/livequiz/internal/config"
	"github.com/gokatarajesh/livequiz/internal/game"
	"github.com/gokatarajesh/livequiz/pkg/http/ws"
)

func newTestApp(t *testing.T) (*Application, *httptest.Server) {
	t.Helper()
	t.Setenv("HOST_TOKEN_SECRET", "test-secret")
	t.Setenv("COUNTDOWN_TICKS", "0")
	t.Setenv("LOG_LEVEL", "disabled")

	cfg, err := config.Load(context.Background())
	require.NoError(t, err)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(a.http.Handler)
	t.Cleanup(srv.Close)
	return a, srv
}

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

func sendWS(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	msg, err := ws.NewMessage(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

func TestApplication_InMemoryGame(t *testing.T) {
	_, srv := newTestApp(t)

	body, _ := json.Marshal(game.CreateSessionRequest{QuizID: "sample", QuestionDurationSeconds: 30})
	resp, err := http.Post(srv.URL+"/v1/sessions", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created game.CreateSessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Len(t, created.PIN, 6)
	assert.NotEmpty(t, created.HostToken)
	assert.Equal(t, 2, created.TotalQuestions)

	lookup, err := http.Get(srv.URL + "/v1/sessions/" + created.PIN)
	require.NoError(t, err)
	defer lookup.Body.Close()
	var found game.SessionResponse
	require.NoError(t, json.NewDecoder(lookup.Body).Decode(&found))
	assert.Equal(t, created.SessionID, found.SessionID)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	sendWS(t, conn, ws.TypeJoin, ws.JoinPayload{SessionID: created.SessionID, PlayerName: "Alice"})
	readUntil(t, conn, ws.TypeJoined)

	sendWS(t, conn, ws.TypeStart, ws.StartPayload{SessionID: created.SessionID, HostToken: "forged"})
	errMsg := readUntil(t, conn, ws.TypeError)
	var errPayload ws.ErrorPayload
	require.NoError(t, json.Unmarshal(errMsg.Payload, &errPayload))
	assert.Equal(t, "unauthorized", errPayload.Code)

	sendWS(t, conn, ws.TypeStart, ws.StartPayload{SessionID: created.SessionID, HostToken: created.HostToken})
	var started ws.QuestionStartedPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, ws.TypeQuestionStarted).Payload, &started))

	sendWS(t, conn, ws.TypeSubmitAnswer, ws.SubmitAnswerPayload{
		SessionID:           created.SessionID,
		PlayerName:          "Alice",
		QuestionID:          started.Question.ID,
		AnswerID:            "b",
		TimeToAnswerSeconds: 1,
	})
	var accepted ws.AnswerAcceptedPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, ws.TypeAnswerAccepted).Payload, &accepted))
	assert.True(t, accepted.IsCorrect)
	assert.Greater(t, accepted.PointsEarned, 150)

	sendWS(t, conn, ws.TypeEnd, ws.EndPayload{SessionID: created.SessionID, HostToken: created.HostToken})
	var ended ws.GameEndedPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, ws.TypeGameEnded).Payload, &ended))
	require.Len(t, ended.Leaderboard, 1)
	assert.Equal(t, "Alice", ended.Leaderboard[0].Name)

	board, err := http.Get(srv.URL + "/v1/sessions/" + created.SessionID + "/leaderboard")
	require.NoError(t, err)
	defer board.Body.Close()
	assert.Equal(t, http.StatusOK, board.StatusCode)
}

func TestApplication_RunStopsOnCancel(t *testing.T) {
	t.Setenv("HTTP_ADDR", "127.0.0.1:0")
	t.Setenv("LOG_LEVEL", "disabled")
	cfg, err := config.Load(context.Background())
	require.NoError(t, err)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
