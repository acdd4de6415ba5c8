package game

import (
	"context"

	"github.com/gokatarajesh/livequiz/internal/quiz"
	"github.com/gokatarajesh/livequiz/pkg/http/ws"
)

// Publisher delivers a message to every subscriber of a session. It must not
// block: it is called while the session lock is held.
type Publisher interface {
	Publish(sessionID, msgType string, payload interface{})
	// Close drops every subscriber of an evicted session.
	Close(sessionID string)
}

// Recorder durably records state changes. Implementations queue the work and
// return immediately.
type Recorder interface {
	CreateSession(s *Session)
	SaveSession(s *Session)
	SavePlayer(sessionID string, p PlayerState)
	SaveAnswer(rec AnswerRecord)
}

// QuizSource loads the quiz a session is created from.
type QuizSource interface {
	GetQuizByID(ctx context.Context, quizID string) (quiz.Quiz, error)
}

// HostTokens issues and checks the credential required for host commands.
type HostTokens interface {
	Issue(sessionID string) (string, error)
	Verify(token, sessionID string) error
}

// Payout receives the podium once a game ends.
type Payout interface {
	RequestPayout(ctx context.Context, sessionID string, podium []ws.LeaderboardEntry) error
}

// Archive keeps final standings readable after the session is evicted.
type Archive interface {
	Save(ctx context.Context, sessionID string, board []ws.LeaderboardEntry, summary ws.Summary) error
	Leaderboard(ctx context.Context, sessionID string) ([]ws.LeaderboardEntry, error)
	Summary(ctx context.Context, sessionID string) (*ws.Summary, error)
}

// Metrics observes engine activity.
type Metrics interface {
	SessionOpened()
	SessionClosed()
	PhaseEntered(phase Phase)
	AnswerAccepted(correct bool)
	AnswerRejected(code string)
	TimerFired(kind TimerKind, stale bool)
	SocketOpened()
	SocketClosed()
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, interface{}) {}
func (nopPublisher) Close(string)                        {}

type nopRecorder struct{}

func (nopRecorder) CreateSession(*Session)         {}
func (nopRecorder) SaveSession(*Session)           {}
func (nopRecorder) SavePlayer(string, PlayerState) {}
func (nopRecorder) SaveAnswer(AnswerRecord)        {}

type nopMetrics struct{}

func (nopMetrics) SessionOpened()             {}
func (nopMetrics) SessionClosed()             {}
func (nopMetrics) PhaseEntered(Phase)         {}
func (nopMetrics) AnswerAccepted(bool)        {}
func (nopMetrics) AnswerRejected(string)      {}
func (nopMetrics) TimerFired(TimerKind, bool) {}
func (nopMetrics) SocketOpened()              {}
func (nopMetrics) SocketClosed()              {}
