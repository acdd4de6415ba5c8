package game

import (
	"time"

	"github.com/gokatarajesh/livequiz/internal/quiz"
)

// Phase is the lifecycle position of a session.
type Phase string

const (
	PhaseLobby          Phase = "lobby"
	PhaseCountdown      Phase = "countdown"
	PhaseQuestionActive Phase = "question_active"
	PhaseResults        Phase = "results"
	PhaseCompleted      Phase = "completed"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted
}

// Session is the authoritative state of one live game.
type Session struct {
	ID                 string
	PIN                string
	Title              string
	Phase              Phase
	QuestionIndex      int
	QuestionDuration   time.Duration
	QuestionStartedAt  time.Time
	QuestionDeadline   time.Time // zero outside QuestionActive
	CountdownRemaining int
	PendingIndex       int // question the running countdown leads to
	Players            map[string]*PlayerState
	Quiz               quiz.Quiz // immutable snapshot
	Answers            []AnswerRecord
	CreatedAt          time.Time
	CompletedAt        time.Time

	joinSeq int
}

// PlayerState tracks one player's standing within a session.
type PlayerState struct {
	Name                       string
	TotalScore                 int
	CorrectCount               int
	WrongCount                 int
	CurrentStreak              int
	BestStreak                 int
	HasAnsweredCurrentQuestion bool
	Active                     bool
	JoinedAt                   time.Time
	JoinOrder                  int
}

// AnswerRecord is the append-only result of one accepted submission.
type AnswerRecord struct {
	SessionID          string
	PlayerName         string
	QuestionID         string
	QuestionIndex      int
	SelectedAnswerID   string
	IsCorrect          bool
	PointsEarned       int
	StreakAtSubmission int
	TimeToAnswer       time.Duration
	SubmittedAt        time.Time
}

// TotalQuestions is the size of the quiz snapshot.
func (s *Session) TotalQuestions() int {
	return len(s.Quiz.Questions)
}

// CurrentQuestion returns the active question, if the index is in range.
func (s *Session) CurrentQuestion() (quiz.Question, bool) {
	if s.QuestionIndex < 0 || s.QuestionIndex >= len(s.Quiz.Questions) {
		return quiz.Question{}, false
	}
	return s.Quiz.Questions[s.QuestionIndex], true
}

// ActivePlayers counts players currently connected.
func (s *Session) ActivePlayers() int {
	n := 0
	for _, p := range s.Players {
		if p.Active {
			n++
		}
	}
	return n
}

// AnsweredCount counts players who answered the current question.
func (s *Session) AnsweredCount() int {
	n := 0
	for _, p := range s.Players {
		if p.HasAnsweredCurrentQuestion {
			n++
		}
	}
	return n
}

// Clone returns a copy safe to read outside the session lock. The quiz
// snapshot is shared because it is never written after creation.
func (s *Session) Clone() *Session {
	out := *s
	out.Players = make(map[string]*PlayerState, len(s.Players))
	for name, p := range s.Players {
		cp := *p
		out.Players[name] = &cp
	}
	out.Answers = make([]AnswerRecord, len(s.Answers))
	copy(out.Answers, s.Answers)
	return &out
}
