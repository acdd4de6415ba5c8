package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeJoin         = "join"
	TypeLeave        = "leave"
	TypeStart        = "start"
	TypeNextQuestion = "next-question"
	TypeSubmitAnswer = "submit-answer"
	TypeEnd          = "end"

	// Server -> Client
	TypeJoined              = "joined"
	TypeRosterChanged       = "roster-changed"
	TypeGameStarted         = "game-started"
	TypeCountdownTick       = "countdown-tick"
	TypeQuestionStarted     = "question-started"
	TypeQuestionTick        = "question-tick"
	TypeAnswerAccepted      = "answer-accepted"
	TypeAnswerCountChanged  = "answer-count-changed"
	TypeQuestionResults     = "question-results"
	TypeGameEnded           = "game-ended"
	TypeLeaderboardArchived = "leaderboard-archived"
	TypeError               = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Client Messages (incoming)

type JoinPayload struct {
	SessionID  string `json:"session_id"`
	PlayerName string `json:"player_name"`
}

type LeavePayload struct {
	SessionID  string `json:"session_id"`
	PlayerName string `json:"player_name"`
}

type StartPayload struct {
	SessionID string `json:"session_id"`
	HostToken string `json:"host_token,omitempty"`
}

type NextQuestionPayload struct {
	SessionID     string `json:"session_id"`
	QuestionIndex *int   `json:"question_index,omitempty"`
	HostToken     string `json:"host_token,omitempty"`
}

type SubmitAnswerPayload struct {
	SessionID           string  `json:"session_id"`
	PlayerName          string  `json:"player_name"`
	QuestionID          string  `json:"question_id"`
	AnswerID            string  `json:"answer_id"`
	TimeToAnswerSeconds float64 `json:"time_to_answer_seconds"`
}

type EndPayload struct {
	SessionID string `json:"session_id"`
	HostToken string `json:"host_token,omitempty"`
}

// Server Messages (outgoing)

type Player struct {
	Name       string `json:"name"`
	Active     bool   `json:"active"`
	TotalScore int    `json:"total_score"`
}

type PlayerStats struct {
	Name          string `json:"name"`
	TotalScore    int    `json:"total_score"`
	CorrectCount  int    `json:"correct_count"`
	WrongCount    int    `json:"wrong_count"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
	HasAnswered   bool   `json:"has_answered_current_question"`
}

type JoinedPayload struct {
	SessionID      string      `json:"session_id"`
	Phase          string      `json:"phase"`
	QuestionIndex  int         `json:"question_index"`
	TotalQuestions int         `json:"total_questions"`
	Player         PlayerStats `json:"player"`
}

type RosterChangedPayload struct {
	Players      []Player `json:"players"`
	TotalPlayers int      `json:"total_players"`
}

type GameStartedPayload struct {
	TotalQuestions int `json:"total_questions"`
}

type CountdownTickPayload struct {
	Count int `json:"count"`
}

type AnswerOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView never carries the correct-answer flag.
type QuestionView struct {
	ID      string         `json:"id"`
	Text    string         `json:"text"`
	Answers []AnswerOption `json:"answers"`
}

type QuestionStartedPayload struct {
	Question         QuestionView `json:"question"`
	Index            int          `json:"index"`
	TotalQuestions   int          `json:"total_questions"`
	DurationSeconds  int          `json:"duration_seconds"`
	RemainingSeconds float64      `json:"remaining_seconds"`
	Deadline         string       `json:"deadline"`
}

type QuestionTickPayload struct {
	QuestionIndex    int `json:"question_index"`
	RemainingSeconds int `json:"remaining_seconds"`
}

type AnswerAcceptedPayload struct {
	PlayerName   string `json:"player_name"`
	IsCorrect    bool   `json:"is_correct"`
	PointsEarned int    `json:"points_earned"`
	TotalScore   int    `json:"total_score"`
	Streak       int    `json:"streak"`
}

type AnswerCountChangedPayload struct {
	AnsweredCount int `json:"answered_count"`
	TotalPlayers  int `json:"total_players"`
}

type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	Name         string `json:"name"`
	TotalScore   int    `json:"total_score"`
	CorrectCount int    `json:"correct_count"`
	WrongCount   int    `json:"wrong_count"`
	BestStreak   int    `json:"best_streak"`
	Active       bool   `json:"active"`
}

type AnswerTally struct {
	AnswerID  string `json:"answer_id"`
	Count     int    `json:"count"`
	IsCorrect bool   `json:"is_correct"`
}

type QuestionStats struct {
	QuestionIndex int           `json:"question_index"`
	QuestionID    string        `json:"question_id"`
	Answered      int           `json:"answered"`
	Correct       int           `json:"correct"`
	Accuracy      float64       `json:"accuracy"`
	Distribution  []AnswerTally `json:"distribution"`
}

type QuestionResultsPayload struct {
	Leaderboard     []LeaderboardEntry `json:"leaderboard"`
	CorrectAnswerID string             `json:"correct_answer_id"`
	QuestionIndex   int                `json:"question_index"`
	Stats           QuestionStats      `json:"stats"`
}

type Summary struct {
	TotalPlayers    int             `json:"total_players"`
	TotalQuestions  int             `json:"total_questions"`
	QuestionsPlayed int             `json:"questions_played"`
	TotalAnswers    int             `json:"total_answers"`
	CorrectAnswers  int             `json:"correct_answers"`
	Accuracy        float64         `json:"accuracy"`
	Questions       []QuestionStats `json:"questions"`
}

type GameEndedPayload struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Summary     Summary            `json:"summary"`
}

// LeaderboardArchivedPayload announces that a finished session's standings were archived.
type LeaderboardArchivedPayload struct {
	SessionID   string             `json:"session_id"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
