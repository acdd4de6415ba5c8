package queries

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createGameSession = `-- name: CreateGameSession :exec
INSERT INTO game_sessions (id, pin, quiz_id, title, phase, question_index, question_duration_seconds, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING
`

type CreateGameSessionParams struct {
	ID                      pgtype.UUID        `json:"id"`
	Pin                     string             `json:"pin"`
	QuizID                  string             `json:"quiz_id"`
	Title                   string             `json:"title"`
	Phase                   string             `json:"phase"`
	QuestionIndex           int32              `json:"question_index"`
	QuestionDurationSeconds int32              `json:"question_duration_seconds"`
	CreatedAt               pgtype.Timestamptz `json:"created_at"`
}

func (q *Queries) CreateGameSession(ctx context.Context, arg CreateGameSessionParams) error {
	_, err := q.db.Exec(ctx, createGameSession,
		arg.ID,
		arg.Pin,
		arg.QuizID,
		arg.Title,
		arg.Phase,
		arg.QuestionIndex,
		arg.QuestionDurationSeconds,
		arg.CreatedAt,
	)
	return err
}

const updateGameSession = `-- name: UpdateGameSession :exec
UPDATE game_sessions
SET phase = $2, question_index = $3, completed_at = $4, updated_at = now()
WHERE id = $1
`

type UpdateGameSessionParams struct {
	ID            pgtype.UUID        `json:"id"`
	Phase         string             `json:"phase"`
	QuestionIndex int32              `json:"question_index"`
	CompletedAt   pgtype.Timestamptz `json:"completed_at"`
}

func (q *Queries) UpdateGameSession(ctx context.Context, arg UpdateGameSessionParams) error {
	_, err := q.db.Exec(ctx, updateGameSession,
		arg.ID,
		arg.Phase,
		arg.QuestionIndex,
		arg.CompletedAt,
	)
	return err
}

const getGameSession = `-- name: GetGameSession :one
SELECT id, pin, quiz_id, title, phase, question_index, question_duration_seconds, created_at, updated_at, completed_at
FROM game_sessions
WHERE id = $1
`

func (q *Queries) GetGameSession(ctx context.Context, id pgtype.UUID) (GameSession, error) {
	row := q.db.QueryRow(ctx, getGameSession, id)
	var i GameSession
	err := row.Scan(
		&i.ID,
		&i.Pin,
		&i.QuizID,
		&i.Title,
		&i.Phase,
		&i.QuestionIndex,
		&i.QuestionDurationSeconds,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.CompletedAt,
	)
	return i, err
}

const upsertSessionPlayer = `-- name: UpsertSessionPlayer :exec
INSERT INTO session_players (session_id, name, total_score, correct_count, wrong_count, current_streak, best_streak, active, joined_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (session_id, name) DO UPDATE
SET total_score = EXCLUDED.total_score,
    correct_count = EXCLUDED.correct_count,
    wrong_count = EXCLUDED.wrong_count,
    current_streak = EXCLUDED.current_streak,
    best_streak = EXCLUDED.best_streak,
    active = EXCLUDED.active
`

type UpsertSessionPlayerParams struct {
	SessionID     pgtype.UUID        `json:"session_id"`
	Name          string             `json:"name"`
	TotalScore    int32              `json:"total_score"`
	CorrectCount  int32              `json:"correct_count"`
	WrongCount    int32              `json:"wrong_count"`
	CurrentStreak int32              `json:"current_streak"`
	BestStreak    int32              `json:"best_streak"`
	Active        bool               `json:"active"`
	JoinedAt      pgtype.Timestamptz `json:"joined_at"`
}

func (q *Queries) UpsertSessionPlayer(ctx context.Context, arg UpsertSessionPlayerParams) error {
	_, err := q.db.Exec(ctx, upsertSessionPlayer,
		arg.SessionID,
		arg.Name,
		arg.TotalScore,
		arg.CorrectCount,
		arg.WrongCount,
		arg.CurrentStreak,
		arg.BestStreak,
		arg.Active,
		arg.JoinedAt,
	)
	return err
}

const insertAnswerRecord = `-- name: InsertAnswerRecord :exec
INSERT INTO answer_records (session_id, player_name, question_id, question_index, selected_answer_id, is_correct, points_earned, streak_at_submission, time_to_answer_ms, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (session_id, player_name, question_id) DO NOTHING
`

type InsertAnswerRecordParams struct {
	SessionID          pgtype.UUID        `json:"session_id"`
	PlayerName         string             `json:"player_name"`
	QuestionID         string             `json:"question_id"`
	QuestionIndex      int32              `json:"question_index"`
	SelectedAnswerID   string             `json:"selected_answer_id"`
	IsCorrect          bool               `json:"is_correct"`
	PointsEarned       int32              `json:"points_earned"`
	StreakAtSubmission int32              `json:"streak_at_submission"`
	TimeToAnswerMs     int64              `json:"time_to_answer_ms"`
	SubmittedAt        pgtype.Timestamptz `json:"submitted_at"`
}

func (q *Queries) InsertAnswerRecord(ctx context.Context, arg InsertAnswerRecordParams) error {
	_, err := q.db.Exec(ctx, insertAnswerRecord,
		arg.SessionID,
		arg.PlayerName,
		arg.QuestionID,
		arg.QuestionIndex,
		arg.SelectedAnswerID,
		arg.IsCorrect,
		arg.PointsEarned,
		arg.StreakAtSubmission,
		arg.TimeToAnswerMs,
		arg.SubmittedAt,
	)
	return err
}
