package queries

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Quiz struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type GameSession struct {
	ID                      pgtype.UUID        `json:"id"`
	Pin                     string             `json:"pin"`
	QuizID                  string             `json:"quiz_id"`
	Title                   string             `json:"title"`
	Phase                   string             `json:"phase"`
	QuestionIndex           int32              `json:"question_index"`
	QuestionDurationSeconds int32              `json:"question_duration_seconds"`
	CreatedAt               pgtype.Timestamptz `json:"created_at"`
	UpdatedAt               pgtype.Timestamptz `json:"updated_at"`
	CompletedAt             pgtype.Timestamptz `json:"completed_at"`
}
