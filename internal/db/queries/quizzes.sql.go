package queries

import (
	"context"
)

const getQuiz = `-- name: GetQuiz :one
SELECT id, title, created_at, updated_at FROM quizzes
WHERE id = $1
`

func (q *Queries) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := q.db.QueryRow(ctx, getQuiz, id)
	var i Quiz
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listQuizAnswers = `-- name: ListQuizAnswers :many
SELECT q.id, q.position, q.text, a.id, a.text, a.is_correct
FROM questions q
JOIN answers a ON a.question_id = q.id
WHERE q.quiz_id = $1
ORDER BY q.position, a.position
`

type ListQuizAnswersRow struct {
	QuestionID       string `json:"question_id"`
	QuestionPosition int32  `json:"question_position"`
	QuestionText     string `json:"question_text"`
	AnswerID         string `json:"answer_id"`
	AnswerText       string `json:"answer_text"`
	IsCorrect        bool   `json:"is_correct"`
}

func (q *Queries) ListQuizAnswers(ctx context.Context, quizID string) ([]ListQuizAnswersRow, error) {
	rows, err := q.db.Query(ctx, listQuizAnswers, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListQuizAnswersRow
	for rows.Next() {
		var i ListQuizAnswersRow
		if err := rows.Scan(
			&i.QuestionID,
			&i.QuestionPosition,
			&i.QuestionText,
			&i.AnswerID,
			&i.AnswerText,
			&i.IsCorrect,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
