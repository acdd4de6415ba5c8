package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gokatarajesh/livequiz/internal/db/queries"
	"github.com/gokatarajesh/livequiz/internal/quiz"
)

type quizStore interface {
	GetQuiz(ctx context.Context, id string) (queries.Quiz, error)
	ListQuizAnswers(ctx context.Context, quizID string) ([]queries.ListQuizAnswersRow, error)
}

// QuizRepository loads quiz content from Postgres.
type QuizRepository struct {
	store quizStore
}

var _ quiz.Loader = (*QuizRepository)(nil)

func NewQuizRepository(store quizStore) *QuizRepository {
	return &QuizRepository{store: store}
}

// GetQuizByID assembles the ordered questions and answers of a quiz.
func (r *QuizRepository) GetQuizByID(ctx context.Context, quizID string) (quiz.Quiz, error) {
	row, err := r.store.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quiz.Quiz{}, quiz.ErrQuizNotFound
		}
		return quiz.Quiz{}, fmt.Errorf("get quiz: %w", err)
	}

	rows, err := r.store.ListQuizAnswers(ctx, quizID)
	if err != nil {
		return quiz.Quiz{}, fmt.Errorf("list quiz answers: %w", err)
	}

	out := quiz.Quiz{ID: row.ID, Title: row.Title}
	for _, a := range rows {
		n := len(out.Questions)
		if n == 0 || out.Questions[n-1].ID != a.QuestionID {
			out.Questions = append(out.Questions, quiz.Question{ID: a.QuestionID, Text: a.QuestionText})
			n++
		}
		q := &out.Questions[n-1]
		q.Answers = append(q.Answers, quiz.Answer{ID: a.AnswerID, Text: a.AnswerText, IsCorrect: a.IsCorrect})
	}
	return out, nil
}
