package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/livequiz/internal/db/queries"
	"github.com/gokatarajesh/livequiz/internal/quiz"
)

type mockQuizStore struct {
	mock.Mock
}

func (m *mockQuizStore) GetQuiz(ctx context.Context, id string) (queries.Quiz, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(queries.Quiz), args.Error(1)
}

func (m *mockQuizStore) ListQuizAnswers(ctx context.Context, quizID string) ([]queries.ListQuizAnswersRow, error) {
	args := m.Called(ctx, quizID)
	return args.Get(0).([]queries.ListQuizAnswersRow), args.Error(1)
}

func TestQuizRepository_GetQuizByID(t *testing.T) {
	store := new(mockQuizStore)
	repo := NewQuizRepository(store)

	store.On("GetQuiz", mock.Anything, "quiz-1").Return(queries.Quiz{ID: "quiz-1", Title: "Trivia"}, nil)
	store.On("ListQuizAnswers", mock.Anything, "quiz-1").Return([]queries.ListQuizAnswersRow{
		{QuestionID: "q1", QuestionText: "Pick B", AnswerID: "A", AnswerText: "a"},
		{QuestionID: "q1", QuestionText: "Pick B", AnswerID: "B", AnswerText: "b", IsCorrect: true},
		{QuestionID: "q2", QuestionPosition: 1, QuestionText: "Pick A", AnswerID: "A", AnswerText: "a", IsCorrect: true},
		{QuestionID: "q2", QuestionPosition: 1, QuestionText: "Pick A", AnswerID: "B", AnswerText: "b"},
	}, nil)

	got, err := repo.GetQuizByID(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, "Trivia", got.Title)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, "q1", got.Questions[0].ID)
	assert.Equal(t, "B", got.Questions[0].CorrectAnswerID())
	assert.Equal(t, "A", got.Questions[1].CorrectAnswerID())
	assert.NoError(t, got.Validate())
	store.AssertExpectations(t)
}

func TestQuizRepository_NotFound(t *testing.T) {
	store := new(mockQuizStore)
	repo := NewQuizRepository(store)

	store.On("GetQuiz", mock.Anything, "missing").Return(queries.Quiz{}, pgx.ErrNoRows)

	_, err := repo.GetQuizByID(context.Background(), "missing")
	assert.ErrorIs(t, err, quiz.ErrQuizNotFound)
	store.AssertNotCalled(t, "ListQuizAnswers", mock.Anything, mock.Anything)
}
