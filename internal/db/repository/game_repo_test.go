package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gokatarajesh/livequiz/internal/db/queries"
	"github.com/gokatarajesh/livequiz/internal/game"
	"github.com/gokatarajesh/livequiz/internal/quiz"
)

const sessionID = "0b7f6a52-6f6a-4a3e-9f3c-8f3f0c1d2e4a"

type mockGameStore struct {
	mock.Mock
}

func (m *mockGameStore) CreateGameSession(ctx context.Context, arg queries.CreateGameSessionParams) error {
	return m.Called(ctx, arg).Error(0)
}

func (m *mockGameStore) UpdateGameSession(ctx context.Context, arg queries.UpdateGameSessionParams) error {
	return m.Called(ctx, arg).Error(0)
}

func (m *mockGameStore) UpsertSessionPlayer(ctx context.Context, arg queries.UpsertSessionPlayerParams) error {
	return m.Called(ctx, arg).Error(0)
}

func (m *mockGameStore) InsertAnswerRecord(ctx context.Context, arg queries.InsertAnswerRecordParams) error {
	return m.Called(ctx, arg).Error(0)
}

func TestGameRepository_CreateSession(t *testing.T) {
	store := new(mockGameStore)
	repo := NewGameRepository(store)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	s := &game.Session{
		ID:               sessionID,
		PIN:              "123456",
		Title:            "Trivia",
		Phase:            game.PhaseLobby,
		QuestionIndex:    -1,
		QuestionDuration: 10 * time.Second,
		Quiz:             quiz.Quiz{ID: "quiz-1"},
		CreatedAt:        created,
	}
	store.On("CreateGameSession", mock.Anything, queries.CreateGameSessionParams{
		ID:                      uuidFromString(sessionID),
		Pin:                     "123456",
		QuizID:                  "quiz-1",
		Title:                   "Trivia",
		Phase:                   "lobby",
		QuestionIndex:           -1,
		QuestionDurationSeconds: 10,
		CreatedAt:               tsFrom(created),
	}).Return(nil)

	assert.NoError(t, repo.CreateSession(context.Background(), s))
	store.AssertExpectations(t)
}

func TestGameRepository_SaveSessionNullsOpenCompletion(t *testing.T) {
	store := new(mockGameStore)
	repo := NewGameRepository(store)

	store.On("UpdateGameSession", mock.Anything, queries.UpdateGameSessionParams{
		ID:            uuidFromString(sessionID),
		Phase:         "question_active",
		QuestionIndex: 1,
		CompletedAt:   pgtype.Timestamptz{},
	}).Return(nil)

	err := repo.SaveSession(context.Background(), &game.Session{ID: sessionID, Phase: game.PhaseQuestionActive, QuestionIndex: 1})
	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestGameRepository_PlayerAndAnswer(t *testing.T) {
	store := new(mockGameStore)
	repo := NewGameRepository(store)
	joined := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	store.On("UpsertSessionPlayer", mock.Anything, queries.UpsertSessionPlayerParams{
		SessionID:     uuidFromString(sessionID),
		Name:          "Alice",
		TotalScore:    190,
		CorrectCount:  1,
		CurrentStreak: 1,
		BestStreak:    1,
		Active:        true,
		JoinedAt:      tsFrom(joined),
	}).Return(nil)
	store.On("InsertAnswerRecord", mock.Anything, queries.InsertAnswerRecordParams{
		SessionID:          uuidFromString(sessionID),
		PlayerName:         "Alice",
		QuestionID:         "q1",
		SelectedAnswerID:   "B",
		IsCorrect:          true,
		PointsEarned:       190,
		StreakAtSubmission: 1,
		TimeToAnswerMs:     2000,
		SubmittedAt:        tsFrom(joined.Add(5 * time.Second)),
	}).Return(errors.New("db down"))

	assert.NoError(t, repo.SavePlayer(context.Background(), sessionID, game.PlayerState{
		Name: "Alice", TotalScore: 190, CorrectCount: 1, CurrentStreak: 1, BestStreak: 1, Active: true, JoinedAt: joined,
	}))
	err := repo.SaveAnswerRecord(context.Background(), game.AnswerRecord{
		SessionID:          sessionID,
		PlayerName:         "Alice",
		QuestionID:         "q1",
		SelectedAnswerID:   "B",
		IsCorrect:          true,
		PointsEarned:       190,
		StreakAtSubmission: 1,
		TimeToAnswer:       2 * time.Second,
		SubmittedAt:        joined.Add(5 * time.Second),
	})
	assert.EqualError(t, err, "db down")
	store.AssertExpectations(t)
}

func TestGameRepository_RejectsMalformedID(t *testing.T) {
	store := new(mockGameStore)
	repo := NewGameRepository(store)

	err := repo.SaveSession(context.Background(), &game.Session{ID: "not-a-uuid"})
	assert.Error(t, err)
	store.AssertNotCalled(t, "UpdateGameSession", mock.Anything, mock.Anything)
}
