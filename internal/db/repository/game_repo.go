package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/livequiz/internal/db/queries"
	"github.com/gokatarajesh/livequiz/internal/game"
)

type gameStore interface {
	CreateGameSession(ctx context.Context, arg queries.CreateGameSessionParams) error
	UpdateGameSession(ctx context.Context, arg queries.UpdateGameSessionParams) error
	UpsertSessionPlayer(ctx context.Context, arg queries.UpsertSessionPlayerParams) error
	InsertAnswerRecord(ctx context.Context, arg queries.InsertAnswerRecordParams) error
}

// GameRepository records live session state for auditing and recovery.
type GameRepository struct {
	store gameStore
}

// NewGameRepository constructs a new game repository.
func NewGameRepository(store gameStore) *GameRepository {
	return &GameRepository{store: store}
}

// CreateSession persists a new session row.
func (r *GameRepository) CreateSession(ctx context.Context, s *game.Session) error {
	id, err := pgUUID(s.ID)
	if err != nil {
		return err
	}
	return r.store.CreateGameSession(ctx, queries.CreateGameSessionParams{
		ID:                      id,
		Pin:                     s.PIN,
		QuizID:                  s.Quiz.ID,
		Title:                   s.Title,
		Phase:                   string(s.Phase),
		QuestionIndex:           int32(s.QuestionIndex),
		QuestionDurationSeconds: int32(s.QuestionDuration / time.Second),
		CreatedAt:               pgTime(s.CreatedAt),
	})
}

// SaveSession records the session's phase and position.
func (r *GameRepository) SaveSession(ctx context.Context, s *game.Session) error {
	id, err := pgUUID(s.ID)
	if err != nil {
		return err
	}
	return r.store.UpdateGameSession(ctx, queries.UpdateGameSessionParams{
		ID:            id,
		Phase:         string(s.Phase),
		QuestionIndex: int32(s.QuestionIndex),
		CompletedAt:   pgTime(s.CompletedAt),
	})
}

// SavePlayer upserts a player's running totals.
func (r *GameRepository) SavePlayer(ctx context.Context, sessionID string, p game.PlayerState) error {
	id, err := pgUUID(sessionID)
	if err != nil {
		return err
	}
	return r.store.UpsertSessionPlayer(ctx, queries.UpsertSessionPlayerParams{
		SessionID:     id,
		Name:          p.Name,
		TotalScore:    int32(p.TotalScore),
		CorrectCount:  int32(p.CorrectCount),
		WrongCount:    int32(p.WrongCount),
		CurrentStreak: int32(p.CurrentStreak),
		BestStreak:    int32(p.BestStreak),
		Active:        p.Active,
		JoinedAt:      pgTime(p.JoinedAt),
	})
}

// SaveAnswerRecord appends an answer. Replays of the same record are ignored.
func (r *GameRepository) SaveAnswerRecord(ctx context.Context, rec game.AnswerRecord) error {
	id, err := pgUUID(rec.SessionID)
	if err != nil {
		return err
	}
	return r.store.InsertAnswerRecord(ctx, queries.InsertAnswerRecordParams{
		SessionID:          id,
		PlayerName:         rec.PlayerName,
		QuestionID:         rec.QuestionID,
		QuestionIndex:      int32(rec.QuestionIndex),
		SelectedAnswerID:   rec.SelectedAnswerID,
		IsCorrect:          rec.IsCorrect,
		PointsEarned:       int32(rec.PointsEarned),
		StreakAtSubmission: int32(rec.StreakAtSubmission),
		TimeToAnswerMs:     rec.TimeToAnswer.Milliseconds(),
		SubmittedAt:        pgTime(rec.SubmittedAt),
	})
}

func pgUUID(s string) (pgtype.UUID, error) {
	var id pgtype.UUID
	if err := id.Scan(s); err != nil {
		return pgtype.UUID{}, fmt.Errorf("parse session id %q: %w", s, err)
	}
	return id, nil
}

// pgTime maps the zero time to NULL.
func pgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}
