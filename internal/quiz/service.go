package quiz

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// QuizCache defines cache behavior (implemented by Redis-backed Cache).
type QuizCache interface {
	Get(ctx context.Context, quizID string) (*Quiz, error)
	Set(ctx context.Context, q Quiz) error
}

// Loader reads quiz content from the backing store.
type Loader interface {
	GetQuizByID(ctx context.Context, quizID string) (Quiz, error)
}

// Service serves quiz content with a read-through cache in front of the loader.
type Service struct {
	loader Loader
	cache  QuizCache
	loads  singleflight.Group
	logger zerolog.Logger
}

// NewService builds a quiz service. cache may be nil.
func NewService(loader Loader, cache QuizCache, logger zerolog.Logger) *Service {
	return &Service{
		loader: loader,
		cache:  cache,
		logger: logger.With().Str("component", "quiz_service").Logger(),
	}
}

// GetQuizByID returns the quiz from cache when present, falling back to the loader.
func (s *Service) GetQuizByID(ctx context.Context, quizID string) (Quiz, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, quizID)
		if err != nil {
			s.logger.Warn().Err(err).Str("quiz_id", quizID).Msg("quiz cache read failed")
		} else if cached != nil {
			return *cached, nil
		}
	}

	// Concurrent misses for one quiz share a single load.
	v, err, _ := s.loads.Do(quizID, func() (interface{}, error) {
		q, err := s.loader.GetQuizByID(ctx, quizID)
		if err != nil {
			return Quiz{}, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, q); err != nil {
				s.logger.Warn().Err(err).Str("quiz_id", quizID).Msg("quiz cache write failed")
			}
		}
		return q, nil
	})
	if err != nil {
		return Quiz{}, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	return v.(Quiz), nil
}
