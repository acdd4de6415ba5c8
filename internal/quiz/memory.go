package quiz

import (
	"context"
	"sync"
)

// StaticLoader serves quizzes from an in-process catalogue.
type StaticLoader struct {
	mu      sync.RWMutex
	quizzes map[string]Quiz
}

func NewStaticLoader(quizzes map[string]Quiz) *StaticLoader {
	copied := make(map[string]Quiz, len(quizzes))
	for id, q := range quizzes {
		copied[id] = q.Clone()
	}
	return &StaticLoader{quizzes: copied}
}

func (l *StaticLoader) GetQuizByID(_ context.Context, quizID string) (Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	q, ok := l.quizzes[quizID]
	if !ok {
		return Quiz{}, ErrQuizNotFound
	}
	return q.Clone(), nil
}

// Put replaces a quiz in the catalogue.
func (l *StaticLoader) Put(q Quiz) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quizzes[q.ID] = q.Clone()
}

// SampleQuizzes provides a minimal catalogue for running without Postgres.
func SampleQuizzes() map[string]Quiz {
	return map[string]Quiz{
		"sample": {
			ID:    "sample",
			Title: "Warm-up",
			Questions: []Question{
				{
					ID:   "q1",
					Text: "What is 2 + 2?",
					Answers: []Answer{
						{ID: "a", Text: "3"},
						{ID: "b", Text: "4", IsCorrect: true},
						{ID: "c", Text: "5"},
					},
				},
				{
					ID:   "q2",
					Text: "Which planet is known as the Red Planet?",
					Answers: []Answer{
						{ID: "a", Text: "Mars", IsCorrect: true},
						{ID: "b", Text: "Venus"},
						{ID: "c", Text: "Jupiter"},
					},
				},
			},
		},
	}
}
