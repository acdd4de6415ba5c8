package quiz

import (
	"errors"
	"fmt"
)

// ErrQuizNotFound indicates the quiz content could not be loaded.
var ErrQuizNotFound = errors.New("quiz not found")

// Answer is one option of a question. Exactly one answer per question is correct.
type Answer struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question models a multiple-choice question.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Answers []Answer `json:"answers"`
}

// Quiz is the ordered question set a session is played from.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// CorrectAnswerID returns the id of the single correct answer.
func (q Question) CorrectAnswerID() string {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a.ID
		}
	}
	return ""
}

// HasAnswer reports whether answerID belongs to the question.
func (q Question) HasAnswer(answerID string) bool {
	for _, a := range q.Answers {
		if a.ID == answerID {
			return true
		}
	}
	return false
}

// Validate checks the structural rules a playable quiz must satisfy.
func (q Quiz) Validate() error {
	seen := make(map[string]bool, len(q.Questions))
	for i, question := range q.Questions {
		if question.ID == "" {
			return fmt.Errorf("question %d: missing id", i)
		}
		if seen[question.ID] {
			return fmt.Errorf("question %d: duplicate id %q", i, question.ID)
		}
		seen[question.ID] = true

		if len(question.Answers) < 2 {
			return fmt.Errorf("question %q: need at least 2 answers", question.ID)
		}
		correct := 0
		for _, a := range question.Answers {
			if a.ID == "" {
				return fmt.Errorf("question %q: answer missing id", question.ID)
			}
			if a.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("question %q: expected exactly one correct answer, got %d", question.ID, correct)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can hold an immutable snapshot.
func (q Quiz) Clone() Quiz {
	out := Quiz{ID: q.ID, Title: q.Title, Questions: make([]Question, len(q.Questions))}
	for i, question := range q.Questions {
		answers := make([]Answer, len(question.Answers))
		copy(answers, question.Answers)
		out.Questions[i] = Question{ID: question.ID, Text: question.Text, Answers: answers}
	}
	return out
}
