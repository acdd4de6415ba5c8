package quiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuiz_Validate(t *testing.T) {
	two := func(correctA, correctB bool) []Answer {
		return []Answer{{ID: "a", IsCorrect: correctA}, {ID: "b", IsCorrect: correctB}}
	}

	tests := []struct {
		name    string
		quiz    Quiz
		wantErr string
	}{
		{name: "sample is valid", quiz: SampleQuizzes()["sample"]},
		{name: "empty quiz is valid", quiz: Quiz{ID: "empty"}},
		{
			name:    "missing question id",
			quiz:    Quiz{Questions: []Question{{Answers: two(true, false)}}},
			wantErr: "missing id",
		},
		{
			name:    "duplicate question id",
			quiz:    Quiz{Questions: []Question{{ID: "q", Answers: two(true, false)}, {ID: "q", Answers: two(true, false)}}},
			wantErr: "duplicate id",
		},
		{
			name:    "single answer",
			quiz:    Quiz{Questions: []Question{{ID: "q", Answers: []Answer{{ID: "a", IsCorrect: true}}}}},
			wantErr: "at least 2 answers",
		},
		{
			name:    "no correct answer",
			quiz:    Quiz{Questions: []Question{{ID: "q", Answers: two(false, false)}}},
			wantErr: "exactly one correct",
		},
		{
			name:    "two correct answers",
			quiz:    Quiz{Questions: []Question{{ID: "q", Answers: two(true, true)}}},
			wantErr: "exactly one correct",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.quiz.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestQuestion_Helpers(t *testing.T) {
	q := SampleQuizzes()["sample"].Questions[0]
	assert.Equal(t, "b", q.CorrectAnswerID())
	assert.True(t, q.HasAnswer("c"))
	assert.False(t, q.HasAnswer("z"))
}
