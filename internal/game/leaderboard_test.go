package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankPlayers_TieBreaks(t *testing.T) {
	s := &Session{
		Quiz: testQuiz(),
		Players: map[string]*PlayerState{
			"late-high-streak": {Name: "late-high-streak", TotalScore: 300, BestStreak: 2, JoinOrder: 4},
			"early":            {Name: "early", TotalScore: 300, BestStreak: 1, JoinOrder: 1},
			"later":            {Name: "later", TotalScore: 300, BestStreak: 1, JoinOrder: 3},
			"leader":           {Name: "leader", TotalScore: 450, BestStreak: 1, JoinOrder: 5},
			"zero":             {Name: "zero", JoinOrder: 2},
		},
	}

	board := RankPlayers(s)
	require.Len(t, board, 5)

	var names []string
	for i, e := range board {
		assert.Equal(t, i+1, e.Rank)
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"leader", "late-high-streak", "early", "later", "zero"}, names)
}

func TestBuildSummary_OnlyPlayedQuestions(t *testing.T) {
	s := &Session{
		Quiz:          testQuiz(),
		QuestionIndex: 0,
		Players:       map[string]*PlayerState{"a": {Name: "a"}, "b": {Name: "b"}},
		Answers: []AnswerRecord{
			{PlayerName: "a", QuestionIndex: 0, SelectedAnswerID: "B", IsCorrect: true},
			{PlayerName: "b", QuestionIndex: 0, SelectedAnswerID: "B", IsCorrect: true},
		},
	}

	summary := BuildSummary(s)
	assert.Equal(t, 2, summary.TotalPlayers)
	assert.Equal(t, 2, summary.TotalQuestions)
	assert.Equal(t, 1, summary.QuestionsPlayed)
	assert.Equal(t, 1.0, summary.Accuracy)
	require.Len(t, summary.Questions, 1)
	assert.Equal(t, 2, summary.Questions[0].Distribution[1].Count)
}

func TestBuildSummary_NoAnswers(t *testing.T) {
	s := &Session{Quiz: testQuiz(), QuestionIndex: -1, Players: map[string]*PlayerState{}}

	summary := BuildSummary(s)
	assert.Equal(t, 0, summary.QuestionsPlayed)
	assert.Equal(t, 0.0, summary.Accuracy)
	assert.Empty(t, summary.Questions)
}

func TestQuestionViewHidesCorrectness(t *testing.T) {
	view := questionView(testQuiz().Questions[0])
	assert.Equal(t, "q1", view.ID)
	require.Len(t, view.Answers, 3)
	assert.Equal(t, "B", view.Answers[1].ID)
}
