package game

import (
	"math"
	"sort"
	"time"

	"github.com/gokatarajesh/livequiz/internal/quiz"
	"github.com/gokatarajesh/livequiz/pkg/http/ws"
)

// RankPlayers orders players by score, then best streak, then join order.
func RankPlayers(s *Session) []ws.LeaderboardEntry {
	players := make([]*PlayerState, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		if a.BestStreak != b.BestStreak {
			return a.BestStreak > b.BestStreak
		}
		return a.JoinOrder < b.JoinOrder
	})

	board := make([]ws.LeaderboardEntry, len(players))
	for i, p := range players {
		board[i] = ws.LeaderboardEntry{
			Rank:         i + 1,
			Name:         p.Name,
			TotalScore:   p.TotalScore,
			CorrectCount: p.CorrectCount,
			WrongCount:   p.WrongCount,
			BestStreak:   p.BestStreak,
			Active:       p.Active,
		}
	}
	return board
}

// BuildQuestionStats rebuilds the answer distribution of one question from the answer log.
func BuildQuestionStats(s *Session, index int) ws.QuestionStats {
	stats := ws.QuestionStats{QuestionIndex: index}
	if index < 0 || index >= len(s.Quiz.Questions) {
		return stats
	}
	question := s.Quiz.Questions[index]
	stats.QuestionID = question.ID

	counts := make(map[string]int, len(question.Answers))
	for _, rec := range s.Answers {
		if rec.QuestionIndex != index {
			continue
		}
		stats.Answered++
		if rec.IsCorrect {
			stats.Correct++
		}
		counts[rec.SelectedAnswerID]++
	}

	stats.Distribution = make([]ws.AnswerTally, len(question.Answers))
	for i, a := range question.Answers {
		stats.Distribution[i] = ws.AnswerTally{AnswerID: a.ID, Count: counts[a.ID], IsCorrect: a.IsCorrect}
	}
	stats.Accuracy = ratio(stats.Correct, stats.Answered)
	return stats
}

// BuildSummary aggregates the whole answer log for the end-of-game report.
func BuildSummary(s *Session) ws.Summary {
	summary := ws.Summary{
		TotalPlayers:   len(s.Players),
		TotalQuestions: s.TotalQuestions(),
	}
	played := s.QuestionIndex + 1
	if played > summary.TotalQuestions {
		played = summary.TotalQuestions
	}
	summary.QuestionsPlayed = played

	for _, rec := range s.Answers {
		summary.TotalAnswers++
		if rec.IsCorrect {
			summary.CorrectAnswers++
		}
	}
	summary.Accuracy = ratio(summary.CorrectAnswers, summary.TotalAnswers)

	summary.Questions = make([]ws.QuestionStats, 0, played)
	for i := 0; i < played; i++ {
		summary.Questions = append(summary.Questions, BuildQuestionStats(s, i))
	}
	return summary
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 10000
}

func rosterPayload(s *Session) ws.RosterChangedPayload {
	players := make([]*PlayerState, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].JoinOrder < players[j].JoinOrder })

	out := ws.RosterChangedPayload{Players: make([]ws.Player, len(players)), TotalPlayers: len(players)}
	for i, p := range players {
		out.Players[i] = ws.Player{Name: p.Name, Active: p.Active, TotalScore: p.TotalScore}
	}
	return out
}

func playerStats(p *PlayerState) ws.PlayerStats {
	return ws.PlayerStats{
		Name:          p.Name,
		TotalScore:    p.TotalScore,
		CorrectCount:  p.CorrectCount,
		WrongCount:    p.WrongCount,
		CurrentStreak: p.CurrentStreak,
		BestStreak:    p.BestStreak,
		HasAnswered:   p.HasAnsweredCurrentQuestion,
	}
}

// questionView strips the correct-answer flag.
func questionView(q quiz.Question) ws.QuestionView {
	view := ws.QuestionView{ID: q.ID, Text: q.Text, Answers: make([]ws.AnswerOption, len(q.Answers))}
	for i, a := range q.Answers {
		view.Answers[i] = ws.AnswerOption{ID: a.ID, Text: a.Text}
	}
	return view
}

func questionStartedPayload(s *Session, now time.Time) ws.QuestionStartedPayload {
	q, _ := s.CurrentQuestion()
	remaining := s.QuestionDeadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return ws.QuestionStartedPayload{
		Question:         questionView(q),
		Index:            s.QuestionIndex,
		TotalQuestions:   s.TotalQuestions(),
		DurationSeconds:  int(s.QuestionDuration / time.Second),
		RemainingSeconds: remaining.Seconds(),
		Deadline:         s.QuestionDeadline.UTC().Format(time.RFC3339Nano),
	}
}
