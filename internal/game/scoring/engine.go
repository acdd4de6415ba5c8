package scoring

import (
	"time"
)

// ScoringConfig holds configurable scoring constants (defaults match requirements).
type ScoringConfig struct {
	BaseScore    int // default: 100
	StreakStep   int // default: 50 per consecutive correct answer, including this one
	MaxTimeBonus int // default: 50
}

// DefaultScoringConfig returns production defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		BaseScore:    100,
		StreakStep:   50,
		MaxTimeBonus: 50,
	}
}

// Engine computes server-side scores with configurable constants.
type Engine struct {
	config ScoringConfig
}

// NewEngine creates a scoring engine with the provided config.
func NewEngine(config ScoringConfig) *Engine {
	return &Engine{config: config}
}

// Score computes points and the updated streak for a single answer.
// Formula: base + step*streakAfter + time_bonus
// - an incorrect answer earns nothing and resets the streak
// - time_bonus: max when answered instantly, decays linearly to 0 at the deadline
func (e *Engine) Score(
	isCorrect bool,
	streakBefore int,
	timeToAnswer time.Duration,
	questionDuration time.Duration,
) (points int, streakAfter int) {
	if !isCorrect {
		return 0, 0
	}

	streakAfter = streakBefore + 1
	if streakAfter < 1 {
		streakAfter = 1
	}
	points = e.config.BaseScore + e.config.StreakStep*streakAfter + e.TimeBonus(timeToAnswer, questionDuration)
	return points, streakAfter
}

// TimeBonus is floor(max * remaining / duration), zero for late answers or a zero duration.
func (e *Engine) TimeBonus(timeToAnswer, questionDuration time.Duration) int {
	if questionDuration <= 0 {
		return 0
	}
	if timeToAnswer < 0 {
		timeToAnswer = 0
	}
	remaining := questionDuration - timeToAnswer
	if remaining <= 0 {
		return 0
	}
	return int(int64(e.config.MaxTimeBonus) * int64(remaining) / int64(questionDuration))
}

// ServerElapsed bounds the client's claimed answer time by what the server observed.
func ServerElapsed(client, observed time.Duration) time.Duration {
	if observed < 0 {
		observed = 0
	}
	if client < 0 || client > observed {
		return observed
	}
	return client
}
