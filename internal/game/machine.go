package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/livequiz/internal/game/scoring"
	"github.com/gokatarajesh/livequiz/internal/quiz"
	"github.com/gokatarajesh/livequiz/pkg/http/ws"
)

// Config tunes session timing and limits.
type Config struct {
	DefaultQuestionDuration time.Duration
	MaxQuestionDuration     time.Duration
	CountdownTicks          int
	CountdownInterval       time.Duration
	QuestionTickInterval    time.Duration // 0 disables question-tick broadcasts
	CompletedGrace          time.Duration
	SweepInterval           time.Duration
	MaxNameLength           int
	SideEffectTimeout       time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultQuestionDuration: 10 * time.Second,
		MaxQuestionDuration:     5 * time.Minute,
		CountdownTicks:          3,
		CountdownInterval:       time.Second,
		QuestionTickInterval:    time.Second,
		CompletedGrace:          10 * time.Minute,
		SweepInterval:           time.Minute,
		MaxNameLength:           32,
		SideEffectTimeout:       10 * time.Second,
	}
}

// MachineOptions carries optional collaborators. Nil values disable the concern.
type MachineOptions struct {
	Config        Config
	ScoringConfig scoring.ScoringConfig
	Clock         clockwork.Clock
	Recorder      Recorder
	Hosts         HostTokens
	Payout        Payout
	Archive       Archive
	Metrics       Metrics
}

// Machine drives session phase transitions. Every read-then-write goes
// through Store.Mutate, and every broadcast is published from inside it so
// subscribers observe transitions in the order they were applied.
type Machine struct {
	store     *Store
	timers    *TimerRegistry
	quizzes   QuizSource
	publisher Publisher
	recorder  Recorder
	hosts     HostTokens
	payout    Payout
	archive   Archive
	metrics   Metrics
	scorer    *scoring.Engine
	clock     clockwork.Clock
	cfg       Config
	logger    zerolog.Logger
}

// NewMachine creates a state machine over the given store and timers.
func NewMachine(
	store *Store,
	timers *TimerRegistry,
	quizzes QuizSource,
	publisher Publisher,
	opts MachineOptions,
	logger zerolog.Logger,
) *Machine {
	scoringCfg := opts.ScoringConfig
	if scoringCfg.BaseScore == 0 {
		scoringCfg = scoring.DefaultScoringConfig()
	}
	cfg := opts.Config
	if cfg.DefaultQuestionDuration <= 0 {
		cfg.DefaultQuestionDuration = DefaultConfig().DefaultQuestionDuration
	}
	if cfg.MaxQuestionDuration <= 0 {
		cfg.MaxQuestionDuration = DefaultConfig().MaxQuestionDuration
	}
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = DefaultConfig().MaxNameLength
	}
	if cfg.SideEffectTimeout <= 0 {
		cfg.SideEffectTimeout = DefaultConfig().SideEffectTimeout
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &Machine{
		store:     store,
		timers:    timers,
		quizzes:   quizzes,
		publisher: publisher,
		recorder:  recorder,
		hosts:     opts.Hosts,
		payout:    opts.Payout,
		archive:   opts.Archive,
		metrics:   metrics,
		scorer:    scoring.NewEngine(scoringCfg),
		clock:     clock,
		cfg:       cfg,
		logger:    logger.With().Str("component", "game_machine").Logger(),
	}
}

// CreatedSession is returned to whoever hosts a new session.
type CreatedSession struct {
	Session   *Session
	HostToken string
}

// CreateSession snapshots the quiz and opens a Lobby session for it.
func (m *Machine) CreateSession(ctx context.Context, quizID string, questionSeconds int) (*CreatedSession, error) {
	quizID = strings.TrimSpace(quizID)
	if quizID == "" {
		return nil, newError(ErrInvalidInput, "quiz id is required")
	}
	if questionSeconds < 0 {
		return nil, newError(ErrInvalidInput, "question duration must not be negative")
	}
	duration := m.cfg.DefaultQuestionDuration
	if questionSeconds > 0 {
		duration = time.Duration(questionSeconds) * time.Second
	}
	if duration > m.cfg.MaxQuestionDuration {
		return nil, newError(ErrInvalidInput, fmt.Sprintf("question duration exceeds %s", m.cfg.MaxQuestionDuration))
	}

	q, err := m.quizzes.GetQuizByID(ctx, quizID)
	if err != nil {
		if errors.Is(err, quiz.ErrQuizNotFound) {
			return nil, newError(ErrNotFound, "quiz not found")
		}
		return nil, fmt.Errorf("fetch quiz: %w", err)
	}
	if len(q.Questions) == 0 {
		return nil, newError(ErrInvalidInput, "quiz has no questions")
	}
	if err := q.Validate(); err != nil {
		return nil, newError(ErrInvalidInput, err.Error())
	}

	session, err := m.store.Create(q.Clone(), duration)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	out := &CreatedSession{Session: session}
	if m.hosts != nil {
		token, err := m.hosts.Issue(session.ID)
		if err != nil {
			m.store.Evict(session.ID)
			return nil, fmt.Errorf("issue host token: %w", err)
		}
		out.HostToken = token
	}

	m.recorder.CreateSession(session)
	m.metrics.SessionOpened()
	m.metrics.PhaseEntered(PhaseLobby)
	m.logger.Info().
		Str("session_id", session.ID).
		Str("pin", session.PIN).
		Str("quiz_id", quizID).
		Int("questions", session.TotalQuestions()).
		Dur("question_duration", duration).
		Msg("session created")
	return out, nil
}

// JoinResult is the private confirmation for a joining player.
type JoinResult struct {
	Joined   ws.JoinedPayload
	Question *ws.QuestionStartedPayload // set when a question is running
}

// Join adds the player, or reactivates them if the name is already known.
func (m *Machine) Join(sessionID, playerName string) (*JoinResult, error) {
	playerName, err := m.validateIdentity(sessionID, playerName)
	if err != nil {
		return nil, err
	}

	var result JoinResult
	_, err = m.store.Mutate(sessionID, func(s *Session) error {
		if s.Phase.Terminal() {
			return newError(ErrInvalidTransition, "session has ended")
		}
		now := m.clock.Now()
		p, created := s.upsertPlayer(playerName, now)

		result.Joined = ws.JoinedPayload{
			SessionID:      s.ID,
			Phase:          string(s.Phase),
			QuestionIndex:  s.QuestionIndex,
			TotalQuestions: s.TotalQuestions(),
			Player:         playerStats(p),
		}
		if s.Phase == PhaseQuestionActive {
			q := questionStartedPayload(s, now)
			result.Question = &q
		}

		m.publisher.Publish(s.ID, ws.TypeRosterChanged, rosterPayload(s))
		m.recorder.SavePlayer(s.ID, *p)
		m.logger.Info().
			Str("session_id", s.ID).
			Str("player", playerName).
			Bool("rejoin", !created).
			Msg("player joined")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Leave marks the player inactive. Score history is kept for a later rejoin.
func (m *Machine) Leave(sessionID, playerName string) error {
	playerName, err := m.validateIdentity(sessionID, playerName)
	if err != nil {
		return err
	}

	_, err = m.store.Mutate(sessionID, func(s *Session) error {
		p, ok := s.Players[playerName]
		if !ok {
			return newError(ErrNotFound, "player not in session")
		}
		if !p.Active {
			return nil
		}
		p.Active = false
		m.publisher.Publish(s.ID, ws.TypeRosterChanged, rosterPayload(s))
		m.recorder.SavePlayer(s.ID, *p)
		m.logger.Info().Str("session_id", s.ID).Str("player", playerName).Msg("player left")
		return nil
	})
	return err
}

// Start moves a Lobby session into the first countdown.
func (m *Machine) Start(sessionID, hostToken string) error {
	if err := m.authorize(sessionID, hostToken); err != nil {
		return err
	}

	_, err := m.store.Mutate(sessionID, func(s *Session) error {
		if s.Phase != PhaseLobby {
			return newError(ErrInvalidTransition, fmt.Sprintf("cannot start from %s", s.Phase))
		}
		s.QuestionIndex = -1
		m.publisher.Publish(s.ID, ws.TypeGameStarted, ws.GameStartedPayload{TotalQuestions: s.TotalQuestions()})
		m.beginCountdown(s, 0)
		return nil
	})
	return err
}

// NextQuestion runs the countdown to the question after the one just scored.
// expectedIndex, when given, must name that next question.
func (m *Machine) NextQuestion(sessionID string, expectedIndex *int, hostToken string) error {
	if err := m.authorize(sessionID, hostToken); err != nil {
		return err
	}

	_, err := m.store.Mutate(sessionID, func(s *Session) error {
		if s.Phase != PhaseResults {
			return newError(ErrInvalidTransition, fmt.Sprintf("cannot advance from %s", s.Phase))
		}
		next := s.QuestionIndex + 1
		if expectedIndex != nil && *expectedIndex != next {
			return newError(ErrInvalidTransition, fmt.Sprintf("next question is %d, not %d", next, *expectedIndex))
		}
		m.timers.Cancel(s.ID, TimerQuestion)
		m.timers.Cancel(s.ID, TimerTick)
		m.beginCountdown(s, next)
		return nil
	})
	return err
}

// SubmitRequest is one player's answer to the active question.
type SubmitRequest struct {
	SessionID           string
	PlayerName          string
	QuestionID          string
	AnswerID            string
	TimeToAnswerSeconds float64
}

// SubmitAnswer scores an answer against the snapshot. At most one answer per
// player per question is accepted.
func (m *Machine) SubmitAnswer(req SubmitRequest) (*ws.AnswerAcceptedPayload, error) {
	receivedAt := m.clock.Now()

	playerName, err := m.validateIdentity(req.SessionID, req.PlayerName)
	if err != nil {
		return nil, err
	}
	if req.QuestionID == "" || req.AnswerID == "" {
		return nil, newError(ErrInvalidInput, "question id and answer id are required")
	}
	if math.IsNaN(req.TimeToAnswerSeconds) || math.IsInf(req.TimeToAnswerSeconds, 0) {
		return nil, newError(ErrInvalidInput, "time to answer must be a finite number")
	}
	clientElapsed := time.Duration(req.TimeToAnswerSeconds * float64(time.Second))

	var accepted ws.AnswerAcceptedPayload
	_, err = m.store.Mutate(req.SessionID, func(s *Session) error {
		if s.Phase != PhaseQuestionActive || !receivedAt.Before(s.QuestionDeadline) {
			return newError(ErrQuestionClosed, "question is not accepting answers")
		}
		p, ok := s.Players[playerName]
		if !ok {
			return newError(ErrNotFound, "player not in session")
		}
		q, _ := s.CurrentQuestion()
		if req.QuestionID != q.ID {
			return newError(ErrQuestionClosed, "question is no longer active")
		}
		if !q.HasAnswer(req.AnswerID) {
			return newError(ErrInvalidInput, "unknown answer id")
		}
		if p.HasAnsweredCurrentQuestion {
			return newError(ErrDuplicateAnswer, "answer already submitted for this question")
		}

		isCorrect := req.AnswerID == q.CorrectAnswerID()
		elapsed := scoring.ServerElapsed(clientElapsed, receivedAt.Sub(s.QuestionStartedAt))
		points, streak := m.scorer.Score(isCorrect, p.CurrentStreak, elapsed, s.QuestionDuration)

		p.HasAnsweredCurrentQuestion = true
		p.TotalScore += points
		p.CurrentStreak = streak
		if streak > p.BestStreak {
			p.BestStreak = streak
		}
		if isCorrect {
			p.CorrectCount++
		} else {
			p.WrongCount++
		}

		rec := AnswerRecord{
			SessionID:          s.ID,
			PlayerName:         playerName,
			QuestionID:         q.ID,
			QuestionIndex:      s.QuestionIndex,
			SelectedAnswerID:   req.AnswerID,
			IsCorrect:          isCorrect,
			PointsEarned:       points,
			StreakAtSubmission: streak,
			TimeToAnswer:       elapsed,
			SubmittedAt:        receivedAt,
		}
		s.Answers = append(s.Answers, rec)

		accepted = ws.AnswerAcceptedPayload{
			PlayerName:   playerName,
			IsCorrect:    isCorrect,
			PointsEarned: points,
			TotalScore:   p.TotalScore,
			Streak:       streak,
		}
		m.publisher.Publish(s.ID, ws.TypeAnswerCountChanged, ws.AnswerCountChangedPayload{
			AnsweredCount: s.AnsweredCount(),
			TotalPlayers:  len(s.Players),
		})
		m.recorder.SaveAnswer(rec)
		m.recorder.SavePlayer(s.ID, *p)
		return nil
	})
	if err != nil {
		var gameErr *Error
		if errors.As(err, &gameErr) {
			m.metrics.AnswerRejected(gameErr.Code)
		}
		return nil, err
	}

	m.metrics.AnswerAccepted(accepted.IsCorrect)
	m.logger.Debug().
		Str("session_id", req.SessionID).
		Str("player", playerName).
		Str("question_id", req.QuestionID).
		Bool("correct", accepted.IsCorrect).
		Int("points", accepted.PointsEarned).
		Msg("answer accepted")
	return &accepted, nil
}

// EndGame completes the session from any non-terminal phase.
func (m *Machine) EndGame(sessionID, hostToken string) error {
	if err := m.authorize(sessionID, hostToken); err != nil {
		return err
	}

	_, err := m.store.Mutate(sessionID, func(s *Session) error {
		if s.Phase.Terminal() {
			return newError(ErrInvalidTransition, "session already completed")
		}
		m.complete(s)
		return nil
	})
	return err
}

// Session returns a snapshot of the session.
func (m *Machine) Session(sessionID string) (*Session, error) {
	return m.store.Get(sessionID)
}

// SessionByPin resolves a join code.
func (m *Machine) SessionByPin(pin string) (*Session, error) {
	return m.store.GetByPin(pin)
}

// Leaderboard returns current standings, falling back to the archive once the
// session has been evicted.
func (m *Machine) Leaderboard(ctx context.Context, sessionID string) ([]ws.LeaderboardEntry, error) {
	s, err := m.store.Get(sessionID)
	if err == nil {
		return RankPlayers(s), nil
	}
	if !errors.Is(err, ErrNotFound) || m.archive == nil {
		return nil, err
	}
	board, err := m.archive.Leaderboard(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read archived leaderboard: %w", err)
	}
	if board == nil {
		return nil, ErrNotFound
	}
	return board, nil
}

// Summary returns game statistics, falling back to the archive once the
// session has been evicted.
func (m *Machine) Summary(ctx context.Context, sessionID string) (*ws.Summary, error) {
	s, err := m.store.Get(sessionID)
	if err == nil {
		summary := BuildSummary(s)
		return &summary, nil
	}
	if !errors.Is(err, ErrNotFound) || m.archive == nil {
		return nil, err
	}
	summary, err := m.archive.Summary(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read archived summary: %w", err)
	}
	if summary == nil {
		return nil, ErrNotFound
	}
	return summary, nil
}

func (m *Machine) beginCountdown(s *Session, next int) {
	m.timers.Cancel(s.ID, TimerCountdown)
	if m.cfg.CountdownTicks <= 0 {
		m.advanceToQuestion(s, next)
		return
	}
	s.Phase = PhaseCountdown
	s.QuestionDeadline = time.Time{}
	s.PendingIndex = next
	s.CountdownRemaining = m.cfg.CountdownTicks
	m.enterPhase(s)
	m.publisher.Publish(s.ID, ws.TypeCountdownTick, ws.CountdownTickPayload{Count: s.CountdownRemaining})
	m.armCountdown(s.ID)
}

func (m *Machine) armCountdown(sessionID string) {
	m.timers.Arm(sessionID, TimerCountdown, m.cfg.CountdownInterval, func(token uint64) {
		m.onCountdown(sessionID, token)
	})
}

func (m *Machine) onCountdown(sessionID string, token uint64) {
	m.fire(sessionID, TimerCountdown, token, func(s *Session) {
		if s.Phase != PhaseCountdown {
			return
		}
		s.CountdownRemaining--
		if s.CountdownRemaining > 0 {
			m.publisher.Publish(s.ID, ws.TypeCountdownTick, ws.CountdownTickPayload{Count: s.CountdownRemaining})
			m.armCountdown(s.ID)
			return
		}
		m.advanceToQuestion(s, s.PendingIndex)
	})
}

func (m *Machine) advanceToQuestion(s *Session, index int) {
	m.timers.Cancel(s.ID, TimerCountdown)
	s.PendingIndex = -1
	if index >= s.TotalQuestions() {
		m.complete(s)
		return
	}

	now := m.clock.Now()
	for _, p := range s.Players {
		p.HasAnsweredCurrentQuestion = false
	}
	s.QuestionIndex = index
	s.QuestionStartedAt = now
	s.QuestionDeadline = now.Add(s.QuestionDuration)
	s.Phase = PhaseQuestionActive
	m.enterPhase(s)

	sessionID := s.ID
	m.timers.Arm(sessionID, TimerQuestion, s.QuestionDuration, func(token uint64) {
		m.onQuestionTimeout(sessionID, token)
	})
	m.armTick(s)
	m.publisher.Publish(s.ID, ws.TypeQuestionStarted, questionStartedPayload(s, now))
}

func (m *Machine) armTick(s *Session) {
	interval := m.cfg.QuestionTickInterval
	if interval <= 0 {
		return
	}
	if !m.clock.Now().Add(interval).Before(s.QuestionDeadline) {
		return
	}
	sessionID := s.ID
	m.timers.Arm(sessionID, TimerTick, interval, func(token uint64) {
		m.onTick(sessionID, token)
	})
}

func (m *Machine) onTick(sessionID string, token uint64) {
	m.fire(sessionID, TimerTick, token, func(s *Session) {
		if s.Phase != PhaseQuestionActive {
			return
		}
		remaining := s.QuestionDeadline.Sub(m.clock.Now())
		if remaining < 0 {
			remaining = 0
		}
		m.armTick(s)
		m.publisher.Publish(s.ID, ws.TypeQuestionTick, ws.QuestionTickPayload{
			QuestionIndex:    s.QuestionIndex,
			RemainingSeconds: int(math.Ceil(remaining.Seconds())),
		})
	})
}

func (m *Machine) onQuestionTimeout(sessionID string, token uint64) {
	m.fire(sessionID, TimerQuestion, token, func(s *Session) {
		if s.Phase != PhaseQuestionActive {
			return
		}
		m.timers.Cancel(s.ID, TimerTick)
		s.Phase = PhaseResults
		s.QuestionDeadline = time.Time{}
		m.enterPhase(s)

		q, _ := s.CurrentQuestion()
		m.publisher.Publish(s.ID, ws.TypeQuestionResults, ws.QuestionResultsPayload{
			Leaderboard:     RankPlayers(s),
			CorrectAnswerID: q.CorrectAnswerID(),
			QuestionIndex:   s.QuestionIndex,
			Stats:           BuildQuestionStats(s, s.QuestionIndex),
		})
	})
}

// fire runs a timer callback inside the session lock once its token is claimed.
func (m *Machine) fire(sessionID string, kind TimerKind, token uint64, fn func(*Session)) {
	stale := false
	_, err := m.store.Mutate(sessionID, func(s *Session) error {
		if !m.timers.Claim(sessionID, kind, token) {
			stale = true
			return nil
		}
		fn(s)
		return nil
	})
	if err != nil {
		m.logger.Warn().Err(err).
			Str("session_id", sessionID).
			Str("kind", string(kind)).
			Msg("timer fired for unknown session")
		stale = true
	} else if stale {
		m.logger.Debug().
			Str("session_id", sessionID).
			Str("kind", string(kind)).
			Uint64("token", token).
			Msg("stale timer ignored")
	}
	m.metrics.TimerFired(kind, stale)
}

func (m *Machine) complete(s *Session) {
	m.timers.CancelAll(s.ID)
	s.Phase = PhaseCompleted
	s.PendingIndex = -1
	s.QuestionDeadline = time.Time{}
	s.CompletedAt = m.clock.Now()
	m.enterPhase(s)

	board := RankPlayers(s)
	summary := BuildSummary(s)
	m.publisher.Publish(s.ID, ws.TypeGameEnded, ws.GameEndedPayload{Leaderboard: board, Summary: summary})

	go m.afterGame(s.ID, board, summary)
}

// afterGame runs the post-game side effects outside the session lock.
// Failures are logged and never touch game state.
func (m *Machine) afterGame(sessionID string, board []ws.LeaderboardEntry, summary ws.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SideEffectTimeout)
	defer cancel()

	if m.archive != nil {
		if err := m.archive.Save(ctx, sessionID, board, summary); err != nil {
			m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("archive leaderboard failed")
		}
	}
	if m.payout != nil && len(board) > 0 {
		podium := board
		if len(podium) > 3 {
			podium = podium[:3]
		}
		if err := m.payout.RequestPayout(ctx, sessionID, podium); err != nil {
			m.logger.Warn().Err(err).Str("session_id", sessionID).Msg("payout request failed")
		}
	}
}

func (m *Machine) enterPhase(s *Session) {
	m.metrics.PhaseEntered(s.Phase)
	m.recorder.SaveSession(s)
	m.logger.Info().
		Str("session_id", s.ID).
		Str("phase", string(s.Phase)).
		Int("question_index", s.QuestionIndex).
		Msg("phase transition")
}

func (m *Machine) authorize(sessionID, token string) error {
	if strings.TrimSpace(sessionID) == "" {
		return newError(ErrInvalidInput, "session id is required")
	}
	if m.hosts == nil {
		return nil
	}
	if err := m.hosts.Verify(token, sessionID); err != nil {
		m.logger.Debug().Err(err).Str("session_id", sessionID).Msg("host token rejected")
		return ErrUnauthorized
	}
	return nil
}

func (m *Machine) validateIdentity(sessionID, playerName string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", newError(ErrInvalidInput, "session id is required")
	}
	name := strings.TrimSpace(playerName)
	if name == "" {
		return "", newError(ErrInvalidInput, "player name is required")
	}
	if utf8.RuneCountInString(name) > m.cfg.MaxNameLength {
		return "", newError(ErrInvalidInput, fmt.Sprintf("player name exceeds %d characters", m.cfg.MaxNameLength))
	}
	return name, nil
}
