package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/livequiz/internal/game"
)

type recordingRepo struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]int
	block    chan struct{}
}

func (r *recordingRepo) record(call string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures[call] > 0 {
		r.failures[call]--
		return errors.New("transient")
	}
	r.calls = append(r.calls, call)
	return nil
}

func (r *recordingRepo) CreateSession(_ context.Context, s *game.Session) error {
	return r.record("create:" + s.ID)
}

func (r *recordingRepo) SaveSession(_ context.Context, s *game.Session) error {
	return r.record("session:" + string(s.Phase))
}

func (r *recordingRepo) SavePlayer(_ context.Context, _ string, p game.PlayerState) error {
	return r.record("player:" + p.Name)
}

func (r *recordingRepo) SaveAnswerRecord(_ context.Context, rec game.AnswerRecord) error {
	return r.record("answer:" + rec.PlayerName)
}

func (r *recordingRepo) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *countingMetrics) PersistJob(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[result]++
}

func (m *countingMetrics) get(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[result]
}

func testConfig() Config {
	return Config{QueueSize: 64, Workers: 2, MaxRetries: 3, BaseBackoff: time.Millisecond, JobTimeout: time.Second}
}

func TestWriter_PreservesPerSessionOrder(t *testing.T) {
	repo := &recordingRepo{failures: map[string]int{"player:Alice": 2}}
	metrics := &countingMetrics{}
	w := NewWriter(repo, metrics, testConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	s := &game.Session{ID: "s1", Phase: game.PhaseLobby}
	w.CreateSession(s)
	w.SavePlayer("s1", game.PlayerState{Name: "Alice"})
	s.Phase = game.PhaseCountdown
	w.SaveSession(s)
	w.SaveAnswer(game.AnswerRecord{SessionID: "s1", PlayerName: "Alice"})

	require.Eventually(t, func() bool { return metrics.get(ResultOK) == 4 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"create:s1", "player:Alice", "session:countdown", "answer:Alice"}, repo.snapshot())

	cancel()
	require.NoError(t, <-done)
}

func TestWriter_SnapshotsSessionAtEnqueue(t *testing.T) {
	repo := &recordingRepo{}
	metrics := &countingMetrics{}
	w := NewWriter(repo, metrics, testConfig(), zerolog.Nop())

	s := &game.Session{ID: "s1", Phase: game.PhaseLobby}
	w.SaveSession(s)
	s.Phase = game.PhaseCompleted

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return metrics.get(ResultOK) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"session:lobby"}, repo.snapshot())
	cancel()
	<-done
}

func TestWriter_GivesUpAfterRetries(t *testing.T) {
	repo := &recordingRepo{failures: map[string]int{"player:Bob": 100}}
	metrics := &countingMetrics{}
	w := NewWriter(repo, metrics, testConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.SavePlayer("s1", game.PlayerState{Name: "Bob"})
	require.Eventually(t, func() bool { return metrics.get(ResultFailed) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, repo.snapshot())

	cancel()
	<-done
}

func TestWriter_DropsWhenFull(t *testing.T) {
	repo := &recordingRepo{}
	metrics := &countingMetrics{}
	cfg := testConfig()
	cfg.QueueSize = 1
	cfg.Workers = 1
	w := NewWriter(repo, metrics, cfg, zerolog.Nop())

	// No workers running: the first job fills the queue.
	w.SavePlayer("s1", game.PlayerState{Name: "Alice"})
	w.SavePlayer("s1", game.PlayerState{Name: "Bob"})
	w.SavePlayer("s1", game.PlayerState{Name: "Cara"})

	assert.Equal(t, 2, metrics.get(ResultDropped))
}

func TestWriter_DrainsOnShutdown(t *testing.T) {
	repo := &recordingRepo{}
	metrics := &countingMetrics{}
	w := NewWriter(repo, metrics, testConfig(), zerolog.Nop())

	w.SavePlayer("s1", game.PlayerState{Name: "Alice"})
	w.SavePlayer("s2", game.PlayerState{Name: "Bob"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))

	assert.ElementsMatch(t, []string{"player:Alice", "player:Bob"}, repo.snapshot())
}
