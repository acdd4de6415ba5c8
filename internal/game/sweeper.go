package game

import (
	"context"
)

// Sweep evicts sessions that have been completed longer than the grace period.
// It returns the evicted session ids.
func (m *Machine) Sweep() []string {
	cutoff := m.clock.Now().Add(-m.cfg.CompletedGrace)
	var evicted []string
	for _, id := range m.store.ExpiredCompleted(cutoff) {
		m.timers.CancelAll(id)
		if m.store.Evict(id) {
			m.publisher.Close(id)
			evicted = append(evicted, id)
			m.metrics.SessionClosed()
		}
	}
	if len(evicted) > 0 {
		m.logger.Info().Int("count", len(evicted)).Strs("session_ids", evicted).Msg("evicted completed sessions")
	}
	return evicted
}

// RunSweeper evicts expired sessions every SweepInterval until ctx is done.
func (m *Machine) RunSweeper(ctx context.Context) error {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = DefaultConfig().SweepInterval
	}
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info().Dur("interval", interval).Msg("session sweeper started")
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("session sweeper stopped")
			return nil
		case <-ticker.Chan():
			m.Sweep()
		}
	}
}
