package game

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// TimerKind names the concern a timer serves. A session has at most one armed
// timer per kind.
type TimerKind string

const (
	TimerCountdown TimerKind = "countdown"
	TimerQuestion  TimerKind = "question"
	TimerTick      TimerKind = "tick"
)

var timerKinds = []TimerKind{TimerCountdown, TimerQuestion, TimerTick}

type timerKey struct {
	sessionID string
	kind      TimerKind
}

type armedTimer struct {
	timer clockwork.Timer
	token uint64
}

const timerShards = 32

type timerShard struct {
	mu     sync.Mutex
	timers map[timerKey]armedTimer
}

// TimerRegistry owns per-session timers. Every arm gets a fresh token; the
// fired callback must Claim its token from inside the session lock, so a
// timer replaced or cancelled before that point becomes a no-op.
// Sessions are spread over independently locked shards.
type TimerRegistry struct {
	shards [timerShards]timerShard
	clock  clockwork.Clock
	seq    atomic.Uint64
	logger zerolog.Logger
}

func NewTimerRegistry(clock clockwork.Clock, logger zerolog.Logger) *TimerRegistry {
	r := &TimerRegistry{
		clock:  clock,
		logger: logger.With().Str("component", "timer_registry").Logger(),
	}
	for i := range r.shards {
		r.shards[i].timers = make(map[timerKey]armedTimer)
	}
	return r
}

func (r *TimerRegistry) shard(sessionID string) *timerShard {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &r.shards[h.Sum32()%timerShards]
}

// Arm replaces any timer of the same kind for the session and returns the new token.
func (r *TimerRegistry) Arm(sessionID string, kind TimerKind, delay time.Duration, fire func(token uint64)) uint64 {
	sh := r.shard(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	key := timerKey{sessionID: sessionID, kind: kind}
	if existing, ok := sh.timers[key]; ok {
		existing.timer.Stop()
		r.logger.Debug().
			Str("session_id", sessionID).
			Str("kind", string(kind)).
			Uint64("token", existing.token).
			Msg("replaced existing timer")
	}

	token := r.seq.Add(1)
	// Fire on a fresh goroutine: the callback takes the session lock and must
	// never run on the goroutine that is arming or advancing the clock.
	t := r.clock.AfterFunc(delay, func() { go fire(token) })
	sh.timers[key] = armedTimer{timer: t, token: token}
	return token
}

// Claim consumes the timer if token is still the armed one. A false result
// means the firing is stale and must be ignored.
func (r *TimerRegistry) Claim(sessionID string, kind TimerKind, token uint64) bool {
	sh := r.shard(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	key := timerKey{sessionID: sessionID, kind: kind}
	current, ok := sh.timers[key]
	if !ok || current.token != token {
		return false
	}
	delete(sh.timers, key)
	return true
}

// Cancel stops and forgets the session's timer of the given kind.
func (r *TimerRegistry) Cancel(sessionID string, kind TimerKind) {
	sh := r.shard(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.cancelLocked(timerKey{sessionID: sessionID, kind: kind})
}

// CancelAll stops every timer for the session.
func (r *TimerRegistry) CancelAll(sessionID string) {
	sh := r.shard(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	for _, kind := range timerKinds {
		sh.cancelLocked(timerKey{sessionID: sessionID, kind: kind})
	}
}

func (sh *timerShard) cancelLocked(key timerKey) {
	if existing, ok := sh.timers[key]; ok {
		existing.timer.Stop()
		delete(sh.timers, key)
	}
}

// Armed reports whether a timer of the kind is pending for the session.
func (r *TimerRegistry) Armed(sessionID string, kind TimerKind) bool {
	sh := r.shard(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	_, ok := sh.timers[timerKey{sessionID: sessionID, kind: kind}]
	return ok
}

// Len reports the number of armed timers across all sessions.
func (r *TimerRegistry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		n += len(sh.timers)
		sh.mu.Unlock()
	}
	return n
}
