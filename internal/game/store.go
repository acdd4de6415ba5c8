package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/livequiz/internal/quiz"
)

const maxPINAttempts = 64

// PINGenerator produces candidate join codes.
type PINGenerator func() string

// RandomPIN creates a 6-digit numeric code (100000-999999).
func RandomPIN() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}

// sessionEntry is the per-session serialization point.
type sessionEntry struct {
	mu      sync.Mutex
	session *Session
	evicted bool
}

// Store owns every live session. Each session has its own lock so work on
// different sessions never contends; the store lock only guards the indexes.
type Store struct {
	mu     sync.RWMutex
	byID   map[string]*sessionEntry
	byPIN  map[string]string
	clock  clockwork.Clock
	newPIN PINGenerator
	logger zerolog.Logger
}

// NewStore creates an empty session store. newPIN may be nil.
func NewStore(clock clockwork.Clock, newPIN PINGenerator, logger zerolog.Logger) *Store {
	if newPIN == nil {
		newPIN = RandomPIN
	}
	return &Store{
		byID:   make(map[string]*sessionEntry),
		byPIN:  make(map[string]string),
		clock:  clock,
		newPIN: newPIN,
		logger: logger.With().Str("component", "session_store").Logger(),
	}
}

// Create registers a new Lobby session for the snapshot, retrying the pin on collision.
func (s *Store) Create(snapshot quiz.Quiz, questionDuration time.Duration) (*Session, error) {
	session := &Session{
		ID:               uuid.NewString(),
		Title:            snapshot.Title,
		Phase:            PhaseLobby,
		QuestionIndex:    -1,
		PendingIndex:     -1,
		QuestionDuration: questionDuration,
		Players:          make(map[string]*PlayerState),
		Quiz:             snapshot,
		CreatedAt:        s.clock.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxPINAttempts; attempt++ {
		pin := s.newPIN()
		if _, taken := s.byPIN[pin]; taken {
			s.logger.Debug().Str("pin", pin).Int("attempt", attempt).Msg("pin collision, retrying")
			continue
		}
		session.PIN = pin
		s.byPIN[pin] = session.ID
		s.byID[session.ID] = &sessionEntry{session: session}
		return session.Clone(), nil
	}
	return nil, fmt.Errorf("allocate pin: exhausted %d attempts", maxPINAttempts)
}

func (s *Store) entry(id string) (*sessionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	return e, ok
}

// Get returns a snapshot of the session.
func (s *Store) Get(id string) (*Session, error) {
	e, ok := s.entry(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return nil, ErrNotFound
	}
	return e.session.Clone(), nil
}

// GetByPin resolves a join code to a session snapshot.
func (s *Store) GetByPin(pin string) (*Session, error) {
	s.mu.RLock()
	id, ok := s.byPIN[pin]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(id)
}

// Mutate runs fn with exclusive access to the session and returns a snapshot
// of the result. Calls for the same id never interleave. fn must validate
// before writing: a returned error does not roll back earlier writes.
func (s *Store) Mutate(id string, fn func(*Session) error) (*Session, error) {
	e, ok := s.entry(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return nil, ErrNotFound
	}
	if err := fn(e.session); err != nil {
		return nil, err
	}
	return e.session.Clone(), nil
}

// UpsertPlayer creates the player on first call and returns the existing one after.
func (s *Store) UpsertPlayer(id, name string) (*PlayerState, error) {
	var out PlayerState
	_, err := s.Mutate(id, func(session *Session) error {
		p, _ := session.upsertPlayer(name, s.clock.Now())
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Evict removes a session and frees its pin.
func (s *Store) Evict(id string) bool {
	s.mu.Lock()
	e, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	e.mu.Lock()
	e.evicted = true
	pin := e.session.PIN
	e.mu.Unlock()

	s.mu.Lock()
	if s.byPIN[pin] == id {
		delete(s.byPIN, pin)
	}
	s.mu.Unlock()
	return true
}

// ExpiredCompleted lists sessions completed at or before cutoff.
func (s *Store) ExpiredCompleted(cutoff time.Time) []string {
	s.mu.RLock()
	entries := make(map[string]*sessionEntry, len(s.byID))
	for id, e := range s.byID {
		entries[id] = e
	}
	s.mu.RUnlock()

	var expired []string
	for id, e := range entries {
		e.mu.Lock()
		if e.session.Phase == PhaseCompleted && !e.session.CompletedAt.After(cutoff) {
			expired = append(expired, id)
		}
		e.mu.Unlock()
	}
	return expired
}

// Len reports how many sessions are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Session) upsertPlayer(name string, now time.Time) (*PlayerState, bool) {
	if p, ok := s.Players[name]; ok {
		p.Active = true
		return p, false
	}
	s.joinSeq++
	p := &PlayerState{
		Name:      name,
		Active:    true,
		JoinedAt:  now,
		JoinOrder: s.joinSeq,
	}
	s.Players[name] = p
	return p, true
}
