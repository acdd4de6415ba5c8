package persist

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/gokatarajesh/livequiz/internal/game"
	"github.com/gokatarajesh/livequiz/internal/quiz"
)

// Job outcomes reported to Metrics.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultDropped = "dropped"
)

// Repository is the durable store behind the writer.
type Repository interface {
	CreateSession(ctx context.Context, s *game.Session) error
	SaveSession(ctx context.Context, s *game.Session) error
	SavePlayer(ctx context.Context, sessionID string, p game.PlayerState) error
	SaveAnswerRecord(ctx context.Context, rec game.AnswerRecord) error
}

// Metrics counts job outcomes.
type Metrics interface {
	PersistJob(result string)
}

type Config struct {
	QueueSize   int
	Workers     int
	MaxRetries  uint64
	BaseBackoff time.Duration
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		QueueSize:   1024,
		Workers:     4,
		MaxRetries:  5,
		BaseBackoff: 100 * time.Millisecond,
		JobTimeout:  5 * time.Second,
	}
}

type job struct {
	kind      string
	sessionID string
	run       func(ctx context.Context) error
}

// Writer queues state changes and writes them behind the live game. Jobs for
// one session always land on the same worker so they are applied in order.
// Enqueueing never blocks; a full queue drops the job.
type Writer struct {
	repo    Repository
	metrics Metrics
	cfg     Config
	queues  []chan job
	logger  zerolog.Logger

	wg sync.WaitGroup
}

var _ game.Recorder = (*Writer)(nil)

func NewWriter(repo Repository, metrics Metrics, cfg Config, logger zerolog.Logger) *Writer {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}

	perWorker := cfg.QueueSize / cfg.Workers
	if perWorker < 1 {
		perWorker = 1
	}
	queues := make([]chan job, cfg.Workers)
	for i := range queues {
		queues[i] = make(chan job, perWorker)
	}

	return &Writer{
		repo:    repo,
		metrics: metrics,
		cfg:     cfg,
		queues:  queues,
		logger:  logger.With().Str("component", "persist_writer").Logger(),
	}
}

func (w *Writer) CreateSession(s *game.Session) {
	snap := header(s)
	w.enqueue(job{kind: "create_session", sessionID: s.ID, run: func(ctx context.Context) error {
		return w.repo.CreateSession(ctx, snap)
	}})
}

func (w *Writer) SaveSession(s *game.Session) {
	snap := header(s)
	w.enqueue(job{kind: "save_session", sessionID: s.ID, run: func(ctx context.Context) error {
		return w.repo.SaveSession(ctx, snap)
	}})
}

func (w *Writer) SavePlayer(sessionID string, p game.PlayerState) {
	w.enqueue(job{kind: "save_player", sessionID: sessionID, run: func(ctx context.Context) error {
		return w.repo.SavePlayer(ctx, sessionID, p)
	}})
}

func (w *Writer) SaveAnswer(rec game.AnswerRecord) {
	w.enqueue(job{kind: "save_answer", sessionID: rec.SessionID, run: func(ctx context.Context) error {
		return w.repo.SaveAnswerRecord(ctx, rec)
	}})
}

// Run starts the workers and blocks until ctx is cancelled and the queues
// are drained. Jobs still queued at shutdown get one attempt each.
func (w *Writer) Run(ctx context.Context) error {
	for i, q := range w.queues {
		w.wg.Add(1)
		go w.work(ctx, i, q)
	}
	<-ctx.Done()
	w.wg.Wait()
	return nil
}

func (w *Writer) enqueue(j job) {
	q := w.queues[w.shard(j.sessionID)]
	select {
	case q <- j:
	default:
		w.metrics.PersistJob(ResultDropped)
		w.logger.Warn().
			Str("job", j.kind).
			Str("session_id", j.sessionID).
			Msg("persistence queue full, job dropped")
	}
}

func (w *Writer) shard(sessionID string) int {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(len(w.queues)))
}

func (w *Writer) work(ctx context.Context, id int, q chan job) {
	defer w.wg.Done()
	logger := w.logger.With().Int("worker", id).Logger()
	for {
		select {
		case j := <-q:
			w.execute(logger, j)
		case <-ctx.Done():
			w.drain(logger, q)
			return
		}
	}
}

func (w *Writer) drain(logger zerolog.Logger, q chan job) {
	for {
		select {
		case j := <-q:
			jobCtx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
			err := j.run(jobCtx)
			cancel()
			w.report(logger, j, 1, err)
		default:
			return
		}
	}
}

// execute retries a job. In-flight retries outlive shutdown of the worker loop.
func (w *Writer) execute(logger zerolog.Logger, j job) {
	ctx := context.Background()
	backoff := retry.WithMaxRetries(w.cfg.MaxRetries, retry.NewExponential(w.cfg.BaseBackoff))
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		jobCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
		if err := j.run(jobCtx); err != nil {
			logger.Debug().Err(err).
				Str("job", j.kind).
				Str("session_id", j.sessionID).
				Int("attempt", attempts).
				Msg("persistence attempt failed")
			return retry.RetryableError(err)
		}
		return nil
	})
	w.report(logger, j, attempts, err)
}

func (w *Writer) report(logger zerolog.Logger, j job, attempts int, err error) {
	if err != nil {
		w.metrics.PersistJob(ResultFailed)
		logger.Warn().Err(fmt.Errorf("%s: %w", j.kind, err)).
			Str("session_id", j.sessionID).
			Int("attempts", attempts).
			Msg("persistence job failed")
		return
	}
	w.metrics.PersistJob(ResultOK)
}

// header copies the fields the repository reads so the job does not race
// with later mutations of the live session.
func header(s *game.Session) *game.Session {
	return &game.Session{
		ID:               s.ID,
		PIN:              s.PIN,
		Title:            s.Title,
		Phase:            s.Phase,
		QuestionIndex:    s.QuestionIndex,
		QuestionDuration: s.QuestionDuration,
		Quiz:             quiz.Quiz{ID: s.Quiz.ID, Title: s.Quiz.Title},
		CreatedAt:        s.CreatedAt,
		CompletedAt:      s.CompletedAt,
	}
}
