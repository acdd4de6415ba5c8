package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gokatarajesh/livequiz/internal/auth/jwt"
	"github.com/gokatarajesh/livequiz/internal/config"
	"github.com/gokatarajesh/livequiz/internal/db/queries"
	"github.com/gokatarajesh/livequiz/internal/db/repository"
	"github.com/gokatarajesh/livequiz/internal/game"
	"github.com/gokatarajesh/livequiz/internal/leaderboard"
	"github.com/gokatarajesh/livequiz/internal/logging"
	"github.com/gokatarajesh/livequiz/internal/metrics"
	"github.com/gokatarajesh/livequiz/internal/payout"
	"github.com/gokatarajesh/livequiz/internal/persist"
	"github.com/gokatarajesh/livequiz/internal/quiz"
	"github.com/gokatarajesh/livequiz/internal/server"
	ws "github.com/gokatarajesh/livequiz/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server) and
// the background workers of the game engine.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	machine       *game.Machine
	writer        *persist.Writer
	lbBroadcaster *leaderboard.Broadcaster
}

// New bootstraps logger, optional Postgres and Redis, the game engine and
// the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry)
	clock := clockwork.NewRealClock()
	checks := map[string]server.Check{}

	a := &Application{cfg: cfg, logger: logger}

	var loader quiz.Loader = quiz.NewStaticLoader(quiz.SampleQuizzes())
	var recorder game.Recorder
	if cfg.Postgres.Enabled() {
		poolCfg, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("parse postgres config: %w", err)
		}
		poolCfg.MaxConns = cfg.Postgres.MaxConns
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }

		q := queries.New(pool)
		loader = repository.NewQuizRepository(q)
		a.writer = persist.NewWriter(repository.NewGameRepository(q), appMetrics, persist.Config{
			QueueSize:   cfg.Persistence.QueueSize,
			Workers:     cfg.Persistence.Workers,
			MaxRetries:  cfg.Persistence.MaxRetries,
			BaseBackoff: cfg.Persistence.BaseBackoff,
			JobTimeout:  cfg.Persistence.JobTimeout,
		}, logger)
		recorder = a.writer
	} else {
		logger.Warn().Msg("postgres not configured; serving built-in quizzes without persistence")
	}

	hub := ws.NewHub(logger)

	var (
		cache   quiz.QuizCache
		archive game.Archive
		payouts game.Payout
	)
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		a.redis = client
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

		cache = quiz.NewCache(client, cfg.Redis.QuizCacheTTL)
		archive = leaderboard.NewService(client, logger, leaderboard.ServiceOptions{
			PubSubChannel: cfg.Leaderboard.PubSubChannel,
			EntryTTL:      cfg.Leaderboard.ArchiveTTL,
		})
		payouts = payout.NewPublisher(client, cfg.Redis.PayoutStream, logger)
		a.lbBroadcaster = leaderboard.NewBroadcaster(client, hub, cfg.Leaderboard.PubSubChannel, logger)
	} else {
		logger.Warn().Msg("redis not configured; quiz cache, leaderboard archive and payouts disabled")
	}

	var hosts game.HostTokens
	if cfg.Security.HostTokenSecret != "" {
		hosts = jwt.NewManager(jwt.TokenConfig{
			Secret: []byte(cfg.Security.HostTokenSecret),
			TTL:    cfg.Security.HostTokenTTL,
			Issuer: cfg.Name,
			Clock:  clock,
		})
	} else {
		logger.Warn().Msg("HOST_TOKEN_SECRET not set; host commands are unauthenticated")
	}

	store := game.NewStore(clock, game.RandomPIN, logger)
	timers := game.NewTimerRegistry(clock, logger)
	a.machine = game.NewMachine(
		store,
		timers,
		quiz.NewService(loader, cache, logger),
		game.NewHubPublisher(hub, logger),
		game.MachineOptions{
			Config:   gameConfig(cfg.Game),
			Clock:    clock,
			Recorder: recorder,
			Hosts:    hosts,
			Payout:   payouts,
			Archive:  archive,
			Metrics:  appMetrics,
		},
		logger,
	)

	wsHandler := game.NewHandler(a.machine, hub, appMetrics, logger)
	a.http = server.NewHTTPServer(cfg, logger, server.Options{
		Gatherer:  registry,
		WebSocket: wsHandler.HandleWebSocket,
		Routes:    []server.Registrar{game.NewHTTPHandlers(a.machine, logger)},
		Checks:    checks,
	})

	return a, nil
}

// Run serves HTTP and the background workers until a termination signal or
// a fatal worker error, then shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
		defer cancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("http shutdown error")
		}
		return nil
	})

	g.Go(func() error {
		return ignoreCanceled(a.machine.RunSweeper(gctx))
	})

	if a.writer != nil {
		g.Go(func() error {
			return ignoreCanceled(a.writer.Run(gctx))
		})
	}

	if a.lbBroadcaster != nil {
		g.Go(func() error {
			if err := ignoreCanceled(a.lbBroadcaster.Run(gctx)); err != nil {
				a.logger.Warn().Err(err).Msg("leaderboard broadcaster stopped")
			}
			return nil
		})
	}

	err := g.Wait()
	a.close()
	a.logger.Info().Msg("shutdown complete")
	return err
}

func (a *Application) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}
}

func gameConfig(c config.Game) game.Config {
	return game.Config{
		DefaultQuestionDuration: time.Duration(c.DefaultQuestionSeconds) * time.Second,
		MaxQuestionDuration:     time.Duration(c.MaxQuestionSeconds) * time.Second,
		CountdownTicks:          c.CountdownTicks,
		CountdownInterval:       c.CountdownInterval,
		QuestionTickInterval:    c.QuestionTickInterval,
		CompletedGrace:          c.CompletedGrace,
		SweepInterval:           c.SweepInterval,
		MaxNameLength:           c.MaxNameLength,
		SideEffectTimeout:       c.SideEffectTimeout,
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
