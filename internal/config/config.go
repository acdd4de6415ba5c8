package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"livequiz"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres    Postgres
	Redis       Redis
	Security    Security
	Game        Game
	Persistence Persistence
	Leaderboard Leaderboard
	CORS        CORS
}

// Postgres captures connection info for the SQL database. An empty host runs
// the service without a database: quizzes come from the built-in catalogue
// and nothing is written behind.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:""`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:"postgres"`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:"livequiz"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int32  `env:"PG_MAX_CONNS" envDefault:"10"`
}

// Enabled reports whether a database is configured.
func (p Postgres) Enabled() bool {
	return p.Host != ""
}

// DSN renders a libpq connection URL.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// Redis holds cache, archive and payout stream configuration. An empty
// address disables all three.
type Redis struct {
	Addr         string        `env:"REDIS_ADDR" envDefault:""`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"20"`
	QuizCacheTTL time.Duration `env:"QUIZ_CACHE_TTL" envDefault:"5m"`
	PayoutStream string        `env:"PAYOUT_STREAM" envDefault:"payout:requests"`
}

func (r Redis) Enabled() bool {
	return r.Addr != ""
}

// Security stores secrets for signing host tokens. Without a secret host
// commands are not authenticated.
type Security struct {
	HostTokenSecret string        `env:"HOST_TOKEN_SECRET" envDefault:""`
	HostTokenTTL    time.Duration `env:"HOST_TOKEN_TTL" envDefault:"12h"`
}

// Game groups gameplay timing defaults.
type Game struct {
	DefaultQuestionSeconds int           `env:"DEFAULT_QUESTION_SECONDS" envDefault:"10"`
	MaxQuestionSeconds     int           `env:"MAX_QUESTION_SECONDS" envDefault:"300"`
	CountdownTicks         int           `env:"COUNTDOWN_TICKS" envDefault:"3"`
	CountdownInterval      time.Duration `env:"COUNTDOWN_INTERVAL" envDefault:"1s"`
	QuestionTickInterval   time.Duration `env:"QUESTION_TICK_INTERVAL" envDefault:"1s"`
	CompletedGrace         time.Duration `env:"COMPLETED_SESSION_GRACE" envDefault:"10m"`
	SweepInterval          time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	MaxNameLength          int           `env:"MAX_PLAYER_NAME_LENGTH" envDefault:"32"`
	SideEffectTimeout      time.Duration `env:"SIDE_EFFECT_TIMEOUT" envDefault:"10s"`
}

// Persistence tunes the write-behind worker pool.
type Persistence struct {
	QueueSize   int           `env:"PERSIST_QUEUE_SIZE" envDefault:"1024"`
	Workers     int           `env:"PERSIST_WORKERS" envDefault:"4"`
	MaxRetries  uint64        `env:"PERSIST_MAX_RETRIES" envDefault:"5"`
	BaseBackoff time.Duration `env:"PERSIST_BASE_BACKOFF" envDefault:"100ms"`
	JobTimeout  time.Duration `env:"PERSIST_JOB_TIMEOUT" envDefault:"5s"`
}

// Leaderboard governs the post-game archive.
type Leaderboard struct {
	ArchiveTTL    time.Duration `env:"LEADERBOARD_ARCHIVE_TTL" envDefault:"168h"`
	PubSubChannel string        `env:"LEADERBOARD_CHANNEL" envDefault:"lb:updates"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *App) validate() error {
	if a.Game.DefaultQuestionSeconds <= 0 {
		return fmt.Errorf("DEFAULT_QUESTION_SECONDS must be positive")
	}
	if a.Game.MaxQuestionSeconds < a.Game.DefaultQuestionSeconds {
		return fmt.Errorf("MAX_QUESTION_SECONDS must be at least DEFAULT_QUESTION_SECONDS")
	}
	if a.Game.CountdownTicks < 0 {
		return fmt.Errorf("COUNTDOWN_TICKS must not be negative")
	}
	if a.Persistence.Workers <= 0 {
		return fmt.Errorf("PERSIST_WORKERS must be positive")
	}
	return nil
}
