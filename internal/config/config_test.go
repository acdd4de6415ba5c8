package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "livequiz", cfg.Name)
	assert.False(t, cfg.Postgres.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 10, cfg.Game.DefaultQuestionSeconds)
	assert.Equal(t, 3, cfg.Game.CountdownTicks)
	assert.Equal(t, time.Second, cfg.Game.CountdownInterval)
	assert.Equal(t, 10*time.Minute, cfg.Game.CompletedGrace)
	assert.Equal(t, 32, cfg.Game.MaxNameLength)
	assert.Equal(t, "payout:requests", cfg.Redis.PayoutStream)
	assert.Equal(t, 20*time.Second, cfg.GracefulShutdownTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("COUNTDOWN_TICKS", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.True(t, cfg.Postgres.Enabled())
	assert.Equal(t, "postgres://postgres:secret@db:5432/livequiz?sslmode=disable", cfg.Postgres.DSN())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 0, cfg.Game.CountdownTicks)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_RejectsInvalidGameTiming(t *testing.T) {
	t.Setenv("DEFAULT_QUESTION_SECONDS", "0")

	_, err := Load(context.Background())
	assert.Error(t, err)
}
