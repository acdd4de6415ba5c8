package payout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/livequiz/pkg/http/ws"
)

const (
	defaultStream = "payout:requests"
	defaultMaxLen = 10000
)

// Winner is one podium place in a payout request.
type Winner struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Publisher appends payout requests to a Redis stream consumed by the escrow service.
type Publisher struct {
	redis  *redis.Client
	stream string
	maxLen int64
	logger zerolog.Logger
}

func NewPublisher(client *redis.Client, stream string, logger zerolog.Logger) *Publisher {
	if stream == "" {
		stream = defaultStream
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		maxLen: defaultMaxLen,
		logger: logger.With().Str("component", "payout_publisher").Logger(),
	}
}

// RequestPayout publishes the podium of a finished session.
func (p *Publisher) RequestPayout(ctx context.Context, sessionID string, podium []ws.LeaderboardEntry) error {
	winners := make([]Winner, len(podium))
	for i, e := range podium {
		winners[i] = Winner{Rank: e.Rank, Name: e.Name, Score: e.TotalScore}
	}
	data, err := json.Marshal(winners)
	if err != nil {
		return fmt.Errorf("marshal winners: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"session_id": sessionID,
			"winners":    string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish payout request: %w", err)
	}

	p.logger.Info().
		Str("session_id", sessionID).
		Str("entry_id", id).
		Int("winners", len(winners)).
		Msg("payout requested")
	return nil
}
