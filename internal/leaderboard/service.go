package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/livequiz/pkg/http/ws"
)

// ServiceOptions configures leaderboard archive behavior.
type ServiceOptions struct {
	PubSubChannel  string
	EntryTTL       time.Duration
	RedisKeyPrefix string
}

// Service archives final session standings in Redis and announces them over Pub/Sub.
type Service struct {
	redis         *redis.Client
	logger        zerolog.Logger
	pubsubChannel string
	entryTTL      time.Duration
	prefix        string
}

// NewService constructs a leaderboard archive.
func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	channel := opts.PubSubChannel
	if channel == "" {
		channel = "lb:updates"
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "lb"
	}
	ttl := opts.EntryTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &Service{
		redis:         redis,
		logger:        logger.With().Str("component", "leaderboard").Logger(),
		pubsubChannel: channel,
		entryTTL:      ttl,
		prefix:        prefix,
	}
}

// Save stores the ranked board and game summary for a finished session.
// Saving again replaces the previous archive.
func (s *Service) Save(ctx context.Context, sessionID string, board []ws.LeaderboardEntry, summary ws.Summary) error {
	zKey := s.boardKey(sessionID)
	summaryData, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, zKey)
	for _, e := range board {
		metaKey := s.metaKey(sessionID, e.Name)
		pipe.ZAdd(ctx, zKey, redis.Z{Score: float64(e.Rank), Member: e.Name})
		pipe.HSet(ctx, metaKey, map[string]interface{}{
			"score":       e.TotalScore,
			"correct":     e.CorrectCount,
			"wrong":       e.WrongCount,
			"best_streak": e.BestStreak,
			"active":      boolToInt(e.Active),
		})
		pipe.Expire(ctx, metaKey, s.entryTTL)
	}
	pipe.Expire(ctx, zKey, s.entryTTL)
	pipe.Set(ctx, s.summaryKey(sessionID), summaryData, s.entryTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("archive leaderboard %s: %w", sessionID, err)
	}

	s.publishUpdate(ctx, sessionID, board)
	return nil
}

// Leaderboard reads an archived board in rank order. A missing archive yields nil.
func (s *Service) Leaderboard(ctx context.Context, sessionID string) ([]ws.LeaderboardEntry, error) {
	results, err := s.redis.ZRangeWithScores(ctx, s.boardKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	entries := make([]ws.LeaderboardEntry, 0, len(results))
	for _, z := range results {
		name, _ := z.Member.(string)
		entry, err := s.readMeta(ctx, sessionID, name)
		if err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to read leaderboard metadata")
			continue
		}
		entry.Rank = int(z.Score)
		entries = append(entries, entry)
	}
	return entries, nil
}

// Summary reads the archived game summary.
func (s *Service) Summary(ctx context.Context, sessionID string) (*ws.Summary, error) {
	data, err := s.redis.Get(ctx, s.summaryKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch summary: %w", err)
	}
	var summary ws.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &summary, nil
}

func (s *Service) publishUpdate(ctx context.Context, sessionID string, board []ws.LeaderboardEntry) {
	data, err := json.Marshal(ws.LeaderboardArchivedPayload{SessionID: sessionID, Leaderboard: board})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	if err := s.redis.Publish(ctx, s.pubsubChannel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
	}
}

func (s *Service) readMeta(ctx context.Context, sessionID, name string) (ws.LeaderboardEntry, error) {
	data, err := s.redis.HGetAll(ctx, s.metaKey(sessionID, name)).Result()
	if err != nil {
		return ws.LeaderboardEntry{}, err
	}
	// Missing metadata still yields a ranked name.
	return ws.LeaderboardEntry{
		Name:         name,
		TotalScore:   parseInt(data["score"]),
		CorrectCount: parseInt(data["correct"]),
		WrongCount:   parseInt(data["wrong"]),
		BestStreak:   parseInt(data["best_streak"]),
		Active:       data["active"] == "1",
	}, nil
}

func (s *Service) boardKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, sessionID)
}

func (s *Service) metaKey(sessionID, name string) string {
	return fmt.Sprintf("%s:session:%s:meta:%s", s.prefix, sessionID, name)
}

func (s *Service) summaryKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s:summary", s.prefix, sessionID)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
