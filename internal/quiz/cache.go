package quiz

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// Cache provides Redis-backed quiz caching to offload the relational store.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ QuizCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(quizID string) string {
	return "quiz:content:" + quizID
}

func (c *Cache) Get(ctx context.Context, quizID string) (*Quiz, error) {
	data, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var q Quiz
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Cache) Set(ctx context.Context, q Quiz) error {
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(q.ID), data, c.ttl).Err()
}
