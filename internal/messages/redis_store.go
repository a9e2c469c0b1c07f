package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"newsletteradmin/internal/models"
)

const keyPrefix = "newsletteradmin:messages:"

// RedisStore keeps each session's messages in a Redis list that expires
// after ttl without activity.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger}
}

func sessionKey(session string) string {
	return keyPrefix + session
}

func (s *RedisStore) Add(ctx context.Context, session string, msg *models.Message) error {
	if session == "" {
		return ErrNoSession
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := sessionKey(session)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to queue message for session: %w", err)
	}
	return nil
}

func (s *RedisStore) Drain(ctx context.Context, session string) ([]*models.Message, error) {
	key := sessionKey(session)

	var items *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		items = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain session messages: %w", err)
	}

	return decodeMessages(items.Val(), s.logger), nil
}

// decodeMessages skips entries that no longer parse
func decodeMessages(raw []string, logger *slog.Logger) []*models.Message {
	msgs := make([]*models.Message, 0, len(raw))
	for _, item := range raw {
		var msg models.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			if logger != nil {
				logger.Warn("dropping unreadable flash message", "error", err)
			}
			continue
		}
		msgs = append(msgs, &msg)
	}
	return msgs
}
