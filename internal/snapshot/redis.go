package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"turn-dispatch/models"
)

// RedisSnapshotter keeps the snapshot as a single JSON value under a
// fixed key, so save is one SET and load is one GET.
type RedisSnapshotter struct {
	client redis.Cmdable
	key    string
}

func NewRedisSnapshotter(client redis.Cmdable, key string) *RedisSnapshotter {
	return &RedisSnapshotter{client: client, key: key}
}

func (s *RedisSnapshotter) Load(ctx context.Context) (*models.QueueState, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot load %q: %w", s.key, err)
	}

	var state models.QueueState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("snapshot decode %q: %w", s.key, err)
	}
	return &state, nil
}

func (s *RedisSnapshotter) Save(ctx context.Context, state *models.QueueState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("snapshot save %q: %w", s.key, err)
	}
	return nil
}
