// internal/session/redis.go
package session

import (
	"context"
	"encoding/json"
	"time"

	"rfp-workers/internal/common/errors"
	"rfp-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// RedisStore persists sessions as JSON values in Redis. A TTL of zero means
// sessions are never expired automatically.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*models.SessionState, error) {
	data, err := s.client.Get(ctx, keyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.NewSessionStoreFailedError(err)
	}

	var state models.SessionState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, errors.NewSessionStoreFailedError(err)
	}
	return &state, nil
}

func (s *RedisStore) Put(ctx context.Context, state *models.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.NewSessionStoreFailedError(err)
	}

	if err := s.client.Set(ctx, keyPrefix+state.SessionID, data, s.ttl).Err(); err != nil {
		return errors.NewSessionStoreFailedError(err)
	}
	return nil
}
