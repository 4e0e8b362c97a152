package challenge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "auth:2fa:challenge"

// RedisStore backs challenges with a shared redis so every service
// instance behind the load balancer sees the same pending logins.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(token string) string {
	return redisKeyPrefix + ":" + token
}

func (s *RedisStore) Create(ctx context.Context, userID int64) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	value := strconv.FormatInt(userID, 10)
	if err := s.client.Set(ctx, s.key(token), value, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return token, nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (int64, error) {
	value, err := s.client.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	userID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, ErrNotFound
	}
	return userID, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}
