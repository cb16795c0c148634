package settings

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding all settings.
const DefaultRedisKey = "oweather:settings"

// RedisStore keeps settings as fields of a single Redis hash. The client is
// shared with other components, so Close leaves it open.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Get(ctx context.Context, name string) (string, error) {
	value, err := s.client.HGet(ctx, s.key, name).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, name, value string) error {
	return s.client.HSet(ctx, s.key, name, value).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return nil
}
