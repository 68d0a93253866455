package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "chatbox:"

// RedisStore keeps values as plain redis strings under Prefix+key. A
// positive TTL makes every Set expire.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	owned  bool
}

var _ Store = &RedisStore{}

// NewRedisStore wraps an existing client. Close does not close it.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis session store: nil client")
	}
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}, nil
}

// DialRedisStore connects to addr and pings it.
func DialRedisStore(ctx context.Context, addr, prefix string, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis session store: empty address")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "redis session store: ping %s", addr)
	}
	s, err := NewRedisStore(client, prefix, ttl)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	key, err := normalizeKey("redis", key)
	if err != nil {
		return "", false, err
	}
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis session store: get")
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	key, err := normalizeKey("redis", key)
	if err != nil {
		return err
	}
	return errors.Wrap(s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(), "redis session store: set")
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	key, err := normalizeKey("redis", key)
	if err != nil {
		return err
	}
	return errors.Wrap(s.client.Del(ctx, s.prefix+key).Err(), "redis session store: delete")
}

func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}
