package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps cursors in Redis as JSON values with a TTL, so listeners
// survive server restarts and can be shared between instances.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", opts.Addr)
	}

	return newRedisStore(client, opts.KeyPrefix, opts.TTL), nil
}

func newRedisStore(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RedisStore) key(listenerID string) string {
	return s.keyPrefix + listenerID
}

func (s *RedisStore) Load(ctx context.Context, listenerID string) (*Cursor, error) {
	data, err := s.client.Get(ctx, s.key(listenerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load cursor")
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "failed to decode cursor")
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, listenerID string, c *Cursor) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to encode cursor")
	}
	if err := s.client.Set(ctx, s.key(listenerID), data, s.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to save cursor")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, listenerID string) error {
	if err := s.client.Del(ctx, s.key(listenerID)).Err(); err != nil {
		return errors.Wrap(err, "failed to delete cursor")
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
