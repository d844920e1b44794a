package encoder

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ramunas-s/retrievalbench/internal/pkg/logger"
)

const redisKeyPrefix = "rb:emb:"

// RedisStore is an embedding store backed by Redis, for sharing cached
// vectors across runs and processes. Vectors are packed as little-endian
// float32 to keep values compact.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisStore creates a Redis-backed store from a redis:// URL.
// A zero ttl keeps entries until Redis evicts them.
func NewRedisStore(url string, ttl time.Duration, log *logger.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	return &RedisStore{
		client: redis.NewClient(opts),
		ttl:    ttl,
		log:    log,
	}, nil
}

// Get retrieves a vector from Redis. Transport errors degrade to a miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Debug("redis cache get failed", "error", err)
		}
		return nil, false
	}

	if len(data)%4 != 0 {
		return nil, false
	}

	vec := make([]float32, len(data)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, true
}

// Set stores a vector in Redis. Failures are logged, never fatal; the
// cache is an optimization only.
func (s *RedisStore) Set(ctx context.Context, key string, vector []float32) {
	data := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}

	if err := s.client.Set(ctx, redisKeyPrefix+key, data, s.ttl).Err(); err != nil {
		s.log.Debug("redis cache set failed", "error", err)
	}
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
