package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "order-desk:idempotency:"
	pendingMarker = "pending"
)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Values are "<state>|<fingerprint>" where state is "pending" or the order id.
func (s *RedisStore) Reserve(ctx context.Context, key, fingerprint string) (int, bool, error) {
	k := keyPrefix + key
	// Two rounds cover a key that expires between SETNX and GET.
	for i := 0; i < 2; i++ {
		ok, err := s.client.SetNX(ctx, k, pendingMarker+"|"+fingerprint, pendingTTL(s.ttl)).Result()
		if err != nil {
			return 0, false, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if ok {
			return 0, false, nil
		}

		val, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return 0, false, fmt.Errorf("failed to read idempotency key: %w", err)
		}
		state, stored, _ := strings.Cut(val, "|")
		if stored != fingerprint {
			return 0, false, ErrKeyReused
		}
		if state == pendingMarker {
			return 0, false, ErrInFlight
		}
		orderID, err := strconv.Atoi(state)
		if err != nil {
			return 0, false, fmt.Errorf("corrupt idempotency record %q: %w", val, err)
		}
		return orderID, true, nil
	}
	return 0, false, ErrInFlight
}

func (s *RedisStore) Complete(ctx context.Context, key, fingerprint string, orderID int) error {
	val := strconv.Itoa(orderID) + "|" + fingerprint
	if err := s.client.Set(ctx, keyPrefix+key, val, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
