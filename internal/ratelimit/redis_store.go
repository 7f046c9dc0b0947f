package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps attempts in a sorted set per key, scored by unix millis,
// so every instance sees the same window.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func attemptsKey(key string) string {
	return fmt.Sprintf("login:attempts:%s", key)
}

// KEYS[1] attempts set. ARGV: cutoff, now, member, max, ttl millis.
// Returns {1, now} when recorded, {0, oldest score} when the window is full.
var reserveScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[4]) then
	local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
	return {0, oldest[2] or ARGV[2]}
end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, ARGV[2]}
`)

func (s *RedisStore) Reserve(ctx context.Context, key string, at time.Time, window time.Duration, max int) (bool, time.Time, error) {
	res, err := reserveScript.Run(ctx, s.client, []string{attemptsKey(key)},
		at.Add(-window).UnixMilli(),
		at.UnixMilli(),
		uuid.NewString(),
		max,
		window.Milliseconds(),
	).Slice()
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to reserve login attempt: %w", err)
	}
	if len(res) != 2 {
		return false, time.Time{}, fmt.Errorf("unexpected reserve reply: %v", res)
	}

	allowed, _ := res[0].(int64)
	if allowed == 1 {
		return true, time.Time{}, nil
	}
	score, err := strconv.ParseFloat(fmt.Sprint(res[1]), 64)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("failed to parse oldest attempt: %w", err)
	}
	return false, time.UnixMilli(int64(score)), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, attemptsKey(key)).Err()
}
