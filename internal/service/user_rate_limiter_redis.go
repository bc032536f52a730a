package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] = bucket; ARGV = capacidad, ms por token, ahora en ms, ttl en ms.
// El bucket se guarda como hash {tokens, ts} y se rellena de forma continua.
const redisTokenBucketScript = `
local capacity = tonumber(ARGV[1])
local interval = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now
end
if now > ts then
  tokens = math.min(capacity, tokens + (now - ts) / interval)
  ts = now
end

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end
redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", tostring(ts))
redis.call("PEXPIRE", KEYS[1], ttl)
return allowed
`

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// redisUserRateLimiter comparte el bucket de cada usuario entre réplicas.
type redisUserRateLimiter struct {
	client   redisEvaler
	capacity int
	interval time.Duration
	window   time.Duration
	prefix   string
	now      func() time.Time
}

// NewRedisUserRateLimiter aplica la misma política que NewMemoryUserRateLimiter con estado en Redis.
func NewRedisUserRateLimiter(client *redis.Client, window time.Duration, max int) UserRateLimiter {
	if client == nil || max <= 0 {
		return nil
	}
	return newRedisUserRateLimiter(client, window, max)
}

func newRedisUserRateLimiter(client redisEvaler, window time.Duration, max int) *redisUserRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &redisUserRateLimiter{
		client:   client,
		capacity: max,
		interval: window / time.Duration(max),
		window:   window,
		prefix:   "kb:bucket:",
		now:      time.Now,
	}
}

func (l *redisUserRateLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	// Pasado un window sin uso el bucket está lleno, así que borrarlo no cambia nada.
	allowed, err := l.client.Eval(ctx, redisTokenBucketScript, []string{l.prefix + key},
		l.capacity,
		l.interval.Milliseconds(),
		l.now().UnixMilli(),
		l.window.Milliseconds(),
	).Int()
	if err != nil {
		// Si Redis falla no bloqueamos al usuario.
		return true
	}
	return allowed == 1
}

