package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
  ts = now
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  local refill = (delta / 1000) * rate
  tokens = math.min(burst, tokens + refill)
  ts = now
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens)}
`

// RedisBucket shares one token bucket per key across instances via a redis
// Lua script, so the refill math runs atomically server-side.
type RedisBucket struct {
	client *redis.Client
	script *redis.Script
	rate   float64
	burst  int
}

func NewRedisBucket(client *redis.Client, rate float64, burst int) *RedisBucket {
	if rate <= 0 {
		rate = fallbackRate
	}
	if burst < 1 {
		burst = 1
	}
	return &RedisBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
		rate:   rate,
		burst:  burst,
	}
}

func (r *RedisBucket) Allow(ctx context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, errors.New("rate limiter key is empty")
	}

	// Keep the key around long enough for a drained bucket to refill fully.
	ttl := time.Duration(float64(r.burst)/r.rate*float64(time.Second)) + time.Minute

	res, err := r.script.Run(
		ctx,
		r.client,
		[]string{"throttle:attempt:" + key},
		r.rate,
		r.burst,
		int64(ttl/time.Millisecond),
	).Slice()
	if err != nil {
		return Result{}, err
	}
	if len(res) < 2 {
		return Result{}, errors.New("unexpected rate limit script response")
	}

	allowed, _ := res[0].(int64)
	if allowed == 1 {
		return Result{Allowed: true}, nil
	}

	tokens := parseTokens(res[1])
	needed := 1 - tokens
	if needed < 0 {
		needed = 0
	}
	return Result{
		Allowed:    false,
		RetryAfter: time.Duration(needed / r.rate * float64(time.Second)),
	}, nil
}

func parseTokens(v any) float64 {
	switch t := v.(type) {
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	case int64:
		return float64(t)
	default:
		return 0
	}
}
