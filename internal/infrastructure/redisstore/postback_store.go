package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/survey-hub/survey-hub/internal/domain/postback"
)

// KEYS: sorted set of fingerprints scored by seen time, hash fingerprint -> step.
// ARGV: now ms, ttl ms, cap, fingerprint, step. Returns 1 for a duplicate.
var checkAndRecordScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])
local cap = tonumber(ARGV[3])
local old = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. (now - ttl))
if #old > 0 then
	redis.call('ZREM', KEYS[1], unpack(old))
	redis.call('HDEL', KEYS[2], unpack(old))
end
if redis.call('ZSCORE', KEYS[1], ARGV[4]) then return 1 end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('HSET', KEYS[2], ARGV[4], ARGV[5])
local n = redis.call('ZCARD', KEYS[1])
if n > cap then
	local evicted = redis.call('ZRANGE', KEYS[1], 0, n - cap - 1)
	redis.call('ZREM', KEYS[1], unpack(evicted))
	redis.call('HDEL', KEYS[2], unpack(evicted))
end
redis.call('PEXPIRE', KEYS[1], ttl)
redis.call('PEXPIRE', KEYS[2], ttl)
return 0
`)

// PostbackStore is a postback.Deduplicator shared through Redis.
type PostbackStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	cap    int
}

func NewPostbackStore(client redis.UniversalClient, ttl time.Duration, capacity int) *PostbackStore {
	if ttl <= 0 {
		ttl = postback.DefaultTTL
	}
	if capacity <= 0 {
		capacity = postback.DefaultCap
	}
	return &PostbackStore{client: client, ttl: ttl, cap: capacity}
}

func postbackKeys(userID string) []string {
	return []string{userKey(userID, "postbacks"), userKey(userID, "postback_steps")}
}

func (p *PostbackStore) CheckAndRecord(ctx context.Context, userID, fingerprint, currentStepID string, now time.Time) (postback.Verdict, error) {
	n, err := checkAndRecordScript.Run(ctx, p.client, postbackKeys(userID),
		now.UnixMilli(), p.ttl.Milliseconds(), p.cap, fingerprint, currentStepID).Int()
	if err != nil {
		return postback.Accepted, fmt.Errorf("check postback for %s: %w", userID, err)
	}
	if n == 1 {
		return postback.Duplicate, nil
	}
	return postback.Accepted, nil
}

func (p *PostbackStore) Entries(ctx context.Context, userID string, now time.Time) ([]postback.Record, error) {
	keys := postbackKeys(userID)
	cutoff := now.Add(-p.ttl).UnixMilli()
	zs, err := p.client.ZRangeByScoreWithScores(ctx, keys[0], &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(zs) == 0 {
		return nil, nil
	}
	members := make([]string, len(zs))
	for i, z := range zs {
		members[i], _ = z.Member.(string)
	}
	steps, err := p.client.HMGet(ctx, keys[1], members...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]postback.Record, len(zs))
	for i, z := range zs {
		step, _ := steps[i].(string)
		out[i] = postback.Record{
			Fingerprint: members[i],
			SeenAt:      time.UnixMilli(int64(z.Score)).UTC(),
			StepAtTime:  step,
		}
	}
	return out, nil
}

func (p *PostbackStore) Forget(ctx context.Context, userID string) error {
	return p.client.Del(ctx, postbackKeys(userID)...).Err()
}

// Sweep is a no-op: postback keys expire with their newest record.
func (p *PostbackStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
