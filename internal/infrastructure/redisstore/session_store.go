package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/survey-hub/survey-hub/internal/domain/session"
)

// DefaultInFlightTTL bounds how long a crashed handler can hold a user's guard.
const DefaultInFlightTTL = 30 * time.Second

var getOrCreateScript = redis.NewScript(`
local last = redis.call('HGET', KEYS[1], 'last')
if (not last) or (tonumber(ARGV[1]) - tonumber(last) > tonumber(ARGV[2])) then
	redis.call('DEL', KEYS[1], KEYS[2])
	redis.call('HSET', KEYS[1], 'step', ARGV[3], 'created', ARGV[1], 'last', ARGV[1])
else
	redis.call('HSET', KEYS[1], 'last', ARGV[1])
end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
redis.call('PEXPIRE', KEYS[2], ARGV[2])
return {redis.call('HGETALL', KEYS[1]), redis.call('HGETALL', KEYS[2]), redis.call('EXISTS', KEYS[3])}
`)

var setFieldScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

var recordAnswerScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then redis.call('PEXPIRE', KEYS[2], ttl) end
return 1
`)

var resetScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
redis.call('DEL', KEYS[2])
redis.call('HSET', KEYS[1], 'step', ARGV[1], 'last', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

var acquireScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return -1 end
if redis.call('SET', KEYS[2], '1', 'NX', 'PX', ARGV[1]) then return 1 end
return 0
`)

// SessionStore is a session.Store shared by every instance pointing at the
// same Redis. Key expiry replaces the periodic sweep.
type SessionStore struct {
	client      redis.UniversalClient
	root        string
	ttl         time.Duration
	inFlightTTL time.Duration
}

func NewSessionStore(client redis.UniversalClient, rootStepID string, ttl, inFlightTTL time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	if inFlightTTL <= 0 {
		inFlightTTL = DefaultInFlightTTL
	}
	return &SessionStore{client: client, root: rootStepID, ttl: ttl, inFlightTTL: inFlightTTL}
}

func sessionKeys(userID string) []string {
	return []string{userKey(userID, "session"), userKey(userID, "answers"), userKey(userID, "inflight")}
}

func (s *SessionStore) GetOrCreate(ctx context.Context, userID string, now time.Time) (*session.Session, error) {
	res, err := getOrCreateScript.Run(ctx, s.client, sessionKeys(userID),
		now.UnixMilli(), s.ttl.Milliseconds(), s.root).Slice()
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", userID, err)
	}
	if len(res) != 3 {
		return nil, fmt.Errorf("get session %s: unexpected reply of %d items", userID, len(res))
	}
	fields := toStringMap(res[0])
	inFlight, _ := res[2].(int64)
	return &session.Session{
		UserID:         userID,
		CurrentStepID:  fields["step"],
		Answers:        toStringMap(res[1]),
		DisplayName:    fields["name"],
		CreatedAt:      parseMillis(fields["created"]),
		LastActivityAt: parseMillis(fields["last"]),
		InFlight:       inFlight == 1,
	}, nil
}

func (s *SessionStore) TrySetInFlight(ctx context.Context, userID string) (bool, error) {
	keys := sessionKeys(userID)
	n, err := acquireScript.Run(ctx, s.client, []string{keys[0], keys[2]}, s.inFlightTTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	switch n {
	case -1:
		return false, session.ErrNotFound
	case 1:
		return true, nil
	default:
		return false, nil
	}
}

func (s *SessionStore) ClearInFlight(ctx context.Context, userID string) error {
	return s.client.Del(ctx, userKey(userID, "inflight")).Err()
}

func (s *SessionStore) RecordAnswer(ctx context.Context, userID, key, value string) error {
	return s.expectSession(recordAnswerScript.Run(ctx, s.client, sessionKeys(userID)[:2], key, value).Int())
}

func (s *SessionStore) Advance(ctx context.Context, userID, nextStepID string) error {
	return s.expectSession(setFieldScript.Run(ctx, s.client, sessionKeys(userID)[:1], "step", nextStepID).Int())
}

func (s *SessionStore) Reset(ctx context.Context, userID string, now time.Time) error {
	return s.expectSession(resetScript.Run(ctx, s.client, sessionKeys(userID)[:2],
		s.root, now.UnixMilli(), s.ttl.Milliseconds()).Int())
}

func (s *SessionStore) SetDisplayName(ctx context.Context, userID, name string) error {
	return s.expectSession(setFieldScript.Run(ctx, s.client, sessionKeys(userID)[:1], "name", name).Int())
}

// Sweep is a no-op: Redis expires idle sessions itself.
func (s *SessionStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}

func (s *SessionStore) expectSession(n int, err error) error {
	if err != nil {
		return err
	}
	if n == -1 {
		return session.ErrNotFound
	}
	return nil
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
