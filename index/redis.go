package index

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// claimScript removes the member only while its score still equals the observed
// deadline, so a concurrent re-Track wins over a stale claim.
var claimScript = redis.NewScript(`
local s = redis.call('ZSCORE', KEYS[1], ARGV[1])
if s and tonumber(s) == tonumber(ARGV[2]) then
  return redis.call('ZREM', KEYS[1], ARGV[1])
end
return 0
`)

// RedisIndex keeps deadlines in one sorted set per namespace (score = unix ms).
// Every process sharing the namespace sees the same live set, and Claim is atomic
// server-side, so an expiry is announced by exactly one process.
type RedisIndex struct {
	rdb redis.UniversalClient
	ns  string
}

var _ Index = (*RedisIndex)(nil)

// NewRedisIndex creates an index on a shared client; Close leaves the client open.
func NewRedisIndex(client redis.UniversalClient, namespace string) *RedisIndex {
	return &RedisIndex{rdb: client, ns: namespace}
}

func (s *RedisIndex) key() string { return "expiry:" + s.ns }

func (s *RedisIndex) Track(ctx context.Context, key string, expiresAt int64) error {
	return s.rdb.ZAdd(ctx, s.key(), redis.Z{Score: float64(expiresAt), Member: key}).Err()
}

func (s *RedisIndex) Untrack(ctx context.Context, key string) error {
	return s.rdb.ZRem(ctx, s.key(), key).Err()
}

func (s *RedisIndex) Claim(ctx context.Context, key string, expiresAt int64) (bool, error) {
	n, err := claimScript.Run(ctx, s.rdb, []string{s.key()}, key, strconv.FormatInt(expiresAt, 10)).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisIndex) Deadline(ctx context.Context, key string) (int64, bool, error) {
	score, err := s.rdb.ZScore(ctx, s.key(), key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int64(score), true, nil
}

func (s *RedisIndex) Due(ctx context.Context, now int64, limit int) ([]Entry, error) {
	by := &redis.ZRangeBy{Min: "-inf", Max: strconv.FormatInt(now, 10)}
	if limit > 0 {
		by.Count = int64(limit)
	}
	zs, err := s.rdb.ZRangeByScoreWithScores(ctx, s.key(), by).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			member = fmt.Sprint(z.Member)
		}
		out = append(out, Entry{Key: member, ExpiresAt: int64(z.Score)})
	}
	return out, nil
}

func (s *RedisIndex) Close(context.Context) error { return nil }
