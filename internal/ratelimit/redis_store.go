package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisStore 是 Store 的 Redis 实现，用有序集合维护滑动窗口日志。
// 多实例部署时用它替换 MemoryStore，让所有实例共享限流状态。
type RedisStore struct {
	rdb       *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
}

// NewRedisStore 创建一个 Redis 滑动窗口限流存储。
// keyPrefix 区分不同用途的实例（如 upload:user、upload:ip、visit）。
func NewRedisStore(rdb *redis.Client, keyPrefix string, limit int, window time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, keyPrefix: keyPrefix, limit: limit, window: window}
}

func (s *RedisStore) key(subject string) string {
	return fmt.Sprintf("ratelimit:%s:%s", s.keyPrefix, subject)
}

// Check 实现 Store 接口。
func (s *RedisStore) Check(ctx context.Context, subject string) (Decision, error) {
	key := s.key(subject)
	now := time.Now()
	cutoff := now.Add(-s.window)

	if err := s.rdb.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff.UnixMilli())).Err(); err != nil {
		return Decision{}, err
	}

	count, err := s.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return Decision{}, err
	}

	if int(count) >= s.limit {
		// 取最早一条的分值计算重试时间
		oldest, err := s.rdb.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err != nil {
			return Decision{}, err
		}
		retryAfter := 1
		if len(oldest) > 0 {
			retryAt := time.UnixMilli(int64(oldest[0].Score)).Add(s.window)
			retryAfter = int(math.Ceil(time.Until(retryAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfterSeconds: retryAfter}, nil
	}

	if err := s.record(ctx, key, now); err != nil {
		return Decision{}, err
	}
	return Decision{Allowed: true, Remaining: s.limit - int(count) - 1}, nil
}

// RecordIfNew 实现 Store 接口。
func (s *RedisStore) RecordIfNew(ctx context.Context, subject string) (bool, error) {
	key := s.key(subject)
	now := time.Now()
	cutoff := now.Add(-s.window)

	if err := s.rdb.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff.UnixMilli())).Err(); err != nil {
		return false, err
	}
	count, err := s.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if err := s.record(ctx, key, now); err != nil {
		return false, err
	}
	return true, nil
}

// Observe 实现 Store 接口。
func (s *RedisStore) Observe(ctx context.Context, subject string) (int, error) {
	key := s.key(subject)
	now := time.Now()
	cutoff := now.Add(-s.window)

	if err := s.record(ctx, key, now); err != nil {
		return 0, err
	}
	if err := s.rdb.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff.UnixMilli())).Err(); err != nil {
		return 0, err
	}
	count, err := s.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// record 写入一条时间戳，成员附带随机后缀避免同毫秒去重，并刷新 key 的过期时间。
// key 过期即 Redis 自身完成清理，无需进程内的周期 sweep。
func (s *RedisStore) record(ctx context.Context, key string, now time.Time) error {
	member := fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
	if err := s.rdb.ZAdd(ctx, key, &redis.Z{Score: float64(now.UnixMilli()), Member: member}).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, key, s.window+time.Second).Err()
}
