// Package ratelimit 实现了基于滑动窗口日志的限流原语。
// 同一原语以不同配置实例化两类用途：上传双键限流（用户 + 来源地址）
// 与页面访问去重（窗口内仅首次记录）。
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Decision 是一次限流判定的结果。
type Decision struct {
	Allowed           bool `json:"allowed"`
	Remaining         int  `json:"remaining"`
	RetryAfterSeconds int  `json:"retryAfterSeconds,omitempty"`
}

// Store 抽象了滑动窗口限流的状态存储。
// 默认使用进程内实现；多实例部署时可替换为 Redis 实现，接口不变。
type Store interface {
	// Check 执行限流判定：未超限则记录本次请求并放行，超限则拒绝并给出重试提示。
	Check(ctx context.Context, subject string) (Decision, error)
	// RecordIfNew 仅在窗口内首次出现时记录该主体，返回是否记录。
	// 窗口内的重复命中静默丢弃，不是错误。
	RecordIfNew(ctx context.Context, subject string) (bool, error)
	// Observe 无条件记录一次命中并返回窗口内的命中总数，供滥用启发式使用。
	Observe(ctx context.Context, subject string) (int, error)
}

// MemoryStore 是 Store 的进程内实现。
// 每个主体维护一个按时间排序的时间戳序列，读取前先剪掉窗口外的旧条目，
// 因此单个主体的逻辑长度不会超过 limit+1。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	limit   int
	window  time.Duration

	now func() time.Time // 测试中可替换
}

// NewMemoryStore 创建一个进程内的滑动窗口限流存储。
func NewMemoryStore(limit int, window time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Check 实现 Store 接口。
func (s *MemoryStore) Check(_ context.Context, subject string) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	kept := s.prune(subject, now)

	if len(kept) >= s.limit {
		// 最早一条时间戳离开窗口的时刻就是可以重试的时刻
		retryAt := kept[0].Add(s.window)
		retryAfter := int(math.Ceil(retryAt.Sub(now).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		return Decision{Allowed: false, Remaining: 0, RetryAfterSeconds: retryAfter}, nil
	}

	s.entries[subject] = append(kept, now)
	return Decision{Allowed: true, Remaining: s.limit - len(kept) - 1}, nil
}

// RecordIfNew 实现 Store 接口。
func (s *MemoryStore) RecordIfNew(_ context.Context, subject string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	kept := s.prune(subject, now)
	if len(kept) > 0 {
		return false, nil
	}

	s.entries[subject] = append(kept, now)
	return true, nil
}

// Observe 实现 Store 接口。
func (s *MemoryStore) Observe(_ context.Context, subject string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	kept := append(s.prune(subject, now), now)
	s.entries[subject] = kept
	return len(kept), nil
}

// prune 剪掉窗口外的时间戳并回写，调用方必须持有锁。
func (s *MemoryStore) prune(subject string, now time.Time) []time.Time {
	cutoff := now.Add(-s.window)
	stamps := s.entries[subject]
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	kept := stamps[i:]
	if len(kept) == 0 {
		delete(s.entries, subject)
		return nil
	}
	s.entries[subject] = kept
	return kept
}

// StartSweep 启动周期清理，移除时间戳已全部过期的主体，约束内存增长。
// ctx 取消后退出。
func (s *MemoryStore) StartSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.window)
	for subject, stamps := range s.entries {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(s.entries, subject)
		}
	}
}

// subjects 返回当前持有状态的主体数量，仅测试使用。
func (s *MemoryStore) subjects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
