package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 让测试可以精确推进时间。
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestStore(limit int, window time.Duration) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(limit, window)
	store.now = clock.now
	return store, clock
}

func TestMemoryStore_CheckLimitAndRecovery(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(10, time.Minute)

	// 窗口内恰好 10 次放行
	for i := 0; i < 10; i++ {
		d, err := store.Check(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "第 %d 次应放行", i+1)
		assert.Equal(t, 10-i-1, d.Remaining)
		clock.advance(time.Second)
	}

	// 第 11 次拒绝并给出正的重试提示
	d, err := store.Check(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Positive(t, d.RetryAfterSeconds)

	// 时间越过窗口后恢复放行
	clock.advance(time.Minute + time.Second)
	d, err = store.Check(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryStore_SubjectsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(1, time.Minute)

	d, err := store.Check(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = store.Check(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// 另一主体不受影响
	d, err = store.Check(ctx, "user:2")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryStore_RetryAfterMatchesOldestEntry(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(2, time.Minute)

	_, _ = store.Check(ctx, "ip:10.0.0.1")
	clock.advance(30 * time.Second)
	_, _ = store.Check(ctx, "ip:10.0.0.1")

	// 最早一条还有 30 秒离开窗口
	d, err := store.Check(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 30, d.RetryAfterSeconds)
}

func TestMemoryStore_RecordIfNew(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(5, 30*time.Second)

	recorded, err := store.RecordIfNew(ctx, "visit:1.2.3.4:7")
	require.NoError(t, err)
	assert.True(t, recorded)

	// 窗口内重复命中静默丢弃
	recorded, err = store.RecordIfNew(ctx, "visit:1.2.3.4:7")
	require.NoError(t, err)
	assert.False(t, recorded)

	// 窗口过后重新计入
	clock.advance(31 * time.Second)
	recorded, err = store.RecordIfNew(ctx, "visit:1.2.3.4:7")
	require.NoError(t, err)
	assert.True(t, recorded)
}

func TestMemoryStore_ObserveCounts(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(5, 30*time.Second)

	for i := 1; i <= 7; i++ {
		n, err := store.Observe(ctx, "addr:1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	// 旧命中离开窗口后计数回落
	clock.advance(31 * time.Second)
	n, err := store.Observe(ctx, "addr:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_SweepRemovesAgedSubjects(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(10, time.Minute)

	_, _ = store.Check(ctx, "user:1")
	_, _ = store.Check(ctx, "user:2")
	assert.Equal(t, 2, store.subjects())

	clock.advance(2 * time.Minute)
	store.sweep()
	assert.Equal(t, 0, store.subjects())
}

func TestUploadGate_EitherKeyRejects(t *testing.T) {
	ctx := context.Background()

	userStore, _ := newTestStore(2, time.Minute)
	ipStore, _ := newTestStore(3, time.Minute)
	gate := NewUploadGate(userStore, ipStore)

	// 用户键先耗尽
	for i := 0; i < 2; i++ {
		d, err := gate.Allow(ctx, 1, "9.9.9.9")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := gate.Allow(ctx, 1, "9.9.9.9")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// 换一个用户、同一地址：地址键还剩 1 次
	d, err = gate.Allow(ctx, 2, "9.9.9.9")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = gate.Allow(ctx, 3, "9.9.9.9")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestVisitTracker_DedupAndBurst(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(5, 30*time.Second)
	tracker := NewVisitTracker(store, 5)

	recorded, err := tracker.Record(ctx, "1.2.3.4", 42)
	require.NoError(t, err)
	assert.True(t, recorded)

	recorded, err = tracker.Record(ctx, "1.2.3.4", 42)
	require.NoError(t, err)
	assert.False(t, recorded)

	// 不同档案是不同的去重键
	recorded, err = tracker.Record(ctx, "1.2.3.4", 43)
	require.NoError(t, err)
	assert.True(t, recorded)
}
