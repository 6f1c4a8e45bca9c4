package ratelimit

import (
	"context"
	"fmt"

	"profile-media-go/pkg/log"
)

// VisitTracker 用同一滑动窗口原语实现页面访问去重：
// 同一（地址, 档案）对在窗口内只记录第一次，重复命中静默丢弃。
// 另有一个按地址的突发启发式，超过阈值的地址仅记日志，不做拦截。
type VisitTracker struct {
	store      Store
	burstLimit int
}

// NewVisitTracker 创建访问去重跟踪器。
func NewVisitTracker(store Store, burstLimit int) *VisitTracker {
	return &VisitTracker{store: store, burstLimit: burstLimit}
}

// Record 尝试记录一次档案访问，返回本次是否计入。
func (t *VisitTracker) Record(ctx context.Context, sourceAddr string, profileID uint) (bool, error) {
	// 按地址的命中计数与去重无关，先行累加以便识别突发
	hits, err := t.store.Observe(ctx, fmt.Sprintf("addr:%s", sourceAddr))
	if err != nil {
		return false, err
	}
	if hits > t.burstLimit {
		log.Warnw("访问频率超过突发阈值，疑似滥用",
			"sourceAddr", sourceAddr,
			"hits", hits,
			"burstLimit", t.burstLimit,
		)
	}

	recorded, err := t.store.RecordIfNew(ctx, fmt.Sprintf("visit:%s:%d", sourceAddr, profileID))
	if err != nil {
		return false, err
	}
	return recorded, nil
}
