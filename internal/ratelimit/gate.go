package ratelimit

import (
	"context"
	"fmt"
)

// UploadGate 在上传入口对同一请求执行两次独立的限流判定：
// 按认证用户（较紧）与按来源地址（较松），任一超限即拒绝。
// 双键设计同时防御单个失控账号和共享地址后面的多账号滥用。
type UploadGate struct {
	userStore Store
	ipStore   Store
}

// NewUploadGate 创建上传限流闸门。两个 Store 各自携带独立的上限与窗口配置。
func NewUploadGate(userStore, ipStore Store) *UploadGate {
	return &UploadGate{userStore: userStore, ipStore: ipStore}
}

// Allow 依次执行用户键与地址键的判定，返回第一个拒绝的结果。
func (g *UploadGate) Allow(ctx context.Context, userID uint, sourceAddr string) (Decision, error) {
	decision, err := g.userStore.Check(ctx, fmt.Sprintf("user:%d", userID))
	if err != nil {
		return Decision{}, err
	}
	if !decision.Allowed {
		return decision, nil
	}

	return g.ipStore.Check(ctx, fmt.Sprintf("ip:%s", sourceAddr))
}
