package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// EscalationGuard 升级事件幂等闸门。
// 键按 (userID, 被错过的 nextAlarm) 构造：同一个 occurrence 不管由
// 客户端倒计时还是 Reconciler（或并发的两次 pass）触发，都只放行一次通知。
// Redis 出错时 fail-open：宁可重复通知也不能把升级吞掉。
type EscalationGuard struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
	logger      *zap.Logger
}

// NewEscalationGuard 创建幂等闸门
func NewEscalationGuard(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *EscalationGuard {
	return &EscalationGuard{
		redisClient: redisClient,
		keyPrefix:   "escalation:",
		ttl:         ttl,
		logger:      logger,
	}
}

// Key 构建幂等键
func (g *EscalationGuard) Key(userID int64, occurrence time.Time) string {
	return fmt.Sprintf("%s%d:%s", g.keyPrefix, userID, occurrence.UTC().Format(time.RFC3339))
}

// Acquire 尝试占有本次 occurrence 的通知权（SETNX + TTL）。
// 返回 false 表示别的写者已经为这次 occurrence 发过通知。
func (g *EscalationGuard) Acquire(ctx context.Context, userID int64, occurrence time.Time, eventID string) bool {
	if g == nil || g.redisClient == nil {
		return true
	}

	key := g.Key(userID, occurrence)
	ok, err := g.redisClient.SetNX(ctx, key, eventID, g.ttl).Result()
	if err != nil {
		g.logger.Warn("Escalation guard unavailable, failing open",
			zap.String("key", key),
			zap.Error(err),
		)
		return true
	}
	return ok
}
