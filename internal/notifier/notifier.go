package notifier

import (
	"context"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
)

// Notifier 把"给联系人投递一条紧急消息"抽象成单一能力。
// 报警时钟（客户端路径）和 Reconciler（服务端兜底路径）调用同一个契约。
// 投递失败要上报但绝不回滚升级状态：下一个 occurrence 或下一次
// Reconciler pass 是安全网。
type Notifier interface {
	Notify(ctx context.Context, event domain.EscalationEvent) error
}

// Func 适配器（测试和简单场景用）
type Func func(ctx context.Context, event domain.EscalationEvent) error

func (f Func) Notify(ctx context.Context, event domain.EscalationEvent) error {
	return f(ctx, event)
}
