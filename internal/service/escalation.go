package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
	"github.com/atum2025/backend-safewakeapp/internal/notifier"
	"github.com/atum2025/backend-safewakeapp/internal/repository"
)

// Escalator 升级编排器：报警时钟的超时路径和 Reconciler 的兜底路径
// 走同一段代码。顺序是 guard → notify → advance —— 通知优先于记账，
// nextAlarm 推进失败绝不能挡住紧急消息。
type Escalator struct {
	users    repository.UserRepo
	contacts repository.ContactRepo
	configs  repository.AlarmConfigRepo
	notifier notifier.Notifier
	guard    *notifier.EscalationGuard
	logger   *zap.Logger
}

// NewEscalator 创建升级编排器
func NewEscalator(
	users repository.UserRepo,
	contacts repository.ContactRepo,
	configs repository.AlarmConfigRepo,
	n notifier.Notifier,
	guard *notifier.EscalationGuard,
	logger *zap.Logger,
) *Escalator {
	return &Escalator{
		users:    users,
		contacts: contacts,
		configs:  configs,
		notifier: n,
		guard:    guard,
		logger:   logger,
	}
}

// 调用方用 errors.Is 区分缺的是用户还是联系人
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrContactNotFound = errors.New("emergency contact not found")
)

// ErrDeliveryFailed 手动触发路径的投递失败。自动升级路径只记日志
// （下一次 occurrence / Reconciler pass 是安全网），但手动触发有个
// 正在等结果的调用方，失败必须如实返回。
var ErrDeliveryFailed = errors.New("emergency message delivery failed")

// BuildEvent 解析 user/contact 并渲染消息；缺哪个就返回哪个的 not-found
func (e *Escalator) BuildEvent(ctx context.Context, config domain.AlarmConfig) (*domain.EscalationEvent, error) {
	user, err := e.users.GetUser(ctx, config.UserID)
	if err != nil {
		return nil, errors.Join(ErrUserNotFound, err)
	}

	contact, err := e.contacts.GetEmergencyContactByUserID(ctx, config.UserID)
	if err != nil {
		return nil, errors.Join(ErrContactNotFound, err)
	}

	return &domain.EscalationEvent{
		EventID:    uuid.NewString(),
		User:       *user,
		Contact:    *contact,
		Occurrence: config.NextAlarm,
		Message:    domain.EmergencyMessage(user.DisplayName()),
	}, nil
}

// Escalate 处理一次被错过的 occurrence：
//  1. guard 占坑（同一 occurrence 只通知一次）
//  2. 通知（失败只记日志，本次升级照样算发生过）
//  3. 条件推进 nextAlarm = 旧值 + repeatInterval 小时
//
// 推进失败或输掉 compare-and-advance 都不算错误：别的写者已经算出
// 同样的后继值写进去了。
func (e *Escalator) Escalate(ctx context.Context, config domain.AlarmConfig) error {
	event, err := e.BuildEvent(ctx, config)
	if err != nil {
		return err
	}

	if e.guard.Acquire(ctx, config.UserID, config.NextAlarm, event.EventID) {
		if err := e.notifier.Notify(ctx, *event); err != nil {
			// NotifierFailure：上报，不回滚。下一个 occurrence 和下一次
			// Reconciler pass 是安全网。
			e.logger.Error("Emergency notification failed",
				zap.String("event_id", event.EventID),
				zap.Int64("user_id", config.UserID),
				zap.Error(err),
			)
		}
	} else {
		e.logger.Info("Escalation already notified for this occurrence",
			zap.Int64("user_id", config.UserID),
			zap.Time("occurrence", config.NextAlarm),
		)
	}

	newNext := domain.NextOccurrence(config.NextAlarm, config.RepeatInterval)
	advanced, err := e.configs.AdvanceNextAlarm(ctx, config.ID, config.NextAlarm, newNext)
	if err != nil {
		return fmt.Errorf("failed to reschedule alarm %d: %w", config.ID, err)
	}
	if advanced {
		e.logger.Info("Alarm rescheduled after escalation",
			zap.Int64("config_id", config.ID),
			zap.Time("next_alarm", newNext),
		)
	}
	return nil
}

// SendEmergency 手动触发（POST /api/send-emergency）：直接通知，不走
// guard，也不动 nextAlarm。投递失败返回 ErrDeliveryFailed（事件照样返回，
// 调用方可以拿到联系人信息）。
func (e *Escalator) SendEmergency(ctx context.Context, userID int64) (*domain.EscalationEvent, error) {
	event, err := e.BuildEvent(ctx, domain.AlarmConfig{UserID: userID})
	if err != nil {
		return nil, err
	}
	if err := e.notifier.Notify(ctx, *event); err != nil {
		e.logger.Error("Manual emergency notification failed",
			zap.String("event_id", event.EventID),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return event, errors.Join(ErrDeliveryFailed, err)
	}
	return event, nil
}
