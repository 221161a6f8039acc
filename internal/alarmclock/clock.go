package alarmclock

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
	"github.com/atum2025/backend-safewakeapp/internal/repository"
	"github.com/atum2025/backend-safewakeapp/internal/service"
)

// State 报警时钟状态
type State int

const (
	StateIdle State = iota // 未到触发点
	StateActive            // 已触发，倒计时进行中
	StateDismissed         // 本次 occurrence 被用户解除（终态，随即回 Idle）
	StateEscalated         // 倒计时耗尽，已升级（终态，随即回 Idle）
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateDismissed:
		return "dismissed"
	case StateEscalated:
		return "escalated"
	}
	return "unknown"
}

// ErrMissingEmergencyContact 前置条件失败：没有紧急联系人不允许进入 Active。
// 核心绝不让一条无法通知的记录走到升级。
var ErrMissingEmergencyContact = errors.New("emergency contact is not configured")

// ErrNotActive 只有 Active 状态可以 dismiss
var ErrNotActive = errors.New("alarm is not active")

// ErrAlarmDisabled isActive=false 的报警不允许 arm：停用的报警绝不触发、绝不升级
var ErrAlarmDisabled = errors.New("alarm is disabled")

// Clock 客户端报警时钟状态机。
// 单写者、定时驱动：状态只在 tick（或显式 Arm/Dismiss/Resume）时推进，
// deadline 是单调时间戳，恢复时永远从 deadline 重算剩余时间，
// 绝不信任已流逝的 tick 数。
type Clock struct {
	configs   repository.AlarmConfigRepo
	contacts  repository.ContactRepo
	escalator *service.Escalator
	feedback  Feedback
	reminders Reminders
	logger    *zap.Logger

	userID int64
	now    func() time.Time
	tick   time.Duration

	mu          sync.Mutex
	state       State
	lastOutcome State
	current     domain.AlarmConfig // occurrence 进入 Active 时的配置快照
	deadline    time.Time
}

// Option Clock 可选参数
type Option func(*Clock)

// WithNow 注入时钟（测试用）
func WithNow(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

// WithTick 轮询粒度
func WithTick(d time.Duration) Option {
	return func(c *Clock) { c.tick = d }
}

// NewClock 创建报警时钟
func NewClock(
	userID int64,
	configs repository.AlarmConfigRepo,
	contacts repository.ContactRepo,
	escalator *service.Escalator,
	feedback Feedback,
	reminders Reminders,
	logger *zap.Logger,
	opts ...Option,
) *Clock {
	c := &Clock{
		configs:   configs,
		contacts:  contacts,
		escalator: escalator,
		feedback:  feedback,
		reminders: reminders,
		logger:    logger,
		userID:    userID,
		now:       time.Now,
		tick:      time.Second,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State 当前状态
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastOutcome 上一个 occurrence 的结局（Dismissed 或 Escalated）
func (c *Clock) LastOutcome() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOutcome
}

// Remaining 倒计时剩余时间（非 Active 时为 0）
func (c *Clock) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return 0
	}
	remaining := c.deadline.Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Run 定时轮询循环。退出时释放倒计时、感官反馈和本地提醒
// （每条退出路径都回收这些资源）。
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	defer c.teardown()

	// 启动即做一次恢复判定（应用可能在 Active 期间被杀掉）
	if err := c.Resume(ctx); err != nil {
		c.logger.Warn("Alarm state recovery failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Alarm clock stopped")
			return nil
		case <-ticker.C:
			if err := c.Step(ctx); err != nil {
				c.logger.Error("Alarm clock step failed", zap.Error(err))
			}
		}
	}
}

// Arm 手动进入 Active（"arm now"）。
// 前置条件：必须已配置紧急联系人；失败时不触碰 isActive/nextAlarm。
func (c *Clock) Arm(ctx context.Context) error {
	if _, err := c.contacts.GetEmergencyContactByUserID(ctx, c.userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMissingEmergencyContact
		}
		return err
	}

	config, err := c.configs.GetAlarmConfigByUserID(ctx, c.userID)
	if err != nil {
		return err
	}
	if !config.IsActive {
		return ErrAlarmDisabled
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateActive {
		return nil
	}

	// 已到触发点就沿用与 Reconciler 相同的截止点，否则从现在起算一个完整容忍窗口
	deadline := config.Deadline()
	if c.now().Before(config.NextAlarm) {
		deadline = c.now().Add(domain.Tolerance)
	}
	c.enterActiveLocked(*config, deadline)
	return nil
}

// Dismiss 用户解除本次 occurrence：停倒计时、停反馈、取消本地提醒，
// 把 nextAlarm 推进一个 repeatInterval 并回到 Idle。
func (c *Clock) Dismiss(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	config := c.current
	c.state = StateDismissed
	c.lastOutcome = StateDismissed
	c.mu.Unlock()

	c.feedback.Stop()
	c.reminders.CancelAll()

	newNext := domain.NextOccurrence(config.NextAlarm, config.RepeatInterval)
	advanced, err := c.configs.AdvanceNextAlarm(ctx, config.ID, config.NextAlarm, newNext)
	if err == nil && advanced {
		c.logger.Info("Alarm dismissed and rescheduled",
			zap.Int64("user_id", c.userID),
			zap.Time("next_alarm", newNext),
		)
	}

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()

	if err != nil {
		return err
	}
	return nil
}

// Resume 应用重启后的状态重建：内存倒计时已丢失，从持久化的 nextAlarm
// 和固定容忍窗口重新推导 —— 窗口内带剩余时间重进 Active，已超窗直接升级。
// 这正是 Reconciler 必须兜底而不是可选项的原因。
func (c *Clock) Resume(ctx context.Context) error {
	return c.Step(ctx)
}

// Step 单次状态推进（Run 的每个 tick 调用一次；测试直接调用）
func (c *Clock) Step(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	deadline := c.deadline
	config := c.current
	c.mu.Unlock()

	now := c.now()

	if state == StateActive {
		if now.Before(deadline) {
			return nil
		}
		return c.escalate(ctx, config)
	}

	// Idle：检查是否到触发点
	fresh, err := c.configs.GetAlarmConfigByUserID(ctx, c.userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if !fresh.ShouldTrigger(now) {
		return nil
	}

	// 没有联系人就拒绝进入 Active
	if _, err := c.contacts.GetEmergencyContactByUserID(ctx, c.userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.logger.Warn("Alarm due but no emergency contact configured, refusing activation",
				zap.Int64("user_id", c.userID),
			)
			return ErrMissingEmergencyContact
		}
		return err
	}

	if now.After(fresh.Deadline()) {
		// 超窗才醒过来（休眠/重启）：按已超时处理，立即升级
		return c.escalate(ctx, *fresh)
	}

	c.mu.Lock()
	c.enterActiveLocked(*fresh, fresh.Deadline())
	c.mu.Unlock()
	return nil
}

// enterActiveLocked 进入 Active：开反馈、排本地提醒、记录截止点
func (c *Clock) enterActiveLocked(config domain.AlarmConfig, deadline time.Time) {
	c.state = StateActive
	c.current = config
	c.deadline = deadline

	c.feedback.Start(config.Ringtone)
	c.reminders.Schedule(c.now().Add(time.Minute),
		"Your safety alarm is active. Remember to dismiss it.")

	c.logger.Info("Alarm active, countdown started",
		zap.Int64("user_id", c.userID),
		zap.Time("deadline", deadline),
	)
}

// escalate 倒计时耗尽：先通知再记账（编排器内部保证顺序），
// 反馈和提醒无论通知成败都要停掉。
func (c *Clock) escalate(ctx context.Context, config domain.AlarmConfig) error {
	// Active 期间拿的是快照：升级前再读一次，倒计时途中被停用的报警
	// 直接放弃这次 occurrence，不通知也不重排。
	if fresh, err := c.configs.GetAlarmConfigByUserID(ctx, c.userID); err == nil && !fresh.IsActive {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()

		c.feedback.Stop()
		c.reminders.CancelAll()

		c.logger.Info("Alarm deactivated during countdown, skipping escalation",
			zap.Int64("user_id", c.userID),
		)
		return nil
	}

	c.mu.Lock()
	c.state = StateEscalated
	c.lastOutcome = StateEscalated
	c.mu.Unlock()

	c.feedback.Stop()
	c.reminders.CancelAll()

	err := c.escalator.Escalate(ctx, config)

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.logger.Info("Alarm escalated",
		zap.Int64("user_id", c.userID),
		zap.Time("occurrence", config.NextAlarm),
	)
	return nil
}

// teardown 应用退出路径的资源回收
func (c *Clock) teardown() {
	c.feedback.Stop()
	c.reminders.CancelAll()
}
