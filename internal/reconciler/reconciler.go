package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
	"github.com/atum2025/backend-safewakeapp/internal/repository"
	"github.com/atum2025/backend-safewakeapp/internal/service"
)

// Reconciler 服务端兜底任务：按固定周期扫描所有活跃报警配置，
// 找出容忍窗口已过却没被解除的 occurrence（客户端离线、崩溃或从未打开），
// 执行与客户端相同的升级 + 重排。
//
// 跨 pass 无状态：唯一的持久状态就是 nextAlarm 本身。判定永远针对
// 当前读到的 nextAlarm，推进是 compare-and-advance，所以与客户端的
// 升级路径并发运行也不会双发。
type Reconciler struct {
	configs   repository.AlarmConfigRepo
	escalator *service.Escalator
	logger    *zap.Logger
	now       func() time.Time
}

// Option Reconciler 可选参数
type Option func(*Reconciler)

// WithNow 注入时钟（测试用）
func WithNow(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New 创建 Reconciler
func New(
	configs repository.AlarmConfigRepo,
	escalator *service.Escalator,
	logger *zap.Logger,
	opts ...Option,
) *Reconciler {
	r := &Reconciler{
		configs:   configs,
		escalator: escalator,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start 按 cron 表达式调度（部署参数，不是正确性保证）。
// SkipIfStillRunning 保证两次 run 绝不重叠同一批记录。
func (r *Reconciler) Start(schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(&cronLogger{logger: r.logger}),
	))

	_, err := c.AddFunc(schedule, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			r.logger.Error("Reconciler pass failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reconciler schedule %q: %w", schedule, err)
	}

	c.Start()
	r.logger.Info("Reconciler started", zap.String("schedule", schedule))
	return c, nil
}

// RunOnce 单次 pass。单条记录的坏数据或失败只隔离告警，
// 绝不中断整批扫描。
func (r *Reconciler) RunOnce(ctx context.Context) error {
	now := r.now()

	configs, err := r.configs.ListActiveAlarmConfigs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active alarm configs: %w", err)
	}

	r.logger.Debug("Reconciler pass",
		zap.Int("config_count", len(configs)),
		zap.Time("now", now),
	)

	for _, config := range configs {
		if err := r.reconcileOne(ctx, now, config); err != nil {
			r.logger.Warn("Failed to reconcile alarm, continuing",
				zap.Int64("config_id", config.ID),
				zap.Int64("user_id", config.UserID),
				zap.Error(err),
			)
		}
	}
	return nil
}

// reconcileOne 处理一条配置
func (r *Reconciler) reconcileOne(ctx context.Context, now time.Time, config domain.AlarmConfig) error {
	// 坏记录：跳过并告警，不中断本次 pass
	if config.NextAlarm.IsZero() {
		r.logger.Warn("Alarm config has no next alarm, skipping",
			zap.Int64("config_id", config.ID),
			zap.Int64("user_id", config.UserID),
		)
		return nil
	}
	if !domain.ValidRepeatInterval(config.RepeatInterval) {
		r.logger.Warn("Alarm config has invalid repeat interval, skipping",
			zap.Int64("config_id", config.ID),
			zap.Int64("user_id", config.UserID),
			zap.Int("repeat_interval", config.RepeatInterval),
		)
		return nil
	}

	// 容忍窗口与客户端倒计时共用同一个常量，两边守的是同一条保证
	limit := config.NextAlarm.Add(domain.Tolerance)
	if !now.After(limit) {
		return nil
	}

	r.logger.Info("Missed alarm detected, escalating",
		zap.Int64("config_id", config.ID),
		zap.Int64("user_id", config.UserID),
		zap.Time("next_alarm", config.NextAlarm),
		zap.Time("limit", limit),
	)

	return r.escalator.Escalate(ctx, config)
}

// cronLogger cron.Logger 的 zap 适配
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Infow("cron: "+msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
