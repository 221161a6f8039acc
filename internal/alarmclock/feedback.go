package alarmclock

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Feedback 感官反馈（响铃/震动）。进入 Active 后持续到退出为止。
// 真实客户端注入平台实现；服务端和测试用下面的日志/内存实现。
type Feedback interface {
	Start(ringtone string)
	Stop()
}

// Reminders 本地提醒通知。解除、升级、应用退出都必须取消挂起的提醒。
type Reminders interface {
	Schedule(at time.Time, body string)
	CancelAll()
}

// LogFeedback 只打日志的反馈实现
type LogFeedback struct {
	logger *zap.Logger
}

func NewLogFeedback(logger *zap.Logger) *LogFeedback {
	return &LogFeedback{logger: logger}
}

func (f *LogFeedback) Start(ringtone string) {
	f.logger.Info("Alarm feedback started", zap.String("ringtone", ringtone))
}

func (f *LogFeedback) Stop() {
	f.logger.Info("Alarm feedback stopped")
}

// MemoryReminders 内存提醒队列（挂起项可查询，CancelAll 清空）
type MemoryReminders struct {
	mu      sync.Mutex
	pending []scheduledReminder
}

type scheduledReminder struct {
	At   time.Time
	Body string
}

func NewMemoryReminders() *MemoryReminders {
	return &MemoryReminders{}
}

func (r *MemoryReminders) Schedule(at time.Time, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, scheduledReminder{At: at, Body: body})
}

func (r *MemoryReminders) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = nil
}

// Pending 当前挂起的提醒数
func (r *MemoryReminders) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
