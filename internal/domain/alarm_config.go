package domain

import (
	"fmt"
	"time"
)

// Ringtone 铃声选项（纯播放选择器，对状态机无行为影响）
const (
	RingtoneTone1       = "tone-1"
	RingtoneTone2       = "tone-2"
	RingtoneTone3       = "tone-3"
	RingtoneVibrateOnly = "vibrate-only"
)

// ValidRingtone 校验铃声枚举值
func ValidRingtone(s string) bool {
	switch s {
	case RingtoneTone1, RingtoneTone2, RingtoneTone3, RingtoneVibrateOnly:
		return true
	}
	return false
}

// 注册时的默认报警配置
const (
	DefaultAlarmTime      = "08:00"
	DefaultRepeatInterval = 12
	DefaultRingtone       = RingtoneTone1
)

// RepeatInterval 允许范围（小时）
const (
	MinRepeatInterval = 1
	MaxRepeatInterval = 24
)

// AlarmConfig 报警配置领域模型（每个用户恰好一个）
// NextAlarm 单调前进：每次 occurrence 结束（dismissed 或 escalated）
// 都按 RepeatInterval 从当前值推进，绝不从 "now" 重算，保持节奏稳定。
type AlarmConfig struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"userId" db:"user_id"`
	Time           string    `json:"time" db:"time"` // wall-clock "HH:MM", 24h
	RepeatInterval int       `json:"repeatInterval" db:"repeat_interval"` // hours, 1..24
	Ringtone       string    `json:"ringtone" db:"ringtone"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	NextAlarm      time.Time `json:"nextAlarm" db:"next_alarm"`
}

// ValidRepeatInterval 校验重复间隔范围
func ValidRepeatInterval(hours int) bool {
	return hours >= MinRepeatInterval && hours <= MaxRepeatInterval
}

// ParseClock 解析 "HH:MM"（24h）
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// ValidClock 校验 "HH:MM" 格式
func ValidClock(s string) bool {
	_, _, err := ParseClock(s)
	return err == nil
}

// NextOccurrence 计算下一次触发时间
// 从当前 NextAlarm 推进，不是 now+interval（避免节奏漂移）。
func NextOccurrence(next time.Time, intervalHours int) time.Time {
	return next.Add(time.Duration(intervalHours) * time.Hour)
}

// FirstAlarmAfter 计算锚定到 "HH:MM" 的首次触发时间
// 当天的 HH:MM 已过时按 interval 推进一次（注册默认值用）。
func FirstAlarmAfter(now time.Time, clock string, intervalHours int) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if at.Before(now) {
		at = at.Add(time.Duration(intervalHours) * time.Hour)
	}
	return at, nil
}

// ShouldTrigger 当前时间是否已到触发点
func (c AlarmConfig) ShouldTrigger(now time.Time) bool {
	if !c.IsActive || c.NextAlarm.IsZero() {
		return false
	}
	return !now.Before(c.NextAlarm)
}

// Deadline 本次 occurrence 的逃生截止点（超过即 escalation）
func (c AlarmConfig) Deadline() time.Time {
	return c.NextAlarm.Add(Tolerance)
}
