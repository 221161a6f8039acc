package domain

import (
	"fmt"
	"time"
)

// Tolerance 容忍窗口：nextAlarm 之后允许 dismiss 的宽限期。
// 客户端倒计时和服务端 Reconciler 都使用这个常量，两者必须完全一致，
// 因为 Reconciler 兜底的是与客户端相同的保证。
const Tolerance = 180 * time.Second

// EscalationEvent 一次逃逸升级事件（countdown 超时或 Reconciler 兜底触发）
type EscalationEvent struct {
	EventID    string    // uuid, 用于日志与幂等追踪
	User       User
	Contact    EmergencyContact
	Occurrence time.Time // 被错过的 NextAlarm（幂等键的一部分）
	Message    string    // 渲染好的紧急消息
}

// EmergencyMessage 紧急消息模板：表明身份、说明是自动告警、请求联系、标注自动发送
func EmergencyMessage(displayName string) string {
	return fmt.Sprintf(
		"SAFETY ALERT - SafeWake\n\n"+
			"Hello, my name is %s. This is an automatic safety alert sent by the SafeWake app. "+
			"I was not able to dismiss my personal safety alarm in time.\n\n"+
			"Please get in touch with me.\n\n"+
			"This is an automated emergency message.",
		displayName,
	)
}
