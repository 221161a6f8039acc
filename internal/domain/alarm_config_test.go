package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidClock(t *testing.T) {
	assert.True(t, ValidClock("08:00"))
	assert.True(t, ValidClock("00:00"))
	assert.True(t, ValidClock("23:59"))

	assert.False(t, ValidClock("24:00"))
	assert.False(t, ValidClock("8:00am"))
	assert.False(t, ValidClock("0800"))
	assert.False(t, ValidClock(""))
}

func TestValidRepeatInterval(t *testing.T) {
	assert.True(t, ValidRepeatInterval(1))
	assert.True(t, ValidRepeatInterval(12))
	assert.True(t, ValidRepeatInterval(24))

	assert.False(t, ValidRepeatInterval(0))
	assert.False(t, ValidRepeatInterval(25))
	assert.False(t, ValidRepeatInterval(-12))
}

func TestValidRingtone(t *testing.T) {
	assert.True(t, ValidRingtone(RingtoneTone1))
	assert.True(t, ValidRingtone(RingtoneVibrateOnly))
	assert.False(t, ValidRingtone("tone-4"))
	assert.False(t, ValidRingtone(""))
}

// 下一次触发从当前 nextAlarm 推进而不是 now+interval：
// 解除动作晚了 90 秒，节奏不能跟着漂移。
func TestNextOccurrence_StableCadence(t *testing.T) {
	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	got := NextOccurrence(next, 12)
	assert.Equal(t, time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC), got)

	// 连推两次仍然踩点
	got = NextOccurrence(got, 12)
	assert.Equal(t, time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC), got)
}

func TestFirstAlarmAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 6, 30, 0, 0, time.UTC)

	// 当天 08:00 还没到
	got, err := FirstAlarmAfter(now, "08:00", 12)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), got)

	// 当天 08:00 已过，按 interval 推进一次
	now = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	got, err = FirstAlarmAfter(now, "08:00", 12)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC), got)

	_, err = FirstAlarmAfter(now, "bad", 12)
	assert.Error(t, err)
}

func TestShouldTrigger(t *testing.T) {
	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	config := AlarmConfig{IsActive: true, NextAlarm: next}

	assert.False(t, config.ShouldTrigger(next.Add(-time.Second)))
	assert.True(t, config.ShouldTrigger(next))
	assert.True(t, config.ShouldTrigger(next.Add(time.Minute)))

	// 关掉就永远不触发
	config.IsActive = false
	assert.False(t, config.ShouldTrigger(next.Add(time.Minute)))

	// 没有 nextAlarm 的记录不触发
	config = AlarmConfig{IsActive: true}
	assert.False(t, config.ShouldTrigger(next))
}

func TestDeadline(t *testing.T) {
	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	config := AlarmConfig{NextAlarm: next}
	assert.Equal(t, next.Add(Tolerance), config.Deadline())
	assert.Equal(t, 180*time.Second, Tolerance)
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("+5511999998888"))
	assert.True(t, ValidPhone("11 99999-8888"))
	assert.True(t, ValidPhone("(11) 4002-8922"))

	assert.False(t, ValidPhone(""))
	assert.False(t, ValidPhone("abc"))
	assert.False(t, ValidPhone("12"))
	assert.False(t, ValidPhone("(11) 40"))
	assert.False(t, ValidPhone("(11) 4002-8922("))
}

func TestEmergencyMessage(t *testing.T) {
	msg := EmergencyMessage("Maria Silva")

	assert.Contains(t, msg, "Maria Silva")
	assert.Contains(t, msg, "automatic safety alert")
	assert.Contains(t, msg, "Please get in touch")
	assert.Contains(t, msg, "automated emergency message")
}

func TestUserPublicStripsPassword(t *testing.T) {
	u := User{ID: 1, Email: "a@b.com", Password: "secret", FullName: "A"}
	pub := u.Public()
	assert.Equal(t, u.Email, pub.Email)
	assert.Equal(t, u.FullName, pub.FullName)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Maria", User{FullName: "Maria", Email: "m@x.com"}.DisplayName())
	assert.Equal(t, "m@x.com", User{Email: "m@x.com"}.DisplayName())
}
