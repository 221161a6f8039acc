package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
	"github.com/atum2025/backend-safewakeapp/internal/repository"
	"github.com/atum2025/backend-safewakeapp/internal/service"
)

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Notify(context.Context, domain.EscalationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}

func (n *countingNotifier) total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

type reconcilerFixture struct {
	users    *repository.MemoryUsersRepo
	contacts *repository.MemoryContactsRepo
	configs  *repository.MemoryAlarmConfigsRepo
	notifier *countingNotifier
	now      time.Time
	rec      *Reconciler
}

func setupReconciler(t *testing.T) *reconcilerFixture {
	t.Helper()

	users := repository.NewMemoryUsersRepo()
	contacts := repository.NewMemoryContactsRepo()
	configs := repository.NewMemoryAlarmConfigsRepo()
	n := &countingNotifier{}

	escalator := service.NewEscalator(users, contacts, configs, n, nil, zap.NewNop())

	f := &reconcilerFixture{
		users:    users,
		contacts: contacts,
		configs:  configs,
		notifier: n,
	}
	f.rec = New(configs, escalator, zap.NewNop(), WithNow(func() time.Time { return f.now }))
	return f
}

func (f *reconcilerFixture) addUser(t *testing.T, email string, next time.Time, interval int) domain.AlarmConfig {
	t.Helper()
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, domain.User{Email: email, Password: "pw", FullName: "User " + email})
	require.NoError(t, err)
	_, err = f.contacts.CreateEmergencyContact(ctx, domain.EmergencyContact{
		UserID: user.ID, Name: "Contact", WhatsApp: "+5511999998888",
	})
	require.NoError(t, err)
	config, err := f.configs.CreateAlarmConfig(ctx, domain.AlarmConfig{
		UserID:         user.ID,
		Time:           "08:00",
		RepeatInterval: interval,
		Ringtone:       domain.RingtoneTone1,
		IsActive:       true,
		NextAlarm:      next,
	})
	require.NoError(t, err)
	return *config
}

// 窗口刚过 1 秒的记录被兜底：一次通知，nextAlarm 前进一个 interval。
// 紧接着的第二次 pass 对推进后的记录无事可做。
func TestRunOnce_MissedAlarm(t *testing.T) {
	f := setupReconciler(t)
	ctx := context.Background()

	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	config := f.addUser(t, "maria@example.com", next, 12)

	f.now = time.Date(2024, 1, 1, 8, 3, 1, 0, time.UTC)
	require.NoError(t, f.rec.RunOnce(ctx))

	assert.Equal(t, 1, f.notifier.total())
	got, err := f.configs.GetAlarmConfigByUserID(ctx, config.UserID)
	require.NoError(t, err)
	assert.True(t, got.NextAlarm.Equal(time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)))

	// 立刻再跑一遍：新 nextAlarm 在未来，不重复通知
	require.NoError(t, f.rec.RunOnce(ctx))
	assert.Equal(t, 1, f.notifier.total())
}

// 边界：now 恰好等于 nextAlarm+tolerance 时窗口还没关
func TestRunOnce_ExactlyAtLimit(t *testing.T) {
	f := setupReconciler(t)

	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	f.addUser(t, "maria@example.com", next, 12)

	f.now = next.Add(domain.Tolerance)
	require.NoError(t, f.rec.RunOnce(context.Background()))
	assert.Equal(t, 0, f.notifier.total())
}

// 窗口还开着的记录不动：客户端可能正在倒计时
func TestRunOnce_WindowStillOpen(t *testing.T) {
	f := setupReconciler(t)

	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	f.addUser(t, "maria@example.com", next, 12)

	f.now = next.Add(90 * time.Second)
	require.NoError(t, f.rec.RunOnce(context.Background()))
	assert.Equal(t, 0, f.notifier.total())
}

// 坏数据只隔离告警，不中断整批
func TestRunOnce_SkipsBadRecords(t *testing.T) {
	f := setupReconciler(t)
	ctx := context.Background()

	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	f.addUser(t, "zero@example.com", time.Time{}, 12)
	f.addUser(t, "badinterval@example.com", next, 0)
	good := f.addUser(t, "good@example.com", next, 12)

	f.now = next.Add(domain.Tolerance + time.Second)
	require.NoError(t, f.rec.RunOnce(ctx))

	assert.Equal(t, 1, f.notifier.total())
	got, err := f.configs.GetAlarmConfigByUserID(ctx, good.UserID)
	require.NoError(t, err)
	assert.True(t, got.NextAlarm.After(next))
}

// 单条记录升级失败（比如联系人被删）不影响其它记录
func TestRunOnce_IsolatesFailures(t *testing.T) {
	f := setupReconciler(t)
	ctx := context.Background()

	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	// 没有联系人的用户：BuildEvent 失败
	orphan, err := f.users.CreateUser(ctx, domain.User{Email: "orphan@example.com", Password: "pw"})
	require.NoError(t, err)
	_, err = f.configs.CreateAlarmConfig(ctx, domain.AlarmConfig{
		UserID: orphan.ID, Time: "08:00", RepeatInterval: 12, IsActive: true, NextAlarm: next,
	})
	require.NoError(t, err)

	good := f.addUser(t, "good@example.com", next, 12)

	f.now = next.Add(domain.Tolerance + time.Second)
	require.NoError(t, f.rec.RunOnce(ctx))

	assert.Equal(t, 1, f.notifier.total())
	got, err := f.configs.GetAlarmConfigByUserID(ctx, good.UserID)
	require.NoError(t, err)
	assert.True(t, got.NextAlarm.After(next))
}

func TestStart_InvalidSchedule(t *testing.T) {
	f := setupReconciler(t)

	_, err := f.rec.Start("not-a-schedule")
	assert.Error(t, err)
}
