package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
	"github.com/atum2025/backend-safewakeapp/internal/notifier"
	"github.com/atum2025/backend-safewakeapp/internal/repository"
)

// recordingNotifier 记录每次投递的事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.EscalationEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.EscalationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

type escalatorFixture struct {
	users     *repository.MemoryUsersRepo
	contacts  *repository.MemoryContactsRepo
	configs   *repository.MemoryAlarmConfigsRepo
	notifier  *recordingNotifier
	escalator *Escalator
	config    domain.AlarmConfig
}

func setupEscalator(t *testing.T, guard *notifier.EscalationGuard) *escalatorFixture {
	t.Helper()
	ctx := context.Background()

	users := repository.NewMemoryUsersRepo()
	contacts := repository.NewMemoryContactsRepo()
	configs := repository.NewMemoryAlarmConfigsRepo()
	rec := &recordingNotifier{}

	user, err := users.CreateUser(ctx, domain.User{Email: "maria@example.com", Password: "pw", FullName: "Maria Silva"})
	require.NoError(t, err)
	_, err = contacts.CreateEmergencyContact(ctx, domain.EmergencyContact{
		UserID: user.ID, Name: "Joao", WhatsApp: "+5511999998888",
	})
	require.NoError(t, err)
	config, err := configs.CreateAlarmConfig(ctx, domain.AlarmConfig{
		UserID:         user.ID,
		Time:           "08:00",
		RepeatInterval: 12,
		Ringtone:       domain.RingtoneTone1,
		IsActive:       true,
		NextAlarm:      time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	return &escalatorFixture{
		users:     users,
		contacts:  contacts,
		configs:   configs,
		notifier:  rec,
		escalator: NewEscalator(users, contacts, configs, rec, guard, zap.NewNop()),
		config:    *config,
	}
}

func TestEscalate_NotifiesAndAdvances(t *testing.T) {
	f := setupEscalator(t, nil)
	ctx := context.Background()

	require.NoError(t, f.escalator.Escalate(ctx, f.config))

	require.Equal(t, 1, f.notifier.count())
	event := f.notifier.events[0]
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "Joao", event.Contact.Name)
	assert.Contains(t, event.Message, "Maria Silva")
	assert.True(t, event.Occurrence.Equal(f.config.NextAlarm))

	got, err := f.configs.GetAlarmConfigByUserID(ctx, f.config.UserID)
	require.NoError(t, err)
	assert.True(t, got.NextAlarm.Equal(time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)))
}

// 通知失败不回滚：重排照常进行，失败只进日志
func TestEscalate_NotifierFailureStillAdvances(t *testing.T) {
	f := setupEscalator(t, nil)
	f.notifier.err = errors.New("gateway down")
	ctx := context.Background()

	require.NoError(t, f.escalator.Escalate(ctx, f.config))

	got, err := f.configs.GetAlarmConfigByUserID(ctx, f.config.UserID)
	require.NoError(t, err)
	assert.True(t, got.NextAlarm.After(f.config.NextAlarm))
}

// 同一个 occurrence 两条路径先后触发：guard 保证只通知一次
func TestEscalate_GuardDeduplicates(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	guard := notifier.NewEscalationGuard(client, time.Hour, zap.NewNop())

	f := setupEscalator(t, guard)
	ctx := context.Background()

	require.NoError(t, f.escalator.Escalate(ctx, f.config))
	// 第二个写者（比如并发的 Reconciler pass）拿着同一份快照进来
	require.NoError(t, f.escalator.Escalate(ctx, f.config))

	assert.Equal(t, 1, f.notifier.count())
}

func TestBuildEvent_MissingUser(t *testing.T) {
	f := setupEscalator(t, nil)

	_, err := f.escalator.BuildEvent(context.Background(), domain.AlarmConfig{UserID: 999})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestBuildEvent_MissingContact(t *testing.T) {
	f := setupEscalator(t, nil)
	ctx := context.Background()

	user, err := f.users.CreateUser(ctx, domain.User{Email: "solo@example.com", Password: "pw", FullName: "Solo"})
	require.NoError(t, err)

	_, err = f.escalator.BuildEvent(ctx, domain.AlarmConfig{UserID: user.ID})
	assert.ErrorIs(t, err, ErrContactNotFound)
}

// 手动触发投递失败：错误如实上报，事件仍然带回联系人信息
func TestSendEmergency_DeliveryFailure(t *testing.T) {
	f := setupEscalator(t, nil)
	f.notifier.err = errors.New("gateway down")

	event, err := f.escalator.SendEmergency(context.Background(), f.config.UserID)

	assert.ErrorIs(t, err, ErrDeliveryFailed)
	require.NotNil(t, event)
	assert.Equal(t, "Joao", event.Contact.Name)
}

// 手动触发：通知发出，nextAlarm 不动
func TestSendEmergency_DoesNotReschedule(t *testing.T) {
	f := setupEscalator(t, nil)
	ctx := context.Background()

	event, err := f.escalator.SendEmergency(ctx, f.config.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Joao", event.Contact.Name)
	assert.Equal(t, 1, f.notifier.count())

	got, err := f.configs.GetAlarmConfigByUserID(ctx, f.config.UserID)
	require.NoError(t, err)
	assert.True(t, got.NextAlarm.Equal(f.config.NextAlarm))
}
