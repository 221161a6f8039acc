package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
)

// MemoryUsersRepo supports the full API when DB is disabled.
// Auto-incrementing int64 ids, one process-wide map per entity kind.
type MemoryUsersRepo struct {
	mu     sync.RWMutex
	users  map[int64]domain.User
	nextID int64
}

func NewMemoryUsersRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{
		users:  map[int64]domain.User{},
		nextID: 1,
	}
}

func (r *MemoryUsersRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryUsersRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUsersRepo) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return &user, nil
}

func (r *MemoryUsersRepo) UpdateUser(_ context.Context, id int64, update UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Password != nil {
		u.Password = *update.Password
	}
	if update.FullName != nil {
		u.FullName = *update.FullName
	}
	if update.Phone != nil {
		u.Phone = *update.Phone
	}
	if update.BirthDate != nil {
		u.BirthDate = *update.BirthDate
	}
	r.users[id] = u
	return &u, nil
}

// MemoryContactsRepo 内存紧急联系人存储（每用户最多一条）
type MemoryContactsRepo struct {
	mu       sync.RWMutex
	contacts map[int64]domain.EmergencyContact
	nextID   int64
}

func NewMemoryContactsRepo() *MemoryContactsRepo {
	return &MemoryContactsRepo{
		contacts: map[int64]domain.EmergencyContact{},
		nextID:   1,
	}
}

func (r *MemoryContactsRepo) GetEmergencyContactByUserID(_ context.Context, userID int64) (*domain.EmergencyContact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.contacts {
		if c.UserID == userID {
			c := c
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// CreateEmergencyContact 原子替换：同一用户的旧联系人在同一把锁内删除，
// 调用方绝不会看到同一用户存在两条活记录。
func (r *MemoryContactsRepo) CreateEmergencyContact(_ context.Context, contact domain.EmergencyContact) (*domain.EmergencyContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.contacts {
		if c.UserID == contact.UserID {
			delete(r.contacts, id)
		}
	}

	contact.ID = r.nextID
	r.nextID++
	r.contacts[contact.ID] = contact
	return &contact, nil
}

func (r *MemoryContactsRepo) UpdateEmergencyContact(_ context.Context, id int64, update ContactUpdate) (*domain.EmergencyContact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contacts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Name != nil {
		c.Name = *update.Name
	}
	if update.WhatsApp != nil {
		c.WhatsApp = *update.WhatsApp
	}
	r.contacts[id] = c
	return &c, nil
}

// MemoryAlarmConfigsRepo 内存报警配置存储（每用户恰好一条）
type MemoryAlarmConfigsRepo struct {
	mu      sync.RWMutex
	configs map[int64]domain.AlarmConfig
	nextID  int64
}

func NewMemoryAlarmConfigsRepo() *MemoryAlarmConfigsRepo {
	return &MemoryAlarmConfigsRepo{
		configs: map[int64]domain.AlarmConfig{},
		nextID:  1,
	}
}

func (r *MemoryAlarmConfigsRepo) GetAlarmConfigByUserID(_ context.Context, userID int64) (*domain.AlarmConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.configs {
		if c.UserID == userID {
			c := c
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// CreateAlarmConfig 原子替换（见 CreateEmergencyContact）
func (r *MemoryAlarmConfigsRepo) CreateAlarmConfig(_ context.Context, config domain.AlarmConfig) (*domain.AlarmConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.configs {
		if c.UserID == config.UserID {
			delete(r.configs, id)
		}
	}

	config.ID = r.nextID
	r.nextID++
	r.configs[config.ID] = config
	return &config, nil
}

func (r *MemoryAlarmConfigsRepo) UpdateAlarmConfig(_ context.Context, id int64, update AlarmConfigUpdate) (*domain.AlarmConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.configs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Time != nil {
		c.Time = *update.Time
	}
	if update.RepeatInterval != nil {
		c.RepeatInterval = *update.RepeatInterval
	}
	if update.Ringtone != nil {
		c.Ringtone = *update.Ringtone
	}
	if update.IsActive != nil {
		c.IsActive = *update.IsActive
	}
	if update.NextAlarm != nil {
		c.NextAlarm = *update.NextAlarm
	}
	r.configs[id] = c
	return &c, nil
}

func (r *MemoryAlarmConfigsRepo) ListActiveAlarmConfigs(_ context.Context) ([]domain.AlarmConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.AlarmConfig, 0, len(r.configs))
	for _, c := range r.configs {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

// AdvanceNextAlarm 比较并推进：当前值仍是 from 时才写入 to。
// compare+write 在锁内完成，竞态窗口不超过一次 fetch+update。
func (r *MemoryAlarmConfigsRepo) AdvanceNextAlarm(_ context.Context, id int64, from, to time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.configs[id]
	if !ok {
		return false, ErrNotFound
	}
	if !c.NextAlarm.Equal(from) {
		return false, nil
	}
	c.NextAlarm = to
	r.configs[id] = c
	return true, nil
}
