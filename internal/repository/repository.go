package repository

import (
	"context"
	"errors"
	"time"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
)

// ErrNotFound 实体不存在（正常情况，不是异常）
var ErrNotFound = errors.New("record not found")

// UserUpdate 用户部分更新（未设置的字段保持不变）
type UserUpdate struct {
	Email     *string
	Password  *string
	FullName  *string
	Phone     *string
	BirthDate *string
}

// ContactUpdate 紧急联系人部分更新
type ContactUpdate struct {
	Name     *string
	WhatsApp *string
}

// AlarmConfigUpdate 报警配置部分更新
// 显式可选字段结构，不用 map（字段白名单在 HTTP 边界校验）。
type AlarmConfigUpdate struct {
	Time           *string
	RepeatInterval *int
	Ringtone       *string
	IsActive       *bool
	NextAlarm      *time.Time
}

// UserRepo 用户存储
type UserRepo interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, id int64, update UserUpdate) (*domain.User, error)
}

// ContactRepo 紧急联系人存储（replace-on-create：同一用户只保留一条）
type ContactRepo interface {
	GetEmergencyContactByUserID(ctx context.Context, userID int64) (*domain.EmergencyContact, error)
	CreateEmergencyContact(ctx context.Context, contact domain.EmergencyContact) (*domain.EmergencyContact, error)
	UpdateEmergencyContact(ctx context.Context, id int64, update ContactUpdate) (*domain.EmergencyContact, error)
}

// AlarmConfigRepo 报警配置存储
type AlarmConfigRepo interface {
	GetAlarmConfigByUserID(ctx context.Context, userID int64) (*domain.AlarmConfig, error)
	CreateAlarmConfig(ctx context.Context, config domain.AlarmConfig) (*domain.AlarmConfig, error)
	UpdateAlarmConfig(ctx context.Context, id int64, update AlarmConfigUpdate) (*domain.AlarmConfig, error)

	// ListActiveAlarmConfigs 返回所有 is_active=true 的配置（Reconciler 扫描用）
	ListActiveAlarmConfigs(ctx context.Context) ([]domain.AlarmConfig, error)

	// AdvanceNextAlarm 条件推进：仅当当前 next_alarm 仍等于 from 时写入 to。
	// 返回 false 表示别的写者（客户端或另一次 Reconciler pass）已经推进过。
	AdvanceNextAlarm(ctx context.Context, id int64, from, to time.Time) (bool, error)
}
