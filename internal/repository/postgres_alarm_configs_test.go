package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
)

func domainAlarmConfig(next time.Time) domain.AlarmConfig {
	return domain.AlarmConfig{
		UserID:         10,
		Time:           "08:00",
		RepeatInterval: 12,
		Ringtone:       "tone-1",
		IsActive:       true,
		NextAlarm:      next,
	}
}

func setupMockAlarmConfigsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresAlarmConfigsRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresAlarmConfigsRepo(db, zap.NewNop())
	return db, mock, repo
}

func alarmConfigRows(next time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "time", "repeat_interval", "ringtone", "is_active", "next_alarm",
	}).AddRow(int64(1), int64(10), "08:00", 12, "tone-1", true, next)
}

func TestGetAlarmConfigByUserID_Success(t *testing.T) {
	db, mock, repo := setupMockAlarmConfigsDB(t)
	defer db.Close()

	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(10)).
		WillReturnRows(alarmConfigRows(next))

	config, err := repo.GetAlarmConfigByUserID(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, int64(1), config.ID)
	assert.Equal(t, int64(10), config.UserID)
	assert.Equal(t, "08:00", config.Time)
	assert.Equal(t, 12, config.RepeatInterval)
	assert.True(t, config.NextAlarm.Equal(next))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAlarmConfigByUserID_NotFound(t *testing.T) {
	db, mock, repo := setupMockAlarmConfigsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(10)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetAlarmConfigByUserID(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

// 替换式创建：同一事务先删旧配置再插入
func TestCreateAlarmConfig_ReplacesPrevious(t *testing.T) {
	db, mock, repo := setupMockAlarmConfigsDB(t)
	defer db.Close()

	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM alarm_configs`).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO alarm_configs`).
		WithArgs(int64(10), "08:00", 12, "tone-1", true, next).
		WillReturnRows(alarmConfigRows(next))
	mock.ExpectCommit()

	config, err := repo.CreateAlarmConfig(context.Background(), domainAlarmConfig(next))

	require.NoError(t, err)
	assert.Equal(t, int64(1), config.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAlarmConfig_PartialSet(t *testing.T) {
	db, mock, repo := setupMockAlarmConfigsDB(t)
	defer db.Close()

	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	active := false

	mock.ExpectQuery(`UPDATE alarm_configs SET is_active = \$1 WHERE id = \$2`).
		WithArgs(false, int64(1)).
		WillReturnRows(alarmConfigRows(next))

	config, err := repo.UpdateAlarmConfig(context.Background(), 1, AlarmConfigUpdate{IsActive: &active})

	require.NoError(t, err)
	assert.Equal(t, int64(1), config.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveAlarmConfigs(t *testing.T) {
	db, mock, repo := setupMockAlarmConfigsDB(t)
	defer db.Close()

	next := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM alarm_configs WHERE is_active = TRUE`).
		WillReturnRows(alarmConfigRows(next))

	configs, err := repo.ListActiveAlarmConfigs(context.Background())

	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, int64(10), configs[0].UserID)
}

// 条件推进：影响行数决定胜负
func TestAdvanceNextAlarm(t *testing.T) {
	db, mock, repo := setupMockAlarmConfigsDB(t)
	defer db.Close()

	from := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	to := from.Add(12 * time.Hour)

	mock.ExpectExec(`UPDATE alarm_configs SET next_alarm = \$1 WHERE id = \$2 AND next_alarm = \$3`).
		WithArgs(to, int64(1), from).
		WillReturnResult(sqlmock.NewResult(0, 1))

	advanced, err := repo.AdvanceNextAlarm(context.Background(), 1, from, to)
	require.NoError(t, err)
	assert.True(t, advanced)

	// 输掉竞争：0 行受影响
	mock.ExpectExec(`UPDATE alarm_configs SET next_alarm`).
		WithArgs(to, int64(1), from).
		WillReturnResult(sqlmock.NewResult(0, 0))

	advanced, err = repo.AdvanceNextAlarm(context.Background(), 1, from, to)
	require.NoError(t, err)
	assert.False(t, advanced)
	assert.NoError(t, mock.ExpectationsWereMet())
}
