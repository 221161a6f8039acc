package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
)

// PostgresAlarmConfigsRepo 报警配置仓库（对应 alarm_configs 表）
type PostgresAlarmConfigsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresAlarmConfigsRepo(db *sql.DB, logger *zap.Logger) *PostgresAlarmConfigsRepo {
	return &PostgresAlarmConfigsRepo{
		db:     db,
		logger: logger,
	}
}

const alarmConfigColumns = `id, user_id, time, repeat_interval, ringtone, is_active, next_alarm`

func scanAlarmConfig(row *sql.Row) (*domain.AlarmConfig, error) {
	var c domain.AlarmConfig
	err := row.Scan(&c.ID, &c.UserID, &c.Time, &c.RepeatInterval, &c.Ringtone, &c.IsActive, &c.NextAlarm)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan alarm config: %w", err)
	}
	return &c, nil
}

func (r *PostgresAlarmConfigsRepo) GetAlarmConfigByUserID(ctx context.Context, userID int64) (*domain.AlarmConfig, error) {
	query := fmt.Sprintf(`SELECT %s FROM alarm_configs WHERE user_id = $1`, alarmConfigColumns)
	return scanAlarmConfig(r.db.QueryRowContext(ctx, query, userID))
}

// CreateAlarmConfig 替换式创建：同一事务里删掉该用户的旧配置再插入。
func (r *PostgresAlarmConfigsRepo) CreateAlarmConfig(ctx context.Context, config domain.AlarmConfig) (*domain.AlarmConfig, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM alarm_configs WHERE user_id = $1`, config.UserID); err != nil {
		return nil, fmt.Errorf("failed to delete previous alarm config: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO alarm_configs (user_id, time, repeat_interval, ringtone, is_active, next_alarm)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, alarmConfigColumns)

	var c domain.AlarmConfig
	if err := tx.QueryRowContext(ctx, query,
		config.UserID, config.Time, config.RepeatInterval, config.Ringtone, config.IsActive, config.NextAlarm,
	).Scan(&c.ID, &c.UserID, &c.Time, &c.RepeatInterval, &c.Ringtone, &c.IsActive, &c.NextAlarm); err != nil {
		return nil, fmt.Errorf("failed to create alarm config: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit alarm config: %w", err)
	}
	return &c, nil
}

func (r *PostgresAlarmConfigsRepo) UpdateAlarmConfig(ctx context.Context, id int64, update AlarmConfigUpdate) (*domain.AlarmConfig, error) {
	setParts := []string{}
	args := []interface{}{}
	argN := 1

	addSet := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argN))
		args = append(args, value)
		argN++
	}

	if update.Time != nil {
		addSet("time", *update.Time)
	}
	if update.RepeatInterval != nil {
		addSet("repeat_interval", *update.RepeatInterval)
	}
	if update.Ringtone != nil {
		addSet("ringtone", *update.Ringtone)
	}
	if update.IsActive != nil {
		addSet("is_active", *update.IsActive)
	}
	if update.NextAlarm != nil {
		addSet("next_alarm", *update.NextAlarm)
	}

	if len(setParts) == 0 {
		query := fmt.Sprintf(`SELECT %s FROM alarm_configs WHERE id = $1`, alarmConfigColumns)
		return scanAlarmConfig(r.db.QueryRowContext(ctx, query, id))
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE alarm_configs SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setParts, ", "), argN, alarmConfigColumns)

	return scanAlarmConfig(r.db.QueryRowContext(ctx, query, args...))
}

// ListActiveAlarmConfigs Reconciler 扫描入口：所有 is_active=true 的配置
func (r *PostgresAlarmConfigsRepo) ListActiveAlarmConfigs(ctx context.Context) ([]domain.AlarmConfig, error) {
	query := fmt.Sprintf(`SELECT %s FROM alarm_configs WHERE is_active = TRUE ORDER BY id`, alarmConfigColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active alarm configs: %w", err)
	}
	defer rows.Close()

	configs := []domain.AlarmConfig{}
	for rows.Next() {
		var c domain.AlarmConfig
		if err := rows.Scan(&c.ID, &c.UserID, &c.Time, &c.RepeatInterval, &c.Ringtone, &c.IsActive, &c.NextAlarm); err != nil {
			return nil, fmt.Errorf("failed to scan alarm config: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alarm configs: %w", err)
	}
	return configs, nil
}

// AdvanceNextAlarm 条件推进：WHERE 带上旧值，丢失竞争的写者影响 0 行。
// 客户端升级路径和 Reconciler 对同一记录计算相同的后继值，last-writer-wins 安全。
func (r *PostgresAlarmConfigsRepo) AdvanceNextAlarm(ctx context.Context, id int64, from, to time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alarm_configs SET next_alarm = $1 WHERE id = $2 AND next_alarm = $3`,
		to, id, from,
	)
	if err != nil {
		return false, fmt.Errorf("failed to advance next alarm: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}
