package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
)

// PostgresContactsRepo 紧急联系人仓库（对应 emergency_contacts 表）
type PostgresContactsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresContactsRepo(db *sql.DB, logger *zap.Logger) *PostgresContactsRepo {
	return &PostgresContactsRepo{
		db:     db,
		logger: logger,
	}
}

const contactColumns = `id, user_id, name, whatsapp`

func scanContact(row *sql.Row) (*domain.EmergencyContact, error) {
	var c domain.EmergencyContact
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.WhatsApp)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan emergency contact: %w", err)
	}
	return &c, nil
}

func (r *PostgresContactsRepo) GetEmergencyContactByUserID(ctx context.Context, userID int64) (*domain.EmergencyContact, error) {
	query := fmt.Sprintf(`SELECT %s FROM emergency_contacts WHERE user_id = $1`, contactColumns)
	return scanContact(r.db.QueryRowContext(ctx, query, userID))
}

// CreateEmergencyContact 替换式创建：同一事务里先删掉该用户的旧联系人。
// 保证任何时刻一个用户最多一条活记录。
func (r *PostgresContactsRepo) CreateEmergencyContact(ctx context.Context, contact domain.EmergencyContact) (*domain.EmergencyContact, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM emergency_contacts WHERE user_id = $1`, contact.UserID); err != nil {
		return nil, fmt.Errorf("failed to delete previous emergency contact: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO emergency_contacts (user_id, name, whatsapp)
		VALUES ($1, $2, $3)
		RETURNING %s`, contactColumns)

	var c domain.EmergencyContact
	if err := tx.QueryRowContext(ctx, query, contact.UserID, contact.Name, contact.WhatsApp).
		Scan(&c.ID, &c.UserID, &c.Name, &c.WhatsApp); err != nil {
		return nil, fmt.Errorf("failed to create emergency contact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit emergency contact: %w", err)
	}
	return &c, nil
}

func (r *PostgresContactsRepo) UpdateEmergencyContact(ctx context.Context, id int64, update ContactUpdate) (*domain.EmergencyContact, error) {
	setParts := []string{}
	args := []interface{}{}
	argN := 1

	if update.Name != nil {
		setParts = append(setParts, fmt.Sprintf("name = $%d", argN))
		args = append(args, *update.Name)
		argN++
	}
	if update.WhatsApp != nil {
		setParts = append(setParts, fmt.Sprintf("whatsapp = $%d", argN))
		args = append(args, *update.WhatsApp)
		argN++
	}

	if len(setParts) == 0 {
		query := fmt.Sprintf(`SELECT %s FROM emergency_contacts WHERE id = $1`, contactColumns)
		return scanContact(r.db.QueryRowContext(ctx, query, id))
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE emergency_contacts SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setParts, ", "), argN, contactColumns)

	return scanContact(r.db.QueryRowContext(ctx, query, args...))
}
