package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/atum2025/backend-safewakeapp/internal/domain"
)

// PostgresUsersRepo 用户仓库（对应 users 表）
type PostgresUsersRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresUsersRepo(db *sql.DB, logger *zap.Logger) *PostgresUsersRepo {
	return &PostgresUsersRepo{
		db:     db,
		logger: logger,
	}
}

const userColumns = `id, email, password, full_name, phone, birth_date`

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var phone, birthDate sql.NullString

	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &phone, &birthDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if phone.Valid {
		u.Phone = phone.String
	}
	if birthDate.Valid {
		u.BirthDate = birthDate.String
	}
	return &u, nil
}

func (r *PostgresUsersRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresUsersRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	// email 唯一且大小写不敏感
	query := fmt.Sprintf(`SELECT %s FROM users WHERE LOWER(email) = LOWER($1)`, userColumns)
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresUsersRepo) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	query := fmt.Sprintf(`
		INSERT INTO users (email, password, full_name, phone, birth_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING %s`, userColumns)

	return scanUser(r.db.QueryRowContext(ctx, query,
		user.Email,
		user.Password,
		user.FullName,
		nullString(user.Phone),
		nullString(user.BirthDate),
	))
}

func (r *PostgresUsersRepo) UpdateUser(ctx context.Context, id int64, update UserUpdate) (*domain.User, error) {
	setParts := []string{}
	args := []interface{}{}
	argN := 1

	addSet := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argN))
		args = append(args, value)
		argN++
	}

	if update.Email != nil {
		addSet("email", *update.Email)
	}
	if update.Password != nil {
		addSet("password", *update.Password)
	}
	if update.FullName != nil {
		addSet("full_name", *update.FullName)
	}
	if update.Phone != nil {
		addSet("phone", *update.Phone)
	}
	if update.BirthDate != nil {
		addSet("birth_date", *update.BirthDate)
	}

	if len(setParts) == 0 {
		return r.GetUser(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setParts, ", "), argN, userColumns)

	return scanUser(r.db.QueryRowContext(ctx, query, args...))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
