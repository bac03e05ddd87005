package mysql

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"artmarket/internal/domain"
)

type MySQLUserRepository struct {
	db *sql.DB
}

func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

// Upsert refreshes the local cache of the identity provider's view of a user.
// Role is only set on first insert; the admin surface owns it afterwards.
func (r *MySQLUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	query := `
        INSERT INTO users (id, email, display_name, role, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON DUPLICATE KEY UPDATE email = VALUES(email),
            display_name = VALUES(display_name), updated_at = VALUES(updated_at)
    `
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.DisplayName, string(user.Role),
		user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *MySQLUserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	query := `
        SELECT id, email, display_name, role, created_at, updated_at
        FROM users WHERE id = ?
    `
	var (
		user domain.User
		role string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.DisplayName, &role,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.NotFoundError{Kind: "user", ID: id}
		}
		return nil, err
	}
	user.Role = domain.UserRole(role)
	return &user, nil
}

func (r *MySQLUserRepository) UpdateRole(ctx context.Context, id string, role domain.UserRole) error {
	query := `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, string(role), time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(res, "user", id)
}

func (r *MySQLUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "user", id)
}
