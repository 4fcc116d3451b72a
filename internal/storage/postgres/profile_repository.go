package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventflow/platform/internal/domain"
)

type ProfileRepository struct {
	db
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db{pool: pool}}
}

func (r *ProfileRepository) GetUserBySubject(ctx context.Context, subject string) (domain.User, error) {
	const query = `
SELECT u.id, u.subject, u.email, u.name, u.created_at, u.updated_at,
	COALESCE(array_agg(ur.role ORDER BY ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}')
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
WHERE u.subject = $1
GROUP BY u.id`

	var u domain.User
	err := r.queryRow(ctx, query, subject).
		Scan(&u.ID, &u.Subject, &u.Email, &u.Name, &u.CreatedAt, &u.UpdatedAt, &u.Roles)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// CreateUser is a no-op when a profile for the subject already exists.
func (r *ProfileRepository) CreateUser(ctx context.Context, user domain.User) error {
	const stmt = `
INSERT INTO users (id, subject, email, name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT ON CONSTRAINT users_subject_key DO NOTHING`

	_, err := r.exec(ctx, stmt, user.ID, user.Subject, user.Email, user.Name, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *ProfileRepository) UpdateUser(ctx context.Context, user domain.User) error {
	const stmt = `UPDATE users SET email = $2, name = $3, updated_at = $4 WHERE subject = $1`

	tag, err := r.exec(ctx, stmt, user.Subject, user.Email, user.Name, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *ProfileRepository) AddRole(ctx context.Context, role domain.RoleAssignment) error {
	const stmt = `INSERT INTO user_roles (id, user_id, role, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.exec(ctx, stmt, role.ID, role.UserID, role.Role, role.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrRoleAlreadyAssigned
		}
		if isForeignKeyViolation(err) || isInvalidUUID(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("add role: %w", err)
	}
	return nil
}

// EnsureRole assigns role unless the user already holds it.
func (r *ProfileRepository) EnsureRole(ctx context.Context, role domain.RoleAssignment) error {
	const stmt = `
INSERT INTO user_roles (id, user_id, role, created_at) VALUES ($1, $2, $3, $4)
ON CONFLICT ON CONSTRAINT user_roles_user_role_key DO NOTHING`

	_, err := r.exec(ctx, stmt, role.ID, role.UserID, role.Role, role.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) || isInvalidUUID(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("ensure role: %w", err)
	}
	return nil
}

func (r *ProfileRepository) RemoveRole(ctx context.Context, userID, role string) error {
	tag, err := r.exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("remove role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoleNotFound
	}
	return nil
}
