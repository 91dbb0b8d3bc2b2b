package repository

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/campus-booking/internal/model"
)

const userColumns = "id, first_name, last_name, email, password_hash, role, is_active, created_at, updated_at"

// UserRepo reads and creates rows of the users table.
type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts u and fills its ID.  The e-mail is normalised first;
// a taken address yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	q, args, err := qb.Insert("users").
		Columns("first_name", "last_name", "email", "password_hash", "role").
		Values(u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Role).
		ToSql()
	if err != nil {
		return wrap(err, "build user insert")
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return wrap(err, "insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wrap(err, "user id")
	}
	u.ID = uint64(id)
	u.IsActive = true
	return nil
}

// GetByEmail fetches a user by normalised e-mail.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
	return u, wrap(err, "get user by email")
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return u, wrap(err, "get user by id")
}

// ListByRoles returns the active users holding any of roles.
func (r *UserRepo) ListByRoles(ctx context.Context, roles ...model.Role) ([]model.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	q, args, err := qb.Select(strings.Split(userColumns, ", ")...).
		From("users").
		Where(sq.Eq{"role": roles, "is_active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, wrap(err, "build users by role")
	}
	var users []model.User
	if err := r.db.SelectContext(ctx, &users, q, args...); err != nil {
		return nil, wrap(err, "list users by role")
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
