package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/rental-booking/internal/model"
)

// UserRepo reads the users table. Registration and approval live outside
// this service; the booking workflow only looks users up.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userSelect = "SELECT id, email, password_hash, full_name, role, approval_status, created_at, updated_at FROM users "

func scanUser(row scanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Role, &u.ApprovalStatus, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetUserByEmail fetches a user by normalized email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx, userSelect+"WHERE email = ? LIMIT 1", email))
	if err != nil {
		return model.User{}, mapErr(err, "user %q", email)
	}
	return u, nil
}

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, userSelect+"WHERE id = ? LIMIT 1", id))
	if err != nil {
		return model.User{}, mapErr(err, "user %d", id)
	}
	return u, nil
}

// PropertyRepo reads the properties table.
type PropertyRepo struct{ DB *sql.DB }

func NewPropertyRepo(db *sql.DB) *PropertyRepo { return &PropertyRepo{DB: db} }

// GetProperty fetches the fields of a property the booking workflow needs.
func (r *PropertyRepo) GetProperty(ctx context.Context, id uint64) (model.Property, error) {
	var p model.Property
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, owner_id, title, rent, deposit, status FROM properties WHERE id = ? LIMIT 1", id,
	).Scan(&p.ID, &p.OwnerID, &p.Title, &p.Rent, &p.Deposit, &p.Status)
	if err != nil {
		return model.Property{}, mapErr(err, "property %d", id)
	}
	return p, nil
}

// Directory combines user and property lookups.
type Directory struct {
	*UserRepo
	*PropertyRepo
}

func NewDirectory(db *sql.DB) *Directory {
	return &Directory{UserRepo: NewUserRepo(db), PropertyRepo: NewPropertyRepo(db)}
}
