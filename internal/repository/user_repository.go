package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/irodav/gatehouse/internal/model"
)

const userColumns = "id,name,email,password_hash,role,password_changed_at,reset_token_hash,reset_token_expires_at,is_active,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user with an already-hashed password and returns its ID.
// password_changed_at starts at the insert instant so freshly issued tokens
// are never considered stale.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role, password_changed_at) VALUES (?,?,?,?,UTC_TIMESTAMP())",
		name, email, passwordHash, role)
	if err != nil {
		// 1062 = MySQL duplicate entry, here only possible on the email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// SetResetToken stores the digest and expiry of a newly issued reset token,
// overwriting any previous one for the user.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token_hash=?, reset_token_expires_at=? WHERE id=?",
		tokenHash, exp.UTC(), id)
	return err
}

// ClearResetToken removes a pending reset token, used as the compensating
// rollback when the reset email could not be delivered.
func (r *UserRepo) ClearResetToken(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token_hash=NULL, reset_token_expires_at=NULL WHERE id=?", id)
	return err
}

// UpdatePassword sets a new password hash, bumps password_changed_at and
// clears any pending reset token in a single statement. Session tokens
// issued before this call fail the freshness check from here on.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, password_changed_at=UTC_TIMESTAMP(), reset_token_hash=NULL, reset_token_expires_at=NULL WHERE id=?",
		passwordHash, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumePasswordReset atomically redeems a reset token: the password is set
// and both reset fields cleared in one UPDATE whose predicate re-checks the
// digest match and the expiry. A consumed, expired or unknown token affects
// zero rows and yields ErrNotFound, so a token can never be redeemed twice
// and a half-applied state is never observable.
func (r *UserRepo) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string) (uint64, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE reset_token_hash=? AND reset_token_expires_at > UTC_TIMESTAMP() LIMIT 1",
		tokenHash).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, password_changed_at=UTC_TIMESTAMP(), reset_token_hash=NULL, reset_token_expires_at=NULL "+
			"WHERE id=? AND reset_token_hash=? AND reset_token_expires_at > UTC_TIMESTAMP()",
		passwordHash, id, tokenHash)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		// Lost the race with a concurrent consumption or the expiry.
		return 0, ErrNotFound
	}
	return id, nil
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u         model.User
		resetHash sql.NullString
		resetExp  sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.PasswordChangedAt, &resetHash, &resetExp,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	if resetHash.Valid {
		u.ResetTokenHash = &resetHash.String
	}
	if resetExp.Valid {
		t := resetExp.Time
		u.ResetTokenExpires = &t
	}
	return u, nil
}
