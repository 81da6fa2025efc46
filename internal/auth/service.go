package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/irodav/gatehouse/internal/mail"
	"github.com/irodav/gatehouse/internal/model"
	"github.com/irodav/gatehouse/internal/repository"
	"github.com/irodav/gatehouse/internal/token"
)

// UserStore is the persistence contract the auth flows depend on. It is
// implemented by repository.UserRepo; tests substitute an in-memory fake.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	SetResetToken(ctx context.Context, id uint64, tokenHash string, exp time.Time) error
	ClearResetToken(ctx context.Context, id uint64) error
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
	ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string) (uint64, error)
}

// Invalidator drops a cached user record so the next resolution sees the
// stored one. Implemented by repository.UserCache. Invalidation always runs
// after the mutation it covers: dropping the entry first would let a
// concurrent read re-cache the old record and keep revoked tokens alive for
// the cache TTL.
type Invalidator interface {
	Invalidate(ctx context.Context, id uint64)
}

// Service composes the hasher, the token codec, the reset-token manager and
// the collaborators into the auth flows. All configuration is fixed at
// construction; a Service is safe for concurrent use.
type Service struct {
	Users      UserStore
	Cache      Invalidator
	Mail       mail.Sender
	Codec      *token.Codec
	BcryptCost int
	ResetTTL   time.Duration
	BaseURL    string // public base URL used in reset emails, no trailing slash
}

// Signup creates a user with the USER role and logs them in.
func (s *Service) Signup(ctx context.Context, name, email, password, passwordConfirm string) (model.User, string, error) {
	if email == "" || password == "" {
		return model.User{}, "", NewError(http.StatusBadRequest, "please provide email and password")
	}
	if err := checkNewPassword(password, passwordConfirm); err != nil {
		return model.User{}, "", err
	}

	hash, err := HashPassword(password, s.BcryptCost)
	if err != nil {
		return model.User{}, "", err
	}
	id, err := s.Users.Create(ctx, name, email, hash, model.RoleUser)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, "", ErrEmailExists
		}
		return model.User{}, "", err
	}
	return s.login(ctx, id)
}

// Login verifies an email/password pair and issues a session token. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (model.User, string, error) {
	if email == "" || password == "" {
		return model.User{}, "", NewError(http.StatusBadRequest, "please provide email and password")
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, "", ErrInvalidCredentials
		}
		return model.User{}, "", err
	}
	if !VerifyPassword(u.PasswordHash, password) {
		return model.User{}, "", ErrInvalidCredentials
	}

	tok, err := s.Codec.Issue(u.ID)
	if err != nil {
		return model.User{}, "", err
	}
	return u, tok, nil
}

// ForgotPassword issues a reset token for the account behind email and mails
// the reset link. Only the token's digest is persisted; if the email cannot
// be handed off the pending token is cleared again before the error
// surfaces, so a token the user never received can never be redeemed.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return NewError(http.StatusBadRequest, "please provide an email address")
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEmailNotFound
		}
		return err
	}

	rt, err := NewResetToken(s.ResetTTL)
	if err != nil {
		return err
	}
	if err := s.Users.SetResetToken(ctx, u.ID, rt.Hash, rt.Exp); err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, u.ID)

	resetURL := fmt.Sprintf("%s/v1/auth/reset-password/%s", s.BaseURL, rt.Raw)
	msg := mail.Message{
		To:      u.Email,
		Subject: fmt.Sprintf("Your password reset token (valid for %d min)", int(s.ResetTTL.Minutes())),
		Body: fmt.Sprintf("Forgot your password? Submit a PATCH request with your new password and password_confirm to: %s\n"+
			"If you didn't forget your password, please ignore this email.", resetURL),
	}
	if err := s.Mail.Send(ctx, msg); err != nil {
		// Compensating rollback: the token must not stay valid when the
		// user was never told it exists.
		if rbErr := s.Users.ClearResetToken(ctx, u.ID); rbErr != nil {
			log.Printf("forgot-password: clearing reset token for user %d failed: %v", u.ID, rbErr)
		}
		s.Cache.Invalidate(ctx, u.ID)
		return ErrDeliveryFailed
	}
	return nil
}

// ResetPassword redeems a reset token, sets the new password and logs the
// user in. Redemption and the password write are one atomic store update.
func (s *Service) ResetPassword(ctx context.Context, rawToken, password, passwordConfirm string) (model.User, string, error) {
	if err := checkNewPassword(password, passwordConfirm); err != nil {
		return model.User{}, "", err
	}
	hash, err := HashPassword(password, s.BcryptCost)
	if err != nil {
		return model.User{}, "", err
	}
	id, err := s.Users.ConsumePasswordReset(ctx, HashResetToken(rawToken), hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, "", ErrResetToken
		}
		return model.User{}, "", err
	}
	s.Cache.Invalidate(ctx, id)
	return s.login(ctx, id)
}

// UpdatePassword changes the password of an authenticated user after
// re-verifying the current one, then issues a fresh session token. Older
// tokens die at the next freshness check.
func (s *Service) UpdatePassword(ctx context.Context, user model.User, current, newPassword, newPasswordConfirm string) (model.User, string, error) {
	if !VerifyPassword(user.PasswordHash, current) {
		return model.User{}, "", ErrInvalidCredentials
	}
	if err := checkNewPassword(newPassword, newPasswordConfirm); err != nil {
		return model.User{}, "", err
	}
	hash, err := HashPassword(newPassword, s.BcryptCost)
	if err != nil {
		return model.User{}, "", err
	}
	if err := s.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return model.User{}, "", err
	}
	s.Cache.Invalidate(ctx, user.ID)
	return s.login(ctx, user.ID)
}

// login loads the current record for id and issues a session token bound to
// it. Used by the flows that mutate a user and must hand back the mutated
// record, not a stale copy.
func (s *Service) login(ctx context.Context, id uint64) (model.User, string, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, "", err
	}
	tok, err := s.Codec.Issue(u.ID)
	if err != nil {
		return model.User{}, "", err
	}
	return u, tok, nil
}

func checkNewPassword(password, confirm string) *Error {
	if password == "" {
		return NewError(http.StatusBadRequest, "please provide a password")
	}
	if len(password) < 8 {
		return NewError(http.StatusBadRequest, "password must be at least 8 characters")
	}
	if password != confirm {
		return NewError(http.StatusBadRequest, "passwords do not match")
	}
	return nil
}
