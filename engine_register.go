package authkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/authkit-go/authkit/internal/audit"
	"github.com/authkit-go/authkit/password"
)

// Password length bounds, in bytes. The upper bound keeps password+salt
// inside bcrypt's 72-byte input limit with room for the 10-character salt.
const (
	minPasswordLen = 6
	maxPasswordLen = 62
)

// RegisterInput is the input for [Engine.Register].
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	if len(pw) > maxPasswordLen {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordLen)
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: malformed email address", ErrValidation)
	}
	return nil
}

// Register creates a user account with a salted password hash and returns
// its public projection. A taken email yields [ErrUserExists].
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*PublicUser, error) {
	const op = "engine.Register"

	if err := validateEmail(input.Email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	salt, err := password.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("%s: generate salt: %w", op, err)
	}
	hash, err := e.hasher.Hash(input.Password, salt)
	if err != nil {
		return nil, fmt.Errorf("%s: hash password: %w", op, err)
	}

	user, err := e.users.CreateUser(ctx, CreateUserInput{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: hash,
		PasswordSalt: salt,
		Role:         "user",
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			e.metrics.incRegisterDuplicate()
			e.emit(ctx, audit.EventRegister, "", "", false, ErrUserExists)
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return nil, fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	e.metrics.incRegisterSuccess()
	e.emit(ctx, audit.EventRegister, uidString(user.ID), "", true, nil)
	e.log.InfoContext(ctx, "user registered", slog.Int64("user_id", user.ID))

	return user.Public(), nil
}
