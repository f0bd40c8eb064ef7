package authkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/authkit-go/authkit/internal/audit"
)

// Login verifies the email/password pair and issues a fresh token pair.
// Unknown emails yield [ErrAccountNotFound]; a wrong password, or an account
// with no password login configured, yields [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, email, pw string) (*TokenPair, error) {
	const op = "engine.Login"

	user, err := e.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.metrics.incLoginFailure()
			e.emit(ctx, audit.EventLoginFailure, "", "", false, ErrAccountNotFound)
			return nil, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	if user.PasswordHash == "" || user.PasswordSalt == "" ||
		!e.hasher.Verify(pw, user.PasswordSalt, user.PasswordHash) {
		e.metrics.incLoginFailure()
		e.emit(ctx, audit.EventLoginFailure, uidString(user.ID), "", false, ErrInvalidCredentials)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := e.issueTokens(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e.metrics.incLoginSuccess()
	e.emit(ctx, audit.EventLoginSuccess, uidString(user.ID), "", true, nil)
	e.log.InfoContext(ctx, "login", slog.Int64("user_id", user.ID))

	return pair, nil
}
