package authkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/authkit-go/authkit/internal/audit"
	"github.com/authkit-go/authkit/internal/random"
	"github.com/authkit-go/authkit/password"
)

const resetMailSubject = "Password reset"

func (e *Engine) resetLink(email, rawToken string) string {
	return fmt.Sprintf("%s/reset-password?token=%s&email=%s",
		e.cfg.FrontendURL, url.QueryEscape(rawToken), url.QueryEscape(email))
}

func resetMailBodies(link string) (text, html string) {
	text = "A password reset was requested for your account.\n\n" +
		"Open the link below within 15 minutes to choose a new password:\n\n" +
		link + "\n\nIf you did not request this, you can ignore this message.\n"
	html = "<p>A password reset was requested for your account.</p>" +
		"<p><a href=\"" + link + "\">Reset your password</a> (valid for 15 minutes).</p>" +
		"<p>If you did not request this, you can ignore this message.</p>"
	return text, html
}

// ForgotPassword starts the reset flow for email: any previous reset tokens
// are invalidated, a fresh single-use token is stored hashed with a 15-minute
// expiry, and the raw token is mailed as a link. A failed send is logged but
// not surfaced; the token stays usable if the mail arrives late.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	const op = "engine.ForgotPassword"

	user, err := e.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	if err := e.users.DeleteResetTokensForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	raw, err := random.Hex(e.resetLength)
	if err != nil {
		return fmt.Errorf("%s: generate token: %w", op, err)
	}
	hash, err := e.hasher.HashToken(raw)
	if err != nil {
		return fmt.Errorf("%s: hash token: %w", op, err)
	}

	expires := time.Now().Add(e.resetTTL)
	if _, err := e.users.CreateResetToken(ctx, user.ID, hash, expires); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	text, html := resetMailBodies(e.resetLink(email, raw))
	if err := e.mailer.SendMail(ctx, email, resetMailSubject, text, html); err != nil {
		e.log.WarnContext(ctx, "reset mail send failed",
			slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	e.metrics.incResetRequested()
	e.emit(ctx, audit.EventResetRequested, uidString(user.ID), "", true, nil)
	e.log.InfoContext(ctx, "password reset requested", slog.Int64("user_id", user.ID))

	return nil
}

// ResetPassword completes the flow: rawToken must match the user's latest
// stored token, which must be unexpired and unconsumed. The password change
// and the token consumption commit together. Every way the token can be bad
// yields the same [ErrResetInvalid] so callers learn nothing from failures.
func (e *Engine) ResetPassword(ctx context.Context, email, rawToken, newPassword string) error {
	const op = "engine.ResetPassword"

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := e.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.rejectReset(ctx, "", errors.New("unknown account"))
			return fmt.Errorf("%s: %w", op, ErrResetInvalid)
		}
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	uid := uidString(user.ID)

	stored, err := e.users.LatestResetToken(ctx, user.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.rejectReset(ctx, uid, errors.New("no reset token"))
			return fmt.Errorf("%s: %w", op, ErrResetInvalid)
		}
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	switch {
	case stored.Consumed:
		e.rejectReset(ctx, uid, errors.New("token consumed"))
		return fmt.Errorf("%s: %w", op, ErrResetInvalid)
	case time.Now().After(stored.ExpiresAt):
		e.rejectReset(ctx, uid, errors.New("token expired"))
		return fmt.Errorf("%s: %w", op, ErrResetInvalid)
	case !e.hasher.VerifyToken(rawToken, stored.TokenHash):
		e.rejectReset(ctx, uid, errors.New("token mismatch"))
		return fmt.Errorf("%s: %w", op, ErrResetInvalid)
	}

	salt := user.PasswordSalt
	if salt == "" {
		if salt, err = password.NewSalt(); err != nil {
			return fmt.Errorf("%s: generate salt: %w", op, err)
		}
	}
	hash, err := e.hasher.Hash(newPassword, salt)
	if err != nil {
		return fmt.Errorf("%s: hash password: %w", op, err)
	}

	err = e.users.UpdatePasswordAndConsumeToken(ctx, user.ID, hash, salt, stored.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Lost the race with a concurrent reset; the token is gone.
			e.rejectReset(ctx, uid, err)
			return fmt.Errorf("%s: %w", op, ErrResetInvalid)
		}
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	e.metrics.incResetConfirmed()
	e.emit(ctx, audit.EventResetConfirmed, uid, "", true, nil)
	e.log.InfoContext(ctx, "password reset", slog.Int64("user_id", user.ID))

	return nil
}

func (e *Engine) rejectReset(ctx context.Context, uid string, cause error) {
	e.metrics.incResetRejected()
	e.emit(ctx, audit.EventResetRejected, uid, "", false, cause)
}
