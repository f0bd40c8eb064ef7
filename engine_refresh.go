package authkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/authkit-go/authkit/internal/audit"
	"github.com/authkit-go/authkit/session"
	"github.com/authkit-go/authkit/token"
)

// Refresh exchanges a valid, still-live refresh token for a new pair. The
// exchange is atomic: the presented token is consumed and replaced in one
// step, so of any number of concurrent calls with the same token exactly one
// succeeds and the rest get [ErrTokenInvalid]. A token that verifies but no
// longer matches the stored copy is treated as reuse and also rejected.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	const op = "engine.Refresh"

	claims, err := e.codec.VerifyRefresh(refreshToken)
	if err != nil {
		e.metrics.incRefreshFailure()
		e.emit(ctx, audit.EventRefreshFailure, "", "", false, ErrTokenInvalid)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	newJTI := token.NewID()
	newAccess, err := e.codec.SignAccess(claims.UID, newJTI)
	if err != nil {
		return nil, fmt.Errorf("%s: sign access token: %w", op, err)
	}
	newRefresh, err := e.codec.SignRefresh(claims.UID, newJTI)
	if err != nil {
		return nil, fmt.Errorf("%s: sign refresh token: %w", op, err)
	}

	err = e.refresh.Rotate(ctx, claims.UID, claims.ID, refreshToken, newJTI, newRefresh, e.codec.RefreshTTL())
	switch {
	case err == nil:
	case errors.Is(err, session.ErrTokenMismatch):
		e.metrics.incRefreshReuse()
		e.emit(ctx, audit.EventRefreshReuseDetected, claims.UID, claims.ID, false, err)
		e.log.WarnContext(ctx, "refresh token reuse detected",
			slog.String("user_id", claims.UID), slog.String("jti", claims.ID))
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	case errors.Is(err, session.ErrNotFound):
		e.metrics.incRefreshFailure()
		e.emit(ctx, audit.EventRefreshFailure, claims.UID, claims.ID, false, err)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	default:
		return nil, fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	e.metrics.incRefreshSuccess()
	e.emit(ctx, audit.EventRefreshSuccess, claims.UID, newJTI, true, nil)

	return &TokenPair{AccessToken: newAccess, RefreshToken: newRefresh}, nil
}
