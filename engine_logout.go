package authkit

import (
	"context"
	"log/slog"
	"time"

	"github.com/authkit-go/authkit/internal/audit"
)

// defaultRevokeTTL is used for blacklist entries when the token carries no
// usable expiry claim.
const defaultRevokeTTL = 60 * time.Second

// Logout revokes the presented access token and drops the refresh token
// issued alongside it. It never fails: an unverifiable token is ignored, and
// a store failure is logged and counted but not surfaced, so clients can
// always clear their local session.
func (e *Engine) Logout(ctx context.Context, accessToken string) {
	claims, err := e.codec.VerifyAccessIgnoreExpiry(accessToken)
	if err != nil {
		// Nothing to revoke; the token could never have authenticated.
		e.log.DebugContext(ctx, "logout with unverifiable token", slog.Any("error", err))
		return
	}

	ttl := defaultRevokeTTL
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		} else {
			ttl = time.Second
		}
	}

	if err := e.blacklist.Revoke(ctx, claims.UID, claims.ID, ttl); err != nil {
		e.metrics.incLogoutStoreFailure()
		e.log.WarnContext(ctx, "logout: blacklist write failed",
			slog.String("user_id", claims.UID), slog.Any("error", err))
	}
	if err := e.refresh.Delete(ctx, claims.UID, claims.ID); err != nil {
		e.metrics.incLogoutStoreFailure()
		e.log.WarnContext(ctx, "logout: refresh delete failed",
			slog.String("user_id", claims.UID), slog.Any("error", err))
	}

	e.metrics.incLogout()
	e.emit(ctx, audit.EventLogout, claims.UID, claims.ID, true, nil)
}
