package authkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/authkit-go/authkit/internal/audit"
	"github.com/authkit-go/authkit/password"
	"github.com/authkit-go/authkit/session"
	"github.com/authkit-go/authkit/token"
)

// Engine implements the authentication lifecycle: registration, password
// login, access/refresh issuance with single-use rotation, blacklist-backed
// logout, and the mailed password-reset flow. Construct one with [New] and
// share it; all methods are safe for concurrent use.
type Engine struct {
	cfg       Config
	users     UserStore
	mailer    Mailer
	codec     *token.Codec
	hasher    *password.Hasher
	refresh   *session.RefreshStore
	blacklist *session.BlacklistStore
	audit     *audit.Dispatcher
	metrics   *Metrics
	log       *slog.Logger

	resetTTL    time.Duration
	resetLength int
}

// Metrics returns the engine's counters, or nil when metrics are disabled.
func (e *Engine) Metrics() *Metrics { return e.metrics }

func uidString(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// Close flushes the audit dispatcher. The engine does not own the Redis
// client or the user store; callers close those themselves.
func (e *Engine) Close() {
	e.audit.Close()
}

// issueTokens mints one fresh jti, signs the access/refresh pair under it,
// and stores the refresh copy for later rotation. Both tokens of a pair
// share the jti.
func (e *Engine) issueTokens(ctx context.Context, userID int64) (*TokenPair, error) {
	uid := strconv.FormatInt(userID, 10)
	jti := token.NewID()

	access, err := e.codec.SignAccess(uid, jti)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := e.codec.SignRefresh(uid, jti)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := e.refresh.Save(ctx, uid, jti, refresh, e.codec.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("%w: store refresh token: %v", ErrStoreUnavailable, err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Authenticate validates an access token for request authorization: the
// signature and expiry must check out and the token must not be blacklisted.
// On success it returns the token's user.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	const op = "engine.Authenticate"

	claims, err := e.codec.VerifyAccess(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	revoked, err := e.blacklist.IsRevoked(ctx, claims.UID, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
	if revoked {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	userID, err := strconv.ParseInt(claims.UID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	user, err := e.users.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
		}
		return nil, fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	return user, nil
}

func (e *Engine) emit(ctx context.Context, eventType, uid, jti string, success bool, cause error) {
	if e.audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    uid,
		TokenID:   jti,
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	e.audit.Emit(ctx, event)
}
