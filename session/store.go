package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no refresh token is stored under the key.
	// For rotation this means the token was already rotated away or expired.
	ErrNotFound = errors.New("refresh token not found")
	// ErrTokenMismatch is returned when a stored token exists but is not
	// byte-identical to the presented one: replay of a superseded token.
	ErrTokenMismatch = errors.New("refresh token mismatch")
	// ErrUnavailable marks transport or server failures. Callers must treat
	// it as retryable, never as proof the token is invalid.
	ErrUnavailable = errors.New("session store unavailable")
)

// minRevokeTTL is the floor for blacklist entries so that revoking an
// already-expired access token still leaves a marker.
const minRevokeTTL = time.Second

const rotateRefreshScript = `
local stored = redis.call("GET", KEYS[1])
if not stored then
  return 0
end
if stored ~= ARGV[1] then
  return -1
end
redis.call("DEL", KEYS[1])
redis.call("SET", KEYS[2], ARGV[2], "EX", tonumber(ARGV[3]))
return 1
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

// RefreshStore keeps the stored copy of each live refresh token, keyed by
// (userID, jti) with TTL equal to the refresh expiry.
type RefreshStore struct {
	redis redis.UniversalClient
}

// NewRefreshStore creates a RefreshStore backed by the given Redis client.
func NewRefreshStore(client redis.UniversalClient) *RefreshStore {
	return &RefreshStore{redis: client}
}

func refreshKey(userID, jti string) string {
	return "refresh:" + jti + ":" + userID
}

// Save stores token under (userID, jti) with the given TTL, replacing any
// previous value under the same key.
func (s *RefreshStore) Save(ctx context.Context, userID, jti, token string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, refreshKey(userID, jti), token, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get returns the stored token for (userID, jti), or ErrNotFound.
func (s *RefreshStore) Get(ctx context.Context, userID, jti string) (string, error) {
	val, err := s.redis.Get(ctx, refreshKey(userID, jti)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return val, nil
}

// Delete removes the stored token for (userID, jti). Deleting a key that is
// already gone is not an error.
func (s *RefreshStore) Delete(ctx context.Context, userID, jti string) error {
	if err := s.redis.Del(ctx, refreshKey(userID, jti)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Rotate atomically replaces the token under (userID, oldJTI) with newToken
// under (userID, newJTI). The old entry must exist and be byte-identical to
// presented; otherwise ErrNotFound or ErrTokenMismatch is returned and
// nothing changes. Exactly one of any number of concurrent Rotate calls
// presenting the same token succeeds.
func (s *RefreshStore) Rotate(ctx context.Context, userID, oldJTI, presented, newJTI, newToken string, ttl time.Duration) error {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	res, err := rotateRefreshLua.Run(
		ctx,
		s.redis,
		[]string{refreshKey(userID, oldJTI), refreshKey(userID, newJTI)},
		presented, newToken, seconds,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch res {
	case 1:
		return nil
	case -1:
		return ErrTokenMismatch
	default:
		return ErrNotFound
	}
}

// BlacklistStore records revoked access tokens for the remainder of their
// natural lifetime. Presence of an entry means the token must be rejected
// even though its signature still verifies.
type BlacklistStore struct {
	redis redis.UniversalClient
}

// NewBlacklistStore creates a BlacklistStore backed by the given Redis client.
func NewBlacklistStore(client redis.UniversalClient) *BlacklistStore {
	return &BlacklistStore{redis: client}
}

func blacklistKey(userID, jti string) string {
	return "blacklist:access:" + jti + ":" + userID
}

// Revoke marks (userID, jti) as revoked for ttl, clamped to at least one
// second so revoking an expired token still writes a marker.
func (s *BlacklistStore) Revoke(ctx context.Context, userID, jti string, ttl time.Duration) error {
	if ttl < minRevokeTTL {
		ttl = minRevokeTTL
	}
	if err := s.redis.Set(ctx, blacklistKey(userID, jti), "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether (userID, jti) has a live blacklist entry.
func (s *BlacklistStore) IsRevoked(ctx context.Context, userID, jti string) (bool, error) {
	n, err := s.redis.Exists(ctx, blacklistKey(userID, jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}
