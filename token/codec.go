package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalid is returned by the verify methods for any token that must not
// be honored: bad signature, wrong signing method, malformed payload, or
// expiry. Callers never need to distinguish further.
var ErrInvalid = errors.New("invalid token")

// Claims is the payload carried by both access and refresh tokens. The jti
// lives in RegisteredClaims.ID.
type Claims struct {
	UID string `json:"uid"`
	jwt.RegisteredClaims
}

// Config holds the two signing secrets and their lifetimes. Lifetimes are
// strings in the form accepted by [ParseTTLSeconds].
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     string
	RefreshTTL    string
}

// Codec signs and verifies access and refresh tokens. A Codec is immutable
// after construction and safe for concurrent use.
type Codec struct {
	config     Config
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec validates cfg and builds a Codec. Both secrets are required and
// must differ; both lifetimes must parse to a positive number of seconds.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: both signing secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("token: access and refresh secrets must be distinct")
	}

	accessSeconds := ParseTTLSeconds(cfg.AccessTTL)
	if accessSeconds <= 0 {
		return nil, fmt.Errorf("token: invalid access TTL %q", cfg.AccessTTL)
	}
	refreshSeconds := ParseTTLSeconds(cfg.RefreshTTL)
	if refreshSeconds <= 0 {
		return nil, fmt.Errorf("token: invalid refresh TTL %q", cfg.RefreshTTL)
	}

	return &Codec{
		config:     cfg,
		accessTTL:  time.Duration(accessSeconds) * time.Second,
		refreshTTL: time.Duration(refreshSeconds) * time.Second,
	}, nil
}

// NewID mints a fresh jti. IDs are never reused across issuances.
func NewID() string {
	return uuid.NewString()
}

// AccessTTL is the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL is the configured refresh-token lifetime, also used as the TTL
// of the stored refresh-token copy.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// SignAccess issues an access token for uid under the given jti.
func (c *Codec) SignAccess(uid, jti string) (string, error) {
	return c.sign(uid, jti, c.config.AccessSecret, c.accessTTL)
}

// SignRefresh issues a refresh token for uid under the given jti.
func (c *Codec) SignRefresh(uid, jti string) (string, error) {
	return c.sign(uid, jti, c.config.RefreshSecret, c.refreshTTL)
}

func (c *Codec) sign(uid, jti string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyAccess parses and validates an access token, including expiry.
func (c *Codec) VerifyAccess(tokenStr string) (*Claims, error) {
	return verify(tokenStr, c.config.AccessSecret, false)
}

// VerifyAccessIgnoreExpiry validates an access token's signature and shape
// but accepts expired tokens. Logout needs this: revoking a token that just
// expired must still succeed.
func (c *Codec) VerifyAccessIgnoreExpiry(tokenStr string) (*Claims, error) {
	return verify(tokenStr, c.config.AccessSecret, true)
}

// VerifyRefresh parses and validates a refresh token, including expiry.
func (c *Codec) VerifyRefresh(tokenStr string) (*Claims, error) {
	return verify(tokenStr, c.config.RefreshSecret, false)
}

func verify(tokenStr string, secret []byte, ignoreExpiry bool) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if ignoreExpiry {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.UID == "" || claims.ID == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}
