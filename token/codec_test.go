package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     "15m",
		RefreshTTL:    "7d",
	})
	require.NoError(t, err)
	return c
}

func TestNewCodecRejectsBadConfig(t *testing.T) {
	_, err := NewCodec(Config{
		RefreshSecret: []byte("r"), AccessTTL: "15m", RefreshTTL: "7d",
	})
	assert.Error(t, err, "missing access secret")

	_, err = NewCodec(Config{
		AccessSecret: []byte("same"), RefreshSecret: []byte("same"),
		AccessTTL: "15m", RefreshTTL: "7d",
	})
	assert.Error(t, err, "identical secrets")

	_, err = NewCodec(Config{
		AccessSecret: []byte("a"), RefreshSecret: []byte("r"),
		AccessTTL: "bogus", RefreshTTL: "7d",
	})
	assert.Error(t, err, "unparseable TTL")
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	c := testCodec(t)
	jti := NewID()

	access, err := c.SignAccess("42", jti)
	require.NoError(t, err)
	refresh, err := c.SignRefresh("42", jti)
	require.NoError(t, err)
	assert.NotEqual(t, access, refresh)

	claims, err := c.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UID)
	assert.Equal(t, jti, claims.ID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)

	claims, err = c.VerifyRefresh(refresh)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UID)
	assert.Equal(t, jti, claims.ID)
}

func TestVerifyRejectsCrossTokenUse(t *testing.T) {
	c := testCodec(t)
	jti := NewID()

	access, err := c.SignAccess("1", jti)
	require.NoError(t, err)
	refresh, err := c.SignRefresh("1", jti)
	require.NoError(t, err)

	_, err = c.VerifyRefresh(access)
	assert.ErrorIs(t, err, ErrInvalid, "access token must not verify as refresh")
	_, err = c.VerifyAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalid, "refresh token must not verify as access")
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	c := testCodec(t)

	access, err := c.SignAccess("1", NewID())
	require.NoError(t, err)

	tampered := access[:len(access)-2] + "xx"
	_, err = c.VerifyAccess(tampered)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = c.VerifyAccess("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyExpiredToken(t *testing.T) {
	c, err := NewCodec(Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     "1s",
		RefreshTTL:    "7d",
	})
	require.NoError(t, err)

	access, err := c.SignAccess("7", NewID())
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	_, err = c.VerifyAccess(access)
	assert.ErrorIs(t, err, ErrInvalid, "expired token must fail strict verify")

	claims, err := c.VerifyAccessIgnoreExpiry(access)
	require.NoError(t, err, "expired token must still parse for revocation")
	assert.Equal(t, "7", claims.UID)
}

func TestNewIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
