package authkit_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authkit-go/authkit"
	"github.com/authkit-go/authkit/store/memory"
)

// captureMailer records the last message instead of delivering it.
type captureMailer struct {
	mu      sync.Mutex
	to      string
	subject string
	text    string
	sends   int
}

func (m *captureMailer) SendMail(_ context.Context, to, subject, textBody, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to, m.subject, m.text = to, subject, textBody
	m.sends++
	return nil
}

var tokenParam = regexp.MustCompile(`token=([0-9a-f]+)`)

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	match := tokenParam.FindStringSubmatch(m.text)
	require.Len(t, match, 2, "reset mail must carry a token link")
	return match[1]
}

func testConfig() authkit.Config {
	return authkit.Config{
		Token: authkit.TokenConfig{
			AccessSecret:  "test-access-secret",
			RefreshSecret: "test-refresh-secret",
			AccessTTL:     "15m",
			RefreshTTL:    "7d",
		},
		Reset:       authkit.ResetConfig{TTL: "15m", TokenLength: 32},
		FrontendURL: "http://localhost:3000",
		BcryptCost:  4, // min cost, keeps tests fast
		Metrics:     true,
	}
}

type testEnv struct {
	engine *authkit.Engine
	store  *memory.Store
	redis  *miniredis.Miniredis
	mailer *captureMailer
}

func newTestEnv(t *testing.T, mutate func(*authkit.Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	store := memory.New()
	mailer := &captureMailer{}

	engine, err := authkit.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(store).
		WithMailer(mailer).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, store: store, redis: mr, mailer: mailer}
}

func (env *testEnv) register(t *testing.T, email, pw string) *authkit.PublicUser {
	t.Helper()
	user, err := env.engine.Register(context.Background(), authkit.RegisterInput{
		Email:    email,
		Name:     "Test User",
		Password: pw,
	})
	require.NoError(t, err)
	return user
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.Register(ctx, authkit.RegisterInput{Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, authkit.ErrValidation)

	_, err = env.engine.Register(ctx, authkit.RegisterInput{Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, authkit.ErrValidation)

	long := make([]byte, 80)
	for i := range long {
		long[i] = 'x'
	}
	_, err = env.engine.Register(ctx, authkit.RegisterInput{Email: "a@example.com", Password: string(long)})
	assert.ErrorIs(t, err, authkit.ErrValidation, "password must stay inside the hash input limit")
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	user := env.register(t, "alice@example.com", "hunter22")
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "user", user.Role)

	pair, err := env.engine.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	authed, err := env.engine.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, nil)

	env.register(t, "alice@example.com", "hunter22")

	_, err := env.engine.Register(context.Background(), authkit.RegisterInput{
		Email:    "alice@example.com",
		Password: "different",
	})
	assert.ErrorIs(t, err, authkit.ErrUserExists)
	assert.Equal(t, "AUTH_001", authkit.CodeOf(err))
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	_, err := env.engine.Login(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, authkit.ErrAccountNotFound)

	env.register(t, "alice@example.com", "hunter22")
	_, err = env.engine.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, authkit.ErrInvalidCredentials)
	assert.Equal(t, "AUTH_003", authkit.CodeOf(err))
}

func TestRefreshRotation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.register(t, "alice@example.com", "hunter22")
	pair, err := env.engine.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	next, err := env.engine.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)

	// The first refresh token is consumed; replaying it must fail.
	_, err = env.engine.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, authkit.ErrTokenInvalid)

	// The rotated-in token still works.
	_, err = env.engine.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.engine.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, authkit.ErrTokenInvalid)
	assert.Equal(t, "AUTH_004", authkit.CodeOf(err))
}

func TestRefreshStoreDownIsNotInvalidToken(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.register(t, "alice@example.com", "hunter22")
	pair, err := env.engine.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	env.redis.Close()

	_, err = env.engine.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, authkit.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, authkit.ErrTokenInvalid,
		"an unreachable store must never read as a bad token")
}

func TestRefreshConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.register(t, "alice@example.com", "hunter22")
	pair, err := env.engine.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.engine.Refresh(ctx, pair.RefreshToken)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, authkit.ErrTokenInvalid)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.register(t, "alice@example.com", "hunter22")
	pair, err := env.engine.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	_, err = env.engine.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)

	env.engine.Logout(ctx, pair.AccessToken)

	_, err = env.engine.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, authkit.ErrTokenInvalid, "blacklisted access token")

	_, err = env.engine.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, authkit.ErrTokenInvalid, "paired refresh token is dropped")
}

func TestLogoutNeverFails(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.engine.Logout(ctx, "garbage")

	env.register(t, "alice@example.com", "hunter22")
	pair, err := env.engine.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	env.redis.Close()
	env.engine.Logout(ctx, pair.AccessToken)

	snap := env.engine.Metrics().Snapshot()
	assert.NotZero(t, snap.LogoutStoreFailures, "store failures are counted, not surfaced")
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv(t, nil)

	err := env.engine.ForgotPassword(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, authkit.ErrAccountNotFound)
	assert.Zero(t, env.mailer.sends)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	user := env.register(t, "alice@example.com", "hunter22")

	require.NoError(t, env.engine.ForgotPassword(ctx, "alice@example.com"))
	assert.Equal(t, "alice@example.com", env.mailer.to)
	raw := env.mailer.lastToken(t)
	assert.Len(t, raw, 64, "32 random bytes, hex-encoded")

	require.NoError(t, env.engine.ResetPassword(ctx, "alice@example.com", raw, "new-password"))

	_, err := env.engine.Login(ctx, "alice@example.com", "hunter22")
	assert.ErrorIs(t, err, authkit.ErrInvalidCredentials, "old password is dead")

	_, err = env.engine.Login(ctx, "alice@example.com", "new-password")
	require.NoError(t, err)

	// The token was consumed by the successful reset.
	err = env.engine.ResetPassword(ctx, "alice@example.com", raw, "another-password")
	assert.ErrorIs(t, err, authkit.ErrResetInvalid)
	assert.Zero(t, env.store.LiveResetTokens(user.ID))
}

func TestSecondResetRequestInvalidatesFirst(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	user := env.register(t, "alice@example.com", "hunter22")

	require.NoError(t, env.engine.ForgotPassword(ctx, "alice@example.com"))
	first := env.mailer.lastToken(t)

	require.NoError(t, env.engine.ForgotPassword(ctx, "alice@example.com"))
	second := env.mailer.lastToken(t)
	require.NotEqual(t, first, second)

	assert.Equal(t, 1, env.store.LiveResetTokens(user.ID), "only the latest token is live")

	err := env.engine.ResetPassword(ctx, "alice@example.com", first, "new-password")
	assert.ErrorIs(t, err, authkit.ErrResetInvalid, "superseded token")

	require.NoError(t, env.engine.ResetPassword(ctx, "alice@example.com", second, "new-password"))
}

func TestResetPasswordRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	err := env.engine.ResetPassword(ctx, "nobody@example.com", "deadbeef", "new-password")
	assert.ErrorIs(t, err, authkit.ErrResetInvalid, "unknown account")

	env.register(t, "alice@example.com", "hunter22")
	err = env.engine.ResetPassword(ctx, "alice@example.com", "deadbeef", "new-password")
	assert.ErrorIs(t, err, authkit.ErrResetInvalid, "no token requested")

	require.NoError(t, env.engine.ForgotPassword(ctx, "alice@example.com"))
	err = env.engine.ResetPassword(ctx, "alice@example.com", "0000", "new-password")
	assert.ErrorIs(t, err, authkit.ErrResetInvalid, "wrong token")

	err = env.engine.ResetPassword(ctx, "alice@example.com", env.mailer.lastToken(t), "short")
	assert.ErrorIs(t, err, authkit.ErrValidation, "weak replacement password")
}

func TestResetTokenExpires(t *testing.T) {
	env := newTestEnv(t, func(cfg *authkit.Config) {
		cfg.Reset.TTL = "1s"
	})
	ctx := context.Background()

	env.register(t, "alice@example.com", "hunter22")
	require.NoError(t, env.engine.ForgotPassword(ctx, "alice@example.com"))
	raw := env.mailer.lastToken(t)

	time.Sleep(1100 * time.Millisecond)

	err := env.engine.ResetPassword(ctx, "alice@example.com", raw, "new-password")
	assert.ErrorIs(t, err, authkit.ErrResetInvalid)
}

func TestMetricsSnapshot(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	env.register(t, "alice@example.com", "hunter22")
	_, _ = env.engine.Login(ctx, "alice@example.com", "hunter22")
	_, _ = env.engine.Login(ctx, "alice@example.com", "wrong")

	snap := env.engine.Metrics().Snapshot()
	assert.Equal(t, uint64(1), snap.RegisterSuccess)
	assert.Equal(t, uint64(1), snap.LoginSuccess)
	assert.Equal(t, uint64(1), snap.LoginFailure)
}

func TestPublicErrorHidesInternals(t *testing.T) {
	assert.Equal(t, authkit.ErrStoreUnavailable, authkit.PublicError(assert.AnError))
	assert.Equal(t, "", authkit.CodeOf(assert.AnError))
}
