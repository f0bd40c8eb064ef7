package authkit_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authkit-go/authkit"
	"github.com/authkit-go/authkit/store/memory"
)

func TestEngineEmitsAuditEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sink := authkit.NewChannelSink(16)
	cfg := testConfig()
	cfg.Audit = authkit.AuditConfig{Enabled: true, BufferSize: 16}

	engine, err := authkit.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(memory.New()).
		WithAuditSink(sink).
		Build()
	require.NoError(t, err)

	ctx := context.Background()
	_, err = engine.Register(ctx, authkit.RegisterInput{
		Email: "alice@example.com", Password: "hunter22",
	})
	require.NoError(t, err)

	_, err = engine.Login(ctx, "alice@example.com", "wrong-password")
	require.Error(t, err)

	pair, err := engine.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	engine.Logout(ctx, pair.AccessToken)

	engine.Close() // flushes the dispatcher

	var types []string
	for len(sink.Events()) > 0 {
		e := <-sink.Events()
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{"register", "login_failure", "login_success", "logout"}, types)
}
