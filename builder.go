package authkit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/authkit-go/authkit/internal/audit"
	"github.com/authkit-go/authkit/password"
	"github.com/authkit-go/authkit/session"
	"github.com/authkit-go/authkit/token"
)

// Builder assembles an Engine. The zero value is unusable; start with [New]
// and chain the With methods before calling Build.
type Builder struct {
	cfg       Config
	cfgSet    bool
	redis     redis.UniversalClient
	users     UserStore
	mailer    Mailer
	log       *slog.Logger
	auditSink AuditSink
}

// New starts an Engine builder.
func New() *Builder {
	return &Builder{}
}

// WithConfig sets the full engine configuration. Unset fields keep their
// documented defaults.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	b.cfgSet = true
	return b
}

// WithRedis sets the Redis client backing refresh-token and blacklist state.
// Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the credential store. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithMailer sets the outbound mailer for the password-reset flow. Without
// one, reset mails are silently dropped.
func (b *Builder) WithMailer(mailer Mailer) *Builder {
	b.mailer = mailer
	return b
}

// WithLogger sets the engine's structured logger. Without one the engine
// logs nowhere.
func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.log = log
	return b
}

// WithAuditSink enables audit dispatch to sink, overriding cfg.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// noopMailer drops mail. Used when no Mailer is configured.
type noopMailer struct{}

func (noopMailer) SendMail(context.Context, string, string, string, string) error { return nil }

// Build validates the configuration, wires the stores, and returns a ready
// Engine.
func (b *Builder) Build() (*Engine, error) {
	if !b.cfgSet {
		b.cfg = defaultConfig()
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	if b.redis == nil {
		return nil, errors.New("authkit: a Redis client is required")
	}
	if b.users == nil {
		return nil, errors.New("authkit: a UserStore is required")
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte(b.cfg.Token.AccessSecret),
		RefreshSecret: []byte(b.cfg.Token.RefreshSecret),
		AccessTTL:     b.cfg.Token.AccessTTL,
		RefreshTTL:    b.cfg.Token.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(b.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	resetSeconds := token.ParseTTLSeconds(b.cfg.Reset.TTL)
	if resetSeconds <= 0 {
		return nil, errors.New("authkit: invalid reset TTL")
	}

	log := b.log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	auditCfg := audit.Config{
		Enabled:    b.cfg.Audit.Enabled || b.auditSink != nil,
		BufferSize: b.cfg.Audit.BufferSize,
		DropIfFull: b.cfg.Audit.DropIfFull,
	}
	dispatcher := audit.NewDispatcher(auditCfg, b.auditSink)

	mailer := b.mailer
	if mailer == nil {
		mailer = noopMailer{}
	}

	var metrics *Metrics
	if b.cfg.Metrics {
		metrics = &Metrics{}
	}

	return &Engine{
		cfg:         b.cfg,
		users:       b.users,
		mailer:      mailer,
		codec:       codec,
		hasher:      hasher,
		refresh:     session.NewRefreshStore(b.redis),
		blacklist:   session.NewBlacklistStore(b.redis),
		audit:       dispatcher,
		metrics:     metrics,
		log:         log,
		resetTTL:    time.Duration(resetSeconds) * time.Second,
		resetLength: b.cfg.Reset.TokenLength,
	}, nil
}
