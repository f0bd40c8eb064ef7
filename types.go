package authkit

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/authkit-go/authkit/internal/audit"
)

// User is the credential record owned by the relational store. PasswordHash
// and PasswordSalt are empty for accounts without password login.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	PasswordSalt string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the response projection of a User: hash and salt excluded.
type PublicUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public returns the response projection of u.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// TokenPair is returned by Login and Refresh. Both tokens are opaque to
// callers; the refresh token is single-use under rotation.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ResetToken is a stored password-reset challenge. TokenHash is the bcrypt
// digest of the raw token mailed to the user; the raw value is never stored.
type ResetToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	Consumed  bool
	CreatedAt time.Time
}

// CreateUserInput is the input for [UserStore.CreateUser].
type CreateUserInput struct {
	Email        string
	Name         string
	PasswordHash string
	PasswordSalt string
	Role         string
}

// UserStore is the credential-store interface callers must implement to
// integrate authkit with their database. Lookups return [ErrNotFound] for
// missing records; CreateUser returns [ErrAlreadyExists] on duplicate email.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, input CreateUserInput) (*User, error)
	UpdateUserPassword(ctx context.Context, userID int64, hash, salt string) error

	CreateResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (*ResetToken, error)
	DeleteResetTokensForUser(ctx context.Context, userID int64) error
	LatestResetToken(ctx context.Context, userID int64) (*ResetToken, error)
	MarkResetTokenConsumed(ctx context.Context, tokenID int64) error

	// UpdatePasswordAndConsumeToken applies the password change and marks the
	// reset token consumed in a single transaction: both succeed or neither
	// does. Returns ErrNotFound when the token was already consumed or gone.
	UpdatePasswordAndConsumeToken(ctx context.Context, userID int64, hash, salt string, tokenID int64) error
}

// Mailer is the outbound notification sink. Delivery is fire-and-forget from
// the engine's perspective; a failed send is logged, never surfaced.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, textBody, htmlBody string) error
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events, one per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
