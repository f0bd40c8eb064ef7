package authkit

import "errors"

// Error is a public-safe domain failure. Code is stable across releases and
// Message is what callers may show to end users; the internal cause, when
// any, is attached by wrapping and never reaches the public surface.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	// ErrUserExists is returned by Register when the email is already taken.
	ErrUserExists = &Error{Code: "AUTH_001", Message: "registration failed"}
	// ErrAccountNotFound is returned by Login and ForgotPassword for unknown emails.
	ErrAccountNotFound = &Error{Code: "AUTH_002", Message: "account not found"}
	// ErrInvalidCredentials covers failed password comparison and records
	// with no password login configured.
	ErrInvalidCredentials = &Error{Code: "AUTH_003", Message: "invalid email or password"}
	// ErrTokenInvalid covers bad signatures, malformed payloads, expiry, and
	// detected reuse of a rotated refresh token.
	ErrTokenInvalid = &Error{Code: "AUTH_004", Message: "session expired"}
	// ErrResetInvalid is the deliberately generic reset-flow failure: absent,
	// mismatched, expired, and already-consumed tokens are indistinguishable.
	ErrResetInvalid = &Error{Code: "AUTH_005", Message: "reset token invalid or expired"}
	// ErrValidation is returned for malformed input before any store access.
	ErrValidation = &Error{Code: "AUTH_006", Message: "invalid request"}
	// ErrStoreUnavailable marks retryable backend failures. It is never
	// conflated with ErrTokenInvalid: a caller that retries on it may succeed.
	ErrStoreUnavailable = &Error{Code: "AUTH_007", Message: "service temporarily unavailable"}
)

// Store-level sentinels implemented by UserStore adapters.
var (
	// ErrNotFound is returned by UserStore lookups with no matching record.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned by UserStore.CreateUser on a duplicate email.
	ErrAlreadyExists = errors.New("record already exists")
)

// CodeOf extracts the stable taxonomy code from err, or "" when err carries
// no public *Error in its chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// PublicError returns the public-safe *Error in err's chain, defaulting to
// ErrStoreUnavailable so unexpected internals never leak to callers.
func PublicError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrStoreUnavailable
}
