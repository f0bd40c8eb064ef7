package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/authkit-go/authkit/internal/random"
)

// saltBytes is the size of the random per-user salt; hex-encoded it becomes
// a 10-character string stored alongside the hash.
const saltBytes = 5

// Hasher salts and hashes credentials with a tunable bcrypt cost.
// A Hasher is immutable after construction and safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher builds a Hasher. cost 0 selects bcrypt's default (10); other
// values must be within bcrypt's supported range.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("password: cost out of range")
	}
	return &Hasher{cost: cost}, nil
}

// NewSalt generates a fresh per-user salt.
func NewSalt() (string, error) {
	return random.Hex(saltBytes)
}

// Hash digests password concatenated with salt.
func (h *Hasher) Hash(password, salt string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password+salt), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether candidate+salt matches digest. The comparison is
// constant time relative to bcrypt's compare primitive.
func (h *Hasher) Verify(candidate, salt, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(candidate+salt)) == nil
}

// HashToken digests a raw reset token for storage. Reset tokens carry no
// separate salt column; bcrypt embeds its own.
func (h *Hasher) HashToken(raw string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyToken reports whether raw matches the stored reset-token digest.
func (h *Hasher) VerifyToken(raw, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(raw)) == nil
}
