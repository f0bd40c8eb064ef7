// Package memory provides an in-process UserStore for tests and examples.
// Data lives in maps behind a mutex and is lost when the process exits.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/authkit-go/authkit"
)

// Store implements authkit.UserStore in memory.
type Store struct {
	mu          sync.Mutex
	users       map[int64]*authkit.User
	byEmail     map[string]int64
	resets      map[int64]*authkit.ResetToken
	nextUserID  int64
	nextResetID int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[int64]*authkit.User),
		byEmail: make(map[string]int64),
		resets:  make(map[int64]*authkit.ResetToken),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*authkit.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, authkit.ErrNotFound
	}
	u := *s.users[id]
	return &u, nil
}

func (s *Store) FindUserByID(_ context.Context, id int64) (*authkit.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, authkit.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *Store) CreateUser(_ context.Context, input authkit.CreateUserInput) (*authkit.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(input.Email)
	if _, taken := s.byEmail[key]; taken {
		return nil, authkit.ErrAlreadyExists
	}

	s.nextUserID++
	now := time.Now()
	u := &authkit.User{
		ID:           s.nextUserID,
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: input.PasswordHash,
		PasswordSalt: input.PasswordSalt,
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	s.byEmail[key] = u.ID

	copied := *u
	return &copied, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, userID int64, hash, salt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return authkit.ErrNotFound
	}
	u.PasswordHash = hash
	u.PasswordSalt = salt
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Store) CreateResetToken(_ context.Context, userID int64, tokenHash string, expiresAt time.Time) (*authkit.ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return nil, authkit.ErrNotFound
	}

	s.nextResetID++
	t := &authkit.ResetToken{
		ID:        s.nextResetID,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	s.resets[t.ID] = t

	copied := *t
	return &copied, nil
}

func (s *Store) DeleteResetTokensForUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.resets {
		if t.UserID == userID {
			delete(s.resets, id)
		}
	}
	return nil
}

func (s *Store) LatestResetToken(_ context.Context, userID int64) (*authkit.ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var mine []*authkit.ResetToken
	for _, t := range s.resets {
		if t.UserID == userID {
			mine = append(mine, t)
		}
	}
	if len(mine) == 0 {
		return nil, authkit.ErrNotFound
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].ID > mine[j].ID })

	copied := *mine[0]
	return &copied, nil
}

func (s *Store) MarkResetTokenConsumed(_ context.Context, tokenID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.resets[tokenID]
	if !ok || t.Consumed {
		return authkit.ErrNotFound
	}
	t.Consumed = true
	return nil
}

func (s *Store) UpdatePasswordAndConsumeToken(_ context.Context, userID int64, hash, salt string, tokenID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return authkit.ErrNotFound
	}
	t, ok := s.resets[tokenID]
	if !ok || t.Consumed || t.UserID != userID {
		return authkit.ErrNotFound
	}

	t.Consumed = true
	u.PasswordHash = hash
	u.PasswordSalt = salt
	u.UpdatedAt = time.Now()
	return nil
}

// LiveResetTokens reports how many unconsumed reset tokens userID has.
// Intended for tests.
func (s *Store) LiveResetTokens(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.resets {
		if t.UserID == userID && !t.Consumed {
			n++
		}
	}
	return n
}
