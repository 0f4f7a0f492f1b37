package session

import (
	"context"
	"errors"
	"time"

	"impact-registration/internal/security"
)

var (
	ErrNoCredential      = errors.New("no stored credential")
	ErrCredentialExpired = errors.New("stored credential has expired")
)

// Role selects which credential a session works with
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Key is the storage key of the role's credential
func (r Role) Key() string {
	if r == RoleAdmin {
		return "admin_token"
	}
	return "token"
}

// Store persists bearer credentials by key
type Store interface {
	Read(ctx context.Context, key string) (string, error)
	Write(ctx context.Context, key, token string) error
	Clear(ctx context.Context, key string) error
}

// Session is the credential context handed to everything that makes
// authenticated requests. Read, Write and Clear are its only operations.
type Session struct {
	store Store
	role  Role
	now   func() time.Time
}

func New(store Store, role Role) *Session {
	return &Session{store: store, role: role, now: time.Now}
}

func (s *Session) Role() Role {
	return s.role
}

// Read returns the stored bearer credential. A JWT whose exp has passed is
// reported as ErrCredentialExpired; it stays stored until a login replaces it
// or the backend rejects it.
func (s *Session) Read(ctx context.Context) (string, error) {
	token, err := s.store.Read(ctx, s.role.Key())
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNoCredential
	}

	if claims, err := security.Inspect(token); err == nil && security.Expired(claims, s.now()) {
		return "", ErrCredentialExpired
	}
	return token, nil
}

func (s *Session) Write(ctx context.Context, token string) error {
	return s.store.Write(ctx, s.role.Key(), token)
}

func (s *Session) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.role.Key())
}
