// Package client talks to the favfilms API on behalf of one user. It holds at
// most one token, attaches it to every request and forgets it on any 401.
package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/favfilms/internal/auth"
	"github.com/golang-jwt/jwt/v5"
)

type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save("")
}

// FileStore keeps the token in a single file readable only by its owner.
type FileStore struct {
	Path string
}

func (f FileStore) Load() (string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (f FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	if err := os.WriteFile(f.Path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}

	// WriteFile keeps the mode of an existing file
	return os.Chmod(f.Path, 0o600)
}

func (f FileStore) Clear() error {
	err := os.Remove(f.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// CurrentUser is what the held token claims about its bearer. It is decoded
// without checking the signature and is only fit for display.
type CurrentUser struct {
	ID        string
	Name      string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Session struct {
	store TokenStore
}

func NewSession(store TokenStore) *Session {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Session{store: store}
}

// Token returns the held token, or "" when none is held or the store fails.
func (s *Session) Token() string {
	t, err := s.store.Load()
	if err != nil {
		return ""
	}
	return t
}

func (s *Session) Save(token string) error {
	return s.store.Save(token)
}

// Logout forgets the token locally. The server keeps no session to end.
func (s *Session) Logout() error {
	return s.store.Clear()
}

func (s *Session) CurrentUser() *CurrentUser {
	token := s.Token()
	if token == "" {
		return nil
	}

	var claims auth.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil
	}

	u := &CurrentUser{
		ID:    claims.Subject,
		Name:  claims.Name,
		Email: claims.Email,
	}
	if claims.IssuedAt != nil {
		u.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		u.ExpiresAt = claims.ExpiresAt.Time
	}
	return u
}
