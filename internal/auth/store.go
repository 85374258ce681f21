// Package auth signs the CLI in to GitHub with the OAuth device flow and
// keeps the resulting token on disk.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/almostacms/almostacms/internal/log"
)

// ErrNotLoggedIn is returned when no token file exists.
var ErrNotLoggedIn = errors.New("not logged in; run `almostacms login`")

// StoredToken is the on-disk token format.
type StoredToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Scope       string    `json:"scope,omitempty"`
	Login       string    `json:"login,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// OAuth2 converts the stored token for use with an oauth2.TokenSource.
func (t StoredToken) OAuth2() *oauth2.Token {
	return &oauth2.Token{AccessToken: t.AccessToken, TokenType: t.TokenType}
}

// Store reads and writes the token file.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path is the token file location.
func (s *Store) Path() string { return s.path }

// Load reads the token. A missing file gives ErrNotLoggedIn.
func (s *Store) Load() (StoredToken, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return StoredToken{}, ErrNotLoggedIn
	}
	if err != nil {
		return StoredToken{}, fmt.Errorf("read token file: %w", err)
	}
	var tok StoredToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return StoredToken{}, fmt.Errorf("parse token file %s: %w", s.path, err)
	}
	if tok.AccessToken == "" {
		return StoredToken{}, ErrNotLoggedIn
	}
	return tok, nil
}

// Save writes the token with mode 0600, creating the parent directory.
func (s *Store) Save(tok StoredToken) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write token file: %w", err)
	}
	log.Info(log.CatAuth, "token saved", "path", s.path, "login", tok.Login)
	return nil
}

// Delete removes the token file. Deleting a missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	log.Info(log.CatAuth, "token removed", "path", s.path)
	return nil
}

// TokenSource returns a static token source for the stored token.
func (s *Store) TokenSource() (oauth2.TokenSource, error) {
	tok, err := s.Load()
	if err != nil {
		return nil, err
	}
	return oauth2.StaticTokenSource(tok.OAuth2()), nil
}
