package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when no stored token exists.
var ErrNoToken = errors.New("no stored Google OAuth token; run 'gtool auth login'")

// storedToken is the JSON layout of the token file.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// TokenStore reads and writes a token file.
type TokenStore struct {
	path string
}

// NewTokenStore creates a store backed by the file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the token file path.
func (s *TokenStore) Path() string {
	return s.path
}

// Exists reports whether the token file is present.
func (s *TokenStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load returns the stored token and the scopes it was granted for.
func (s *TokenStore) Load() (*oauth2.Token, []string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrNoToken
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, nil, fmt.Errorf("failed to parse token file %s: %w", s.path, err)
	}
	if st.AccessToken == "" && st.RefreshToken == "" {
		return nil, nil, ErrNoToken
	}

	return &oauth2.Token{
		AccessToken:  st.AccessToken,
		RefreshToken: st.RefreshToken,
		TokenType:    st.TokenType,
		Expiry:       st.Expiry,
	}, st.Scopes, nil
}

// Save writes tok and its granted scopes with owner-only permissions.
func (s *TokenStore) Save(tok *oauth2.Token, scopes []string) error {
	if tok == nil {
		return errors.New("token is nil")
	}
	data, err := json.MarshalIndent(storedToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scopes:       scopes,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Delete removes the token file. A missing file is not an error.
func (s *TokenStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}
