package google

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "nested", "token.json"))
	assert.False(t, store.Exists())

	expiry := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", Expiry: expiry}
	require.NoError(t, store.Save(tok, []string{ScopeCalendar}))
	assert.True(t, store.Exists())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, scopes, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "at", loaded.AccessToken)
	assert.Equal(t, "rt", loaded.RefreshToken)
	assert.True(t, expiry.Equal(loaded.Expiry))
	assert.Equal(t, []string{ScopeCalendar}, scopes)

	require.NoError(t, store.Delete())
	assert.False(t, store.Exists())
	require.NoError(t, store.Delete())
}

func TestTokenStoreLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := NewTokenStore(filepath.Join(dir, "missing.json")).Load()
	assert.ErrorIs(t, err, ErrNoToken)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("not json"), 0o600))
	_, _, err = NewTokenStore(corrupt).Load()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("{}"), 0o600))
	_, _, err = NewTokenStore(empty).Load()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenStoreSaveNil(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	assert.Error(t, store.Save(nil, nil))
}

func TestResolveScopes(t *testing.T) {
	got := ResolveScopes([]string{"calendar", " gmail.readonly ", ScopeCalendar, "", "https://example.com/custom"})
	assert.Equal(t, []string{ScopeCalendar, ScopeGmailReadonly, "https://example.com/custom"}, got)
}

func TestMissingScopes(t *testing.T) {
	assert.Empty(t, MissingScopes([]string{ScopeCalendar}, []string{ScopeCalendar, ScopeGmailModify}))
	assert.Equal(t, []string{ScopeGmailModify}, MissingScopes([]string{ScopeCalendar, ScopeGmailModify}, []string{ScopeCalendar}))
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
