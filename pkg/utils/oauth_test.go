package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/jakechorley/helping-hands/internal/config"
)

func TestTokenStore_RoundTrip(t *testing.T) {
	store := &TokenStore{Dir: filepath.Join(t.TempDir(), "tokens")}

	token, err := store.Load("test")
	require.NoError(t, err)
	assert.Nil(t, token)

	saved := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Save("test", saved))

	info, err := os.Stat(filepath.Join(store.Dir, "token-test.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(tokenFilePerms), info.Mode().Perm())

	loaded, err := store.Load("test")
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.True(t, saved.Expiry.Equal(loaded.Expiry))

	// Environments are kept apart
	other, err := store.Load("prod")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, store.Delete("test"))
	require.NoError(t, store.Delete("test"))
	token, err = store.Load("test")
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestTokenStore_CorruptFile(t *testing.T) {
	store := &TokenStore{Dir: t.TempDir()}
	require.NoError(t, os.WriteFile(store.path("dev"), []byte("{"), 0600))

	_, err := store.Load("dev")
	assert.ErrorContains(t, err, "failed to parse token file")
}

func TestMissingScopes(t *testing.T) {
	tests := []struct {
		name    string
		granted string
		missing []string
	}{
		{name: "all granted", granted: ScopeSheets + " " + ScopeGmailSend + " openid", missing: nil},
		{name: "gmail missing", granted: ScopeSheets, missing: []string{ScopeGmailSend}},
		{name: "nothing granted", granted: "", missing: []string{ScopeSheets, ScopeGmailSend}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, missingScopes(tt.granted))
		})
	}
}

func TestGetOAuthConfig(t *testing.T) {
	cfg := &config.OAuthClientConfig{
		Installed: config.OAuthInstalled{
			ClientID:                "id.apps.googleusercontent.com",
			ProjectID:               "helping-hands",
			AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
			TokenURI:                "https://oauth2.googleapis.com/token",
			AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
			ClientSecret:            "secret",
			RedirectURIs:            []string{"http://localhost"},
		},
	}

	oauthConfig, err := GetOAuthConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", oauthConfig.ClientID)
	assert.ElementsMatch(t, []string{ScopeSheets, ScopeGmailSend}, oauthConfig.Scopes)
	assert.Equal(t, "http://localhost:3000/oauth/callback", oauthConfig.RedirectURL)
}
