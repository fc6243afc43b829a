package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func validConfig() *Config {
	return &Config{
		Store:       StoreConfig{Driver: "postgres", DSN: "postgres://localhost/helping_hands"},
		Server:      ServerConfig{Addr: ":9000"},
		Leaderboard: LeaderboardConfig{SheetID: "sheet123", Tab: "Top", Size: 20},
		Gmail:       GmailConfig{UserID: "user@example.com", Sender: "Helping Hands"},
		Schedule:    ScheduleConfig{Reminders: "0 9 * * *", Leaderboard: "@weekly"},
		Recurrence:  RecurrenceConfig{MaxOccurrences: 12},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_MinimalConfig(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Driver: "memory"}}
	assert.NoError(t, Validate(cfg))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		modify   func(cfg *Config)
		contains string
	}{
		{
			name:     "missing driver",
			modify:   func(cfg *Config) { cfg.Store.Driver = "" },
			contains: "validation failed",
		},
		{
			name:     "unknown driver",
			modify:   func(cfg *Config) { cfg.Store.Driver = "mongo" },
			contains: "validation failed",
		},
		{
			name:     "sqlite without dsn",
			modify:   func(cfg *Config) { cfg.Store = StoreConfig{Driver: "sqlite"} },
			contains: "validation failed",
		},
		{
			name:     "negative leaderboard size",
			modify:   func(cfg *Config) { cfg.Leaderboard.Size = -1 },
			contains: "validation failed",
		},
		{
			name:     "gmail user not an email",
			modify:   func(cfg *Config) { cfg.Gmail.UserID = "not-an-email" },
			contains: "validation failed",
		},
		{
			name:     "recurrence cap too large",
			modify:   func(cfg *Config) { cfg.Recurrence.MaxOccurrences = 1000 },
			contains: "validation failed",
		},
		{
			name:     "invalid reminder cron",
			modify:   func(cfg *Config) { cfg.Schedule.Reminders = "every morning" },
			contains: "invalid cron expression in schedule.reminders",
		},
		{
			name:     "invalid leaderboard cron",
			modify:   func(cfg *Config) { cfg.Schedule.Leaderboard = "61 * * * *" },
			contains: "invalid cron expression in schedule.leaderboard",
		},
		{
			name:     "reminders without gmail user",
			modify:   func(cfg *Config) { cfg.Gmail.UserID = "" },
			contains: "gmail.userID is required",
		},
		{
			name:     "leaderboard schedule without sheet",
			modify:   func(cfg *Config) { cfg.Leaderboard.SheetID = "" },
			contains: "leaderboard.sheetID is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadFromPath_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.yaml")

	validYAML := `
store:
  driver: sqlite
  dsn: "data/helping_hands.db"
server:
  addr: ":9000"
leaderboard:
  sheetID: "sheet123"
  tab: "Top Volunteers"
  size: 25
gmail:
  userID: "user@example.com"
  sender: "Helping Hands"
schedule:
  reminders: "0 9 * * *"
  leaderboard: "0 18 * * SUN"
recurrence:
  maxOccurrences: 26
`

	err := os.WriteFile(configPath, []byte(validYAML), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/helping_hands.db", cfg.Store.DSN)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "sheet123", cfg.Leaderboard.SheetID)
	assert.Equal(t, "Top Volunteers", cfg.Leaderboard.Tab)
	assert.Equal(t, 25, cfg.Leaderboard.Size)
	assert.Equal(t, "user@example.com", cfg.Gmail.UserID)
	assert.Equal(t, "Helping Hands", cfg.Gmail.Sender)
	assert.Equal(t, "0 9 * * *", cfg.Schedule.Reminders)
	assert.Equal(t, "0 18 * * SUN", cfg.Schedule.Leaderboard)
	assert.Equal(t, 26, cfg.Recurrence.MaxOccurrences)
}

func TestLoadFromPath_AppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "minimal_config.yaml")

	err := os.WriteFile(configPath, []byte("store:\n  driver: memory\n"), 0644)
	require.NoError(t, err)

	cfg, err := LoadFromPath(configPath)
	require.NoError(t, err)

	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultLeaderboardTab, cfg.Leaderboard.Tab)
	assert.Equal(t, DefaultLeaderboardSize, cfg.Leaderboard.Size)
	assert.Equal(t, DefaultMaxOccurrences, cfg.Recurrence.MaxOccurrences)
	assert.Empty(t, cfg.Schedule.Reminders)
}

func TestLoadFromPath_MissingRequiredField(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.yaml")

	invalidConfig := `
store:
  driver: postgres
# Missing dsn
`

	err := os.WriteFile(configPath, []byte(invalidConfig), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_yaml.yaml")

	invalidYAML := `
store:
  driver: "memory"
    invalid indentation
`

	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	_, err = LoadFromPath(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadFromPath_FileNotFound(t *testing.T) {
	_, err := LoadFromPath("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestConfigFileName(t *testing.T) {
	assert.Equal(t, "helping_hands_config.yaml", ConfigFileName(""))
	assert.Equal(t, "helping_hands_config.test.yaml", ConfigFileName("test"))
}

func TestLoad_FromCurrentDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	err := os.WriteFile(ConfigFileName("dev"), []byte("store:\n  driver: memory\n"), 0644)
	require.NoError(t, err)

	cfg, err := Load("dev")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

const oauthClientJSON = `{
  "installed": {
    "client_id": "id.apps.googleusercontent.com",
    "project_id": "helping-hands",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
    "client_secret": "secret",
    "redirect_uris": ["http://localhost"]
  }
}`

func validOAuthClient() *OAuthClientConfig {
	return &OAuthClientConfig{
		Installed: OAuthInstalled{
			ClientID:                "test-client-id.apps.googleusercontent.com",
			ProjectID:               "test-project",
			AuthURI:                 "https://accounts.google.com/o/oauth2/auth",
			TokenURI:                "https://oauth2.googleapis.com/token",
			AuthProviderX509CertURL: "https://www.googleapis.com/oauth2/v1/certs",
			ClientSecret:            "test-secret",
			RedirectURIs:            []string{"http://localhost"},
		},
	}
}

func TestValidateOAuthClient(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(cfg *OAuthClientConfig)
		wantErr bool
	}{
		{name: "valid", modify: func(cfg *OAuthClientConfig) {}},
		{name: "missing client id", modify: func(cfg *OAuthClientConfig) { cfg.Installed.ClientID = "" }, wantErr: true},
		{name: "invalid auth uri", modify: func(cfg *OAuthClientConfig) { cfg.Installed.AuthURI = "not-a-valid-url" }, wantErr: true},
		{name: "no redirect uris", modify: func(cfg *OAuthClientConfig) { cfg.Installed.RedirectURIs = nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validOAuthClient()
			tt.modify(cfg)

			err := ValidateOAuthClient(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "oauth client validation failed")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadOAuthClientFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "oauthClient.test.json")

	require.NoError(t, os.WriteFile(path, []byte(oauthClientJSON), 0600))

	cfg, err := LoadOAuthClientFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "helping-hands", cfg.Installed.ProjectID)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	_, err = LoadOAuthClientFromPath(path)
	assert.ErrorContains(t, err, "failed to parse oauth client file")
}

func TestOAuthClientFileName(t *testing.T) {
	assert.Equal(t, "oauthClient.json", OAuthClientFileName(""))
	assert.Equal(t, "oauthClient.test.json", OAuthClientFileName("test"))
}

func TestLoadOAuthClient(t *testing.T) {
	t.Run("searches the current directory", func(t *testing.T) {
		chdir(t, t.TempDir())
		require.NoError(t, os.WriteFile(OAuthClientFileName("dev"), []byte(oauthClientJSON), 0600))

		client, err := (&Config{}).LoadOAuthClient("dev")
		require.NoError(t, err)
		assert.Equal(t, "helping-hands", client.Installed.ProjectID)
	})

	t.Run("configured file wins", func(t *testing.T) {
		chdir(t, t.TempDir())
		require.NoError(t, os.WriteFile(OAuthClientFileName("dev"), []byte("{not json"), 0600))
		path := filepath.Join(t.TempDir(), "client.json")
		require.NoError(t, os.WriteFile(path, []byte(oauthClientJSON), 0600))

		cfg := &Config{Google: GoogleConfig{OAuthClientFile: path}}
		client, err := cfg.LoadOAuthClient("dev")
		require.NoError(t, err)
		assert.Equal(t, "secret", client.Installed.ClientSecret)
	})

	t.Run("missing file", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("HOME", t.TempDir())

		_, err := (&Config{}).LoadOAuthClient("nowhere")
		assert.ErrorContains(t, err, "oauthClient.nowhere.json not found")
	})
}

func TestLoadFromPath_GoogleSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "store:\n  driver: memory\ngoogle:\n  oauthClientFile: /etc/helping-hands/client.json\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/helping-hands/client.json", cfg.Google.OAuthClientFile)
}
