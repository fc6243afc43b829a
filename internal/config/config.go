package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServerAddr      = ":8080"
	DefaultLeaderboardTab  = "Leaderboard"
	DefaultLeaderboardSize = 10
	DefaultMaxOccurrences  = 52
)

// StoreConfig selects the database engine
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"required,oneof=postgres sqlite memory"`
	DSN    string `yaml:"dsn" validate:"required_unless=Driver memory"`
}

type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// LeaderboardConfig controls where and how much of the leaderboard is published
type LeaderboardConfig struct {
	SheetID string `yaml:"sheetID,omitempty"`
	Tab     string `yaml:"tab,omitempty"`
	Size    int    `yaml:"size,omitempty" validate:"min=0,max=1000"`
}

type GmailConfig struct {
	UserID string `yaml:"userID,omitempty" validate:"omitempty,email"`
	Sender string `yaml:"sender,omitempty"`
}

// ScheduleConfig holds standard five-field cron expressions. Empty disables the job.
type ScheduleConfig struct {
	Reminders   string `yaml:"reminders,omitempty"`
	Leaderboard string `yaml:"leaderboard,omitempty"`
}

type RecurrenceConfig struct {
	MaxOccurrences int `yaml:"maxOccurrences,omitempty" validate:"min=0,max=366"`
}

// GoogleConfig points at the OAuth client used by the Sheets and Gmail clients.
// Empty OAuthClientFile searches for OAuthClientFileName(env).
type GoogleConfig struct {
	OAuthClientFile string `yaml:"oauthClientFile,omitempty"`
}

// Config represents the application configuration
type Config struct {
	Store       StoreConfig       `yaml:"store" validate:"required"`
	Server      ServerConfig      `yaml:"server,omitempty"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard,omitempty"`
	Gmail       GmailConfig       `yaml:"gmail,omitempty"`
	Schedule    ScheduleConfig    `yaml:"schedule,omitempty"`
	Recurrence  RecurrenceConfig  `yaml:"recurrence,omitempty"`
	Google      GoogleConfig      `yaml:"google,omitempty"`
}

// OAuthClientConfig is the "installed app" client file downloaded from the Google console
type OAuthClientConfig struct {
	Installed OAuthInstalled `json:"installed" validate:"required"`
}

type OAuthInstalled struct {
	ClientID                string   `json:"client_id" validate:"required"`
	ProjectID               string   `json:"project_id" validate:"required"`
	AuthURI                 string   `json:"auth_uri" validate:"required,url"`
	TokenURI                string   `json:"token_uri" validate:"required,url"`
	AuthProviderX509CertURL string   `json:"auth_provider_x509_cert_url" validate:"required,url"`
	ClientSecret            string   `json:"client_secret" validate:"required"`
	RedirectURIs            []string `json:"redirect_uris" validate:"required,min=1,dive,uri"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load loads and validates the configuration for env.
// It looks for the config file in the current directory first, then in the user's home directory
func Load(env string) (*Config, error) {
	configPath, err := findFile(ConfigFileName(env))
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Validate validates the configuration struct and checks cron syntax
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	schedules := map[string]string{
		"schedule.reminders":   cfg.Schedule.Reminders,
		"schedule.leaderboard": cfg.Schedule.Leaderboard,
	}
	for field, spec := range schedules {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid cron expression in %s: %w", field, err)
		}
	}

	if cfg.Schedule.Reminders != "" && cfg.Gmail.UserID == "" {
		return fmt.Errorf("config validation failed: gmail.userID is required when schedule.reminders is set")
	}
	if cfg.Schedule.Leaderboard != "" && cfg.Leaderboard.SheetID == "" {
		return fmt.Errorf("config validation failed: leaderboard.sheetID is required when schedule.leaderboard is set")
	}

	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultServerAddr
	}
	if cfg.Leaderboard.Tab == "" {
		cfg.Leaderboard.Tab = DefaultLeaderboardTab
	}
	if cfg.Leaderboard.Size == 0 {
		cfg.Leaderboard.Size = DefaultLeaderboardSize
	}
	if cfg.Recurrence.MaxOccurrences == 0 {
		cfg.Recurrence.MaxOccurrences = DefaultMaxOccurrences
	}
}

// ConfigFileName returns helping_hands_config.yaml, or helping_hands_config.<env>.yaml when env is set
func ConfigFileName(env string) string {
	if env == "" {
		return "helping_hands_config.yaml"
	}
	return "helping_hands_config." + env + ".yaml"
}

// OAuthClientFileName returns oauthClient.json, or oauthClient.<env>.json when env is set
func OAuthClientFileName(env string) string {
	if env == "" {
		return "oauthClient.json"
	}
	return "oauthClient." + env + ".json"
}

// LoadOAuthClient loads the Google OAuth client for env, preferring google.oauthClientFile
func (c *Config) LoadOAuthClient(env string) (*OAuthClientConfig, error) {
	path := c.Google.OAuthClientFile
	if path == "" {
		found, err := findFile(OAuthClientFileName(env))
		if err != nil {
			return nil, fmt.Errorf("failed to find oauth client file: %w", err)
		}
		path = found
	}
	return LoadOAuthClientFromPath(path)
}

// LoadOAuthClientFromPath reads and validates an OAuth client file
func LoadOAuthClientFromPath(path string) (*OAuthClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client file: %w", err)
	}

	var client OAuthClientConfig
	if err := json.Unmarshal(data, &client); err != nil {
		return nil, fmt.Errorf("failed to parse oauth client file %s: %w", path, err)
	}
	if err := ValidateOAuthClient(&client); err != nil {
		return nil, err
	}
	return &client, nil
}

func ValidateOAuthClient(client *OAuthClientConfig) error {
	if err := validate.Struct(client); err != nil {
		return fmt.Errorf("oauth client validation failed: %w", err)
	}
	return nil
}

// findFile looks for name in the current directory, then in the user's home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	homePath := filepath.Join(homeDir, name)
	if _, err := os.Stat(homePath); err == nil {
		return homePath, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
