package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/internal/config"
	"github.com/jakechorley/helping-hands/pkg/clients/gmailclient"
	"github.com/jakechorley/helping-hands/pkg/clients/sheetsclient"
	"github.com/jakechorley/helping-hands/pkg/core/catalog"
	"github.com/jakechorley/helping-hands/pkg/core/lifecycle"
	"github.com/jakechorley/helping-hands/pkg/core/services"
	"github.com/jakechorley/helping-hands/pkg/db"
	"github.com/jakechorley/helping-hands/pkg/utils"
)

// SheetsClient is the subset of the Sheets client used by commands
type SheetsClient interface {
	services.LeaderboardPublisher
	services.RosterClient
}

// AppContext holds the application dependencies shared across all commands.
// Google clients are created on first use so local commands never trigger the OAuth flow.
type AppContext struct {
	Env       string
	Cfg       *config.Config
	Database  db.Database
	Lifecycle *lifecycle.Lifecycle
	Catalog   *catalog.Catalog
	Logger    *zap.Logger
	Ctx       context.Context
	Now       func() time.Time

	SheetsClient SheetsClient
	GmailClient  services.GmailClient

	mu       sync.Mutex
	oauthCfg *config.OAuthClientConfig
}

// Init wires the core services around an open database. Commands are built before
// the store is opened, so they hold the AppContext pointer and read it at run time.
func (a *AppContext) Init(ctx context.Context, env string, cfg *config.Config, database db.Database, logger *zap.Logger) {
	a.Env = env
	a.Cfg = cfg
	a.Database = database
	a.Lifecycle = lifecycle.New(database, logger, lifecycle.WithMaxOccurrences(cfg.Recurrence.MaxOccurrences))
	a.Catalog = catalog.New(database)
	a.Logger = logger
	a.Ctx = ctx
	if a.Now == nil {
		a.Now = time.Now
	}
}

// Sheets returns the Sheets client, authenticating on first use
func (a *AppContext) Sheets() (SheetsClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.SheetsClient != nil {
		return a.SheetsClient, nil
	}

	oauthCfg, err := a.loadOAuthClient()
	if err != nil {
		return nil, err
	}

	a.Logger.Info("Initializing sheets client")
	client, err := sheetsclient.NewClient(a.Ctx, oauthCfg, a.Env, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	a.SheetsClient = client
	return client, nil
}

// Gmail returns the Gmail client, authenticating on first use
func (a *AppContext) Gmail() (services.GmailClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.GmailClient != nil {
		return a.GmailClient, nil
	}

	oauthCfg, err := a.loadOAuthClient()
	if err != nil {
		return nil, err
	}
	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}
	token, err := utils.GetTokenWithFlow(a.Ctx, oauthConfig, a.Env, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth token: %w", err)
	}

	a.Logger.Info("Initializing gmail client")
	client, err := gmailclient.NewClient(a.Ctx, oauthCfg, token, a.Cfg.Gmail)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail client: %w", err)
	}
	a.GmailClient = client
	return client, nil
}

func (a *AppContext) loadOAuthClient() (*config.OAuthClientConfig, error) {
	if a.oauthCfg != nil {
		return a.oauthCfg, nil
	}
	a.Logger.Debug("Loading OAuth client configuration")
	oauthCfg, err := a.Cfg.LoadOAuthClient(a.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}
	a.oauthCfg = oauthCfg
	return oauthCfg, nil
}
