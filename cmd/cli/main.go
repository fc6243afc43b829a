package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/cmd/cli/commands"
	"github.com/jakechorley/helping-hands/internal/config"
	"github.com/jakechorley/helping-hands/pkg/db"
	"github.com/jakechorley/helping-hands/pkg/postgres"
	"github.com/jakechorley/helping-hands/pkg/sqlite"
	"github.com/jakechorley/helping-hands/pkg/utils/logging"
)

var env string

func main() {
	app := &commands.AppContext{}

	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Helping Hands CLI - Match elderly requesters with volunteers",
		Long: `A CLI tool for managing help requests: creating tasks, assigning volunteers,
the two-sided completion handshake, reminders and the volunteer leaderboard.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(app)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Database != nil {
				app.Database.Close()
			}
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	_ = rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.RegisterUserCmd(app))
	rootCmd.AddCommand(commands.ImportUsersCmd(app))
	rootCmd.AddCommand(commands.CreateTaskCmd(app))
	rootCmd.AddCommand(commands.AssignTaskCmd(app))
	rootCmd.AddCommand(commands.StartTaskCmd(app))
	rootCmd.AddCommand(commands.VolunteerConfirmCmd(app))
	rootCmd.AddCommand(commands.ElderlyConfirmCmd(app))
	rootCmd.AddCommand(commands.ReassignTaskCmd(app))
	rootCmd.AddCommand(commands.CancelTaskCmd(app))
	rootCmd.AddCommand(commands.DeleteTaskCmd(app))
	rootCmd.AddCommand(commands.ListTasksCmd(app))
	rootCmd.AddCommand(commands.ShowTaskCmd(app))
	rootCmd.AddCommand(commands.LeaderboardCmd(app))
	rootCmd.AddCommand(commands.SendConfirmationRemindersCmd(app))
	rootCmd.AddCommand(commands.ServeCmd(app))
	rootCmd.AddCommand(commands.ScheduleCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up the logger, configuration and database
func initApp(app *commands.AppContext) error {
	ctx := context.Background()

	logger, err := logging.InitLogger(env, logging.DefaultDir)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting application")

	logger.Debug("Loading configuration")
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("Opening store", zap.String("driver", cfg.Store.Driver))
	database, err := openDatabase(ctx, cfg.Store)
	if err != nil {
		return err
	}

	app.Init(ctx, env, cfg, database, logger)
	logger.Debug("Application initialized")
	return nil
}

// openDatabase opens the configured engine, applying migrations where the engine has them
func openDatabase(ctx context.Context, storeCfg config.StoreConfig) (db.Database, error) {
	switch storeCfg.Driver {
	case "postgres":
		pg, err := postgres.NewDB(ctx, storeCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := pg.RunMigrations(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return pg, nil
	case "sqlite":
		lite, err := sqlite.NewDB(storeCfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		return lite, nil
	case "memory":
		return db.NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", storeCfg.Driver)
	}
}
