package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/api"
	"github.com/jakechorley/helping-hands/pkg/core/services"
	"github.com/jakechorley/helping-hands/pkg/scheduler"
)

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Cfg.Server.Addr
			}

			server := api.NewServer(app.Database, app.Lifecycle, app.Logger)

			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Listen(addr)
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "\n🚀 Serving on %s (Ctrl+C to stop)\n\n", addr)

			select {
			case err := <-errCh:
				return fmt.Errorf("server stopped: %w", err)
			case <-ctx.Done():
			}

			app.Logger.Info("Shutting down HTTP server")
			if err := server.Shutdown(); err != nil {
				return fmt.Errorf("failed to shut down server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "", "Listen address (defaults to server.addr from config)")

	return cmd
}

// ScheduleCmd creates the schedule command
func ScheduleCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the configured reminder and leaderboard jobs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := scheduler.New(ctx, nil, app.Logger)
			if err := registerJobs(app, s); err != nil {
				return err
			}
			if s.Len() == 0 {
				return fmt.Errorf("no jobs configured: set schedule.reminders or schedule.leaderboard")
			}

			out := cmd.OutOrStdout()
			s.Start()
			fmt.Fprintf(out, "\n⏰ Scheduler running (Ctrl+C to stop)\n\n")
			for name, next := range s.Next() {
				fmt.Fprintf(out, "  %-14s next run %s\n", name, next.Local().Format(displayTimeLayout))
			}
			fmt.Fprintln(out)

			<-ctx.Done()
			app.Logger.Info("Stopping scheduler")
			s.Stop()
			return nil
		},
	}
}

// registerJobs adds a job for every non-empty schedule, creating the Google clients
// up front so that no job blocks on the OAuth flow
func registerJobs(app *AppContext, s *scheduler.Scheduler) error {
	if spec := app.Cfg.Schedule.Reminders; spec != "" {
		gmail, err := app.Gmail()
		if err != nil {
			return err
		}
		_, err = s.Add("reminders", spec, func(ctx context.Context) error {
			sent, failed, err := services.SendConfirmationReminders(ctx, app.Database, gmail, app.Logger, app.Now())
			app.Logger.Info("Reminder run complete", zap.Int("sent", len(sent)), zap.Int("failed", len(failed)))
			return err
		})
		if err != nil {
			return err
		}
	}

	if spec := app.Cfg.Schedule.Leaderboard; spec != "" {
		sheets, err := app.Sheets()
		if err != nil {
			return err
		}
		_, err = s.Add("leaderboard", spec, func(ctx context.Context) error {
			_, err := services.PublishLeaderboard(ctx, app.Database, sheets, app.Cfg, app.Logger, app.Now())
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}
