package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/leaderboard"
	"github.com/jakechorley/helping-hands/pkg/core/services"
)

// LeaderboardCmd creates the leaderboard command
func LeaderboardCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard [n]",
		Short: "Show the top volunteers, optionally exporting or publishing them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			xlsxPath, _ := cmd.Flags().GetString("xlsx")
			publish, _ := cmd.Flags().GetBool("publish")

			n := app.Cfg.Leaderboard.Size
			if len(args) > 0 {
				parsed, err := strconv.Atoi(args[0])
				if err != nil || parsed < 0 {
					return fmt.Errorf("n must be a non-negative integer, got: %s", args[0])
				}
				n = parsed
			}

			app.Logger.Debug("leaderboard command", zap.Int("n", n), zap.String("xlsx", xlsxPath), zap.Bool("publish", publish))

			out := cmd.OutOrStdout()
			now := app.Now()

			entries, err := leaderboard.TopN(app.Ctx, app.Database, n)
			if err != nil {
				return err
			}
			printLeaderboard(out, entries)

			if xlsxPath != "" {
				f, err := os.Create(xlsxPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", xlsxPath, err)
				}
				_, err = services.ExportLeaderboardXLSX(app.Ctx, app.Database, n, f, app.Logger, now)
				if closeErr := f.Close(); err == nil && closeErr != nil {
					err = fmt.Errorf("failed to close %s: %w", xlsxPath, closeErr)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Exported to %s\n", xlsxPath)
			}

			if publish {
				sheets, err := app.Sheets()
				if err != nil {
					return err
				}
				published, err := services.PublishLeaderboard(app.Ctx, app.Database, sheets, app.Cfg, app.Logger, now)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "✓ Published %d entries to tab %q\n", len(published), app.Cfg.Leaderboard.Tab)
			}

			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().String("xlsx", "", "Also write the leaderboard to this .xlsx file")
	cmd.Flags().Bool("publish", false, "Also publish the leaderboard to the configured spreadsheet")

	return cmd
}

func printLeaderboard(w io.Writer, entries []leaderboard.Entry) {
	fmt.Fprintf(w, "\nLeaderboard\n\n")
	if len(entries) == 0 {
		fmt.Fprintln(w, "No volunteers registered yet.")
		return
	}

	nameWidth := len("Volunteer")
	for _, e := range entries {
		if l := len(e.User.DisplayName()); l > nameWidth {
			nameWidth = l
		}
	}
	nameWidth += 2

	fmt.Fprintf(w, "%-5s%-*s%8s%7s  %-20s%7s%7s\n", "#", nameWidth, "Volunteer", "Points", "Level", "Rank", "Tasks", "Hours")
	for _, e := range entries {
		fmt.Fprintf(w, "%-5d%-*s%8d%7d  %-20s%7d%7d\n",
			e.Position,
			nameWidth, e.User.DisplayName(),
			e.Points,
			e.Level,
			e.Rank,
			e.TasksCompleted,
			e.HoursVolunteered)
	}
}
