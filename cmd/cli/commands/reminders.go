package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jakechorley/helping-hands/pkg/core/services"
)

// SendConfirmationRemindersCmd creates the sendConfirmationReminders command
func SendConfirmationRemindersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sendConfirmationReminders",
		Short: "Email users whose confirmation is outstanding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gmail, err := app.Gmail()
			if err != nil {
				return err
			}

			sent, failed, err := services.SendConfirmationReminders(app.Ctx, app.Database, gmail, app.Logger, app.Now())
			if err != nil {
				return err
			}
			printReminderResults(cmd.OutOrStdout(), sent, failed)
			return nil
		},
	}
}

func printReminderResults(w io.Writer, sent []services.ReminderSent, failed []services.FailedEmail) {
	fmt.Fprintf(w, "\n✓ Confirmation reminders completed!\n\n")

	if len(sent) > 0 {
		fmt.Fprintf(w, "Reminders sent to %d users:\n", len(sent))
		for _, r := range sent {
			fmt.Fprintf(w, "  ✓ %s (%s) for task %s\n", r.UserName, r.Email, r.TaskID)
		}
		fmt.Fprintln(w)
	}

	if len(failed) > 0 {
		fmt.Fprintf(w, "⚠️  Failed to send %d emails:\n", len(failed))
		for _, f := range failed {
			fmt.Fprintf(w, "  ✗ %s (%s): %s\n", f.UserName, f.Email, f.Error)
		}
		fmt.Fprintln(w)
	}

	if len(sent) == 0 && len(failed) == 0 {
		fmt.Fprintln(w, "No confirmations outstanding.")
	}
}
