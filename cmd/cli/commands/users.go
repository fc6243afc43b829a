package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/services"
)

const defaultRosterTab = "Roster"

// RegisterUserCmd creates the registerUser command
func RegisterUserCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registerUser <username> <role>",
		Short: "Register an ELDERLY or VOLUNTEER user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			firstName, _ := cmd.Flags().GetString("first-name")
			lastName, _ := cmd.Flags().GetString("last-name")
			email, _ := cmd.Flags().GetString("email")

			app.Logger.Debug("registerUser command", zap.String("username", args[0]), zap.String("role", args[1]))

			user, err := services.RegisterUser(app.Ctx, app.Database, services.NewUser{
				ID:        id,
				Username:  args[0],
				FirstName: firstName,
				LastName:  lastName,
				Email:     email,
				Role:      args[1],
			}, app.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ User registered successfully!\n\n")
			fmt.Fprintf(out, "ID:       %s\n", user.ID)
			fmt.Fprintf(out, "Username: %s\n", user.Username)
			fmt.Fprintf(out, "Name:     %s\n", user.DisplayName())
			fmt.Fprintf(out, "Role:     %s\n\n", user.Role)
			return nil
		},
	}

	cmd.Flags().String("id", "", "Explicit user id (generated when empty)")
	cmd.Flags().String("first-name", "", "First name")
	cmd.Flags().String("last-name", "", "Last name")
	cmd.Flags().String("email", "", "Email address for reminders")

	return cmd
}

// ImportUsersCmd creates the importUsers command
func ImportUsersCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "importUsers <spreadsheet_id> [tab]",
		Short: "Register every user listed on a roster sheet",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tab := defaultRosterTab
			if len(args) > 1 {
				tab = args[1]
			}

			sheets, err := app.Sheets()
			if err != nil {
				return err
			}

			result, err := services.ImportRoster(app.Ctx, app.Database, sheets, args[0], tab, app.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Roster import completed!\n\n")
			if len(result.Created) > 0 {
				fmt.Fprintf(out, "Registered %d users:\n", len(result.Created))
				for _, u := range result.Created {
					fmt.Fprintf(out, "  ✓ %s (%s) - %s\n", u.DisplayName(), u.ID, u.Role)
				}
				fmt.Fprintln(out)
			}
			if len(result.Skipped) > 0 {
				fmt.Fprintf(out, "Skipped %d users already registered or invalid:\n", len(result.Skipped))
				for _, u := range result.Skipped {
					fmt.Fprintf(out, "  - %s\n", u.Username)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}
