package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/lifecycle"
	"github.com/jakechorley/helping-hands/pkg/core/model"
)

// CreateTaskCmd creates the createTask command
func CreateTaskCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createTask <requester_id> <title>",
		Short: "Create a task, or a recurring series with --rrule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, _ := cmd.Flags().GetString("at")
			duration, _ := cmd.Flags().GetInt("duration")
			description, _ := cmd.Flags().GetString("description")
			location, _ := cmd.Flags().GetString("location")
			rule, _ := cmd.Flags().GetString("rrule")
			count, _ := cmd.Flags().GetInt("count")

			scheduledAt, err := parseScheduledAt(at, time.Local)
			if err != nil {
				return err
			}

			input := lifecycle.NewTask{
				RequesterID:              args[0],
				Title:                    args[1],
				Description:              description,
				Location:                 location,
				ScheduledAt:              scheduledAt,
				EstimatedDurationMinutes: duration,
			}

			app.Logger.Debug("createTask command",
				zap.String("requester_id", input.RequesterID),
				zap.Time("scheduled_at", scheduledAt),
				zap.String("rrule", rule))

			out := cmd.OutOrStdout()
			if rule == "" {
				task, err := app.Lifecycle.Create(app.Ctx, input)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "\n✓ Task created successfully!\n\n")
				printTask(out, task)
				fmt.Fprintln(out)
				return nil
			}

			tasks, err := app.Lifecycle.CreateSeries(app.Ctx, input, rule, count)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n✓ Created %d tasks in series %s\n\n", len(tasks), tasks[0].SeriesID)
			printTaskTable(out, tasks)
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().String("at", "", "Start time (RFC 3339 or 'YYYY-MM-DD HH:MM' local time)")
	cmd.Flags().Int("duration", 60, "Estimated duration in minutes")
	cmd.Flags().String("description", "", "Task description")
	cmd.Flags().String("location", "", "Where the help is needed")
	cmd.Flags().String("rrule", "", "Recurrence rule, e.g. FREQ=WEEKLY;BYDAY=MO")
	cmd.Flags().Int("count", 0, "Maximum occurrences for --rrule (0 uses the configured cap)")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

type transitionRunner func(ctx context.Context, taskID, actorID string, args []string) (*model.Task, error)

// transitionCmd builds a command of the form "<name> <task_id> <actor_id> [extra...]"
func transitionCmd(app *AppContext, use, short string, argCheck cobra.PositionalArgs, run transitionRunner) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  argCheck,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug(cmd.Name()+" command",
				zap.String("task_id", args[0]),
				zap.String("actor_id", args[1]))

			task, err := run(app.Ctx, args[0], args[1], args[2:])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n✓ Task %s is now %s%s%s\n\n", task.ID, statusColor(task.Status), task.Status, colorReset)
			printTask(out, task)
			fmt.Fprintln(out)
			return nil
		},
	}
}

// AssignTaskCmd creates the assignTask command
func AssignTaskCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "assignTask <task_id> <volunteer_id>", "Assign an available task to a volunteer", cobra.ExactArgs(2),
		func(ctx context.Context, taskID, actorID string, _ []string) (*model.Task, error) {
			return app.Lifecycle.Assign(ctx, taskID, actorID)
		})
}

// StartTaskCmd creates the startTask command
func StartTaskCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "startTask <task_id> <volunteer_id>", "Mark an assigned task as in progress", cobra.ExactArgs(2),
		func(ctx context.Context, taskID, actorID string, _ []string) (*model.Task, error) {
			return app.Lifecycle.MarkInProgress(ctx, taskID, actorID)
		})
}

// VolunteerConfirmCmd creates the volunteerConfirm command
func VolunteerConfirmCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "volunteerConfirm <task_id> <volunteer_id>", "Confirm completion as the volunteer", cobra.ExactArgs(2),
		func(ctx context.Context, taskID, actorID string, _ []string) (*model.Task, error) {
			return app.Lifecycle.VolunteerConfirm(ctx, taskID, actorID)
		})
}

// ElderlyConfirmCmd creates the elderlyConfirm command
func ElderlyConfirmCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "elderlyConfirm <task_id> <requester_id>", "Confirm completion as the requester", cobra.ExactArgs(2),
		func(ctx context.Context, taskID, actorID string, _ []string) (*model.Task, error) {
			return app.Lifecycle.ElderlyConfirm(ctx, taskID, actorID)
		})
}

// ReassignTaskCmd creates the reassignTask command
func ReassignTaskCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "reassignTask <task_id> <requester_id> [reason]", "Remove the volunteer and reopen the task", cobra.RangeArgs(2, 3),
		func(ctx context.Context, taskID, actorID string, extra []string) (*model.Task, error) {
			reason := ""
			if len(extra) > 0 {
				reason = extra[0]
			}
			return app.Lifecycle.Reassign(ctx, taskID, actorID, reason)
		})
}

// CancelTaskCmd creates the cancelTask command
func CancelTaskCmd(app *AppContext) *cobra.Command {
	return transitionCmd(app, "cancelTask <task_id> <requester_id>", "Cancel a task that has not completed", cobra.ExactArgs(2),
		func(ctx context.Context, taskID, actorID string, _ []string) (*model.Task, error) {
			return app.Lifecycle.Cancel(ctx, taskID, actorID)
		})
}

// DeleteTaskCmd creates the deleteTask command
func DeleteTaskCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deleteTask <task_id> <requester_id>",
		Short: "Delete an available or cancelled task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("deleteTask command", zap.String("task_id", args[0]), zap.String("actor_id", args[1]))
			if err := app.Lifecycle.Delete(app.Ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Task %s deleted\n\n", args[0])
			return nil
		},
	}
}

// ShowTaskCmd creates the showTask command
func ShowTaskCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "showTask <task_id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := app.Lifecycle.Get(app.Ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printTask(out, task)
			fmt.Fprintln(out)
			return nil
		},
	}
}

// ListTasksCmd creates the listTasks command
func ListTasksCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listTasks",
		Short: "List tasks (available by default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			requester, _ := cmd.Flags().GetString("requester")
			volunteer, _ := cmd.Flags().GetString("volunteer")
			awaiting, _ := cmd.Flags().GetBool("awaiting")

			var (
				tasks []model.Task
				title string
				err   error
			)
			switch {
			case requester != "":
				title = "Tasks requested by " + requester
				tasks, err = app.Catalog.ByRequester(app.Ctx, requester)
			case volunteer != "":
				title = "Tasks assigned to " + volunteer
				tasks, err = app.Catalog.ByVolunteer(app.Ctx, volunteer)
			case awaiting:
				title = "Tasks awaiting confirmation"
				tasks, err = app.Catalog.AwaitingConfirmation(app.Ctx)
			default:
				title = "Available tasks"
				tasks, err = app.Catalog.Available(app.Ctx)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\n%s (%d)\n\n", title, len(tasks))
			printTaskTable(out, tasks)
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().String("requester", "", "Only tasks created by this requester")
	cmd.Flags().String("volunteer", "", "Only tasks currently assigned to this volunteer")
	cmd.Flags().Bool("awaiting", false, "Only tasks waiting for one side to confirm")

	return cmd
}
