package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/catalog"
	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

// GmailClient defines the operations needed to send emails
type GmailClient interface {
	SendEmail(to, subject, body string) error
}

// ReminderStore defines the database operations needed for sending confirmation reminders
type ReminderStore interface {
	QueryTasks(ctx context.Context, filter db.TaskFilter) ([]model.Task, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// ReminderSent represents a user who was successfully reminded about a task
type ReminderSent struct {
	TaskID   string
	UserID   string
	UserName string
	Email    string
	Role     model.Role
}

// FailedEmail represents a reminder that could not be delivered
type FailedEmail struct {
	TaskID   string
	UserID   string
	UserName string
	Email    string
	Error    string
}

// pendingReminder is a task paired with the user whose confirmation is outstanding
type pendingReminder struct {
	task   model.Task
	userID string
	role   model.Role
}

// SendConfirmationReminders emails whoever still has to confirm a task: the requester for
// PENDING_ELDERLY_CONFIRMATION, the volunteer for PENDING_VOLUNTEER_CONFIRMATION, and the
// volunteer for ASSIGNED or IN_PROGRESS tasks whose scheduled end is before now.
// A failed user lookup or send is reported per reminder; an error is returned only if
// every attempt failed.
func SendConfirmationReminders(
	ctx context.Context,
	store ReminderStore,
	gmailClient GmailClient,
	logger *zap.Logger,
	now time.Time,
) ([]ReminderSent, []FailedEmail, error) {
	logger.Debug("Starting sendConfirmationReminders", zap.Time("now", now))

	tasks, err := store.QueryTasks(ctx, db.TaskFilter{Statuses: []model.TaskStatus{
		model.StatusAssigned,
		model.StatusInProgress,
		model.StatusPendingVolunteerConfirmation,
		model.StatusPendingElderlyConfirmation,
	}})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	catalog.SortBySchedule(tasks)
	logger.Debug("Found open tasks", zap.Int("count", len(tasks)))

	pending := remindersFor(tasks, now)
	if len(pending) == 0 {
		logger.Info("No tasks awaiting confirmation")
		return []ReminderSent{}, []FailedEmail{}, nil
	}

	remindersSent := []ReminderSent{}
	failedEmails := []FailedEmail{}
	attempted := 0

	for _, p := range pending {
		user, err := store.GetUser(ctx, p.userID)
		if err != nil {
			attempted++
			logger.Warn("Failed to fetch user for reminder",
				zap.String("task_id", p.task.ID),
				zap.String("user_id", p.userID),
				zap.Error(err))
			failedEmails = append(failedEmails, FailedEmail{
				TaskID: p.task.ID,
				UserID: p.userID,
				Error:  fmt.Sprintf("failed to fetch user: %v", err),
			})
			continue
		}

		if user.Email == "" {
			logger.Warn("Skipping reminder - user has no email",
				zap.String("task_id", p.task.ID),
				zap.String("user_id", user.ID))
			continue
		}
		attempted++

		subject, body := reminderEmail(p.task, user)
		logger.Info("Sending confirmation reminder",
			zap.String("task_id", p.task.ID),
			zap.String("user_id", user.ID),
			zap.String("email", user.Email))

		if err := gmailClient.SendEmail(user.Email, subject, body); err != nil {
			logger.Warn("Failed to send confirmation reminder",
				zap.String("task_id", p.task.ID),
				zap.String("email", user.Email),
				zap.Error(err))

			failedEmails = append(failedEmails, FailedEmail{
				TaskID:   p.task.ID,
				UserID:   user.ID,
				UserName: user.DisplayName(),
				Email:    user.Email,
				Error:    err.Error(),
			})
			continue
		}

		remindersSent = append(remindersSent, ReminderSent{
			TaskID:   p.task.ID,
			UserID:   user.ID,
			UserName: user.DisplayName(),
			Email:    user.Email,
			Role:     p.role,
		})
	}

	if attempted > 0 && len(failedEmails) == attempted {
		return nil, nil, fmt.Errorf("all %d reminder email send attempts failed", len(failedEmails))
	}

	logger.Debug("Send confirmation reminders completed",
		zap.Int("reminders_sent", len(remindersSent)),
		zap.Int("reminders_failed", len(failedEmails)))

	return remindersSent, failedEmails, nil
}

// remindersFor picks who to remind for each task
func remindersFor(tasks []model.Task, now time.Time) []pendingReminder {
	var out []pendingReminder
	for _, task := range tasks {
		switch task.Status {
		case model.StatusPendingElderlyConfirmation:
			out = append(out, pendingReminder{task: task, userID: task.RequesterID, role: model.RoleElderly})
		case model.StatusPendingVolunteerConfirmation:
			out = append(out, pendingReminder{task: task, userID: task.VolunteerID, role: model.RoleVolunteer})
		case model.StatusAssigned, model.StatusInProgress:
			if scheduledEnd(task).Before(now) {
				out = append(out, pendingReminder{task: task, userID: task.VolunteerID, role: model.RoleVolunteer})
			}
		}
	}
	return out
}

func scheduledEnd(task model.Task) time.Time {
	return task.ScheduledAt.Add(time.Duration(task.EstimatedDurationMinutes) * time.Minute)
}

func reminderEmail(task model.Task, user *model.User) (string, string) {
	when := task.ScheduledAt.Format("Mon Jan 02 2006 15:04")
	subject := fmt.Sprintf("Reminder: please confirm \"%s\" is done", task.Title)

	var ask string
	if user.Role == model.RoleElderly {
		ask = "Your volunteer has marked this task as done. Please confirm it went ahead so their hours can be counted."
	} else {
		ask = "Please confirm you completed this task so it can be closed and your points awarded."
	}

	body := fmt.Sprintf("Hi %s\n\n%s\n\nTask: %s\nWhen: %s\nWhere: %s\nTask ID: %s\n\nThanks\nThe Helping Hands team\n",
		user.DisplayName(), ask, task.Title, when, task.Location, task.ID)
	return subject, body
}
