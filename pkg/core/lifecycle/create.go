package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

// NewTask is the input for creating a task
type NewTask struct {
	RequesterID              string    `validate:"required"`
	Title                    string    `validate:"required,max=200"`
	Description              string    `validate:"max=2000"`
	Location                 string    `validate:"max=200"`
	ScheduledAt              time.Time `validate:"required"`
	EstimatedDurationMinutes int       `validate:"min=1,max=1440"`
}

// Create validates the input and stores a new AVAILABLE task
func (l *Lifecycle) Create(ctx context.Context, input NewTask) (*model.Task, error) {
	if err := l.validateNewTask(input); err != nil {
		return nil, err
	}

	var created *model.Task
	err := l.database.WithTx(ctx, func(tx db.Database) error {
		if _, err := l.actor(ctx, tx, input.RequesterID, model.RoleElderly); err != nil {
			return err
		}
		task := input.toTask("")
		if _, err := tx.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		created = task
		return nil
	})
	if err != nil {
		l.logFailure("create", "", input.RequesterID, err)
		return nil, err
	}

	l.logger.Info("Task created",
		zap.String("task_id", created.ID),
		zap.String("requester_id", created.RequesterID),
		zap.Time("scheduled_at", created.ScheduledAt),
		zap.Int("duration_minutes", created.EstimatedDurationMinutes))

	return created, nil
}

// CreateSeries creates one AVAILABLE task per occurrence of an RFC 5545 recurrence rule
// (e.g. "FREQ=WEEKLY;BYDAY=MO;COUNT=6"), starting at input.ScheduledAt.
// The series is capped at limit occurrences, or the configured maximum when limit <= 0.
func (l *Lifecycle) CreateSeries(ctx context.Context, input NewTask, rule string, limit int) ([]model.Task, error) {
	if err := l.validateNewTask(input); err != nil {
		return nil, err
	}

	occurrences, err := l.expandRule(rule, input.ScheduledAt, limit)
	if err != nil {
		return nil, err
	}

	seriesID := uuid.New().String()
	tasks := make([]model.Task, 0, len(occurrences))

	err = l.database.WithTx(ctx, func(tx db.Database) error {
		if _, err := l.actor(ctx, tx, input.RequesterID, model.RoleElderly); err != nil {
			return err
		}
		for _, at := range occurrences {
			occurrence := input
			occurrence.ScheduledAt = at
			task := occurrence.toTask(seriesID)
			if _, err := tx.CreateTask(ctx, task); err != nil {
				return fmt.Errorf("failed to create task for %s: %w", at.Format(time.RFC3339), err)
			}
			tasks = append(tasks, *task)
		}
		return nil
	})
	if err != nil {
		l.logFailure("create-series", "", input.RequesterID, err)
		return nil, err
	}

	l.logger.Info("Task series created",
		zap.String("series_id", seriesID),
		zap.String("requester_id", input.RequesterID),
		zap.String("rule", rule),
		zap.Int("count", len(tasks)))

	return tasks, nil
}

// expandRule returns the occurrence times of rule anchored at start
func (l *Lifecycle) expandRule(rule string, start time.Time, limit int) ([]time.Time, error) {
	rule = strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:")
	if rule == "" {
		return nil, &model.ValidationError{Field: "rule", Reason: "recurrence rule is required"}
	}

	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, &model.ValidationError{Field: "rule", Reason: err.Error()}
	}

	if limit <= 0 || limit > l.maxOccurrences {
		limit = l.maxOccurrences
	}
	if opt.Count <= 0 || opt.Count > limit {
		opt.Count = limit
	}
	opt.Dtstart = start

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, &model.ValidationError{Field: "rule", Reason: err.Error()}
	}

	occurrences := r.All()
	if len(occurrences) == 0 {
		return nil, &model.ValidationError{Field: "rule", Reason: "recurrence rule produces no occurrences"}
	}
	return occurrences, nil
}

func (l *Lifecycle) validateNewTask(input NewTask) error {
	err := l.validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &model.ValidationError{
			Field:  fe.Field(),
			Reason: fmt.Sprintf("failed on '%s' (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return &model.ValidationError{Reason: err.Error()}
}

func (n NewTask) toTask(seriesID string) *model.Task {
	return &model.Task{
		SeriesID:                 seriesID,
		RequesterID:              n.RequesterID,
		Status:                   model.StatusAvailable,
		EstimatedDurationMinutes: n.EstimatedDurationMinutes,
		Title:                    strings.TrimSpace(n.Title),
		Description:              n.Description,
		Location:                 n.Location,
		ScheduledAt:              n.ScheduledAt.UTC(),
	}
}
