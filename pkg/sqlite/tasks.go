package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

func (d *DB) CreateTask(ctx context.Context, task *model.Task) (string, error) {
	task.ID = uuid.New().String()
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	row := toTaskRow(task)
	if err := d.gdb.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	return task.ID, nil
}

func (d *DB) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return getTask(d.gdb.WithContext(ctx), id)
}

func getTask(tx *gorm.DB, id string) (*model.Task, error) {
	var row taskRow
	err := tx.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &model.NotFoundError{Kind: "task", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("find task: %w", err)
	}
	task := row.toModel()
	return &task, nil
}

// UpdateTaskIf writes mutate's result with a status-guarded UPDATE so a concurrent change loses cleanly
func (d *DB) UpdateTaskIf(ctx context.Context, id string, expected model.TaskStatus, mutate db.TaskMutation) (*model.Task, error) {
	var updated *model.Task
	err := d.atomically(ctx, func(tx *gorm.DB) error {
		current, err := getTask(tx, id)
		if err != nil {
			return err
		}
		if current.Status != expected {
			return &model.ConflictError{TaskID: id, Op: "update", Status: current.Status,
				Reason: "expected status " + string(expected)}
		}

		if err := mutate(current); err != nil {
			return err
		}
		current.ID = id
		current.UpdatedAt = time.Now().UTC()

		res := tx.Model(&taskRow{}).
			Where("id = ? AND status = ?", id, string(expected)).
			Updates(map[string]any{
				"volunteer_id":               current.VolunteerID,
				"previous_volunteer_id":      current.PreviousVolunteerID,
				"status":                     string(current.Status),
				"volunteer_confirmed":        current.VolunteerConfirmed,
				"elderly_confirmed":          current.ElderlyConfirmed,
				"reassignment_reason":        current.ReassignmentReason,
				"title":                      current.Title,
				"description":                current.Description,
				"location":                   current.Location,
				"scheduled_at":               current.ScheduledAt.UTC(),
				"estimated_duration_minutes": current.EstimatedDurationMinutes,
				"updated_at":                 current.UpdatedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("update task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &model.ConflictError{TaskID: id, Op: "update", Status: current.Status,
				Reason: "task changed concurrently"}
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (d *DB) DeleteTaskIf(ctx context.Context, id string, allowed ...model.TaskStatus) (bool, error) {
	if len(allowed) == 0 {
		return false, nil
	}
	res := d.gdb.WithContext(ctx).
		Where("id = ? AND status IN ?", id, statusStrings(allowed)).
		Delete(&taskRow{})
	if res.Error != nil {
		return false, fmt.Errorf("delete task: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (d *DB) QueryTasks(ctx context.Context, filter db.TaskFilter) ([]model.Task, error) {
	q := d.gdb.WithContext(ctx).Model(&taskRow{})
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(filter.Statuses))
	}
	if filter.RequesterID != "" {
		q = q.Where("requester_id = ?", filter.RequesterID)
	}
	if filter.VolunteerID != "" {
		q = q.Where("volunteer_id = ?", filter.VolunteerID)
	}
	if filter.SeriesID != "" {
		q = q.Where("series_id = ?", filter.SeriesID)
	}

	var rows []taskRow
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toModel())
	}
	return tasks, nil
}

func statusStrings(statuses []model.TaskStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
