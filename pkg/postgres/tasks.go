package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

const taskColumns = `id, series_id, requester_id, volunteer_id, previous_volunteer_id, status,
	volunteer_confirmed, elderly_confirmed, estimated_duration_minutes, reassignment_reason,
	title, description, location, scheduled_at, created_at, updated_at`

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	var status string
	err := row.Scan(&t.ID, &t.SeriesID, &t.RequesterID, &t.VolunteerID, &t.PreviousVolunteerID, &status,
		&t.VolunteerConfirmed, &t.ElderlyConfirmed, &t.EstimatedDurationMinutes, &t.ReassignmentReason,
		&t.Title, &t.Description, &t.Location, &t.ScheduledAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	t.ScheduledAt = t.ScheduledAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

// CreateTask inserts a new task with a generated id
func (d *DB) CreateTask(ctx context.Context, task *model.Task) (string, error) {
	task.ID = uuid.New().String()
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	_, err := d.q.Exec(ctx, `
		INSERT INTO task (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, task.ID, task.SeriesID, task.RequesterID, task.VolunteerID, task.PreviousVolunteerID, string(task.Status),
		task.VolunteerConfirmed, task.ElderlyConfirmed, task.EstimatedDurationMinutes, task.ReassignmentReason,
		task.Title, task.Description, task.Location, task.ScheduledAt.UTC(), task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert task: %w", err)
	}
	return task.ID, nil
}

// GetTask retrieves a task by id
func (d *DB) GetTask(ctx context.Context, id string) (*model.Task, error) {
	task, err := scanTask(d.q.QueryRow(ctx, `SELECT `+taskColumns+` FROM task WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.NotFoundError{Kind: "task", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// UpdateTaskIf locks the task row and applies mutate only while the stored status equals expected
func (d *DB) UpdateTaskIf(ctx context.Context, id string, expected model.TaskStatus, mutate db.TaskMutation) (*model.Task, error) {
	var updated *model.Task
	err := d.inTx(ctx, func(q queryer) error {
		current, err := scanTask(q.QueryRow(ctx, `SELECT `+taskColumns+` FROM task WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.NotFoundError{Kind: "task", ID: id}
		}
		if err != nil {
			return fmt.Errorf("failed to lock task: %w", err)
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

		_, err = q.Exec(ctx, `
			UPDATE task SET
				volunteer_id = $2, previous_volunteer_id = $3, status = $4,
				volunteer_confirmed = $5, elderly_confirmed = $6, reassignment_reason = $7,
				title = $8, description = $9, location = $10, scheduled_at = $11,
				estimated_duration_minutes = $12, updated_at = $13
			WHERE id = $1
		`, id, current.VolunteerID, current.PreviousVolunteerID, string(current.Status),
			current.VolunteerConfirmed, current.ElderlyConfirmed, current.ReassignmentReason,
			current.Title, current.Description, current.Location, current.ScheduledAt.UTC(),
			current.EstimatedDurationMinutes, current.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTaskIf removes the task only while its status is one of allowed
func (d *DB) DeleteTaskIf(ctx context.Context, id string, allowed ...model.TaskStatus) (bool, error) {
	if len(allowed) == 0 {
		return false, nil
	}
	tag, err := d.q.Exec(ctx, `DELETE FROM task WHERE id = $1 AND status = ANY($2)`, id, statusStrings(allowed))
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// QueryTasks returns the tasks matching filter ordered by id
func (d *DB) QueryTasks(ctx context.Context, filter db.TaskFilter) ([]model.Task, error) {
	where, args := taskWhere(filter)
	rows, err := d.q.Query(ctx, `SELECT `+taskColumns+` FROM task`+where+` ORDER BY id COLLATE "C"`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// taskWhere builds the WHERE clause and positional args for a filter
func taskWhere(filter db.TaskFilter) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if len(filter.Statuses) > 0 {
		add("status = ANY($%d)", statusStrings(filter.Statuses))
	}
	if filter.RequesterID != "" {
		add("requester_id = $%d", filter.RequesterID)
	}
	if filter.VolunteerID != "" {
		add("volunteer_id = $%d", filter.VolunteerID)
	}
	if filter.SeriesID != "" {
		add("series_id = $%d", filter.SeriesID)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func statusStrings(statuses []model.TaskStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
