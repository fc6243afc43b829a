package db

import (
	"context"

	"github.com/jakechorley/helping-hands/pkg/core/model"
)

// TaskFilter narrows a task query. Zero-valued fields are ignored.
type TaskFilter struct {
	Statuses    []model.TaskStatus
	RequesterID string
	VolunteerID string
	SeriesID    string
}

// Matches reports whether a task satisfies the filter
func (f TaskFilter) Matches(t *model.Task) bool {
	if f.RequesterID != "" && t.RequesterID != f.RequesterID {
		return false
	}
	if f.VolunteerID != "" && t.VolunteerID != f.VolunteerID {
		return false
	}
	if f.SeriesID != "" && t.SeriesID != f.SeriesID {
		return false
	}
	if len(f.Statuses) > 0 {
		for _, s := range f.Statuses {
			if t.Status == s {
				return true
			}
		}
		return false
	}
	return true
}

// TaskMutation edits a task in place. Returning an error aborts the update.
type TaskMutation func(task *model.Task) error

// PointsMutation computes the new points record from the current one
type PointsMutation func(rec model.UserPointsRecord) model.UserPointsRecord

// TaskStore defines the task persistence operations
type TaskStore interface {
	// CreateTask assigns a new id to the task, persists it and returns the id
	CreateTask(ctx context.Context, task *model.Task) (string, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// UpdateTaskIf applies mutate only while the stored status equals expected.
	// Returns *model.ConflictError when the status differs and *model.NotFoundError when the task is gone.
	UpdateTaskIf(ctx context.Context, id string, expected model.TaskStatus, mutate TaskMutation) (*model.Task, error)
	// DeleteTaskIf removes the task only while its status is one of allowed
	DeleteTaskIf(ctx context.Context, id string, allowed ...model.TaskStatus) (bool, error)
	QueryTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
}

// UserStore defines the user and points persistence operations
type UserStore interface {
	InsertUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	GetPoints(ctx context.Context, userID string) (*model.UserPointsRecord, error)
	UpsertPoints(ctx context.Context, rec *model.UserPointsRecord) error
	// UpdatePoints serializes read-modify-write per user, creating the record if it does not exist yet
	UpdatePoints(ctx context.Context, userID string, mutate PointsMutation) (*model.UserPointsRecord, error)
	// QueryVolunteersByPoints returns volunteer records ordered by points, tasks completed, then user id.
	// limit <= 0 returns every volunteer.
	QueryVolunteersByPoints(ctx context.Context, limit int) ([]VolunteerPoints, error)
}

// VolunteerPoints pairs a volunteer with their points record
type VolunteerPoints struct {
	User   model.User
	Points model.UserPointsRecord
}

// Database defines the interface for all database operations.
// The memory, postgres and sqlite engines implement this interface.
type Database interface {
	TaskStore
	UserStore
	// WithTx runs fn against a transactional view. Every write made through tx
	// is applied together, or none are if fn returns an error.
	WithTx(ctx context.Context, fn func(tx Database) error) error
	Close()
}
