// Package catalog provides read-only task listings for callers.
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

// Store defines the database operations needed by the catalog
type Store interface {
	QueryTasks(ctx context.Context, filter db.TaskFilter) ([]model.Task, error)
}

// Catalog lists tasks ordered by scheduled time. Nothing is cached.
type Catalog struct {
	store Store
}

func New(store Store) *Catalog {
	return &Catalog{store: store}
}

// Available returns tasks open for volunteers to pick up
func (c *Catalog) Available(ctx context.Context) ([]model.Task, error) {
	return c.query(ctx, db.TaskFilter{Statuses: []model.TaskStatus{model.StatusAvailable}})
}

// ByRequester returns every task created by the requester
func (c *Catalog) ByRequester(ctx context.Context, requesterID string) ([]model.Task, error) {
	return c.query(ctx, db.TaskFilter{RequesterID: requesterID})
}

// ByVolunteer returns every task currently assigned to the volunteer
func (c *Catalog) ByVolunteer(ctx context.Context, volunteerID string) ([]model.Task, error) {
	return c.query(ctx, db.TaskFilter{VolunteerID: volunteerID})
}

// AwaitingConfirmation returns tasks where one side has confirmed and the other has not
func (c *Catalog) AwaitingConfirmation(ctx context.Context) ([]model.Task, error) {
	return c.query(ctx, db.TaskFilter{Statuses: []model.TaskStatus{
		model.StatusPendingElderlyConfirmation,
		model.StatusPendingVolunteerConfirmation,
	}})
}

func (c *Catalog) query(ctx context.Context, filter db.TaskFilter) ([]model.Task, error) {
	tasks, err := c.store.QueryTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	SortBySchedule(tasks)
	return tasks, nil
}

// SortBySchedule orders tasks by scheduled time, then id
func SortBySchedule(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].ScheduledAt.Equal(tasks[j].ScheduledAt) {
			return tasks[i].ScheduledAt.Before(tasks[j].ScheduledAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
