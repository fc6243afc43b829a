// Package dbtest holds behaviour checks shared by every db.Database engine.
package dbtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/core/points"
	"github.com/jakechorley/helping-hands/pkg/db"
)

// Opener returns an empty database for a single subtest
type Opener func(t *testing.T) db.Database

// RunContract exercises the TaskStore, UserStore and WithTx guarantees against an engine
func RunContract(t *testing.T, open Opener) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("task crud", func(t *testing.T) { testTaskCRUD(t, open(t)) })
	t.Run("update if", func(t *testing.T) { testUpdateIf(t, open(t)) })
	t.Run("concurrent update if", func(t *testing.T) { testConcurrentUpdateIf(t, open(t)) })
	t.Run("delete if", func(t *testing.T) { testDeleteIf(t, open(t)) })
	t.Run("query tasks", func(t *testing.T) { testQueryTasks(t, open(t)) })
	t.Run("with tx rollback", func(t *testing.T) { testWithTxRollback(t, open(t)) })
	t.Run("points", func(t *testing.T) { testPoints(t, open(t)) })
	t.Run("volunteers by points", func(t *testing.T) { testVolunteersByPoints(t, open(t)) })
	t.Run("volunteers by points byte order ties", func(t *testing.T) { testVolunteersByPointsByteOrder(t, open(t)) })
}

func seed(t *testing.T, database db.Database) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []model.User{
		{ID: "granny", Username: "granny", FirstName: "Edna", Role: model.RoleElderly},
		{ID: "alice", Username: "alice", FirstName: "Alice", Email: "alice@example.com", Role: model.RoleVolunteer},
		{ID: "bob", Username: "bob", FirstName: "Bob", Role: model.RoleVolunteer},
	} {
		user := u
		require.NoError(t, database.InsertUser(ctx, &user))
	}
}

func newTask(title string, day int) *model.Task {
	return &model.Task{
		RequesterID:              "granny",
		Status:                   model.StatusAvailable,
		EstimatedDurationMinutes: 60,
		Title:                    title,
		ScheduledAt:              time.Date(2025, 5, day, 9, 0, 0, 0, time.UTC),
	}
}

func assign(volunteerID string) db.TaskMutation {
	return func(task *model.Task) error {
		task.VolunteerID = volunteerID
		task.Status = model.StatusAssigned
		return nil
	}
}

func testUsers(t *testing.T, database db.Database) {
	ctx := context.Background()
	seed(t, database)

	got, err := database.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, model.RoleVolunteer, got.Role)

	_, err = database.GetUser(ctx, "nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = database.InsertUser(ctx, &model.User{Username: "alice", Role: model.RoleVolunteer})
	assert.ErrorIs(t, err, model.ErrValidation)

	err = database.InsertUser(ctx, &model.User{ID: "alice", Username: "alice2", Role: model.RoleVolunteer})
	assert.ErrorIs(t, err, model.ErrValidation)

	generated := &model.User{Username: "carol", Role: model.RoleVolunteer}
	require.NoError(t, database.InsertUser(ctx, generated))
	assert.NotEmpty(t, generated.ID)

	users, err := database.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 4)
}

func testTaskCRUD(t *testing.T, database db.Database) {
	ctx := context.Background()
	seed(t, database)

	task := newTask("Shopping", 1)
	id, err := database.CreateTask(ctx, task)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, task.ID)

	got, err := database.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Shopping", got.Title)
	assert.Equal(t, model.StatusAvailable, got.Status)
	assert.True(t, got.ScheduledAt.Equal(task.ScheduledAt))
	assert.False(t, got.CreatedAt.IsZero())

	_, err = database.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func testUpdateIf(t *testing.T, database db.Database) {
	ctx := context.Background()
	seed(t, database)

	id, err := database.CreateTask(ctx, newTask("Shopping", 1))
	require.NoError(t, err)

	updated, err := database.UpdateTaskIf(ctx, id, model.StatusAvailable, assign("alice"))
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.VolunteerID)
	assert.Equal(t, model.StatusAssigned, updated.Status)

	_, err = database.UpdateTaskIf(ctx, id, model.StatusAvailable, assign("bob"))
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = database.UpdateTaskIf(ctx, "missing", model.StatusAvailable, assign("bob"))
	assert.ErrorIs(t, err, model.ErrNotFound)

	// A failing mutation leaves the task untouched
	_, err = database.UpdateTaskIf(ctx, id, model.StatusAssigned, func(task *model.Task) error {
		task.Title = "changed"
		return errors.New("rejected")
	})
	assert.EqualError(t, err, "rejected")

	got, err := database.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Shopping", got.Title)
	assert.Equal(t, "alice", got.VolunteerID)
}

func testConcurrentUpdateIf(t *testing.T, database db.Database) {
	ctx := context.Background()
	seed(t, database)

	id, err := database.CreateTask(ctx, newTask("Shopping", 1))
	require.NoError(t, err)

	volunteers := []string{"alice", "bob", "alice", "bob", "alice", "bob"}
	errs := make([]error, len(volunteers))
	var wg sync.WaitGroup
	for i, v := range volunteers {
		wg.Add(1)
		go func(i int, v string) {
			defer wg.Done()
			_, errs[i] = database.UpdateTaskIf(ctx, id, model.StatusAvailable, assign(v))
		}(i, v)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, model.ErrConflict)
	}
	assert.Equal(t, 1, wins)
}

func testDeleteIf(t *testing.T, database db.Database) {
	ctx := context.Background()
	seed(t, database)

	id, err := database.CreateTask(ctx, newTask("Shopping", 1))
	require.NoError(t, err)

	deleted, err := database.DeleteTaskIf(ctx, id, model.StatusCompleted)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = database.DeleteTaskIf(ctx, id, model.StatusAvailable, model.StatusCancelled)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = database.DeleteTaskIf(ctx, id, model.StatusAvailable)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testQueryTasks(t *testing.T, database db.Database) {
	ctx := context.Background()
	seed(t, database)

	_, err := database.CreateTask(ctx, newTask("Shopping", 1))
	require.NoError(t, err)
	second, err := database.CreateTask(ctx, newTask("Garden", 2))
	require.NoError(t, err)
	series := newTask("Walk", 3)
	series.SeriesID = "series-1"
	_, err = database.CreateTask(ctx, series)
	require.NoError(t, err)

	_, err = database.UpdateTaskIf(ctx, second, model.StatusAvailable, assign("alice"))
	require.NoError(t, err)

	all, err := database.QueryTasks(ctx, db.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	available, err := database.QueryTasks(ctx, db.TaskFilter{Statuses: []model.TaskStatus{model.StatusAvailable}})
	require.NoError(t, err)
	assert.Len(t, available, 2)

	mine, err := database.QueryTasks(ctx, db.TaskFilter{VolunteerID: "alice"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, second, mine[0].ID)

	inSeries, err := database.QueryTasks(ctx, db.TaskFilter{SeriesID: "series-1"})
	require.NoError(t, err)
	require.Len(t, inSeries, 1)
	assert.Equal(t, "Walk", inSeries[0].Title)

	none, err := database.QueryTasks(ctx, db.TaskFilter{RequesterID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func testWithTxRollback(t *testing.T, database db.Database) {
	ctx := context.Background()
	seed(t, database)

	id, err := database.CreateTask(ctx, newTask("Shopping", 1))
	require.NoError(t, err)

	err = database.WithTx(ctx, func(tx db.Database) error {
		if _, err := tx.UpdateTaskIf(ctx, id, model.StatusAvailable, assign("alice")); err != nil {
			return err
		}
		if _, err := tx.UpdatePoints(ctx, "alice", points.ReassignPenalty); err != nil {
			return err
		}
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")

	got, err := database.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, got.Status)

	_, err = database.GetPoints(ctx, "alice")
	assert.ErrorIs(t, err, model.ErrNotFound)

	err = database.WithTx(ctx, func(tx db.Database) error {
		_, err := tx.UpdateTaskIf(ctx, id, model.StatusAvailable, assign("alice"))
		return err
	})
	require.NoError(t, err)

	got, err = database.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, got.Status)
}

func testPoints(t *testing.T, database db.Database) {
	ctx := context.Background()
	seed(t, database)

	_, err := database.GetPoints(ctx, "alice")
	assert.ErrorIs(t, err, model.ErrNotFound)

	rec, err := database.UpdatePoints(ctx, "alice", func(rec model.UserPointsRecord) model.UserPointsRecord {
		return points.CompleteTask(rec, 90)
	})
	require.NoError(t, err)
	assert.Equal(t, 30, rec.Points)
	assert.Equal(t, 1, rec.HoursVolunteered)

	rec, err = database.UpdatePoints(ctx, "alice", points.ReassignPenalty)
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Points)
	assert.Equal(t, 1, rec.TasksReassigned)

	stored, err := database.GetPoints(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, *rec, *stored)

	manual := points.NewRecord("bob")
	manual.Points = 700
	manual.Level = points.LevelFor(700)
	require.NoError(t, database.UpsertPoints(ctx, &manual))
	manual.Points = 800
	require.NoError(t, database.UpsertPoints(ctx, &manual))

	stored, err = database.GetPoints(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 800, stored.Points)
}

func testVolunteersByPoints(t *testing.T, database db.Database) {
	ctx := context.Background()
	seed(t, database)
	require.NoError(t, database.InsertUser(ctx, &model.User{ID: "carl", Username: "carl", Role: model.RoleVolunteer}))

	_, err := database.UpdatePoints(ctx, "bob", func(rec model.UserPointsRecord) model.UserPointsRecord {
		return points.CompleteTask(rec, 60)
	})
	require.NoError(t, err)

	list, err := database.QueryVolunteersByPoints(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "bob", list[0].User.ID)
	assert.Equal(t, 20, list[0].Points.Points)
	// Ties at zero fall back to user id
	assert.Equal(t, "alice", list[1].User.ID)
	assert.Equal(t, "carl", list[2].User.ID)
	assert.Equal(t, points.NewRecord("carl"), list[2].Points)

	limited, err := database.QueryVolunteersByPoints(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

// Upper case sorts before lower case, whatever the engine's collation
func testVolunteersByPointsByteOrder(t *testing.T, database db.Database) {
	ctx := context.Background()
	for _, id := range []string{"amy", "Zoe", "ben"} {
		require.NoError(t, database.InsertUser(ctx, &model.User{ID: id, Username: id, Role: model.RoleVolunteer}))
	}

	top, err := database.QueryVolunteersByPoints(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Zoe", top[0].User.ID)

	all, err := database.QueryVolunteersByPoints(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, vp := range all {
		ids[i] = vp.User.ID
	}
	assert.Equal(t, []string{"Zoe", "amy", "ben"}, ids)

	users, err := database.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "Zoe", users[0].ID)
}
