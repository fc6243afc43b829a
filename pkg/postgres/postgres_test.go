package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/core/points"
	"github.com/jakechorley/helping-hands/pkg/db"
	"github.com/jakechorley/helping-hands/pkg/db/dbtest"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_points.sql": &fstest.MapFile{Data: []byte("SELECT 2;")},
		"migrations/001_init.sql":   &fstest.MapFile{Data: []byte("SELECT 1;")},
		"migrations/README.md":      &fstest.MapFile{Data: []byte("docs")},
		"migrations/003_more.sql":   &fstest.MapFile{Data: []byte("SELECT 3;")},
	}

	tests := []struct {
		name     string
		applied  map[string]bool
		expected []string
	}{
		{name: "fresh database", applied: map[string]bool{}, expected: []string{"001_init.sql", "002_points.sql", "003_more.sql"}},
		{name: "partially applied", applied: map[string]bool{"001_init.sql": true}, expected: []string{"002_points.sql", "003_more.sql"}},
		{name: "up to date", applied: map[string]bool{"001_init.sql": true, "002_points.sql": true, "003_more.sql": true}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending, err := pendingMigrations(fsys, tt.applied)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, pending)
		})
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	pending, err := pendingMigrations(migrationsFS, map[string]bool{})
	require.NoError(t, err)
	assert.Contains(t, pending, "001_init.sql")
}

func TestTaskWhere(t *testing.T) {
	where, args := taskWhere(db.TaskFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = taskWhere(db.TaskFilter{
		Statuses:    []model.TaskStatus{model.StatusAvailable, model.StatusAssigned},
		VolunteerID: "alice",
	})
	assert.Equal(t, " WHERE status = ANY($1) AND volunteer_id = $2", where)
	assert.Equal(t, []any{[]string{"AVAILABLE", "ASSIGNED"}, "alice"}, args)
}

// openTestDB connects to HELPING_HANDS_TEST_DSN and resets the schema
func TestVolunteersByPointsQuery(t *testing.T) {
	sql, args := volunteersByPointsQuery(0)
	assert.Contains(t, sql, `u.id COLLATE "C" ASC`)
	assert.NotContains(t, sql, "LIMIT")
	assert.Equal(t, []any{"VOLUNTEER"}, args)

	sql, args = volunteersByPointsQuery(5)
	assert.Contains(t, sql, "LIMIT $2")
	assert.Equal(t, []any{"VOLUNTEER", 5}, args)
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("HELPING_HANDS_TEST_DSN")
	if dsn == "" {
		t.Skip("HELPING_HANDS_TEST_DSN not set")
	}

	ctx := context.Background()
	database, err := NewDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(database.Close)

	require.NoError(t, database.RunMigrations(ctx))
	_, err = database.pool.Exec(ctx, `TRUNCATE task, user_points, app_user`)
	require.NoError(t, err)
	return database
}

func TestIntegration_Contract(t *testing.T) {
	dbtest.RunContract(t, func(t *testing.T) db.Database {
		return openTestDB(t)
	})
}

func seedUsers(t *testing.T, database *DB) {
	t.Helper()
	ctx := context.Background()
	for _, u := range []model.User{
		{ID: "granny", Username: "granny", Role: model.RoleElderly},
		{ID: "alice", Username: "alice", Role: model.RoleVolunteer},
		{ID: "bob", Username: "bob", Role: model.RoleVolunteer},
	} {
		user := u
		require.NoError(t, database.InsertUser(ctx, &user))
	}
}

func newTask() *model.Task {
	return &model.Task{
		RequesterID:              "granny",
		Status:                   model.StatusAvailable,
		EstimatedDurationMinutes: 60,
		Title:                    "Shopping",
		ScheduledAt:              time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestIntegration_TaskRoundTrip(t *testing.T) {
	database := openTestDB(t)
	seedUsers(t, database)
	ctx := context.Background()

	id, err := database.CreateTask(ctx, newTask())
	require.NoError(t, err)

	got, err := database.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Shopping", got.Title)
	assert.Equal(t, model.StatusAvailable, got.Status)

	_, err = database.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestIntegration_UpdateTaskIf(t *testing.T) {
	database := openTestDB(t)
	seedUsers(t, database)
	ctx := context.Background()

	id, err := database.CreateTask(ctx, newTask())
	require.NoError(t, err)

	assign := func(task *model.Task) error {
		task.VolunteerID = "alice"
		task.Status = model.StatusAssigned
		return nil
	}

	updated, err := database.UpdateTaskIf(ctx, id, model.StatusAvailable, assign)
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.VolunteerID)

	_, err = database.UpdateTaskIf(ctx, id, model.StatusAvailable, assign)
	assert.ErrorIs(t, err, model.ErrConflict)

	_, err = database.UpdateTaskIf(ctx, "missing", model.StatusAvailable, assign)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestIntegration_ConcurrentUpdateTaskIf(t *testing.T) {
	database := openTestDB(t)
	seedUsers(t, database)
	ctx := context.Background()

	id, err := database.CreateTask(ctx, newTask())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = database.UpdateTaskIf(ctx, id, model.StatusAvailable, func(task *model.Task) error {
				task.VolunteerID = "alice"
				task.Status = model.StatusAssigned
				return nil
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, model.ErrConflict)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestIntegration_WithTxRollsBack(t *testing.T) {
	database := openTestDB(t)
	seedUsers(t, database)
	ctx := context.Background()

	err := database.WithTx(ctx, func(tx db.Database) error {
		if _, err := tx.CreateTask(ctx, newTask()); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	tasks, err := database.QueryTasks(ctx, db.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestIntegration_DeleteTaskIf(t *testing.T) {
	database := openTestDB(t)
	seedUsers(t, database)
	ctx := context.Background()

	id, err := database.CreateTask(ctx, newTask())
	require.NoError(t, err)

	deleted, err := database.DeleteTaskIf(ctx, id, model.StatusCompleted)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = database.DeleteTaskIf(ctx, id, model.StatusAvailable)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestIntegration_PointsAndLeaderboard(t *testing.T) {
	database := openTestDB(t)
	seedUsers(t, database)
	ctx := context.Background()

	_, err := database.GetPoints(ctx, "alice")
	assert.ErrorIs(t, err, model.ErrNotFound)

	rec, err := database.UpdatePoints(ctx, "alice", func(rec model.UserPointsRecord) model.UserPointsRecord {
		return points.CompleteTask(rec, 90)
	})
	require.NoError(t, err)
	assert.Equal(t, 30, rec.Points)
	assert.Equal(t, 1, rec.TasksCompleted)

	list, err := database.QueryVolunteersByPoints(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alice", list[0].User.ID)
	assert.Equal(t, "bob", list[1].User.ID)
	assert.Equal(t, points.NewRecord("bob"), list[1].Points)

	list, err = database.QueryVolunteersByPoints(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestIntegration_DuplicateUsername(t *testing.T) {
	database := openTestDB(t)
	seedUsers(t, database)

	err := database.InsertUser(context.Background(), &model.User{ID: "other", Username: "alice", Role: model.RoleVolunteer})
	assert.ErrorIs(t, err, model.ErrValidation)
}
