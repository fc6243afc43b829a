package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

// interleavedDB runs a competing write once, inside the transaction, after the
// task has been read and before the status compare-and-swap
type interleavedDB struct {
	*db.MemoryDB
	competing db.TaskMutation
}

func (d *interleavedDB) WithTx(ctx context.Context, fn func(tx db.Database) error) error {
	return d.MemoryDB.WithTx(ctx, func(tx db.Database) error {
		return fn(&interleavedTx{Database: tx, owner: d})
	})
}

type interleavedTx struct {
	db.Database
	owner *interleavedDB
}

func (t *interleavedTx) UpdateTaskIf(ctx context.Context, id string, expected model.TaskStatus, mutate db.TaskMutation) (*model.Task, error) {
	if competing := t.owner.competing; competing != nil {
		t.owner.competing = nil
		current, err := t.Database.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, err := t.Database.UpdateTaskIf(ctx, id, current.Status, competing); err != nil {
			return nil, err
		}
	}
	return t.Database.UpdateTaskIf(ctx, id, expected, mutate)
}

func newInterleavedFixture(t *testing.T) (*fixture, *interleavedDB) {
	t.Helper()
	f := newFixture(t)
	wrapped := &interleavedDB{MemoryDB: f.database}
	f.lc = New(wrapped, zap.NewNop())
	return f, wrapped
}

func TestReassign_PenalizesVolunteerOnLockedRow(t *testing.T) {
	f, wrapped := newInterleavedFixture(t)
	task := f.createTask(t, 60)
	_, err := f.lc.Assign(f.ctx, task.ID, "alice")
	require.NoError(t, err)

	// alice is swapped for bob between the read and the update; status stays ASSIGNED
	wrapped.competing = func(row *model.Task) error {
		row.PreviousVolunteerID = row.VolunteerID
		row.VolunteerID = "bob"
		return nil
	}

	reassigned, err := f.lc.Reassign(f.ctx, task.ID, "granny", "no show")
	require.NoError(t, err)
	assert.Equal(t, "bob", reassigned.PreviousVolunteerID)
	assert.Equal(t, model.StatusAvailable, reassigned.Status)

	bob := f.points(t, "bob")
	assert.Equal(t, -20, bob.Points)
	assert.Equal(t, 1, bob.TasksReassigned)

	alice := f.points(t, "alice")
	assert.Equal(t, 0, alice.Points)
	assert.Equal(t, 0, alice.TasksReassigned)
}

func TestExpectStatus(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, 60)
	_, err := f.lc.Assign(f.ctx, task.ID, "alice")
	require.NoError(t, err)

	_, err = f.lc.Cancel(f.ctx, task.ID, "granny", ExpectStatus(model.StatusInProgress))
	assert.ErrorIs(t, err, model.ErrConflict)
	assert.ErrorContains(t, err, "expected status IN_PROGRESS")

	cancelled, err := f.lc.Cancel(f.ctx, task.ID, "granny", ExpectStatus(model.StatusAssigned))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
}

func TestExpectStatus_CompetingTransitionWins(t *testing.T) {
	f, wrapped := newInterleavedFixture(t)
	task := f.createTask(t, 60)
	_, err := f.lc.Assign(f.ctx, task.ID, "alice")
	require.NoError(t, err)

	wrapped.competing = func(row *model.Task) error {
		row.VolunteerConfirmed = true
		row.Status = model.StatusPendingElderlyConfirmation
		return nil
	}

	_, err = f.lc.Cancel(f.ctx, task.ID, "granny", ExpectStatus(model.StatusAssigned))
	assert.ErrorIs(t, err, model.ErrConflict)

	stored, err := f.database.GetTask(f.ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAssigned, stored.Status, "failed transaction must not commit the competing write")
}
