package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

func seriesInput() NewTask {
	return NewTask{
		RequesterID:              "granny",
		Title:                    "Pharmacy run",
		Location:                 "High Street",
		ScheduledAt:              time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC), // Monday
		EstimatedDurationMinutes: 45,
	}
}

func TestCreateSeries_Weekly(t *testing.T) {
	f := newFixture(t)

	tasks, err := f.lc.CreateSeries(f.ctx, seriesInput(), "FREQ=WEEKLY;COUNT=4", 0)
	require.NoError(t, err)
	require.Len(t, tasks, 4)

	seriesID := tasks[0].SeriesID
	assert.NotEmpty(t, seriesID)
	for i, task := range tasks {
		expected := time.Date(2025, 3, 3+7*i, 9, 30, 0, 0, time.UTC)
		assert.True(t, expected.Equal(task.ScheduledAt), "occurrence %d: got %s", i, task.ScheduledAt)
		assert.Equal(t, seriesID, task.SeriesID)
		assert.Equal(t, model.StatusAvailable, task.Status)
		assert.Equal(t, 45, task.EstimatedDurationMinutes)
	}

	stored, err := f.database.QueryTasks(f.ctx, db.TaskFilter{SeriesID: seriesID})
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestCreateSeries_AcceptsRRulePrefix(t *testing.T) {
	f := newFixture(t)

	tasks, err := f.lc.CreateSeries(f.ctx, seriesInput(), "RRULE:FREQ=DAILY;COUNT=2", 0)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestCreateSeries_LimitCapsOpenEndedRule(t *testing.T) {
	f := newFixture(t)

	tasks, err := f.lc.CreateSeries(f.ctx, seriesInput(), "FREQ=WEEKLY;BYDAY=MO,TH", 5)
	require.NoError(t, err)
	assert.Len(t, tasks, 5)
}

func TestCreateSeries_MaxOccurrencesOption(t *testing.T) {
	f := newFixture(t)
	lc := New(f.database, zap.NewNop(), WithMaxOccurrences(3))

	tasks, err := lc.CreateSeries(f.ctx, seriesInput(), "FREQ=DAILY;COUNT=10", 20)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
}

func TestCreateSeries_InvalidRule(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		rule string
	}{
		{"empty", ""},
		{"garbage", "NOT_A_RULE"},
		{"unknown frequency", "FREQ=FORTNIGHTLY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := f.lc.CreateSeries(f.ctx, seriesInput(), tt.rule, 0)
			assert.Nil(t, tasks)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}

	stored, err := f.database.QueryTasks(f.ctx, db.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCreateSeries_UnknownRequesterCreatesNothing(t *testing.T) {
	f := newFixture(t)
	input := seriesInput()
	input.RequesterID = "nobody"

	_, err := f.lc.CreateSeries(f.ctx, input, "FREQ=DAILY;COUNT=3", 0)
	assert.ErrorIs(t, err, model.ErrNotFound)

	stored, err := f.database.QueryTasks(f.ctx, db.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, stored)
}
