package leaderboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/core/points"
	"github.com/jakechorley/helping-hands/pkg/db"
)

func seed(t *testing.T, records map[string]model.UserPointsRecord, elderly ...string) *db.MemoryDB {
	t.Helper()
	ctx := context.Background()
	database := db.NewMemoryDB()

	for id, rec := range records {
		user := model.User{ID: id, Username: id, Role: model.RoleVolunteer}
		require.NoError(t, database.InsertUser(ctx, &user))
		rec.UserID = id
		rec.Level = points.LevelFor(rec.Points)
		rec.Rank = points.RankFor(rec.Level)
		require.NoError(t, database.UpsertPoints(ctx, &rec))
	}
	for _, id := range elderly {
		user := model.User{ID: id, Username: id, Role: model.RoleElderly}
		require.NoError(t, database.InsertUser(ctx, &user))
	}
	return database
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.User.ID
	}
	return out
}

func TestTopN_Ordering(t *testing.T) {
	database := seed(t, map[string]model.UserPointsRecord{
		"carol": {Points: 120, TasksCompleted: 4},
		"alice": {Points: 300, TasksCompleted: 9},
		"bob":   {Points: 120, TasksCompleted: 6},
		"dave":  {Points: 120, TasksCompleted: 4},
		"erin":  {Points: -20, TasksReassigned: 1},
	}, "granny")

	entries, err := TopN(context.Background(), database, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob", "carol", "dave", "erin"}, ids(entries))
	for i, e := range entries {
		assert.Equal(t, i+1, e.Position)
	}
	assert.Equal(t, 300, entries[0].Points)
	assert.Equal(t, 9, entries[0].TasksCompleted)
	assert.Equal(t, -20, entries[4].Points)
	assert.Equal(t, "Newcomer", entries[4].Rank)
}

func TestTopN_TieBrokenByTasksCompleted(t *testing.T) {
	database := seed(t, map[string]model.UserPointsRecord{
		"zed": {Points: 50, TasksCompleted: 5},
		"amy": {Points: 50, TasksCompleted: 2},
	})

	entries, err := TopN(context.Background(), database, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"zed", "amy"}, ids(entries))
}

func TestTopN_Limit(t *testing.T) {
	database := seed(t, map[string]model.UserPointsRecord{
		"a": {Points: 10},
		"b": {Points: 20},
		"c": {Points: 30},
	})

	tests := []struct {
		name     string
		n        int
		expected []string
	}{
		{"top two", 2, []string{"c", "b"}},
		{"more than available", 10, []string{"c", "b", "a"}},
		{"zero returns all", 0, []string{"c", "b", "a"}},
		{"negative returns all", -3, []string{"c", "b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := TopN(context.Background(), database, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(entries))
		})
	}
}

func TestTopN_ExcludesElderlyAndReflectsUpdates(t *testing.T) {
	ctx := context.Background()
	database := seed(t, map[string]model.UserPointsRecord{"alice": {Points: 10}}, "granny")

	entries, err := TopN(ctx, database, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids(entries))

	bob := model.User{ID: "bob", Username: "bob", Role: model.RoleVolunteer}
	require.NoError(t, database.InsertUser(ctx, &bob))
	_, err = database.UpdatePoints(ctx, "bob", func(rec model.UserPointsRecord) model.UserPointsRecord {
		return points.CompleteTask(rec, 90)
	})
	require.NoError(t, err)

	entries, err = TopN(ctx, database, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "alice"}, ids(entries))
}

type failingStore struct{}

func (failingStore) QueryVolunteersByPoints(ctx context.Context, limit int) ([]db.VolunteerPoints, error) {
	return nil, errors.New("connection reset")
}

func TestTopN_StoreError(t *testing.T) {
	entries, err := TopN(context.Background(), failingStore{}, 5)
	assert.Nil(t, entries)
	assert.ErrorContains(t, err, "connection reset")
}
