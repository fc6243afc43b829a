package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

func TestImportRoster(t *testing.T) {
	ctx := context.Background()
	database := db.NewMemoryDB()
	require.NoError(t, seedStore(ctx, database))

	roster := &mockRosterClient{users: []model.User{
		{ID: "alice", Username: "alice", Role: model.RoleVolunteer},   // already registered
		{ID: "carol", Username: "carol", Role: model.RoleVolunteer},   // new
		{Username: "dora", FirstName: "Dora", Role: model.RoleElderly}, // new, generated id
		{ID: "bobby", Username: "bob", Role: model.RoleVolunteer},     // username taken
	}}

	result, err := ImportRoster(ctx, database, roster, "sheet-1", "Roster", zap.NewNop())
	require.NoError(t, err)

	require.Len(t, result.Created, 2)
	assert.Equal(t, "carol", result.Created[0].ID)
	assert.Equal(t, "dora", result.Created[1].Username)
	assert.NotEmpty(t, result.Created[1].ID)

	require.Len(t, result.Skipped, 2)
	assert.Equal(t, "alice", result.Skipped[0].Username)
	assert.Equal(t, "bob", result.Skipped[1].Username)

	users, err := database.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 5)

	// Running again is idempotent for rows with ids
	result, err = ImportRoster(ctx, database, &mockRosterClient{users: roster.users[:2]}, "sheet-1", "Roster", zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Len(t, result.Skipped, 2)
}

func TestImportRoster_ReadError(t *testing.T) {
	_, err := ImportRoster(context.Background(), db.NewMemoryDB(), &mockRosterClient{err: errors.New("forbidden")}, "sheet-1", "Roster", zap.NewNop())
	assert.ErrorContains(t, err, "failed to read roster: forbidden")
}
