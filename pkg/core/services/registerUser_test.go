package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()
	database := db.NewMemoryDB()

	volunteer, err := RegisterUser(ctx, database, NewUser{
		Username:  " alice ",
		FirstName: "Alice",
		Email:     "alice@example.com",
		Role:      "volunteer",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.NotEmpty(t, volunteer.ID)
	assert.Equal(t, "alice", volunteer.Username)
	assert.Equal(t, model.RoleVolunteer, volunteer.Role)

	rec, err := database.GetPoints(ctx, volunteer.ID)
	require.NoError(t, err, "volunteers get a points record on registration")
	assert.Equal(t, 0, rec.Points)
	assert.Equal(t, 1, rec.Level)

	elderly, err := RegisterUser(ctx, database, NewUser{ID: "granny", Username: "granny", Role: "ELDERLY"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "granny", elderly.ID)

	_, err = database.GetPoints(ctx, "granny")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRegisterUser_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input NewUser
		field string
	}{
		{name: "missing username", input: NewUser{Role: "VOLUNTEER"}, field: "Username"},
		{name: "unknown role", input: NewUser{Username: "x", Role: "ADMIN"}, field: "Role"},
		{name: "bad email", input: NewUser{Username: "x", Role: "ELDERLY", Email: "not-an-email"}, field: "Email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RegisterUser(context.Background(), db.NewMemoryDB(), tt.input, zap.NewNop())
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRegisterUser_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	database := db.NewMemoryDB()
	require.NoError(t, seedStore(ctx, database))

	_, err := RegisterUser(ctx, database, NewUser{Username: "alice", Role: "VOLUNTEER"}, zap.NewNop())
	assert.ErrorIs(t, err, model.ErrValidation)

	users, err := database.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}
