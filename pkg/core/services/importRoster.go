package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

// RosterClient defines the sheets operation needed to read the user roster
type RosterClient interface {
	ListRoster(spreadsheetID, tab string) ([]model.User, error)
}

// ImportResult summarises a roster import
type ImportResult struct {
	Created []model.User
	Skipped []model.User // Already registered or rejected by the store
}

// ImportRoster registers every roster user that is not registered yet.
// Rows with an existing id or a taken username are skipped, not treated as failures.
func ImportRoster(
	ctx context.Context,
	database db.Database,
	rosterClient RosterClient,
	spreadsheetID, tab string,
	logger *zap.Logger,
) (*ImportResult, error) {
	users, err := rosterClient.ListRoster(spreadsheetID, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	logger.Debug("Read roster", zap.Int("count", len(users)))

	result := &ImportResult{Created: []model.User{}, Skipped: []model.User{}}
	for _, u := range users {
		user := u
		if user.ID != "" {
			if _, err := database.GetUser(ctx, user.ID); err == nil {
				result.Skipped = append(result.Skipped, user)
				continue
			} else if !errors.Is(err, model.ErrNotFound) {
				return nil, fmt.Errorf("failed to look up user %s: %w", user.ID, err)
			}
		}

		created, err := RegisterUser(ctx, database, NewUser{
			ID:        user.ID,
			Username:  user.Username,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
			Role:      string(user.Role),
		}, logger)
		if err != nil {
			if errors.Is(err, model.ErrValidation) {
				logger.Warn("Skipping roster row", zap.String("username", user.Username), zap.Error(err))
				result.Skipped = append(result.Skipped, user)
				continue
			}
			return nil, fmt.Errorf("failed to register %s: %w", user.Username, err)
		}
		result.Created = append(result.Created, *created)
	}

	return result, nil
}
