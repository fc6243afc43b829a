package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/core/points"
	"github.com/jakechorley/helping-hands/pkg/db"
)

var validate = validator.New()

// NewUser is the input for registering a user
type NewUser struct {
	ID        string
	Username  string `validate:"required,max=64"`
	FirstName string `validate:"max=100"`
	LastName  string `validate:"max=100"`
	Email     string `validate:"omitempty,email"`
	Role      string `validate:"required,oneof=ELDERLY VOLUNTEER"`
}

// RegisterUser validates and stores a user. Volunteers get an empty points record
// in the same transaction so they appear on the leaderboard straight away.
func RegisterUser(ctx context.Context, database db.Database, input NewUser, logger *zap.Logger) (*model.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.Role = strings.ToUpper(strings.TrimSpace(input.Role))

	if err := validate.Struct(input); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, &model.ValidationError{
				Field:  fe.Field(),
				Reason: fmt.Sprintf("failed on '%s' (value %v)", fe.Tag(), fe.Value()),
			}
		}
		return nil, &model.ValidationError{Reason: err.Error()}
	}

	user := &model.User{
		ID:        strings.TrimSpace(input.ID),
		Username:  input.Username,
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     input.Email,
		Role:      model.Role(input.Role),
	}

	err := database.WithTx(ctx, func(tx db.Database) error {
		if err := tx.InsertUser(ctx, user); err != nil {
			return err
		}
		if user.Role != model.RoleVolunteer {
			return nil
		}
		rec := points.NewRecord(user.ID)
		if err := tx.UpsertPoints(ctx, &rec); err != nil {
			return fmt.Errorf("failed to create points record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Registered user",
		zap.String("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))
	return user, nil
}
