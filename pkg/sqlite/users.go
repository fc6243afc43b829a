package sqlite

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/core/points"
	"github.com/jakechorley/helping-hands/pkg/db"
)

func (d *DB) InsertUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return d.atomically(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRow{}).Where("id = ?", user.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("check user id: %w", err)
		}
		if count > 0 {
			return &model.ValidationError{Field: "id", Reason: "user already exists: " + user.ID}
		}
		if err := tx.Model(&userRow{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if count > 0 {
			return &model.ValidationError{Field: "username", Reason: "username already taken: " + user.Username}
		}

		row := toUserRow(user)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
}

func (d *DB) GetUser(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	err := d.gdb.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &model.NotFoundError{Kind: "user", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	user := row.toModel()
	return &user, nil
}

func (d *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	var rows []userRow
	if err := d.gdb.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]model.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toModel())
	}
	return users, nil
}

func (d *DB) GetPoints(ctx context.Context, userID string) (*model.UserPointsRecord, error) {
	return getPoints(d.gdb.WithContext(ctx), userID)
}

func getPoints(tx *gorm.DB, userID string) (*model.UserPointsRecord, error) {
	var row pointsRow
	err := tx.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &model.NotFoundError{Kind: "points", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("find points: %w", err)
	}
	rec := row.toModel()
	return &rec, nil
}

func (d *DB) UpsertPoints(ctx context.Context, rec *model.UserPointsRecord) error {
	return upsertPoints(d.gdb.WithContext(ctx), rec)
}

func upsertPoints(tx *gorm.DB, rec *model.UserPointsRecord) error {
	row := toPointsRow(rec)
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

func (d *DB) UpdatePoints(ctx context.Context, userID string, mutate db.PointsMutation) (*model.UserPointsRecord, error) {
	var updated model.UserPointsRecord
	err := d.atomically(ctx, func(tx *gorm.DB) error {
		current, err := getPoints(tx, userID)
		if errors.Is(err, model.ErrNotFound) {
			fresh := points.NewRecord(userID)
			current = &fresh
		} else if err != nil {
			return err
		}

		updated = mutate(*current)
		updated.UserID = userID
		return upsertPoints(tx, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// QueryVolunteersByPoints loads every volunteer with their points and sorts in memory
func (d *DB) QueryVolunteersByPoints(ctx context.Context, limit int) ([]db.VolunteerPoints, error) {
	tx := d.gdb.WithContext(ctx)

	var users []userRow
	if err := tx.Where("role = ?", string(model.RoleVolunteer)).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list volunteers: %w", err)
	}
	if len(users) == 0 {
		return []db.VolunteerPoints{}, nil
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	var recs []pointsRow
	if err := tx.Where("user_id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list points: %w", err)
	}
	byUser := make(map[string]model.UserPointsRecord, len(recs))
	for _, r := range recs {
		byUser[r.UserID] = r.toModel()
	}

	result := make([]db.VolunteerPoints, 0, len(users))
	for _, u := range users {
		rec, ok := byUser[u.ID]
		if !ok {
			rec = points.NewRecord(u.ID)
		}
		result = append(result, db.VolunteerPoints{User: u.toModel(), Points: rec})
	}
	db.SortVolunteerPoints(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
