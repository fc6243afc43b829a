package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/core/points"
	"github.com/jakechorley/helping-hands/pkg/db"
)

const uniqueViolation = "23505"

// InsertUser inserts a user, generating an id when none is set
func (d *DB) InsertUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	_, err := d.q.Exec(ctx, `
		INSERT INTO app_user (id, username, first_name, last_name, email, role)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Username, user.FirstName, user.LastName, user.Email, string(user.Role))

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if pgErr.ConstraintName == "app_user_username_key" {
			return &model.ValidationError{Field: "username", Reason: "username already taken: " + user.Username}
		}
		return &model.ValidationError{Field: "id", Reason: "user already exists: " + user.ID}
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var role string
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &role); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// GetUser retrieves a user by id
func (d *DB) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(d.q.QueryRow(ctx, `
		SELECT id, username, first_name, last_name, email, role FROM app_user WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.NotFoundError{Kind: "user", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns every user ordered by id
func (d *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := d.q.Query(ctx, `
		SELECT id, username, first_name, last_name, email, role FROM app_user ORDER BY id COLLATE "C"
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

const pointsColumns = `user_id, points, level, rank, tasks_completed, tasks_reassigned, hours_volunteered`

func scanPoints(row pgx.Row) (*model.UserPointsRecord, error) {
	var rec model.UserPointsRecord
	err := row.Scan(&rec.UserID, &rec.Points, &rec.Level, &rec.Rank,
		&rec.TasksCompleted, &rec.TasksReassigned, &rec.HoursVolunteered)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetPoints retrieves the points record of a user
func (d *DB) GetPoints(ctx context.Context, userID string) (*model.UserPointsRecord, error) {
	rec, err := scanPoints(d.q.QueryRow(ctx, `SELECT `+pointsColumns+` FROM user_points WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &model.NotFoundError{Kind: "points", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get points: %w", err)
	}
	return rec, nil
}

// UpsertPoints writes a points record, replacing any existing one
func (d *DB) UpsertPoints(ctx context.Context, rec *model.UserPointsRecord) error {
	return upsertPoints(ctx, d.q, rec)
}

func upsertPoints(ctx context.Context, q queryer, rec *model.UserPointsRecord) error {
	_, err := q.Exec(ctx, `
		INSERT INTO user_points (`+pointsColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			points = EXCLUDED.points,
			level = EXCLUDED.level,
			rank = EXCLUDED.rank,
			tasks_completed = EXCLUDED.tasks_completed,
			tasks_reassigned = EXCLUDED.tasks_reassigned,
			hours_volunteered = EXCLUDED.hours_volunteered
	`, rec.UserID, rec.Points, rec.Level, rec.Rank, rec.TasksCompleted, rec.TasksReassigned, rec.HoursVolunteered)
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// UpdatePoints locks the user's points row, creating it first if needed, and writes mutate's result
func (d *DB) UpdatePoints(ctx context.Context, userID string, mutate db.PointsMutation) (*model.UserPointsRecord, error) {
	var updated model.UserPointsRecord
	err := d.inTx(ctx, func(q queryer) error {
		fresh := points.NewRecord(userID)
		_, err := q.Exec(ctx, `
			INSERT INTO user_points (`+pointsColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id) DO NOTHING
		`, fresh.UserID, fresh.Points, fresh.Level, fresh.Rank, fresh.TasksCompleted, fresh.TasksReassigned, fresh.HoursVolunteered)
		if err != nil {
			return fmt.Errorf("failed to initialise points: %w", err)
		}

		current, err := scanPoints(q.QueryRow(ctx, `
			SELECT `+pointsColumns+` FROM user_points WHERE user_id = $1 FOR UPDATE
		`, userID))
		if err != nil {
			return fmt.Errorf("failed to lock points: %w", err)
		}

		updated = mutate(*current)
		updated.UserID = userID
		return upsertPoints(ctx, q, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// QueryVolunteersByPoints joins volunteers to their points, defaulting missing records
func (d *DB) QueryVolunteersByPoints(ctx context.Context, limit int) ([]db.VolunteerPoints, error) {
	sql, args := volunteersByPointsQuery(limit)
	rows, err := d.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query volunteer points: %w", err)
	}
	defer rows.Close()

	result := make([]db.VolunteerPoints, 0)
	for rows.Next() {
		var vp db.VolunteerPoints
		var role string
		var pts, level, completed, reassigned, hours *int
		var rank *string
		err := rows.Scan(&vp.User.ID, &vp.User.Username, &vp.User.FirstName, &vp.User.LastName, &vp.User.Email, &role,
			&pts, &level, &rank, &completed, &reassigned, &hours)
		if err != nil {
			return nil, fmt.Errorf("failed to scan volunteer points: %w", err)
		}
		vp.User.Role = model.Role(role)

		vp.Points = points.NewRecord(vp.User.ID)
		if pts != nil {
			vp.Points.Points = *pts
			vp.Points.Level = *level
			vp.Points.Rank = *rank
			vp.Points.TasksCompleted = *completed
			vp.Points.TasksReassigned = *reassigned
			vp.Points.HoursVolunteered = *hours
		}
		result = append(result, vp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volunteer points: %w", err)
	}
	return result, nil
}

// volunteersByPointsQuery orders ties by user id in byte order, matching
// db.SortVolunteerPoints, so the LIMIT cut-off is independent of the database collation
func volunteersByPointsQuery(limit int) (string, []any) {
	sql := `
		SELECT u.id, u.username, u.first_name, u.last_name, u.email, u.role,
			p.points, p.level, p.rank, p.tasks_completed, p.tasks_reassigned, p.hours_volunteered
		FROM app_user u
		LEFT JOIN user_points p ON p.user_id = u.id
		WHERE u.role = $1
		ORDER BY COALESCE(p.points, 0) DESC, COALESCE(p.tasks_completed, 0) DESC, u.id COLLATE "C" ASC`
	args := []any{string(model.RoleVolunteer)}
	if limit > 0 {
		sql += ` LIMIT $2`
		args = append(args, limit)
	}
	return sql, args
}
