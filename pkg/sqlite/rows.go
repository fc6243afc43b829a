package sqlite

import (
	"time"

	"github.com/jakechorley/helping-hands/pkg/core/model"
)

type userRow struct {
	ID        string `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;not null"`
	FirstName string
	LastName  string
	Email     string
	Role      string `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

type taskRow struct {
	ID                       string `gorm:"primaryKey"`
	SeriesID                 string `gorm:"index"`
	RequesterID              string `gorm:"index;not null"`
	VolunteerID              string `gorm:"index"`
	PreviousVolunteerID      string
	Status                   string `gorm:"index;not null"`
	VolunteerConfirmed       bool   `gorm:"default:false"`
	ElderlyConfirmed         bool   `gorm:"default:false"`
	EstimatedDurationMinutes int
	ReassignmentReason       string
	Title                    string
	Description              string
	Location                 string
	ScheduledAt              time.Time
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (taskRow) TableName() string { return "tasks" }

type pointsRow struct {
	UserID           string `gorm:"primaryKey"`
	Points           int
	Level            int
	Rank             string
	TasksCompleted   int
	TasksReassigned  int
	HoursVolunteered int
}

func (pointsRow) TableName() string { return "user_points" }

func toUserRow(u *model.User) userRow {
	return userRow{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      string(u.Role),
	}
}

func (r userRow) toModel() model.User {
	return model.User{
		ID:        r.ID,
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Role:      model.Role(r.Role),
	}
}

func toTaskRow(t *model.Task) taskRow {
	return taskRow{
		ID:                       t.ID,
		SeriesID:                 t.SeriesID,
		RequesterID:              t.RequesterID,
		VolunteerID:              t.VolunteerID,
		PreviousVolunteerID:      t.PreviousVolunteerID,
		Status:                   string(t.Status),
		VolunteerConfirmed:       t.VolunteerConfirmed,
		ElderlyConfirmed:         t.ElderlyConfirmed,
		EstimatedDurationMinutes: t.EstimatedDurationMinutes,
		ReassignmentReason:       t.ReassignmentReason,
		Title:                    t.Title,
		Description:              t.Description,
		Location:                 t.Location,
		ScheduledAt:              t.ScheduledAt.UTC(),
		CreatedAt:                t.CreatedAt.UTC(),
		UpdatedAt:                t.UpdatedAt.UTC(),
	}
}

func (r taskRow) toModel() model.Task {
	return model.Task{
		ID:                       r.ID,
		SeriesID:                 r.SeriesID,
		RequesterID:              r.RequesterID,
		VolunteerID:              r.VolunteerID,
		PreviousVolunteerID:      r.PreviousVolunteerID,
		Status:                   model.TaskStatus(r.Status),
		VolunteerConfirmed:       r.VolunteerConfirmed,
		ElderlyConfirmed:         r.ElderlyConfirmed,
		EstimatedDurationMinutes: r.EstimatedDurationMinutes,
		ReassignmentReason:       r.ReassignmentReason,
		Title:                    r.Title,
		Description:              r.Description,
		Location:                 r.Location,
		ScheduledAt:              r.ScheduledAt.UTC(),
		CreatedAt:                r.CreatedAt.UTC(),
		UpdatedAt:                r.UpdatedAt.UTC(),
	}
}

func toPointsRow(rec *model.UserPointsRecord) pointsRow {
	return pointsRow{
		UserID:           rec.UserID,
		Points:           rec.Points,
		Level:            rec.Level,
		Rank:             rec.Rank,
		TasksCompleted:   rec.TasksCompleted,
		TasksReassigned:  rec.TasksReassigned,
		HoursVolunteered: rec.HoursVolunteered,
	}
}

func (r pointsRow) toModel() model.UserPointsRecord {
	return model.UserPointsRecord{
		UserID:           r.UserID,
		Points:           r.Points,
		Level:            r.Level,
		Rank:             r.Rank,
		TasksCompleted:   r.TasksCompleted,
		TasksReassigned:  r.TasksReassigned,
		HoursVolunteered: r.HoursVolunteered,
	}
}
