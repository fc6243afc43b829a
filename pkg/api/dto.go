package api

import (
	"time"

	"github.com/jakechorley/helping-hands/pkg/core/leaderboard"
	"github.com/jakechorley/helping-hands/pkg/core/model"
)

type userRequest struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      string(u.Role),
	}
}

type createTaskRequest struct {
	RequesterID              string    `json:"requesterId"`
	Title                    string    `json:"title"`
	Description              string    `json:"description"`
	Location                 string    `json:"location"`
	ScheduledAt              time.Time `json:"scheduledAt"`
	EstimatedDurationMinutes int       `json:"estimatedDurationMinutes"`
}

type createSeriesRequest struct {
	createTaskRequest
	RRule string `json:"rrule"`
	Count int    `json:"count"`
}

// actionRequest is the body of every transition endpoint
type actionRequest struct {
	ActorID        string `json:"actorId"`
	Reason         string `json:"reason"`
	ExpectedStatus string `json:"expectedStatus"`
}

type taskResponse struct {
	ID                       string    `json:"id"`
	SeriesID                 string    `json:"seriesId,omitempty"`
	RequesterID              string    `json:"requesterId"`
	VolunteerID              string    `json:"volunteerId,omitempty"`
	PreviousVolunteerID      string    `json:"previousVolunteerId,omitempty"`
	Status                   string    `json:"status"`
	VolunteerConfirmed       bool      `json:"volunteerConfirmed"`
	ElderlyConfirmed         bool      `json:"elderlyConfirmed"`
	EstimatedDurationMinutes int       `json:"estimatedDurationMinutes"`
	ReassignmentReason       string    `json:"reassignmentReason,omitempty"`
	Title                    string    `json:"title"`
	Description              string    `json:"description,omitempty"`
	Location                 string    `json:"location,omitempty"`
	ScheduledAt              time.Time `json:"scheduledAt"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
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
		ScheduledAt:              t.ScheduledAt,
		CreatedAt:                t.CreatedAt,
		UpdatedAt:                t.UpdatedAt,
	}
}

func toTaskResponses(tasks []model.Task) []taskResponse {
	out := make([]taskResponse, len(tasks))
	for i := range tasks {
		out[i] = toTaskResponse(&tasks[i])
	}
	return out
}

type leaderboardEntryResponse struct {
	Position         int    `json:"position"`
	UserID           string `json:"userId"`
	Name             string `json:"name"`
	Points           int    `json:"points"`
	Level            int    `json:"level"`
	Rank             string `json:"rank"`
	TasksCompleted   int    `json:"tasksCompleted"`
	TasksReassigned  int    `json:"tasksReassigned"`
	HoursVolunteered int    `json:"hoursVolunteered"`
}

func toLeaderboardResponse(entries []leaderboard.Entry) []leaderboardEntryResponse {
	out := make([]leaderboardEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = leaderboardEntryResponse{
			Position:         e.Position,
			UserID:           e.User.ID,
			Name:             e.User.DisplayName(),
			Points:           e.Points,
			Level:            e.Level,
			Rank:             e.Rank,
			TasksCompleted:   e.TasksCompleted,
			TasksReassigned:  e.TasksReassigned,
			HoursVolunteered: e.HoursVolunteered,
		}
	}
	return out
}
