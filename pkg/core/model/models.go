package model

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleElderly   Role = "ELDERLY"
	RoleVolunteer Role = "VOLUNTEER"
)

func (r Role) IsValid() bool {
	return r == RoleElderly || r == RoleVolunteer
}

// TaskStatus is the lifecycle state of a task
type TaskStatus string

const (
	StatusAvailable                    TaskStatus = "AVAILABLE"
	StatusAssigned                     TaskStatus = "ASSIGNED"
	StatusInProgress                   TaskStatus = "IN_PROGRESS"
	StatusPendingVolunteerConfirmation TaskStatus = "PENDING_VOLUNTEER_CONFIRMATION"
	StatusPendingElderlyConfirmation   TaskStatus = "PENDING_ELDERLY_CONFIRMATION"
	StatusCompleted                    TaskStatus = "COMPLETED"
	StatusCancelled                    TaskStatus = "CANCELLED"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []TaskStatus{
	StatusAvailable,
	StatusAssigned,
	StatusInProgress,
	StatusPendingVolunteerConfirmation,
	StatusPendingElderlyConfirmation,
	StatusCompleted,
	StatusCancelled,
}

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusAssigned, StatusInProgress,
		StatusPendingVolunteerConfirmation, StatusPendingElderlyConfirmation,
		StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are possible (deletion aside)
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseTaskStatus converts a string into a TaskStatus, rejecting unknown values
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.IsValid() {
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown task status %q", raw)}
	}
	return s, nil
}

// User is a registered requester or volunteer
type User struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Email     string
	Role      Role
}

// DisplayName returns the full name, falling back to the username
func (u User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

// Task is a request for help created by an elderly user
type Task struct {
	ID                       string
	SeriesID                 string // Empty unless created as part of a recurring series
	RequesterID              string
	VolunteerID              string // Empty when no volunteer is assigned
	PreviousVolunteerID      string
	Status                   TaskStatus
	VolunteerConfirmed       bool
	ElderlyConfirmed         bool
	EstimatedDurationMinutes int
	ReassignmentReason       string

	Title       string
	Description string
	Location    string
	ScheduledAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasVolunteer reports whether a volunteer is currently assigned
func (t *Task) HasVolunteer() bool {
	return t.VolunteerID != ""
}

// CheckInvariants verifies the relationships between status, volunteer and confirmation flags
func (t *Task) CheckInvariants() error {
	if (t.VolunteerConfirmed || t.ElderlyConfirmed) && !t.HasVolunteer() {
		return fmt.Errorf("task %s: confirmation recorded without an assigned volunteer", t.ID)
	}
	completed := t.Status == StatusCompleted
	if completed != (t.VolunteerConfirmed && t.ElderlyConfirmed) {
		return fmt.Errorf("task %s: status %s inconsistent with confirmations (volunteer=%t, elderly=%t)",
			t.ID, t.Status, t.VolunteerConfirmed, t.ElderlyConfirmed)
	}
	if (t.Status == StatusAvailable || t.Status == StatusCancelled) && t.HasVolunteer() {
		return fmt.Errorf("task %s: status %s must not have a volunteer", t.ID, t.Status)
	}
	return nil
}

// UserPointsRecord holds the gamification totals for a volunteer
type UserPointsRecord struct {
	UserID           string
	Points           int
	Level            int
	Rank             string
	TasksCompleted   int
	TasksReassigned  int
	HoursVolunteered int
}
