package services

import (
	"context"
	"errors"
	"time"

	"github.com/jakechorley/helping-hands/pkg/clients/sheetsclient"
	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

// mockGmailClient records sent emails and fails for configured addresses
type mockGmailClient struct {
	sentEmails []string
	subjects   []string
	bodies     []string
	failFor    map[string]bool
}

func (m *mockGmailClient) SendEmail(to, subject, body string) error {
	if m.failFor[to] {
		return errors.New("smtp unavailable")
	}
	m.sentEmails = append(m.sentEmails, to)
	m.subjects = append(m.subjects, subject)
	m.bodies = append(m.bodies, body)
	return nil
}

// mockPublisher records the last published leaderboard
type mockPublisher struct {
	spreadsheetID string
	tab           string
	rows          []sheetsclient.LeaderboardRow
	generatedAt   time.Time
	err           error
}

func (m *mockPublisher) PublishLeaderboard(spreadsheetID, tab string, rows []sheetsclient.LeaderboardRow, generatedAt time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.spreadsheetID = spreadsheetID
	m.tab = tab
	m.rows = rows
	m.generatedAt = generatedAt
	return nil
}

// mockRosterClient returns a fixed roster
type mockRosterClient struct {
	users []model.User
	err   error
}

func (m *mockRosterClient) ListRoster(spreadsheetID, tab string) ([]model.User, error) {
	return m.users, m.err
}

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

// seedStore registers one requester and two volunteers
func seedStore(ctx context.Context, database db.Database) error {
	users := []model.User{
		{ID: "granny", Username: "granny", FirstName: "Edna", LastName: "Jones", Email: "edna@example.com", Role: model.RoleElderly},
		{ID: "alice", Username: "alice", FirstName: "Alice", Email: "alice@example.com", Role: model.RoleVolunteer},
		{ID: "bob", Username: "bob", FirstName: "Bob", Role: model.RoleVolunteer},
	}
	for i := range users {
		if err := database.InsertUser(ctx, &users[i]); err != nil {
			return err
		}
	}
	return nil
}

func insertTask(ctx context.Context, database db.Database, task model.Task) (string, error) {
	if task.RequesterID == "" {
		task.RequesterID = "granny"
	}
	if task.EstimatedDurationMinutes == 0 {
		task.EstimatedDurationMinutes = 60
	}
	return database.CreateTask(ctx, &task)
}
